package models

import "strings"

// CommandType enumerates supported staff command categories.
type CommandType string

const (
	CommandShortages CommandType = "shortages"
	CommandRestock   CommandType = "restock"
	CommandSales     CommandType = "sales"
	CommandHelp      CommandType = "help"
	CommandUnknown   CommandType = "unknown"
)

// Command represents a parsed staff instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
// Arguments keep their original casing so item names survive a restock.
func ParseCommand(message string) Command {
	cmd := Command{Raw: message, Type: CommandUnknown}

	tokens := strings.Fields(strings.TrimSpace(message))
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	switch CommandType(head) {
	case CommandShortages, CommandRestock, CommandSales, CommandHelp:
		cmd.Type = CommandType(head)
	case "stock", "low":
		cmd.Type = CommandShortages
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
