package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/pkg/clients/mailer"
	"github.com/mamadbah2/kitchenpos/pkg/clients/whatsapp"
)

const separator = "----------------------------------"

var (
	ErrUnsupportedContact = errors.New("contact is neither an email address nor a phone number")
	ErrChannelDisabled    = errors.New("notification channel is not configured")
)

// Dispatcher renders receipts and routes them to email or WhatsApp.
type Dispatcher struct {
	mail     mailer.Client
	whatsapp whatsapp.Client
	location *time.Location
	logger   *zap.Logger
}

// NewDispatcher wires the delivery channels. Either client may be nil.
func NewDispatcher(mail mailer.Client, wa whatsapp.Client, location *time.Location, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{mail: mail, whatsapp: wa, location: location, logger: logger}
}

// Send delivers the receipt for notice to contact.
func (d *Dispatcher) Send(ctx context.Context, contact string, notice models.ReceiptNotice) error {
	contact = strings.TrimSpace(contact)
	body := d.RenderReceipt(notice)

	switch {
	case strings.Contains(contact, "@"):
		if d.mail == nil {
			return fmt.Errorf("email receipt: %w", ErrChannelDisabled)
		}
		err := d.mail.Send(ctx, mailer.Message{
			To:      contact,
			Subject: fmt.Sprintf("Invoice for Order #%s", notice.SaleID),
			Text:    body,
		})
		if err != nil {
			return fmt.Errorf("email receipt: %w", err)
		}
	case isPhoneNumber(contact):
		if d.whatsapp == nil {
			return fmt.Errorf("whatsapp receipt: %w", ErrChannelDisabled)
		}
		_, err := d.whatsapp.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{To: contact, Body: body})
		if err != nil {
			return fmt.Errorf("whatsapp receipt: %w", err)
		}
	default:
		return ErrUnsupportedContact
	}

	d.logger.Info("receipt sent", zap.String("sale_id", notice.SaleID))
	return nil
}

// RenderReceipt formats the plain text invoice.
func (d *Dispatcher) RenderReceipt(notice models.ReceiptNotice) string {
	created := notice.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	var b strings.Builder
	b.WriteString("Thank you for your purchase!\n\n")
	fmt.Fprintf(&b, "Order Reference: %s\n", notice.SaleID)
	fmt.Fprintf(&b, "Date: %s\n\n", created.In(d.location).Format("2006-01-02 15:04"))
	b.WriteString("Items Purchased:\n")
	b.WriteString(separator + "\n")
	for i, item := range notice.Items {
		name := item.Name
		if name == "" {
			name = "Product"
		}
		fmt.Fprintf(&b, "%d. %s - Qty: %d - Price: $%.2f\n", i+1, name, item.Quantity, item.PriceAtSale)
	}
	b.WriteString(separator + "\n\n")
	fmt.Fprintf(&b, "TOTAL: $%.2f\n\n", notice.Total)
	b.WriteString("Have a great day!\n")
	return b.String()
}

func isPhoneNumber(s string) bool {
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 6 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
