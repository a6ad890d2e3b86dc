package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/kitchenpos/internal/config"
)

// Client sends transactional email.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain text email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// APIClient posts messages to a JSON mail relay (POST {base}/messages).
type APIClient struct {
	httpClient *resty.Client
	from       string
}

// NewClient builds a mail API client using the provided configuration values.
func NewClient(cfg config.MailConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.APIURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	if cfg.APIKey != "" {
		restyClient.SetAuthToken(cfg.APIKey)
	}

	return &APIClient{httpClient: restyClient, from: cfg.From}
}

type errorBody struct {
	Message string `json:"message"`
}

// Send delivers msg, filling From from configuration when empty.
func (c *APIClient) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = c.from
	}

	apiErr := new(errorBody)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetError(apiErr).
		Post("messages")
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail api error: status=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}
