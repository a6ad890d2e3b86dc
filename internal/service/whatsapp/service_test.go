package whatsapp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/config"
	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/commands"
	client "github.com/mamadbah2/kitchenpos/pkg/clients/whatsapp"
)

type recordingClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (c *recordingClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	c.sent = append(c.sent, req)
	return &client.SendTextMessageResponse{}, c.err
}

type stubDispatcher struct {
	reply string
	err   error
	seen  []models.Command
}

func (d *stubDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	d.seen = append(d.seen, cmd)
	return d.reply, d.err
}

func payload(messages ...models.InboundMessage) models.WebhookPayload {
	return models.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{{Field: "messages", Value: models.WebhookValue{Messages: messages}}},
		}},
	}
}

func textMessage(from, body string) models.InboundMessage {
	return models.InboundMessage{From: from, ID: "wamid." + from, Type: "text", Text: &models.TextContent{Body: body}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, nil, nil, nil)

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "1158201444")
	require.NoError(t, err)
	assert.Equal(t, "1158201444", challenge)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "x")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("unsubscribe", "secret", "x")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("", "", "x")
	assert.Error(t, err)
}

func TestHandleWebhookRepliesWithCommandResult(t *testing.T) {
	wa := &recordingClient{}
	dispatcher := &stubDispatcher{reply: "No shortages: every item is above its minimum."}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, dispatcher, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload(textMessage("224600000000", "/shortages"))))

	require.Len(t, dispatcher.seen, 1)
	assert.Equal(t, models.CommandShortages, dispatcher.seen[0].Type)
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "224600000000", wa.sent[0].To)
	assert.Equal(t, dispatcher.reply, wa.sent[0].Body)
}

func TestHandleWebhookInvalidArguments(t *testing.T) {
	wa := &recordingClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, &stubDispatcher{err: commands.ErrInvalidArguments}, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload(textMessage("2246", "/restock x"))))
	require.Len(t, wa.sent, 1)
	assert.Equal(t, `Could not read "/restock x". Try /help.`, wa.sent[0].Body)
}

func TestHandleWebhookSkipsNonText(t *testing.T) {
	wa := &recordingClient{}
	dispatcher := &stubDispatcher{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, dispatcher, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload(models.InboundMessage{From: "2246", Type: "image"})))
	assert.Empty(t, dispatcher.seen)
	assert.Empty(t, wa.sent)
}

func TestHandleWebhookReturnsFirstSendError(t *testing.T) {
	wa := &recordingClient{err: errors.New("boom")}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, &stubDispatcher{reply: "ok"}, nil)

	err := svc.HandleWebhook(context.Background(), payload(textMessage("1", "/help"), textMessage("2", "/help")))
	assert.EqualError(t, err, "boom")
	assert.Len(t, wa.sent, 2)
}

func TestSendOutboundDisabled(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, nil, nil, nil)
	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestExtractMessageText(t *testing.T) {
	msg := models.InboundMessage{Interactive: &models.InteractiveContent{ButtonReply: &models.ReplyItem{ID: "/sales"}}}
	assert.Equal(t, "/sales", extractMessageText(msg))
	msg = models.InboundMessage{Interactive: &models.InteractiveContent{ListReply: &models.ReplyItem{ID: "/help"}}}
	assert.Equal(t, "/help", extractMessageText(msg))
	assert.Empty(t, extractMessageText(models.InboundMessage{}))
}
