package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

type mockWriter struct {
	msgs []kafka.Message
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func TestSaleCompletedPublishesKeyedEvent(t *testing.T) {
	writer := &mockWriter{}
	pub := NewSalePublisher(writer, nil)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := pub.SaleCompleted(context.Background(), models.Sale{
		ID:        "sale-1",
		Items:     []models.SaleItem{{ProductID: "p1", Name: "Bread", Quantity: 2, PriceAtSale: 5}},
		Total:     10,
		CreatedAt: created,
	})
	require.NoError(t, err)

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, "sale-1", string(msg.Key))

	var event SaleCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, SaleCompletedType, event.Type)
	assert.Equal(t, 10.0, event.Total)
	assert.True(t, created.Equal(event.OccurredAt))
}

func TestNewKafkaWriterSplitsBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))

	w := NewKafkaWriter("a:9092", "sales")
	assert.Equal(t, "sales", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
