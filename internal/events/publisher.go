package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// SaleCompletedType is the event type of SaleCompletedEvent.
const SaleCompletedType = "sale.completed"

// SaleCompletedEvent is published once per committed sale.
type SaleCompletedEvent struct {
	Type       string            `json:"type"`
	SaleID     string            `json:"saleId"`
	Items      []models.SaleItem `json:"items"`
	Total      float64           `json:"total"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SalePublisher sends sale events keyed by sale id.
type SalePublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaWriter builds a writer for a comma-separated broker list.
func NewKafkaWriter(brokersCSV, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokersCSV)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func splitBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewSalePublisher wraps writer.
func NewSalePublisher(writer MessageWriter, logger *zap.Logger) *SalePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalePublisher{writer: writer, logger: logger}
}

// SaleCompleted publishes the sale.
func (p *SalePublisher) SaleCompleted(ctx context.Context, sale models.Sale) error {
	data, err := json.Marshal(SaleCompletedEvent{
		Type:       SaleCompletedType,
		SaleID:     sale.ID,
		Items:      sale.Items,
		Total:      sale.Total,
		OccurredAt: sale.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode sale event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sale.ID),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(SaleCompletedType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sale %s: %w", sale.ID, err)
	}

	p.logger.Debug("sale event published", zap.String("sale_id", sale.ID))
	return nil
}

// Close flushes and closes the writer.
func (p *SalePublisher) Close() error {
	return p.writer.Close()
}
