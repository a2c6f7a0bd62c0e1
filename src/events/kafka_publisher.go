package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"go.uber.org/zap"
)

// KafkaPublisher writes bill events to a Kafka topic, keyed by tenant id so
// that one tenant's events stay ordered within a partition
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	clock    func() time.Time
}

// NewKafkaPublisher connects a synchronous producer to the brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true // Required by SyncProducer

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Sarama SyncProducer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
		clock:    time.Now,
	}
}

// BillCreated publishes a bill.created event
func (p *KafkaPublisher) BillCreated(ctx context.Context, bill models.Bill) error {
	return p.publish(ctx, EventBillCreated, bill)
}

// BillPaid publishes a bill.paid event
func (p *KafkaPublisher) BillPaid(ctx context.Context, bill models.Bill) error {
	return p.publish(ctx, EventBillPaid, bill)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType EventType, bill models.Bill) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(BillEvent{
		Type:       eventType,
		OccurredAt: p.clock().UTC(),
		Bill:       bill,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(bill.TenantID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for bill %s: %w", eventType, bill.ID, err)
	}

	p.logger.Debug("Bill event published",
		zap.String("type", string(eventType)),
		zap.String("bill_id", bill.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close shuts the producer down
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
