package kafka

import (
	"context"
	"fmt"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// SyncProducer publishes through kafka-go with full-ISR acknowledgement, so a
// published outbox task is durable before it is marked done.
type SyncProducer struct {
	writer *segmentio.Writer
}

func NewSyncProducer(brokers []string) *SyncProducer {
	return &SyncProducer{
		writer: &segmentio.Writer{
			Addr:                   segmentio.TCP(brokers...),
			Balancer:               &segmentio.Hash{},
			RequiredAcks:           segmentio.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *SyncProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	return p.writer.WriteMessages(ctx, segmentio.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *SyncProducer) Close() error {
	return p.writer.Close()
}

// ConsoleProducer prints events instead of publishing them. Used in local
// development without a broker.
type ConsoleProducer struct {
	logger *zap.Logger
}

func NewConsoleProducer(logger *zap.Logger) *ConsoleProducer {
	return &ConsoleProducer{logger: logger}
}

func (p *ConsoleProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("\n--- KAFKA (CONSOLE) topic=%s key=%s ---\n%s\n--- END ---\n", topic, key, value)
	return nil
}

func (p *ConsoleProducer) Close() error {
	p.logger.Info("closing console producer")
	return nil
}
