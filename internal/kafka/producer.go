package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTicks,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxRetries,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	logger.Info("kafka producer created", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.TopicTicks))

	return &Producer{
		writer: w,
		logger: logger,
	}
}

// PublishTick keys messages by symbol so ticks for one instrument stay
// ordered within a partition.
func (p *Producer) PublishTick(ctx context.Context, event *models.TickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling tick event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing tick event: %w", err)
	}

	return nil
}

func (p *Producer) PublishBatch(ctx context.Context, events []*models.TickEvent) error {
	msgs := make([]kafka.Message, len(events))
	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshaling event %d: %w", i, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(event.Symbol),
			Value: data,
			Time:  time.Now(),
		}
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing batch of %d events: %w", len(events), err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
