package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

// messageWriter is the subset of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each Action keyed by ticker, so all actions for one symbol
// land on the same partition.
type Kafka struct {
	writer messageWriter
	topic  string
}

var _ interfaces.Sink = (*Kafka)(nil)

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("%w: kafka brokers and topic are required", types.ErrConfig)
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Kafka{writer: writer, topic: topic}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Deliver(ctx context.Context, a types.Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: marshal action: %w", types.ErrDeliveryFailure, err)
	}
	msg := kafka.Message{
		Key:   []byte(a.Ticker),
		Value: data,
		Time:  a.Timestamp,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka topic %s: %w", types.ErrDeliveryFailure, k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
