// Package kafka publishes search events as JSON with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sandeepstha184/IR-assignment123/pkg/config"
)

// Event is one message. Key picks the partition, Value is marshalled to
// JSON, Headers become Kafka record headers and Time the record timestamp
// (zero means the broker's time).
type Event struct {
	Key     string
	Value   any
	Headers map[string]string
	Time    time.Time
}

// Producer writes to a single topic. It is safe for concurrent use.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer does not dial; the writer connects on first use.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	})
}

func newProducer(w *kafka.Writer) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", w.Topic),
	}
}

// PublishBatch encodes every event before writing any, so a bad value
// fails the whole batch without a partial write.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write %d messages to %s: %w", len(msgs), p.writer.Topic, err)
	}
	return nil
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// Close flushes buffered messages and logs the writer's lifetime totals.
func (p *Producer) Close() error {
	err := p.writer.Close()
	st := p.writer.Stats()
	p.logger.Info("kafka producer closed",
		"messages", st.Messages,
		"bytes", st.Bytes,
		"errors", st.Errors,
	)
	return err
}

func encode(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, ev := range events {
		value, err := json.Marshal(ev.Value)
		if err != nil {
			return nil, fmt.Errorf("event %d (key %q): %w", i, ev.Key, err)
		}
		msgs[i] = kafka.Message{
			Key:     []byte(ev.Key),
			Value:   value,
			Headers: headers(ev.Headers),
			Time:    ev.Time,
		}
	}
	return msgs, nil
}

// headers sorts by key so the encoded order does not depend on map order.
func headers(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kafka.Header, len(keys))
	for i, k := range keys {
		out[i] = kafka.Header{Key: k, Value: []byte(h[k])}
	}
	return out
}
