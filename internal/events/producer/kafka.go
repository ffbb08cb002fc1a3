package producer

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"sessionguard/internal/events"
	"sessionguard/internal/logging"
)

const writeTimeout = 5 * time.Second

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a Kafka producer that writes change events to the given topic.
// Returns nil when brokers or topic is empty, which disables Kafka publication. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}
}

// Publish serializes the event as JSON and writes it to the topic, keyed by user so one user's
// events stay ordered within a partition.
func (p *KafkaProducer) Publish(ctx context.Context, ev events.ChangeEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", p.topic).Str("kind", string(ev.Kind)).Msg("events: kafka write failed")
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Message encodes ev as a Kafka message. The key is the user id, or the record id when the event has no user.
func Message(ev events.ChangeEvent) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	key := ev.UserID
	if key == "" {
		key = ev.ID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "op", Value: []byte(ev.Op)},
		},
	}, nil
}
