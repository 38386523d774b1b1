package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-volunteering/internal/models"
)

const batchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event changes to a single topic.
type Producer struct {
	Writer messageWriter
	Topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		// Publish runs inside request handlers; do not wait for a batch to fill.
		BatchTimeout: batchTimeout,
	}
	return &Producer{Writer: writer, Topic: topic}
}

// Publish streams one change, keyed by event id so that changes to the same
// event stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, change models.EventChange) error {
	msg, err := NewMessage(change)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NewMessage encodes a change as a Kafka message.
func NewMessage(change models.EventChange) (kafka.Message, error) {
	value, err := json.Marshal(change)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(change.Event.ID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(change.Action)},
		},
	}, nil
}

// NoopPublisher drops every change. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.EventChange) error { return nil }
