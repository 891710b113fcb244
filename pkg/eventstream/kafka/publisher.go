// Package kafka publishes council answer events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/council/pkg/eventstream"
)

// Config configures the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses ("host:port").
	Brokers []string

	// Topic receives one message per finished answer, keyed by
	// conversation ID.
	Topic string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes answer events as JSON messages.
type Publisher struct {
	writer messageWriter
}

// NewPublisher returns a publisher writing to c.Topic.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	return newPublisher(&kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}), nil
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w}
}

// PublishAnswer writes event. Messages of one conversation share a key and
// so keep their order.
func (p *Publisher) PublishAnswer(ctx context.Context, event *eventstream.AnswerCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilAnswerEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding answer event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.ConversationID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing answer event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
