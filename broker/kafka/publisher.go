// Package kafka moves committed ledger events through Kafka with
// github.com/segmentio/kafka-go.
//
// The Publisher subscribes to a Dispatcher and writes every committed event as
// an events table row, keyed by aggregate id. The Consumer reads such rows,
// either from the Publisher or from a change-data-capture connector watching
// the events table, and hands them to a Dispatcher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/AshkanYarmoradi/go-ledger"
)

// Header keys written by the Publisher.
const (
	HeaderEventKind     = "event-kind"
	HeaderAggregateType = "aggregate-type"
	HeaderCorrelationID = "correlation-id"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "ledger.events"

// MessageWriter is the subset of *kafkago.Writer the Publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes committed events to a Kafka topic.
type Publisher struct {
	brokers      []string
	topic        string
	balancer     kafkago.Balancer
	batchTimeout time.Duration
	serializer   ledger.Serializer
	logger       ledger.Logger

	mu     sync.Mutex
	writer MessageWriter
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithBrokers sets the Kafka broker addresses.
func WithBrokers(brokers ...string) PublisherOption {
	return func(p *Publisher) {
		p.brokers = brokers
	}
}

// WithTopic sets the destination topic.
func WithTopic(topic string) PublisherOption {
	return func(p *Publisher) {
		p.topic = topic
	}
}

// WithBalancer sets the message balancer (partitioner).
func WithBalancer(balancer kafkago.Balancer) PublisherOption {
	return func(p *Publisher) {
		p.balancer = balancer
	}
}

// WithBatchTimeout sets the batch timeout for the writer.
func WithBatchTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.batchTimeout = d
	}
}

// WithSerializer sets the serializer payloads are encoded with.
// It must match the serializer consumers decode with.
func WithSerializer(s ledger.Serializer) PublisherOption {
	return func(p *Publisher) {
		p.serializer = s
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l ledger.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

// WithWriter replaces the Kafka writer, e.g. with a fake in tests.
func WithWriter(w MessageWriter) PublisherOption {
	return func(p *Publisher) {
		p.writer = w
	}
}

// NewPublisher creates a Publisher. Messages are partitioned by key hash so
// the events of one aggregate stay ordered.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		brokers:      []string{"localhost:9092"},
		topic:        DefaultTopic,
		balancer:     &kafkago.Hash{},
		batchTimeout: 10 * time.Millisecond,
		serializer:   ledger.NewJSONSerializer(),
		logger:       nopLogger{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Handle is a ledger.EventHandler; subscribe it with Dispatcher.SubscribeAll.
func (p *Publisher) Handle(ctx context.Context, event ledger.RecordedEvent) error {
	return p.Publish(ctx, event)
}

// Publish writes events in order as one batch.
func (p *Publisher) Publish(ctx context.Context, events ...ledger.RecordedEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(events))
	for _, event := range events {
		msg, err := p.Message(ctx, event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.getWriter().WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("Failed to publish events",
			"topic", p.topic,
			"events", len(msgs),
			"error", err)
		return fmt.Errorf("ledger/kafka: failed to write to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Published events", "topic", p.topic, "events", len(msgs))
	return nil
}

// Message encodes one event as a Kafka message.
func (p *Publisher) Message(ctx context.Context, event ledger.RecordedEvent) (kafkago.Message, error) {
	if event.Event == nil {
		return kafkago.Message{}, fmt.Errorf("ledger/kafka: event %q has no payload", event.ID)
	}

	payload, err := p.serializer.Serialize(event.Event)
	if err != nil {
		return kafkago.Message{}, err
	}

	row, err := NewRow(event.ID, event.AggregateID, event.Position, event.Kind(), payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("ledger/kafka: failed to encode row: %w", err)
	}
	value, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("ledger/kafka: failed to encode row: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: HeaderEventKind, Value: []byte(event.Kind())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType)},
		},
	}
	if correlationID := ledger.CorrelationIDFromContext(ctx); correlationID != "" {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: HeaderCorrelationID, Value: []byte(correlationID)})
	}
	return msg, nil
}

// Close closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

func (p *Publisher) getWriter() MessageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(p.brokers...),
			Topic:                  p.topic,
			Balancer:               p.balancer,
			BatchTimeout:           p.batchTimeout,
			AllowAutoTopicCreation: true,
		}
	}
	return p.writer
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
