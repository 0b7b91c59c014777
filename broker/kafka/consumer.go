package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/AshkanYarmoradi/go-ledger"
)

// DefaultGroupID is the consumer group used when none is configured.
const DefaultGroupID = "ledger"

// MessageReader is the subset of *kafkago.Reader the Consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads event rows from Kafka and dispatches them.
//
// Offsets are committed after the dispatcher returns. Messages that cannot be
// decoded are logged and committed so they do not block the partition. A
// dispatch failure stops Run without committing, so the message is delivered
// again when the consumer restarts.
type Consumer struct {
	brokers    []string
	topic      string
	groupID    string
	reader     MessageReader
	serializer ledger.Serializer
	dispatcher *ledger.Dispatcher
	logger     ledger.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerBrokers sets the Kafka broker addresses.
func WithConsumerBrokers(brokers ...string) ConsumerOption {
	return func(c *Consumer) {
		c.brokers = brokers
	}
}

// WithConsumerTopic sets the source topic.
func WithConsumerTopic(topic string) ConsumerOption {
	return func(c *Consumer) {
		c.topic = topic
	}
}

// WithGroupID sets the consumer group.
func WithGroupID(groupID string) ConsumerOption {
	return func(c *Consumer) {
		c.groupID = groupID
	}
}

// WithConsumerSerializer sets the serializer payloads are decoded with.
func WithConsumerSerializer(s ledger.Serializer) ConsumerOption {
	return func(c *Consumer) {
		c.serializer = s
	}
}

// WithConsumerLogger sets the consumer logger.
func WithConsumerLogger(l ledger.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = l
	}
}

// WithReader replaces the Kafka reader, e.g. with a fake in tests.
func WithReader(r MessageReader) ConsumerOption {
	return func(c *Consumer) {
		c.reader = r
	}
}

// NewConsumer creates a Consumer feeding dispatcher.
func NewConsumer(dispatcher *ledger.Dispatcher, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		brokers:    []string{"localhost:9092"},
		topic:      DefaultTopic,
		groupID:    DefaultGroupID,
		serializer: ledger.NewJSONSerializer(),
		dispatcher: dispatcher,
		logger:     nopLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.reader == nil {
		c.reader = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  c.brokers,
			GroupID:  c.groupID,
			Topic:    c.topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}

	return c
}

// Run consumes until ctx is cancelled or a dispatch fails.
// Cancellation is not an error.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started", "topic", c.topic, "groupID", c.groupID)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ledger/kafka: failed to fetch message: %w", err)
		}

		if err := c.Handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ledger/kafka: failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Handle decodes one message and dispatches its event.
// Undecodable messages are logged and skipped.
func (c *Consumer) Handle(ctx context.Context, msg kafkago.Message) error {
	event, err := c.Decode(msg)
	if errors.Is(err, ErrNoRow) {
		return nil
	}
	if err != nil {
		c.logger.Error("Skipping undecodable message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err)
		return nil
	}

	if correlationID := header(msg, HeaderCorrelationID); correlationID != "" {
		ctx = ledger.WithCorrelationID(ctx, correlationID)
	}
	if err := c.dispatcher.Dispatch(ctx, event); err != nil {
		c.logger.Error("Dispatch of consumed event failed",
			"eventID", event.ID,
			"kind", event.Kind(),
			"aggregateID", event.AggregateID,
			"offset", msg.Offset,
			"error", err)
		return fmt.Errorf("ledger/kafka: dispatch of event %s failed: %w", event.ID, err)
	}
	return nil
}

// Decode turns a message into a recorded event.
func (c *Consumer) Decode(msg kafkago.Message) (ledger.RecordedEvent, error) {
	row, err := DecodeRow(msg.Value)
	if err != nil {
		return ledger.RecordedEvent{}, err
	}

	payload, err := row.Payload()
	if err != nil {
		return ledger.RecordedEvent{}, err
	}

	event, err := c.serializer.Deserialize(payload, row.Name)
	if err != nil {
		return ledger.RecordedEvent{}, err
	}

	aggregateID := row.AggregateUUID
	if aggregateID == "" {
		aggregateID = string(msg.Key)
	}

	return ledger.RecordedEvent{
		ID:            row.UUID,
		AggregateID:   aggregateID,
		AggregateType: header(msg, HeaderAggregateType),
		Position:      row.Position,
		Timestamp:     msg.Time,
		Event:         event,
	}, nil
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
