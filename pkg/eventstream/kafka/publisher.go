// Package kafka publishes fact events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/logger"
)

// DefaultTopic is the topic fact events are written to when none is configured.
const DefaultTopic = "meh.facts"

const defaultWriteTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds each publish. Zero uses five seconds.
	WriteTimeout time.Duration
}

// Publisher writes each fact event as one JSON message keyed by path.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMessageWriter replaces the Kafka writer, e.g. with a recorder in tests.
func WithMessageWriter(w MessageWriter) Option {
	return func(p *Publisher) {
		p.writer = w
	}
}

// WithLogger sets the publisher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// NewPublisher creates a Kafka publisher. Connections are opened lazily on
// the first publish.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	p := &Publisher{
		timeout: cfg.WriteTimeout,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		if len(cfg.Brokers) == 0 {
			return nil, errors.New("kafka publisher requires at least one broker")
		}

		p.writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           cfg.WriteTimeout,
		}
	}

	p.logger.Debug("kafka publisher configured",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return p, nil
}

// PublishFact encodes event as JSON and writes it synchronously.
func (p *Publisher) PublishFact(ctx context.Context, event *eventstream.FactEvent) error {
	if event == nil {
		return eventstream.ErrNilFactEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encoding fact event")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.PartitionKey()),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "publishing %s for fact %s", event.EventType, event.FactID)
	}

	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
