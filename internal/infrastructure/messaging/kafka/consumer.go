package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
)

// Handler processes one decoded event envelope.  Returning an error stops
// the consumer with the message uncommitted, so resuming redelivers it.
type Handler func(ctx context.Context, env EventEnvelope) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and dispatches envelopes to
// a handler.
type Consumer struct {
	reader readerInterface
	topic  string
	logger logging.Logger
}

// NewConsumer builds a group consumer for one topic.
func NewConsumer(cfg config.KafkaConfig, topic string, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if topic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka topic required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		StartOffset: startOffset,
	})

	return &Consumer{reader: reader, topic: topic, logger: log.Named("kafka")}, nil
}

// NewConsumerWithReader wraps an existing reader (for testing).
func NewConsumerWithReader(r readerInterface, topic string, log logging.Logger) *Consumer {
	return &Consumer{reader: r, topic: topic, logger: log}
}

// Run fetches and dispatches messages until ctx is cancelled.  Malformed
// messages are committed and skipped.  A handler failure stops the loop
// with the message uncommitted: fetching past it and committing a later
// offset would mark it consumed, so the only way to redeliver is to resume
// from the last commit on the next Run.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to fetch message").
				WithDetail("topic=" + c.topic)
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("skipping malformed event",
				logging.String("topic", c.topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit message")
			}
			continue
		}

		if err := handle(ctx, env); err != nil {
			c.logger.Error("event handler failed",
				logging.String("topic", c.topic),
				logging.String("event_id", env.EventID.String()),
				logging.Err(err))
			return errors.Wrap(err, errors.ErrCodeInternal, "event handler failed").
				WithDetail("topic=" + c.topic)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit message")
		}
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
