package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
)

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer emits engine events to Kafka.  It implements
// planning.EventPublisher.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	failed atomic.Int64
}

// NewProducer builds a producer against the configured brokers.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}

	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries + 1,
		BatchSize:    batchSize,
		BatchTimeout: time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{writer: writer, logger: log.Named("kafka")}, nil
}

// NewProducerWithWriter wraps an existing writer (for testing).
func NewProducerWithWriter(w writerInterface, log logging.Logger) *Producer {
	return &Producer{writer: w, logger: log}
}

// PublishRecalculated announces a completed recalculation pass.  The epoch
// keys the message so replays of one pass land on one partition.
func (p *Producer) PublishRecalculated(ctx context.Context, ev planning.RecalculationEvent) error {
	return p.publish(ctx, TopicScoresRecalculated, ev.Epoch.String(), NewEnvelope(TopicScoresRecalculated, ev))
}

// PublishForecastGenerated announces a completed forecast run.
func (p *Producer) PublishForecastGenerated(ctx context.Context, run *forecasting.Run) error {
	return p.publish(ctx, TopicForecastGenerated, run.RunID.String(), NewEnvelope(TopicForecastGenerated, run))
}

func (p *Producer) publish(ctx context.Context, topic, key string, env EventEnvelope) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeInternal, "kafka producer is closed")
	}

	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to publish event").
			WithDetail("topic=" + topic)
	}

	p.sent.Add(1)
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_id", env.EventID.String()))
	return nil
}

// Close shuts the writer down; safe to call more than once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}
