package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jurisflow/prazo/internal/config"
	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessageQueue, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// Producer publishes envelopes to Kafka.
type Producer struct {
	writer  WriterInterface
	logger  logging.Logger
	closed  atomic.Bool
	metrics ProducerMetrics
}

// NewProducer builds a Producer over a hash-balanced writer.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
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
	return &Producer{writer: writer, logger: log.Named("kafka_producer")}
}

// NewProducerWithWriter wraps an existing writer (for testing).
func NewProducerWithWriter(w WriterInterface, log logging.Logger) *Producer {
	return &Producer{writer: w, logger: log.Named("kafka_producer")}
}

// Publish writes one envelope to topic, keyed for stable partitioning.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, envelope *EventEnvelope) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	value, err := envelope.Encode()
	if err != nil {
		return err
	}

	msg := kafka.Message{Topic: topic, Key: key, Value: value, Time: envelope.Timestamp}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "publish failed")
	}

	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(value)))
	p.logger.Debug("message published",
		logging.String("topic", topic),
		logging.String("type", envelope.Type),
	)
	return nil
}

// Metrics returns a snapshot of the producer counters.
func (p *Producer) Metrics() (sent, failed, bytes int64) {
	return p.metrics.MessagesSent.Load(), p.metrics.MessagesFailed.Load(), p.metrics.BytesSent.Load()
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Alert sink
// ─────────────────────────────────────────────────────────────────────────────

// AlertPublisher adapts the Producer to notify.AlertSink, publishing alert
// signals on TopicDeadlineAlert keyed by deadline ID.
type AlertPublisher struct {
	producer *Producer
}

// NewAlertPublisher constructs an AlertPublisher.
func NewAlertPublisher(producer *Producer) *AlertPublisher {
	return &AlertPublisher{producer: producer}
}

// Publish implements notify.AlertSink.
func (a *AlertPublisher) Publish(ctx context.Context, signal notify.AlertSignal) error {
	envelope, err := NewEventEnvelope("deadline.alert", "prazo-scheduler", signal)
	if err != nil {
		return err
	}
	if err := a.producer.Publish(ctx, TopicDeadlineAlert, []byte(signal.DeadlineID), envelope); err != nil {
		return errors.Wrap(err, errors.ErrCodeAlertDeliveryFailed, "publishing alert signal")
	}
	return nil
}

// RecomputePublisher emits batch-recompute requests, typically right after a
// rule-set publish.
type RecomputePublisher struct {
	producer *Producer
}

// NewRecomputePublisher constructs a RecomputePublisher.
func NewRecomputePublisher(producer *Producer) *RecomputePublisher {
	return &RecomputePublisher{producer: producer}
}

// Request publishes one recompute request.
func (r *RecomputePublisher) Request(ctx context.Context, req RecomputeRequest) error {
	envelope, err := NewEventEnvelope("deadline.recompute", "prazo-api", req)
	if err != nil {
		return err
	}
	return r.producer.Publish(ctx, TopicDeadlineRecompute, nil, envelope)
}
