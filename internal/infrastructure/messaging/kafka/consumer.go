package kafka

import (
	"context"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/jurisflow/prazo/internal/config"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	apperrors "github.com/jurisflow/prazo/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RecomputeHandler processes one recompute request.  A handler error leaves
// the message uncommitted so it is redelivered.
type RecomputeHandler func(ctx context.Context, req RecomputeRequest) error

// RecomputeConsumer reads TopicDeadlineRecompute and dispatches each request
// to the handler.
type RecomputeConsumer struct {
	reader  ReaderInterface
	handler RecomputeHandler
	logger  logging.Logger
}

// NewRecomputeConsumer builds a consumer in the configured consumer group.
func NewRecomputeConsumer(cfg config.KafkaConfig, handler RecomputeHandler, log logging.Logger) *RecomputeConsumer {
	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       TopicDeadlineRecompute,
		StartOffset: startOffset,
	})
	return &RecomputeConsumer{
		reader:  reader,
		handler: handler,
		logger:  log.Named("recompute_consumer"),
	}
}

// NewRecomputeConsumerWithReader wraps an existing reader (for testing).
func NewRecomputeConsumerWithReader(r ReaderInterface, handler RecomputeHandler, log logging.Logger) *RecomputeConsumer {
	return &RecomputeConsumer{reader: r, handler: handler, logger: log.Named("recompute_consumer")}
}

// Run consumes until the context is cancelled or the reader closes.
// Malformed messages are committed and skipped; handler failures leave the
// offset uncommitted for redelivery.
func (c *RecomputeConsumer) Run(ctx context.Context) error {
	c.logger.Info("recompute consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("recompute consumer stopped")
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeMessageQueue, "fetching recompute message")
		}

		envelope, err := DecodeEnvelope(msg.Value)
		if err != nil {
			c.logger.Warn("skipping malformed recompute envelope", logging.Err(err))
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}
		var req RecomputeRequest
		if err := envelope.DecodePayload(&req); err != nil {
			c.logger.Warn("skipping malformed recompute payload", logging.Err(err))
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		if err := c.handler(ctx, req); err != nil {
			c.logger.Error("recompute handler failed, message will be redelivered",
				logging.Int("rule_version", req.RuleVersion),
				logging.Err(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("committing recompute offset failed", logging.Err(err))
		}
	}
}

// Close shuts the consumer down.
func (c *RecomputeConsumer) Close() error {
	return c.reader.Close()
}
