package mqhandler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"paytrack/pkg/mq"
	"paytrack/pkg/util"
)

type RetryStore interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError, failedAt string) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, messageID string) bool
	Release(ctx context.Context, handler, messageID string)
}

// Deduplicated skips deliveries whose message id the handler already took.
// A failed attempt releases the id so the redelivery is processed.
func Deduplicated(name string, deduper Deduper, next mq.MessageHandler) mq.MessageHandler {
	return func(ctx context.Context, d mq.Delivery) error {
		if !deduper.AcquireOnce(ctx, name, d.MessageID) {
			return nil
		}
		if err := next(ctx, d); err != nil {
			deduper.Release(ctx, name, d.MessageID)
			return err
		}
		return nil
	}
}

// RetryPolicy requeues retryable failures until the Redis retry counter
// passes maxRetries, then dead-letters the message. Non-retryable failures
// are dead-lettered at once.
func RetryPolicy(name string, retries RetryStore, maxRetries int64, dlq DeadLetterPublisher, logger *zap.Logger) mq.FailurePolicy {
	return func(ctx context.Context, d mq.Delivery, cause error) bool {
		retryable, errType := util.IsRetryableError(cause)
		key := util.FormatRetryKey(name, d.MessageID)

		log := logger.With(
			zap.String("handler", name),
			zap.String("routing_key", d.RoutingKey),
			zap.String("message_id", d.MessageID),
			zap.String("error_type", errType),
		)

		if retryable && d.MessageID != "" {
			count, err := retries.IncrementAndGet(ctx, key)
			if err != nil {
				log.Warn("Retry counter unavailable, requeueing", zap.Error(err))
				return true
			}
			if util.ShouldRetry(count, maxRetries, retryable) {
				log.Warn("Requeueing failed message", zap.Int64("attempt", count), zap.Error(cause))
				return true
			}
		}

		if err := dlq.PublishToDLQ(d.RoutingKey, d.Body, cause.Error(), time.Now().UTC().Format(time.RFC3339)); err != nil {
			log.Error("Failed to dead-letter message, requeueing", zap.Error(err))
			return true
		}
		if d.MessageID != "" {
			if err := retries.Reset(ctx, key); err != nil {
				log.Warn("Failed to reset retry counter", zap.Error(err))
			}
		}
		log.Error("Message dead-lettered", zap.Bool("retryable", retryable), zap.Error(cause))
		return false
	}
}
