package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper suppresses repeated deliveries of the same message to a handler.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func FormatDedupKey(handler, messageID string) string {
	return fmt.Sprintf("paytrack:dedup:%s:%s", handler, messageID)
}

// AcquireOnce reports whether this is the first time handler sees messageID.
// Redis errors fail open.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, messageID string) bool {
	if messageID == "" {
		return true
	}
	key := FormatDedupKey(handler, messageID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release forgets messageID so a failed delivery can be processed again.
func (d *Deduper) Release(ctx context.Context, handler, messageID string) {
	if messageID == "" {
		return
	}
	if err := d.rdb.Del(ctx, FormatDedupKey(handler, messageID)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
