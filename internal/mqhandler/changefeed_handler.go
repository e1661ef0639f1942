// Package mqhandler holds the worker's RabbitMQ message handlers.
package mqhandler

import (
	"context"

	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/internal/changefeed"
	"paytrack/pkg/mq"
)

// Invalidator drops cached reports.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ChangeFeedHandler turns domain events into change-feed signals and
// invalidates the report cache when projects or payments change.
type ChangeFeedHandler struct {
	feed   changefeed.Feed
	cache  Invalidator
	logger *zap.Logger
}

func NewChangeFeedHandler(feed changefeed.Feed, cache Invalidator, logger *zap.Logger) *ChangeFeedHandler {
	return &ChangeFeedHandler{feed: feed, cache: cache, logger: logger}
}

func (h *ChangeFeedHandler) Handle(ctx context.Context, d mq.Delivery) error {
	collection := contractmq.CollectionOf(d.RoutingKey)
	if collection == "" {
		h.logger.Warn("Ignoring event without collection", zap.String("routing_key", d.RoutingKey))
		return nil
	}

	if err := h.feed.Publish(ctx, collection); err != nil {
		return err
	}

	if h.cache != nil && (collection == contractmq.CollectionPayments || collection == contractmq.CollectionProjects) {
		if err := h.cache.Invalidate(ctx); err != nil {
			return err
		}
	}

	h.logger.Debug("Change published",
		zap.String("routing_key", d.RoutingKey),
		zap.String("collection", collection),
		zap.String("message_id", d.MessageID),
	)
	return nil
}
