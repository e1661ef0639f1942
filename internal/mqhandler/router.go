package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"paytrack/pkg/mq"
)

type routeFunc func(ctx context.Context, body json.RawMessage) error

// Router dispatches deliveries by routing key to typed handlers.
type Router struct {
	routes map[string]routeFunc
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{routes: make(map[string]routeFunc), logger: logger}
}

// On registers fn for routingKey; the body is decoded into T first.
func On[T any](r *Router, routingKey string, fn func(ctx context.Context, payload T) error) {
	r.routes[routingKey] = func(ctx context.Context, body json.RawMessage) error {
		var payload T
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", routingKey, err)
		}
		return fn(ctx, payload)
	}
}

// Handle runs the handler for d's routing key. Unrouted keys are acked.
func (r *Router) Handle(ctx context.Context, d mq.Delivery) error {
	h, ok := r.routes[d.RoutingKey]
	if !ok {
		r.logger.Debug("No handler for event", zap.String("routing_key", d.RoutingKey))
		return nil
	}
	return h(ctx, d.Body)
}
