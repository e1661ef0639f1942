package changefeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed uses Redis pub/sub, one channel per collection.
type RedisFeed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisFeed(rdb *redis.Client, logger *zap.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.rdb.Publish(ctx, ChannelName(collection), collection).Err(); err != nil {
		return fmt.Errorf("publish change of %s: %w", collection, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, collections ...string) (<-chan Change, error) {
	channels := make([]string, len(collections))
	for i, c := range collections {
		channels[i] = ChannelName(c)
	}

	sub := f.rdb.Subscribe(ctx, channels...)
	// wait for the subscription confirmation so no signal is missed afterwards
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %v: %w", channels, err)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- Change{Collection: collectionFromChannel(msg.Channel)}:
				default:
					f.logger.Debug("Change signal dropped, receiver busy",
						zap.String("channel", msg.Channel),
					)
				}
			}
		}
	}()

	f.logger.Info("Subscribed to change feed", zap.Strings("channels", channels))
	return out, nil
}
