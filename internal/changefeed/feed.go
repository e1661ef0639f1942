// Package changefeed carries "collection changed" signals to interested
// readers. Signals carry no data; receivers re-fetch.
package changefeed

import (
	"context"
	"strings"
)

// ChannelPrefix prefixes the Redis channel of every collection.
const ChannelPrefix = "paytrack:changes:"

type Change struct {
	Collection string `json:"collection"`
}

type Feed interface {
	Publish(ctx context.Context, collection string) error
	// Subscribe delivers changes of the given collections until ctx is done,
	// then closes the returned channel.
	Subscribe(ctx context.Context, collections ...string) (<-chan Change, error)
}

func ChannelName(collection string) string {
	return ChannelPrefix + collection
}

func collectionFromChannel(channel string) string {
	return strings.TrimPrefix(channel, ChannelPrefix)
}
