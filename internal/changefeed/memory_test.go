package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFeed_DeliversSubscribedCollections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewMemoryFeed()
	ch, err := feed.Subscribe(ctx, "projects", "payments")
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, "tasks"))
	require.NoError(t, feed.Publish(ctx, "payments"))

	select {
	case c := <-ch:
		assert.Equal(t, "payments", c.Collection)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	select {
	case c := <-ch:
		t.Fatalf("unexpected change %v", c)
	default:
	}
}

func TestMemoryFeed_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewMemoryFeed()
	ch, err := feed.Subscribe(ctx, "projects")
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Publish(context.Background(), "projects"))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "paytrack:changes:projects", ChannelName("projects"))
	assert.Equal(t, "projects", collectionFromChannel(ChannelName("projects")))
}
