package changefeed

import (
	"context"
	"slices"
	"sync"
)

// MemoryFeed is an in-process Feed.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[*memorySub]struct{}
}

type memorySub struct {
	collections []string
	ch          chan Change
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[*memorySub]struct{})}
}

// Publish never blocks; a subscriber whose buffer is full misses the signal.
func (f *MemoryFeed) Publish(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for s := range f.subs {
		if !slices.Contains(s.collections, collection) {
			continue
		}
		select {
		case s.ch <- Change{Collection: collection}:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, collections ...string) (<-chan Change, error) {
	s := &memorySub{collections: slices.Clone(collections), ch: make(chan Change, 16)}

	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, s)
		close(s.ch)
		f.mu.Unlock()
	}()
	return s.ch, nil
}
