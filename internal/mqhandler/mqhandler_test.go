package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/internal/changefeed"
	"paytrack/pkg/mq"
)

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestChangeFeedHandler(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	cache := &countingCache{}
	h := NewChangeFeedHandler(feed, cache, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := feed.Subscribe(ctx, contractmq.CollectionPayments, contractmq.CollectionTasks)
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, mq.Delivery{RoutingKey: contractmq.PaymentPaid, MessageID: "1"}))
	require.NoError(t, h.Handle(ctx, mq.Delivery{RoutingKey: contractmq.TaskChanged, MessageID: "2"}))
	require.NoError(t, h.Handle(ctx, mq.Delivery{RoutingKey: "unknown.key", MessageID: "3"}))

	var got []string
	for range 2 {
		select {
		case c := <-changes:
			got = append(got, c.Collection)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change")
		}
	}
	assert.Equal(t, []string{contractmq.CollectionPayments, contractmq.CollectionTasks}, got)
	assert.Equal(t, 1, cache.calls)
}

func TestNotifyHandler(t *testing.T) {
	h := NewNotifyHandler(zap.NewNop())
	ctx := context.Background()

	body, err := json.Marshal(contractmq.ProjectStatusChangedPayload{ProjectID: "p", Name: "Site", FromStatus: "new", ToStatus: "active"})
	require.NoError(t, err)
	assert.NoError(t, h.Handle(ctx, mq.Delivery{RoutingKey: contractmq.ProjectStatusChanged, Body: body}))

	err = h.Handle(ctx, mq.Delivery{RoutingKey: contractmq.PaymentOverdue, Body: json.RawMessage(`{"amount":"x"}`)})
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)

	assert.NoError(t, h.Handle(ctx, mq.Delivery{RoutingKey: contractmq.TaskChanged, Body: json.RawMessage(`{}`)}))
}

type memRetries struct {
	counts map[string]int64
	resets int
}

func (m *memRetries) IncrementAndGet(_ context.Context, key string) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRetries) Reset(_ context.Context, key string) error {
	delete(m.counts, key)
	m.resets++
	return nil
}

type memDLQ struct {
	keys []string
	err  error
}

func (m *memDLQ) PublishToDLQ(routingKey string, _ []byte, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, routingKey)
	return nil
}

func TestRetryPolicy_RetryableUntilLimit(t *testing.T) {
	retries := &memRetries{counts: map[string]int64{}}
	dlq := &memDLQ{}
	policy := RetryPolicy("changefeed", retries, 2, dlq, zap.NewNop())

	d := mq.Delivery{RoutingKey: contractmq.PaymentPaid, MessageID: "42"}
	cause := &net.OpError{Op: "dial", Err: errors.New("connection refused")}

	assert.True(t, policy(context.Background(), d, cause))
	assert.True(t, policy(context.Background(), d, cause))
	assert.False(t, policy(context.Background(), d, cause))
	assert.Equal(t, []string{contractmq.PaymentPaid}, dlq.keys)
	assert.Equal(t, 1, retries.resets)
}

func TestRetryPolicy_NonRetryableDeadLetters(t *testing.T) {
	retries := &memRetries{counts: map[string]int64{}}
	dlq := &memDLQ{}
	policy := RetryPolicy("notify", retries, 5, dlq, zap.NewNop())

	var syntaxErr error = &json.SyntaxError{Offset: 1}
	assert.False(t, policy(context.Background(), mq.Delivery{RoutingKey: "payment.overdue", MessageID: "1"}, syntaxErr))
	assert.Len(t, dlq.keys, 1)
	assert.Empty(t, retries.counts)
}

func TestRetryPolicy_DLQFailureRequeues(t *testing.T) {
	retries := &memRetries{counts: map[string]int64{}}
	dlq := &memDLQ{err: errors.New("channel closed")}
	policy := RetryPolicy("notify", retries, 5, dlq, zap.NewNop())

	assert.True(t, policy(context.Background(), mq.Delivery{RoutingKey: "x", MessageID: "1"}, errors.New("boom")))
}

type memDeduper struct {
	seen     map[string]bool
	released int
}

func (m *memDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	k := handler + ":" + id
	if m.seen[k] {
		return false
	}
	m.seen[k] = true
	return true
}

func (m *memDeduper) Release(_ context.Context, handler, id string) {
	delete(m.seen, handler+":"+id)
	m.released++
}

func TestDeduplicated(t *testing.T) {
	dedup := &memDeduper{seen: map[string]bool{}}
	calls := 0
	fail := true
	h := Deduplicated("changefeed", dedup, func(context.Context, mq.Delivery) error {
		calls++
		if fail {
			return errors.New("transient")
		}
		return nil
	})

	d := mq.Delivery{MessageID: "9"}
	require.Error(t, h(context.Background(), d))
	assert.Equal(t, 1, dedup.released)

	fail = false
	require.NoError(t, h(context.Background(), d))
	require.NoError(t, h(context.Background(), d))
	assert.Equal(t, 2, calls)
}
