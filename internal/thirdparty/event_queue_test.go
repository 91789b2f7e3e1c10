package thirdparty

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
)

// newTestRedis 需要Redis服务器：设置 TEST_REDIS_ADDR 后运行，使用 DB 15 并清空
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	require.NoError(t, rdb.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDeduper(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	d := NewDeduper(rdb, zap.NewNop(), time.Minute)

	dup, err := d.IsDuplicate(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = d.IsDuplicate(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, d.Delete(ctx, "e1"))
	dup, _ = d.IsDuplicate(ctx, "e1")
	assert.False(t, dup)

	_, err = d.IsDuplicate(ctx, "")
	assert.Error(t, err)
}

func TestEventQueue_EnqueueDedup(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	q := NewEventQueue(rdb, fastPusher("s"), NewDeduper(rdb, nil, time.Minute), "http://unused", m, nil)

	ev := NewTagReadEvent(coremodel.NewTagEvent(coremodel.NewTagReadResult("01", "a"), time.Now()))
	require.NoError(t, q.Enqueue(ctx, ev))
	require.NoError(t, q.Enqueue(ctx, ev))

	n, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupHitTotal.WithLabelValues(string(EventTagRead))))
}

func TestEventQueue_WorkerDelivers(t *testing.T) {
	rdb := newTestRedis(t)
	mock := newMockWebhookServer("s", http.StatusBadGateway)
	defer mock.Close()

	p := fastPusher("s")
	p.Retries = 0
	q := NewEventQueue(rdb, p, nil, mock.URL+"/hook", nil, zap.NewNop())
	q.RetryBase = time.Millisecond
	q.PopTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	q.StartWorker(ctx, 2)

	ev := NewTagReadEvent(coremodel.NewTagEvent(coremodel.NewTagReadResult("0102", "Hi"), time.Now()))
	require.NoError(t, q.Enqueue(ctx, ev))

	// 首次 502 重新入队，第二次成功
	require.Eventually(t, func() bool { return len(mock.received()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, ev.EventID, mock.received()[0].EventID)

	cancel()
	q.Wait()
}

func TestEventQueue_ClientErrorGoesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	mock := newMockWebhookServer("s", http.StatusBadRequest)
	defer mock.Close()

	q := NewEventQueue(rdb, fastPusher("s"), nil, mock.URL+"/hook", nil, nil)
	q.PopTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); q.Wait() }()
	q.StartWorker(ctx, 1)

	ev := NewTagReadEvent(coremodel.NewTagEvent(coremodel.NewTagReadResult("01"), time.Now()))
	require.NoError(t, q.Enqueue(ctx, ev))

	require.Eventually(t, func() bool {
		n, _ := q.DLQLength(ctx)
		return n == 1
	}, 5*time.Second, 10*time.Millisecond)

	items, err := q.GetDLQEvents(ctx, 0, -1)
	require.NoError(t, err)
	assert.Contains(t, items[0], "client_error_400")
}

func TestQueuedToken(t *testing.T) {
	rdb := newTestRedis(t)
	q := NewEventQueue(rdb, fastPusher("s"), nil, "http://unused", nil, nil)
	tok := NewQueuedToken(q, nil)

	ctx := context.Background()
	require.NoError(t, tok.Resolve(ctx, coremodel.NewTagEvent(coremodel.NewTagReadResult("01"), time.Now())))
	n, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestKeyPrefix(t *testing.T) {
	q := NewEventQueue(nil, nil, nil, "", nil, nil)
	assert.Equal(t, "nfc:event:queue", q.queueKey)
	assert.Equal(t, "nfc:event:dlq", q.dlqKey)
	assert.Equal(t, "nfc:event:retry:", q.retryKey)

	q.WithKeyPrefix("door-2")
	assert.Equal(t, "door-2:event:queue", q.queueKey)
	assert.Equal(t, "door-2:event:retry:e1", q.retryKey+"e1")

	d := NewDeduper(nil, nil, 0).WithKeyPrefix("door-2")
	assert.Equal(t, "door-2:dedup:e1", d.buildKey("e1"))
	assert.Equal(t, "nfc:dedup:e1", NewDeduper(nil, nil, 0).buildKey("e1"))
}
