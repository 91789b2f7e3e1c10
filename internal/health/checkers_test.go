package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/nfc"
)

type fakeNFC struct{ err error }

func (f fakeNFC) Availability() error { return f.err }
func (f fakeNFC) Status() nfc.Status {
	return nfc.Status{State: "armed", Availability: "available", Policy: "keepalive"}
}

func TestNFCChecker(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"可用", nil, StatusHealthy},
		{"无硬件", dispatch.ErrUnavailable, StatusDegraded},
		{"射频关闭", dispatch.ErrDisabled, StatusDegraded},
		{"未知错误", errors.New("boom"), StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewNFCChecker(fakeNFC{err: tc.err}).Check(context.Background())
			assert.Equal(t, tc.want, r.Status)
			assert.Equal(t, "armed", r.Details["state"])
		})
	}
}

type fakePool struct {
	err   error
	stats redis.PoolStats
}

func (f fakePool) HealthCheck(context.Context) error { return f.err }
func (f fakePool) Stats() *redis.PoolStats           { return &f.stats }

func TestRedisChecker(t *testing.T) {
	c := NewRedisChecker(fakePool{stats: redis.PoolStats{TotalConns: 10, IdleConns: 8, Hits: 5}})
	assert.Equal(t, "redis", c.Name())
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	c = NewRedisChecker(fakePool{stats: redis.PoolStats{TotalConns: 10, IdleConns: 0, Hits: 5}})
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	c = NewRedisChecker(fakePool{err: errors.New("refused")})
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

type fakeQueue struct {
	pending, dead int64
	err           error
}

func (f fakeQueue) QueueLength(context.Context) (int64, error) { return f.pending, f.err }
func (f fakeQueue) DLQLength(context.Context) (int64, error)   { return f.dead, f.err }

func TestQueueChecker(t *testing.T) {
	ctx := context.Background()
	r := NewQueueChecker(fakeQueue{pending: 3, dead: 1}, 10).Check(ctx)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, int64(1), r.Details["dead"])

	assert.Equal(t, StatusDegraded, NewQueueChecker(fakeQueue{pending: 11}, 10).Check(ctx).Status)
	assert.Equal(t, StatusUnhealthy, NewQueueChecker(fakeQueue{err: errors.New("x")}, 0).Check(ctx).Status)
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetPluginReady(true)
	assert.False(t, r.Ready())
	r.SetSinksReady(true)
	assert.True(t, r.Ready())
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(agg *Aggregator, path string) *httptest.ResponseRecorder {
		r := gin.New()
		RegisterHTTPRoutes(r, agg)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	degraded := NewAggregator(&mockChecker{"nfc", StatusDegraded})
	rr := serve(degraded, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Contains(t, report.Checks, "nfc")

	down := NewAggregator(&mockChecker{"redis", StatusUnhealthy})
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, serve(down, "/health/live").Code)
}
