package idempotency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
	"github.com/nimasrn/invoice-ledger/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(redis.CloseAll)

	adapter, err := redis.NewRedisAdapter(t.Name(), "test:", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	return NewService(adapter, DefaultConfig()), mr
}

func TestService_BeginCompleteReplay(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	stored, err := svc.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.True(t, mr.Exists("test:idempotency:lock:k1"))

	_, err = svc.Begin(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	resp := Response{Status: 200, ContentType: "application/json", Body: []byte(`{"invoice_id":1}`)}
	require.NoError(t, svc.Complete(ctx, "k1", resp))
	assert.False(t, mr.Exists("test:idempotency:lock:k1"))

	stored, err = svc.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, resp, *stored)
}

func TestService_ReleaseAllowsRetry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, "k2"))

	stored, err := svc.Begin(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestService_LockExpires(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "k3")
	require.NoError(t, err)

	mr.FastForward(DefaultConfig().LockTTL + time.Second)

	_, err = svc.Begin(ctx, "k3")
	assert.NoError(t, err)
}

func newRequest(key string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("/add_invoice")
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func TestGuard(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, prom.Create(prometheus.NewRegistry(), "test-host", "test", "invoice_ledger"))
	t.Cleanup(func() { prom.MetricSystemEnabled = false })
	replays := prom.MetricCollectionCounters[prom.SystemIdempotency+prom.MetricReplayedResponses]

	var calls int32
	handler := svc.Guard(func(ctx *xhttp.RequestCtx) {
		n := atomic.AddInt32(&calls, 1)
		ctx.SetContentType("application/json")
		if n == 1 {
			ctx.SetStatusCode(xhttp.StatusOK)
			ctx.SetBodyString(`{"message":"Invoice added for client: Acme","invoice_id":1}`)
			return
		}
		ctx.SetStatusCode(xhttp.StatusOK)
		ctx.SetBodyString(`{"message":"second"}`)
	})

	first := newRequest("abc")
	handler(first)
	assert.Equal(t, 200, first.Response.StatusCode())

	again := newRequest("abc")
	handler(again)
	assert.Equal(t, 200, again.Response.StatusCode())
	assert.Equal(t, string(first.Response.Body()), string(again.Response.Body()))
	assert.Equal(t, "true", string(again.Response.Header.Peek("Idempotent-Replayed")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(replays))

	plain := newRequest("")
	handler(plain)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGuard_InFlightAndFailure(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Begin(context.Background(), "/add_invoice:busy")
	require.NoError(t, err)

	var calls int32
	handler := svc.Guard(func(ctx *xhttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(xhttp.StatusBadRequest)
	})

	busy := newRequest("busy")
	handler(busy)
	assert.Equal(t, xhttp.StatusConflict, busy.Response.StatusCode())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	failed := newRequest("bad")
	handler(failed)
	assert.Equal(t, xhttp.StatusBadRequest, failed.Response.StatusCode())

	retry := newRequest("bad")
	handler(retry)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
