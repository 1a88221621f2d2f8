package helpers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/redis"
	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// SetupTestDB returns a migrated in-memory sqlite store.
func SetupTestDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.Create(sqldb.Config{Driver: sqldb.DriverSQLite, Path: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background(), sqldb.DriverSQLite))
	return db
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(redis.CloseAll)

	adapter, err := redis.NewRedisAdapter(t.Name(), "test:", &redis.Options{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

// Do runs one request through handler and returns the finished context.
func Do(handler xhttp.RequestHandler, method, uri string, body any, headers ...string) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	switch b := body.(type) {
	case nil:
	case string:
		req.SetBodyString(b)
	default:
		raw, _ := json.Marshal(b)
		req.SetBody(raw)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	handler(ctx)
	return ctx
}

func DecodeJSON(t *testing.T, ctx *xhttp.RequestCtx, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst), string(ctx.Response.Body()))
}
