package idempotency

import (
	"errors"

	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
)

// Guard wraps a handler so that a repeated Idempotency-Key on the same path
// replays the first successful response. Requests without the header pass
// straight through. A Redis failure degrades to running the handler.
func (s *Service) Guard(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		header := string(ctx.Request.Header.Peek(HeaderKey))
		if header == "" {
			next(ctx)
			return
		}
		key := string(ctx.Path()) + ":" + header

		stored, err := s.Begin(ctx, key)
		switch {
		case errors.Is(err, ErrInFlight):
			ctx.SetContentType("application/json")
			ctx.SetStatusCode(xhttp.StatusConflict)
			ctx.SetBodyString(`{"error":"request with this Idempotency-Key is still in progress"}`)
			return
		case err != nil:
			logger.Warn("Idempotency unavailable, serving request", "idempotency_key", key, "error", err)
			next(ctx)
			return
		case stored != nil:
			ctx.SetContentType(stored.ContentType)
			ctx.SetStatusCode(stored.Status)
			ctx.SetBody(stored.Body)
			ctx.Response.Header.Set("Idempotent-Replayed", "true")
			prom.IncReplayedResponse()
			return
		}

		next(ctx)

		status := ctx.Response.StatusCode()
		if status < 200 || status >= 300 {
			_ = s.Release(ctx, key)
			return
		}
		_ = s.Complete(ctx, key, Response{
			Status:      status,
			ContentType: string(ctx.Response.Header.ContentType()),
			Body:        append([]byte(nil), ctx.Response.Body()...),
		})
	}
}
