package handlers

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/nimasrn/invoice-ledger/internal/model"
	"github.com/nimasrn/invoice-ledger/internal/services"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

// readJSONNumbers keeps numbers as json.Number so that integer and string
// values can be told apart later.
func readJSONNumbers(ctx *xhttp.RequestCtx, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(ctx.PostBody()))
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode response failed",
			"path", string(ctx.Path()),
			"request_id", xhttp.RequestID(ctx),
			"error", err)
		status = xhttp.StatusInternalServerError
		b = []byte(`{"error":"internal error"}`)
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to responses. notFound is the
// message used for a missing record.
func writeServiceError(ctx *xhttp.RequestCtx, err error, notFound string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(ctx, xhttp.StatusBadRequest, errorResponse{Error: verr.Message, Fields: verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, notFound)
	default:
		logger.Error("request failed",
			"path", string(ctx.Path()),
			"request_id", xhttp.RequestID(ctx),
			"error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "internal error")
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}
