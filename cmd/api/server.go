package main

import (
	"github.com/nimasrn/invoice-ledger/internal/config"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
)

// newServer builds the engine with the middleware chain of the API.
// Recover must stay inside Timeout: the timeout handler runs the rest of
// the chain on its own goroutine.
func newServer(cfg *config.Config) *xhttp.Engine {
	opts := xhttp.DefaultServerOption
	opts.Name = cfg.AppName
	opts.ReadTimeout = cfg.HttpReadTimeout
	opts.WriteTimeout = cfg.HttpWriteTimeout
	s := xhttp.NewServer(opts)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CORSMiddleware(cfg.HttpCorsAllowOrigin))
	s.Use(prom.HTTPMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))
	s.Use(xhttp.RecoverMiddleware)
	return s
}
