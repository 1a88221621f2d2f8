package handlers

import (
	"context"

	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
)

type HealthService interface {
	Health(ctx context.Context) error
}
type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e xhttp.Routes, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if err := h.healthService.Health(ctx); err != nil {
		logger.Warn("health check failed", "error", err)
		ctx.SetStatusCode(xhttp.StatusServiceUnavailable)
		ctx.Response.SetBodyString("unavailable")
		return
	}
	ctx.Response.SetBodyString("success")
}
