package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/nimasrn/invoice-ledger/internal/model"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
)

const (
	msgNotFoundByClient     = "Invoice not found for the specified client"
	msgNotFoundByID         = "Invoice not found for the specified ID"
	msgNotFoundByIdentifier = "Invoice not found for the specified identifier"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type InvoiceService interface {
	Create(ctx context.Context, req model.InvoiceCreateRequest) (*model.Invoice, error)
	Get(ctx context.Context, raw string) (*model.Invoice, error)
	GetByID(ctx context.Context, id int64) (*model.Invoice, error)
	GetByClientName(ctx context.Context, name string) (*model.Invoice, error)
	List(ctx context.Context) ([]*model.Invoice, error)
	ListPending(ctx context.Context) ([]*model.Invoice, error)
	CountPending(ctx context.Context) (int64, error)
	CountPaid(ctx context.Context) (int64, error)
	TotalAmount(ctx context.Context) (float64, error)
	AmountToBeCollected(ctx context.Context) (model.CollectionSummary, error)
	Update(ctx context.Context, raw string, fields map[string]any) error
	Delete(ctx context.Context, raw string) (int64, error)
}

type ExportService interface {
	Export(ctx context.Context, filter string, w io.Writer) error
}

type InvoiceHandler struct {
	svc         InvoiceService
	export      ExportService
	createGuard xhttp.MiddlewareFunc
}

func RegisterInvoiceRoutes(e xhttp.Routes, h *InvoiceHandler) {
	create := h.AddInvoice
	if h.createGuard != nil {
		create = h.createGuard(create)
	}
	e.POST("/add_invoice", create)
	e.GET("/get_invoice/{client_name}", h.GetInvoiceByClient)
	e.GET("/get_invoice_by_id/{id}", h.GetInvoiceByID)
	e.GET("/get_invoice_details", h.GetInvoiceDetails)
	e.GET("/get_all_invoices", h.GetAllInvoices)
	e.GET("/get_pending_status", h.GetPendingInvoices)
	e.GET("/get_pending_invoice_count", h.GetPendingInvoiceCount)
	e.GET("/get_paid_invoice_count", h.GetPaidInvoiceCount)
	e.GET("/get_total_amount", h.GetTotalAmount)
	e.GET("/get_amount_to_be_collected", h.GetAmountToBeCollected)
	e.PUT("/update_invoice", h.UpdateInvoice)
	e.DELETE("/delete_invoice/{identifier}", h.DeleteInvoice)
	if h.export != nil {
		e.GET("/export_invoices", h.ExportInvoices)
	}
}

func NewInvoiceHandler(invoiceService InvoiceService, exportService ExportService) *InvoiceHandler {
	return &InvoiceHandler{
		svc:    invoiceService,
		export: exportService,
	}
}

// WithCreateGuard wraps POST /add_invoice, used for idempotency keys.
func (h *InvoiceHandler) WithCreateGuard(mw xhttp.MiddlewareFunc) *InvoiceHandler {
	h.createGuard = mw
	return h
}

type createInvoiceResponse struct {
	Message   string `json:"message"`
	InvoiceID int64  `json:"invoice_id"`
}

type updateInvoiceRequest struct {
	Identifier   json.RawMessage `json:"identifier"`
	UpdateFields map[string]any  `json:"update_fields"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *InvoiceHandler) AddInvoice(ctx *xhttp.RequestCtx) {
	var req model.InvoiceCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	inv, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, createInvoiceResponse{
		Message:   "Invoice added for client: " + inv.ClientName,
		InvoiceID: inv.ID,
	})
}

func (h *InvoiceHandler) GetInvoiceByClient(ctx *xhttp.RequestCtx) {
	inv, err := h.svc.GetByClientName(ctx, pathParam(ctx, "client_name"))
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByClient)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceByID(ctx *xhttp.RequestCtx) {
	id, err := strconv.ParseInt(pathParam(ctx, "id"), 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusNotFound, msgNotFoundByID)
		return
	}
	inv, err := h.svc.GetByID(ctx, id)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByID)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceDetails(ctx *xhttp.RequestCtx) {
	inv, err := h.svc.Get(ctx, query(ctx, "identifier"))
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, inv)
}

func (h *InvoiceHandler) GetAllInvoices(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, nonNil(items))
}

func (h *InvoiceHandler) GetPendingInvoices(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListPending(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, nonNil(items))
}

func (h *InvoiceHandler) GetPendingInvoiceCount(ctx *xhttp.RequestCtx) {
	n, err := h.svc.CountPending(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]int64{"pending_invoice_count": n})
}

func (h *InvoiceHandler) GetPaidInvoiceCount(ctx *xhttp.RequestCtx) {
	n, err := h.svc.CountPaid(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]int64{"paid_invoice_count": n})
}

func (h *InvoiceHandler) GetTotalAmount(ctx *xhttp.RequestCtx) {
	total, err := h.svc.TotalAmount(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]float64{"total_amount": total})
}

func (h *InvoiceHandler) GetAmountToBeCollected(ctx *xhttp.RequestCtx) {
	summary, err := h.svc.AmountToBeCollected(ctx)
	if err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, summary)
}

func (h *InvoiceHandler) UpdateInvoice(ctx *xhttp.RequestCtx) {
	var req updateInvoiceRequest
	if err := readJSONNumbers(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	ident, ok := identifierText(req.Identifier)
	if !ok {
		writeError(ctx, xhttp.StatusBadRequest, "identifier must be a string or an integer")
		return
	}
	if err := h.svc.Update(ctx, ident, req.UpdateFields); err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "Invoice updated successfully"})
}

func (h *InvoiceHandler) DeleteInvoice(ctx *xhttp.RequestCtx) {
	ident := pathParam(ctx, "identifier")
	if _, err := h.svc.Delete(ctx, ident); err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "Invoice deleted for identifier: " + ident})
}

func (h *InvoiceHandler) ExportInvoices(ctx *xhttp.RequestCtx) {
	var buf bytes.Buffer
	if err := h.export.Export(ctx, query(ctx, "filter"), &buf); err != nil {
		writeServiceError(ctx, err, msgNotFoundByIdentifier)
		return
	}
	ctx.Response.Header.Set("Content-Type", xlsxContentType)
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	ctx.SetStatusCode(xhttp.StatusOK)
	ctx.SetBody(buf.Bytes())
}

// identifierText accepts a JSON string or integer. An absent or null value
// yields "" which the service rejects as missing.
func identifierText(raw json.RawMessage) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", true
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", false
		}
		return out, true
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s, true
	}
	return "", false
}

func nonNil(items []*model.Invoice) []*model.Invoice {
	if items == nil {
		return []*model.Invoice{}
	}
	return items
}
