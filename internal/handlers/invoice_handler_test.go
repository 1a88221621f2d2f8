package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/nimasrn/invoice-ledger/internal/model"
	"github.com/nimasrn/invoice-ledger/internal/repository"
	"github.com/nimasrn/invoice-ledger/internal/services"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, req model.InvoiceCreateRequest) (*model.Invoice, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, raw string) (*model.Invoice, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, id int64) (*model.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetByClientName(ctx context.Context, name string) (*model.Invoice, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context) ([]*model.Invoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListPending(ctx context.Context) ([]*model.Invoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Invoice), args.Error(1)
}

func (m *MockInvoiceService) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceService) CountPaid(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceService) TotalAmount(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockInvoiceService) AmountToBeCollected(ctx context.Context) (model.CollectionSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.CollectionSummary), args.Error(1)
}

func (m *MockInvoiceService) Update(ctx context.Context, raw string, fields map[string]any) error {
	args := m.Called(ctx, raw, fields)
	return args.Error(0)
}

func (m *MockInvoiceService) Delete(ctx context.Context, raw string) (int64, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(int64), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, filter string, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	if args.Error(0) == nil {
		_, _ = w.Write([]byte("xlsx-bytes"))
	}
	return args.Error(0)
}

var errNotFound = fmt.Errorf("%w: %w", services.ErrNotFound, repository.ErrInvoiceNotFound)

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != nil {
		req.SetBody(body)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func serve(h *InvoiceHandler, method, path string, body []byte) *xhttp.RequestCtx {
	r := xhttp.CreateDefaultRouter()
	RegisterInvoiceRoutes(r, h)
	ctx := setupTestContext(method, path, body)
	r.Handler(ctx)
	return ctx
}

func decodeMap(t *testing.T, ctx *xhttp.RequestCtx) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &m))
	return m
}

func TestInvoiceHandler_AddInvoice(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		svc.On("Create", mock.Anything, mock.MatchedBy(func(req model.InvoiceCreateRequest) bool {
			return req.ClientName == "Acme" && req.Amount != nil && *req.Amount == 0 && req.GivenAmount == nil
		})).Return(&model.Invoice{ID: 1, ClientName: "Acme"}, nil).Once()

		ctx := serve(h, "POST", "/add_invoice", []byte(`{"client_name":"Acme","amount":0}`))
		assert.Equal(t, 200, ctx.Response.StatusCode())
		body := decodeMap(t, ctx)
		assert.Equal(t, "Invoice added for client: Acme", body["message"])
		assert.Equal(t, float64(1), body["invoice_id"])
		svc.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		verr := &model.ValidationError{Message: "All fields are required!", Fields: []string{"contact"}}
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, verr).Once()

		ctx := serve(h, "POST", "/add_invoice", []byte(`{"client_name":"Acme"}`))
		assert.Equal(t, 400, ctx.Response.StatusCode())
		body := decodeMap(t, ctx)
		assert.Equal(t, "All fields are required!", body["error"])
		assert.Equal(t, []any{"contact"}, body["fields"])
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		ctx := serve(h, "POST", "/add_invoice", []byte(`not json`))
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeMap(t, ctx)["error"], "invalid JSON")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("guard wraps create", func(t *testing.T) {
		svc := new(MockInvoiceService)
		guarded := false
		h := NewInvoiceHandler(svc, nil).WithCreateGuard(func(next xhttp.RequestHandler) xhttp.RequestHandler {
			return func(ctx *xhttp.RequestCtx) {
				guarded = true
				ctx.SetStatusCode(xhttp.StatusConflict)
			}
		})

		ctx := serve(h, "POST", "/add_invoice", []byte(`{}`))
		assert.True(t, guarded)
		assert.Equal(t, xhttp.StatusConflict, ctx.Response.StatusCode())
	})
}

func TestInvoiceHandler_Lookups(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("GetByClientName", mock.Anything, "Acme Corp").Return(&model.Invoice{ID: 4, ClientName: "Acme Corp"}, nil).Once()
	svc.On("GetByClientName", mock.Anything, "Nobody").Return(nil, errNotFound).Once()
	svc.On("GetByID", mock.Anything, int64(4)).Return(&model.Invoice{ID: 4}, nil).Once()
	svc.On("GetByID", mock.Anything, int64(9)).Return(nil, errNotFound).Once()
	svc.On("Get", mock.Anything, "4").Return(&model.Invoice{ID: 4}, nil).Once()
	svc.On("Get", mock.Anything, "").Return(nil, &model.ValidationError{Message: model.MsgIdentifierRequired}).Once()
	svc.On("Get", mock.Anything, "Ghost").Return(nil, errNotFound).Once()

	ctx := serve(h, "GET", "/get_invoice/Acme%20Corp", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "Acme Corp", decodeMap(t, ctx)["client_name"])

	ctx = serve(h, "GET", "/get_invoice/Nobody", nil)
	assert.Equal(t, 404, ctx.Response.StatusCode())
	assert.Equal(t, msgNotFoundByClient, decodeMap(t, ctx)["error"])

	ctx = serve(h, "GET", "/get_invoice_by_id/4", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, float64(4), decodeMap(t, ctx)["invoice_id"])

	ctx = serve(h, "GET", "/get_invoice_by_id/9", nil)
	assert.Equal(t, 404, ctx.Response.StatusCode())
	assert.Equal(t, msgNotFoundByID, decodeMap(t, ctx)["error"])

	ctx = serve(h, "GET", "/get_invoice_by_id/abc", nil)
	assert.Equal(t, 404, ctx.Response.StatusCode())
	assert.Equal(t, msgNotFoundByID, decodeMap(t, ctx)["error"])

	ctx = serve(h, "GET", "/get_invoice_details?identifier=4", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = serve(h, "GET", "/get_invoice_details", nil)
	assert.Equal(t, 400, ctx.Response.StatusCode())
	assert.Equal(t, model.MsgIdentifierRequired, decodeMap(t, ctx)["error"])

	ctx = serve(h, "GET", "/get_invoice_details?identifier=Ghost", nil)
	assert.Equal(t, 404, ctx.Response.StatusCode())
	assert.Equal(t, msgNotFoundByIdentifier, decodeMap(t, ctx)["error"])

	svc.AssertExpectations(t)
}

func TestInvoiceHandler_Listings(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("List", mock.Anything).Return(nil, nil).Once()
	svc.On("ListPending", mock.Anything).Return([]*model.Invoice{{ID: 1}, {ID: 3}}, nil).Once()

	ctx := serve(h, "GET", "/get_all_invoices", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "[]", string(ctx.Response.Body()))

	ctx = serve(h, "GET", "/get_pending_status", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var items []model.Invoice
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &items))
	assert.Len(t, items, 2)
}

func TestInvoiceHandler_Aggregates(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("CountPending", mock.Anything).Return(int64(1), nil).Once()
	svc.On("CountPaid", mock.Anything).Return(int64(2), nil).Once()
	svc.On("TotalAmount", mock.Anything).Return(150.0, nil).Once()
	svc.On("AmountToBeCollected", mock.Anything).Return(model.CollectionSummary{TotalAmount: 150, TotalGiven: 100, AmountToBeCollected: 50}, nil).Once()

	ctx := serve(h, "GET", "/get_pending_invoice_count", nil)
	assert.JSONEq(t, `{"pending_invoice_count":1}`, string(ctx.Response.Body()))

	ctx = serve(h, "GET", "/get_paid_invoice_count", nil)
	assert.JSONEq(t, `{"paid_invoice_count":2}`, string(ctx.Response.Body()))

	ctx = serve(h, "GET", "/get_total_amount", nil)
	assert.JSONEq(t, `{"total_amount":150}`, string(ctx.Response.Body()))

	ctx = serve(h, "GET", "/get_amount_to_be_collected", nil)
	assert.JSONEq(t, `{"total_amount":150,"total_given":100,"amount_to_be_collected":50}`, string(ctx.Response.Body()))
}

func TestInvoiceHandler_StorageFailure(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("CountPaid", mock.Anything).Return(int64(0), errors.New("database is locked")).Once()

	ctx := serve(h, "GET", "/get_paid_invoice_count", nil)
	assert.Equal(t, 500, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"internal error"}`, string(ctx.Response.Body()))
}

func TestInvoiceHandler_UnencodableRecord(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("GetByID", mock.Anything, int64(1)).Return(&model.Invoice{ID: 1, Amount: math.Inf(1)}, nil).Once()

	ctx := serve(h, "GET", "/get_invoice_by_id/1", nil)
	assert.Equal(t, 500, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"internal error"}`, string(ctx.Response.Body()))
}

func TestInvoiceHandler_UpdateInvoice(t *testing.T) {
	t.Run("non-finite amount", func(t *testing.T) {
		repo := &stubUpdateRepository{}
		h := NewInvoiceHandler(services.NewInvoiceService(repo), nil)

		for _, v := range []string{`"Infinity"`, `"-Inf"`, `"NaN"`} {
			body := []byte(`{"identifier":"1","update_fields":{"amount":` + v + `}}`)
			ctx := serve(h, "PUT", "/update_invoice", body)
			assert.Equal(t, 400, ctx.Response.StatusCode(), v)
			resp := decodeMap(t, ctx)
			assert.Equal(t, model.MsgInvalidUpdateValue, resp["error"])
			assert.Equal(t, []any{"amount"}, resp["fields"])
		}
		assert.False(t, repo.touched)
	})

	t.Run("string identifier", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		svc.On("Update", mock.Anything, "Acme", mock.MatchedBy(func(f map[string]any) bool {
			return f["payment_status"] == "PAID" && f["given_amount"] == json.Number("100")
		})).Return(nil).Once()

		body := []byte(`{"identifier":"Acme","update_fields":{"payment_status":"PAID","given_amount":100}}`)
		ctx := serve(h, "PUT", "/update_invoice", body)
		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, "Invoice updated successfully", decodeMap(t, ctx)["message"])
		svc.AssertExpectations(t)
	})

	t.Run("integer identifier", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		svc.On("Update", mock.Anything, "7", mock.Anything).Return(nil).Once()

		ctx := serve(h, "PUT", "/update_invoice", []byte(`{"identifier":7,"update_fields":{"contact":"1"}}`))
		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing arguments", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		svc.On("Update", mock.Anything, "", mock.Anything).
			Return(&model.ValidationError{Message: model.MsgUpdateArgsRequired}).Once()

		ctx := serve(h, "PUT", "/update_invoice", []byte(`{"update_fields":{"contact":"1"}}`))
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, model.MsgUpdateArgsRequired, decodeMap(t, ctx)["error"])
	})

	t.Run("bad identifier type", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		ctx := serve(h, "PUT", "/update_invoice", []byte(`{"identifier":[1],"update_fields":{"contact":"1"}}`))
		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockInvoiceService)
		h := NewInvoiceHandler(svc, nil)

		svc.On("Update", mock.Anything, "Ghost", mock.Anything).Return(errNotFound).Once()

		ctx := serve(h, "PUT", "/update_invoice", []byte(`{"identifier":"Ghost","update_fields":{"contact":"1"}}`))
		assert.Equal(t, 404, ctx.Response.StatusCode())
		assert.Equal(t, msgNotFoundByIdentifier, decodeMap(t, ctx)["error"])
	})
}

func TestInvoiceHandler_DeleteInvoice(t *testing.T) {
	svc := new(MockInvoiceService)
	h := NewInvoiceHandler(svc, nil)

	svc.On("Delete", mock.Anything, "3").Return(int64(1), nil).Once()
	svc.On("Delete", mock.Anything, "3").Return(int64(0), errNotFound).Once()

	ctx := serve(h, "DELETE", "/delete_invoice/3", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "Invoice deleted for identifier: 3", decodeMap(t, ctx)["message"])

	ctx = serve(h, "DELETE", "/delete_invoice/3", nil)
	assert.Equal(t, 404, ctx.Response.StatusCode())
	assert.Equal(t, msgNotFoundByIdentifier, decodeMap(t, ctx)["error"])
}

func TestInvoiceHandler_ExportInvoices(t *testing.T) {
	svc := new(MockInvoiceService)
	export := new(MockExportService)
	h := NewInvoiceHandler(svc, export)

	export.On("Export", mock.Anything, "pending", mock.Anything).Return(nil).Once()
	export.On("Export", mock.Anything, "paid", mock.Anything).
		Return(&model.ValidationError{Message: "Unknown export filter", Fields: []string{"paid"}}).Once()

	ctx := serve(h, "GET", "/export_invoices?filter=pending", nil)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, xlsxContentType, string(ctx.Response.Header.ContentType()))
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), "invoices.xlsx")
	assert.Equal(t, "xlsx-bytes", string(ctx.Response.Body()))

	ctx = serve(h, "GET", "/export_invoices?filter=paid", nil)
	assert.Equal(t, 400, ctx.Response.StatusCode())
	export.AssertExpectations(t)
}

func TestIdentifierText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: `"Acme"`, want: "Acme", ok: true},
		{raw: `12`, want: "12", ok: true},
		{raw: `null`, want: "", ok: true},
		{raw: ``, want: "", ok: true},
		{raw: `1.5`, ok: false},
		{raw: `{"a":1}`, ok: false},
	}
	for _, tt := range tests {
		got, ok := identifierText(json.RawMessage(tt.raw))
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

// stubUpdateRepository records whether an update reached storage.
type stubUpdateRepository struct {
	services.InvoiceRepository
	touched bool
}

func (r *stubUpdateRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.touched = true
	return fn(ctx)
}
