package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/invoice-ledger/internal/model"
	"github.com/nimasrn/invoice-ledger/internal/repository"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
)

var ErrNotFound = errors.New("error notfound")

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)
	GetByID(ctx context.Context, id int64) (*model.Invoice, error)
	GetByClientName(ctx context.Context, name string) (*model.Invoice, error)
	Get(ctx context.Context, ident model.Identifier) (*model.Invoice, error)
	ListAll(ctx context.Context) ([]*model.Invoice, error)
	ListPending(ctx context.Context) ([]*model.Invoice, error)
	CountPending(ctx context.Context) (int64, error)
	CountByPaymentStatus(ctx context.Context, status string) (int64, error)
	Totals(ctx context.Context) (model.InvoiceTotals, error)
	Update(ctx context.Context, ident model.Identifier, fields map[string]any) (int64, error)
	Delete(ctx context.Context, ident model.Identifier) (int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type InvoiceService struct {
	repo InvoiceRepository
	now  func() time.Time
}

func NewInvoiceService(repo InvoiceRepository) *InvoiceService {
	return &InvoiceService{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock replaces the clock used to stamp added_date.
func (s *InvoiceService) WithClock(now func() time.Time) *InvoiceService {
	s.now = now
	return s
}

func (s *InvoiceService) Create(ctx context.Context, req model.InvoiceCreateRequest) (inv *model.Invoice, err error) {
	defer func() { prom.IncInvoiceOperation("create", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	record := req.ToInvoice()
	record.AddedDate = s.now().Format(model.AddedDateLayout)

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return created, nil
}

// Get resolves raw as an invoice id when it is all digits, otherwise as a
// client name.
func (s *InvoiceService) Get(ctx context.Context, raw string) (*model.Invoice, error) {
	ident, err := model.ParseIdentifier(raw)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.Get(ctx, ident)
	return inv, mapRepoError(err)
}

func (s *InvoiceService) GetByID(ctx context.Context, id int64) (*model.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	return inv, mapRepoError(err)
}

func (s *InvoiceService) GetByClientName(ctx context.Context, name string) (*model.Invoice, error) {
	inv, err := s.repo.GetByClientName(ctx, name)
	return inv, mapRepoError(err)
}

func (s *InvoiceService) List(ctx context.Context) ([]*model.Invoice, error) {
	return s.repo.ListAll(ctx)
}

func (s *InvoiceService) ListPending(ctx context.Context) ([]*model.Invoice, error) {
	return s.repo.ListPending(ctx)
}

func (s *InvoiceService) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}

func (s *InvoiceService) CountPaid(ctx context.Context) (int64, error) {
	return s.repo.CountByPaymentStatus(ctx, model.PaymentStatusPaid)
}

func (s *InvoiceService) TotalAmount(ctx context.Context) (float64, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return 0, err
	}
	return totals.TotalAmount, nil
}

func (s *InvoiceService) AmountToBeCollected(ctx context.Context) (model.CollectionSummary, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return model.CollectionSummary{}, err
	}
	return model.NewCollectionSummary(totals), nil
}

// Update applies fields to the row with the id, or to every row sharing the
// client name. The existence check and the write share one transaction.
func (s *InvoiceService) Update(ctx context.Context, raw string, fields map[string]any) (err error) {
	defer func() { prom.IncInvoiceOperation("update", err) }()

	if raw == "" || len(fields) == 0 {
		return &model.ValidationError{Message: model.MsgUpdateArgsRequired}
	}
	ident, err := model.ParseIdentifier(raw)
	if err != nil {
		return err
	}
	columns, err := model.NormalizeUpdateFields(fields)
	if err != nil {
		return err
	}

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, ident); err != nil {
			return mapRepoError(err)
		}
		n, err := s.repo.Update(ctx, ident, columns)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %w", ErrNotFound, repository.ErrInvoiceNotFound)
		}
		return nil
	})
}

// Delete removes the row with the id, or every row sharing the client name.
func (s *InvoiceService) Delete(ctx context.Context, raw string) (n int64, err error) {
	defer func() { prom.IncInvoiceOperation("delete", err) }()

	ident, err := model.ParseIdentifier(raw)
	if err != nil {
		return 0, err
	}
	n, err = s.repo.Delete(ctx, ident)
	if err != nil {
		return 0, mapRepoError(err)
	}
	return n, nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrInvoiceNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
