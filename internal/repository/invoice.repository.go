package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/invoice-ledger/internal/model"
	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
	"gorm.io/gorm"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

const (
	// any of the three flags marks a row as pending in listings
	pendingAnyClause = "job_status = ? OR payment_status = ? OR overall_status = ?"
	// counting requires all three
	pendingAllClause = "job_status = ? AND payment_status = ? AND overall_status = ?"
)

type InvoiceRepository struct {
	*sqldb.DB
}

func NewInvoiceRepository(db *sqldb.DB) *InvoiceRepository {
	return &InvoiceRepository{
		db,
	}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	entity := toInvoiceEntity(inv)
	entity.ID = 0
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toInvoiceModel(entity), nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*model.Invoice, error) {
	return r.first(r.Read(ctx).Where("invoice_id = ?", id))
}

// GetByClientName returns the oldest record carrying the name.
func (r *InvoiceRepository) GetByClientName(ctx context.Context, name string) (*model.Invoice, error) {
	return r.first(r.Read(ctx).Where("client_name = ?", name))
}

func (r *InvoiceRepository) Get(ctx context.Context, ident model.Identifier) (*model.Invoice, error) {
	if ident.ByID {
		return r.GetByID(ctx, ident.ID)
	}
	return r.GetByClientName(ctx, ident.Raw)
}

func (r *InvoiceRepository) first(q *gorm.DB) (*model.Invoice, error) {
	var entity InvoiceEntity
	// First orders by the primary key
	err := q.First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return toInvoiceModel(&entity), nil
}

func (r *InvoiceRepository) ListAll(ctx context.Context) ([]*model.Invoice, error) {
	return r.list(r.Read(ctx))
}

func (r *InvoiceRepository) ListPending(ctx context.Context) ([]*model.Invoice, error) {
	return r.list(r.Read(ctx).Where(pendingAnyClause,
		model.JobStatusYetTo, model.PaymentStatusUnpaid, model.OverallStatusPending))
}

func (r *InvoiceRepository) list(q *gorm.DB) ([]*model.Invoice, error) {
	var entities []*InvoiceEntity
	if err := q.Order("invoice_id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toInvoiceModels(entities), nil
}

func (r *InvoiceRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&InvoiceEntity{}).
		Where(pendingAllClause, model.JobStatusYetTo, model.PaymentStatusUnpaid, model.OverallStatusPending).
		Count(&count).
		Error
	return count, err
}

func (r *InvoiceRepository) CountByPaymentStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&InvoiceEntity{}).
		Where("payment_status = ?", status).
		Count(&count).
		Error
	return count, err
}

func (r *InvoiceRepository) Totals(ctx context.Context) (model.InvoiceTotals, error) {
	var totals model.InvoiceTotals
	err := r.Read(ctx).Model(&InvoiceEntity{}).
		Select("COALESCE(SUM(amount), 0) AS total_amount, COALESCE(SUM(given_amount), 0) AS total_given").
		Scan(&totals).
		Error
	return totals, err
}

// Update writes fields to the row with the id, or to every row with the
// name. fields must already be restricted to updatable columns.
func (r *InvoiceRepository) Update(ctx context.Context, ident model.Identifier, fields map[string]any) (int64, error) {
	result := r.match(r.Write(ctx).Model(&InvoiceEntity{}), ident).Updates(fields)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, ident model.Identifier) (int64, error) {
	result := r.match(r.Write(ctx), ident).Delete(&InvoiceEntity{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrInvoiceNotFound
	}
	return result.RowsAffected, nil
}

func (r *InvoiceRepository) match(q *gorm.DB, ident model.Identifier) *gorm.DB {
	if ident.ByID {
		return q.Where("invoice_id = ?", ident.ID)
	}
	return q.Where("client_name = ?", ident.Raw)
}
