package repository

import (
	"github.com/nimasrn/invoice-ledger/internal/model"
)

type InvoiceEntity struct {
	ID                 int64   `db:"invoice_id"          gorm:"primaryKey;autoIncrement;column:invoice_id"`
	ClientName         string  `db:"client_name"         gorm:"column:client_name;index"`
	Contact            string  `db:"contact"             gorm:"column:contact"`
	ProductType        string  `db:"product_type"        gorm:"column:product_type"`
	ProductDescription string  `db:"product_description" gorm:"column:product_description"`
	DamageProblem      string  `db:"damage_problem"      gorm:"column:damage_problem"`
	Address            string  `db:"address"             gorm:"column:address"`
	JobStatus          string  `db:"job_status"          gorm:"column:job_status"`
	PaymentStatus      string  `db:"payment_status"      gorm:"column:payment_status"`
	OverallStatus      string  `db:"overall_status"      gorm:"column:overall_status"`
	GivenAmount        float64 `db:"given_amount"        gorm:"column:given_amount"`
	Amount             float64 `db:"amount"              gorm:"column:amount"`
	AddedDate          string  `db:"added_date"          gorm:"column:added_date"`
	CompletedDate      *string `db:"completed_date"      gorm:"column:completed_date"`
}

func (InvoiceEntity) TableName() string {
	return "invoice_data"
}

func toInvoiceEntity(m *model.Invoice) *InvoiceEntity {
	if m == nil {
		return nil
	}
	return &InvoiceEntity{
		ID:                 m.ID,
		ClientName:         m.ClientName,
		Contact:            m.Contact,
		ProductType:        m.ProductType,
		ProductDescription: m.ProductDescription,
		DamageProblem:      m.DamageProblem,
		Address:            m.Address,
		JobStatus:          m.JobStatus,
		PaymentStatus:      m.PaymentStatus,
		OverallStatus:      m.OverallStatus,
		GivenAmount:        m.GivenAmount,
		Amount:             m.Amount,
		AddedDate:          m.AddedDate,
		CompletedDate:      m.CompletedDate,
	}
}

func toInvoiceModel(e *InvoiceEntity) *model.Invoice {
	if e == nil {
		return nil
	}
	return &model.Invoice{
		ID:                 e.ID,
		ClientName:         e.ClientName,
		Contact:            e.Contact,
		ProductType:        e.ProductType,
		ProductDescription: e.ProductDescription,
		DamageProblem:      e.DamageProblem,
		Address:            e.Address,
		JobStatus:          e.JobStatus,
		PaymentStatus:      e.PaymentStatus,
		OverallStatus:      e.OverallStatus,
		GivenAmount:        e.GivenAmount,
		Amount:             e.Amount,
		AddedDate:          e.AddedDate,
		CompletedDate:      e.CompletedDate,
	}
}

func toInvoiceModels(entities []*InvoiceEntity) []*model.Invoice {
	models := make([]*model.Invoice, len(entities))
	for i, e := range entities {
		models[i] = toInvoiceModel(e)
	}
	return models
}
