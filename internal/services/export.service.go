package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nimasrn/invoice-ledger/internal/model"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
	"github.com/xuri/excelize/v2"
)

const (
	ExportFilterAll     = "all"
	ExportFilterPending = "pending"

	exportSheet = "Invoices"
)

var exportHeaders = []string{
	"Invoice ID", "Client Name", "Contact", "Product Type", "Product Description",
	"Damage Problem", "Address", "Job Status", "Payment Status", "Overall Status",
	"Given Amount", "Amount", "Added Date", "Completed Date",
}

// column positions of the amounts, 1-based
const (
	givenAmountCol = 11
	amountCol      = 12
)

type InvoiceLister interface {
	ListAll(ctx context.Context) ([]*model.Invoice, error)
	ListPending(ctx context.Context) ([]*model.Invoice, error)
}

type ExportService struct {
	lister InvoiceLister
}

func NewExportService(lister InvoiceLister) *ExportService {
	return &ExportService{lister: lister}
}

// Export writes the selected invoices as an XLSX workbook to w. The last row
// sums the amount columns of the exported rows.
func (s *ExportService) Export(ctx context.Context, filter string, w io.Writer) (err error) {
	start := time.Now()
	defer func() {
		prom.IncInvoiceOperation("export", err)
		prom.ObserveExport(time.Since(start))
	}()

	var invoices []*model.Invoice
	switch filter {
	case "", ExportFilterAll:
		invoices, err = s.lister.ListAll(ctx)
	case ExportFilterPending:
		invoices, err = s.lister.ListPending(ctx)
	default:
		return &model.ValidationError{Message: "Unknown export filter", Fields: []string{filter}}
	}
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	f, err := buildWorkbook(invoices)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(invoices []*model.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	row := 1
	headers := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := setRow(f, row, headers); err != nil {
		f.Close()
		return nil, err
	}

	bold, styleErr := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if styleErr == nil {
		_ = f.SetRowStyle(exportSheet, 1, 1, bold)
	}

	var totalGiven, totalAmount float64
	for _, inv := range invoices {
		row++
		completed := ""
		if inv.CompletedDate != nil {
			completed = *inv.CompletedDate
		}
		values := []any{
			inv.ID, inv.ClientName, inv.Contact, inv.ProductType, inv.ProductDescription,
			inv.DamageProblem, inv.Address, inv.JobStatus, inv.PaymentStatus, inv.OverallStatus,
			inv.GivenAmount, inv.Amount, inv.AddedDate, completed,
		}
		if err := setRow(f, row, values); err != nil {
			f.Close()
			return nil, err
		}
		totalGiven += inv.GivenAmount
		totalAmount += inv.Amount
	}

	row++
	totals := make([]any, amountCol)
	totals[0] = "Total"
	totals[givenAmountCol-1] = totalGiven
	totals[amountCol-1] = totalAmount
	if err := setRow(f, row, totals); err != nil {
		f.Close()
		return nil, err
	}
	if styleErr == nil {
		_ = f.SetRowStyle(exportSheet, row, row, bold)
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(exportSheet, col, col, 18)
	}
	return f, nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}
