package fixtures

import (
	"github.com/nimasrn/invoice-ledger/internal/model"
)

func amount(f float64) *float64 { return &f }

// AcmeOpen is the first job of the walkthrough client: nothing paid yet.
func AcmeOpen() model.InvoiceCreateRequest {
	return model.InvoiceCreateRequest{
		ClientName:         "Acme",
		Contact:            "555-1234",
		ProductType:        "Laptop",
		ProductDescription: "Screen repair",
		DamageProblem:      "Cracked screen",
		Address:            "1 Main St",
		JobStatus:          model.JobStatusYetTo,
		PaymentStatus:      model.PaymentStatusUnpaid,
		OverallStatus:      model.OverallStatusPending,
		Amount:             amount(100),
	}
}

// AcmeSecond shares the client name with AcmeOpen.
func AcmeSecond() model.InvoiceCreateRequest {
	req := AcmeOpen()
	req.ProductType = "Phone"
	req.ProductDescription = "Battery swap"
	req.Amount = amount(50)
	return req
}

func Completed(name string, total float64) model.InvoiceCreateRequest {
	req := AcmeOpen()
	req.ClientName = name
	req.JobStatus = "DONE"
	req.PaymentStatus = model.PaymentStatusPaid
	req.OverallStatus = "COMPLETED"
	req.Amount = amount(total)
	req.GivenAmount = amount(total)
	return req
}
