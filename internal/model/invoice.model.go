package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	JobStatusYetTo        = "YET-TO"
	PaymentStatusPaid     = "PAID"
	PaymentStatusUnpaid   = "UNPAID"
	OverallStatusPending  = "PENDING"
	AddedDateLayout       = "January 02, 2006, 03:04 PM"
	requiredFieldsMessage = "All fields (client_name, contact, product_type, product_description, damage_problem, address, job_status, payment_status, overall_status, amount) are required!"
)

const (
	MsgIdentifierRequired = "Identifier (client_name or invoice_id) is required!"
	MsgUpdateArgsRequired = "Identifier (client_name or invoice_id) and fields to update are required!"
	MsgUnknownUpdateField = "Unknown fields in update_fields"
	MsgInvalidUpdateValue = "Invalid value type in update_fields"
)

// Invoice is one row of the invoice_data table. Every key is always present
// in its JSON form; completed_date is null until a client sets it.
type Invoice struct {
	ID                 int64   `json:"invoice_id"`
	ClientName         string  `json:"client_name"`
	Contact            string  `json:"contact"`
	ProductType        string  `json:"product_type"`
	ProductDescription string  `json:"product_description"`
	DamageProblem      string  `json:"damage_problem"`
	Address            string  `json:"address"`
	JobStatus          string  `json:"job_status"`
	PaymentStatus      string  `json:"payment_status"`
	OverallStatus      string  `json:"overall_status"`
	GivenAmount        float64 `json:"given_amount"`
	Amount             float64 `json:"amount"`
	AddedDate          string  `json:"added_date"`
	CompletedDate      *string `json:"completed_date"`
}

// InvoiceCreateRequest is the body of POST /add_invoice. Amount is a pointer
// so that an explicit zero is distinguishable from a missing value.
type InvoiceCreateRequest struct {
	ClientName         string   `json:"client_name"         validate:"required"`
	Contact            string   `json:"contact"             validate:"required"`
	ProductType        string   `json:"product_type"        validate:"required"`
	ProductDescription string   `json:"product_description" validate:"required"`
	DamageProblem      string   `json:"damage_problem"      validate:"required"`
	Address            string   `json:"address"             validate:"required"`
	JobStatus          string   `json:"job_status"          validate:"required"`
	PaymentStatus      string   `json:"payment_status"      validate:"required"`
	OverallStatus      string   `json:"overall_status"      validate:"required"`
	Amount             *float64 `json:"amount"              validate:"required"`
	GivenAmount        *float64 `json:"given_amount"`
	CompletedDate      *string  `json:"completed_date"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (r InvoiceCreateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Message: requiredFieldsMessage, Fields: fields}
}

// ToInvoice builds the record to insert. AddedDate is left to the caller.
func (r InvoiceCreateRequest) ToInvoice() *Invoice {
	inv := &Invoice{
		ClientName:         r.ClientName,
		Contact:            r.Contact,
		ProductType:        r.ProductType,
		ProductDescription: r.ProductDescription,
		DamageProblem:      r.DamageProblem,
		Address:            r.Address,
		JobStatus:          r.JobStatus,
		PaymentStatus:      r.PaymentStatus,
		OverallStatus:      r.OverallStatus,
		CompletedDate:      r.CompletedDate,
	}
	if r.Amount != nil {
		inv.Amount = *r.Amount
	}
	if r.GivenAmount != nil {
		inv.GivenAmount = *r.GivenAmount
	}
	return inv
}

// ValidationError reports client input that cannot be accepted.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Identifier is a resolved lookup key. A raw value made only of ASCII digits
// addresses a row by invoice_id, anything else matches client_name exactly.
type Identifier struct {
	Raw  string
	ID   int64
	ByID bool
}

func ParseIdentifier(raw string) (Identifier, error) {
	if raw == "" {
		return Identifier{}, &ValidationError{Message: MsgIdentifierRequired}
	}
	if !isASCIIDigits(raw) {
		return Identifier{Raw: raw}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// out of range for any stored id
		id = 0
	}
	return Identifier{Raw: raw, ID: id, ByID: true}, nil
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func (i Identifier) String() string { return i.Raw }

type columnKind int

const (
	textColumn columnKind = iota
	nullableTextColumn
	numericColumn
)

// updatableColumns is every column a client may change. invoice_id and
// added_date are owned by the store.
var updatableColumns = map[string]columnKind{
	"client_name":         textColumn,
	"contact":             textColumn,
	"product_type":        textColumn,
	"product_description": textColumn,
	"damage_problem":      textColumn,
	"address":             textColumn,
	"job_status":          textColumn,
	"payment_status":      textColumn,
	"overall_status":      textColumn,
	"given_amount":        numericColumn,
	"amount":              numericColumn,
	"completed_date":      nullableTextColumn,
}

// NormalizeUpdateFields checks keys against the updatable columns and
// coerces values to the column type. The result is safe to hand to the
// repository as a column map.
func NormalizeUpdateFields(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, &ValidationError{Message: MsgUpdateArgsRequired}
	}

	var unknown, invalid []string
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		kind, ok := updatableColumns[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		v, ok := coerce(kind, value)
		if !ok {
			invalid = append(invalid, key)
			continue
		}
		out[key] = v
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Message: MsgUnknownUpdateField, Fields: unknown}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &ValidationError{Message: MsgInvalidUpdateValue, Fields: invalid}
	}
	return out, nil
}

func coerce(kind columnKind, value any) (any, bool) {
	switch kind {
	case textColumn:
		s, ok := value.(string)
		return s, ok
	case nullableTextColumn:
		if value == nil {
			return nil, true
		}
		s, ok := value.(string)
		return s, ok
	case numericColumn:
		f, ok := toFloat(value)
		if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// InvoiceTotals are the raw sums over every record.
type InvoiceTotals struct {
	TotalAmount float64 `gorm:"column:total_amount"`
	TotalGiven  float64 `gorm:"column:total_given"`
}

func (t InvoiceTotals) Balance() float64 {
	return t.TotalAmount - t.TotalGiven
}

// CollectionSummary is the body of GET /get_amount_to_be_collected.
type CollectionSummary struct {
	TotalAmount         float64 `json:"total_amount"`
	TotalGiven          float64 `json:"total_given"`
	AmountToBeCollected float64 `json:"amount_to_be_collected"`
}

func NewCollectionSummary(t InvoiceTotals) CollectionSummary {
	return CollectionSummary{
		TotalAmount:         t.TotalAmount,
		TotalGiven:          t.TotalGiven,
		AmountToBeCollected: t.Balance(),
	}
}
