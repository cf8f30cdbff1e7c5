package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura.
const (
	InvoiceStatusConfirmed = "confirmed"
	InvoiceStatusCancelled = "cancelled"
)

// Estados de pago.
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// Origen de la factura.
const (
	InvoiceSourceWebhook = "webhook"
	InvoiceSourceSync    = "sync"
	InvoiceSourceBulk    = "bulk"
)

// Invoice cabecera de factura. Como máximo una factura no anulada por (CompanyID, ExternalOrderID).
// El número es único por (CompanyID, DocumentType, FinancialYear): los consecutivos que se
// reinician cada año fiscal repiten el número visible en años distintos.
type Invoice struct {
	ID                  string
	CompanyID           string
	CustomerID          string
	DocumentType        string
	FinancialYear       string
	DocumentNumber      string
	InvoiceDate         time.Time
	DueDate             *time.Time
	Subtotal            decimal.Decimal
	TaxTotal            decimal.Decimal
	Total               decimal.Decimal
	Status              string
	PaymentStatus       string
	ExternalOrderID     string
	ExternalOrderNumber string
	Source              string
	Notes               string
	Terms               string
	CancelReason        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsCancelled indica si la factura fue anulada.
func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// IsPaymentStatus valida un estado de pago.
func IsPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}
