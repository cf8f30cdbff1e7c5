package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentAllocation aplicación de un pago recibido a una factura.
type PaymentAllocation struct {
	ID        string
	PaymentID string
	InvoiceID string
	Amount    decimal.Decimal
	CreatedAt time.Time
}
