package entity

import "github.com/shopspring/decimal"

// InvoiceItem línea de factura. ItemID vacío cuando el producto externo no se pudo resolver.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ItemID      string
	SKU         string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	Amount      decimal.Decimal
}
