package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIn         = "in"         // entrada
	MovementTypeOut        = "out"        // salida
	MovementTypeAdjustment = "adjustment" // ajuste
)

// Tipos de referencia que originan un movimiento.
const (
	ReferenceInvoice         = "invoice"
	ReferenceInvoiceReversal = "invoice_reversal"
	ReferenceStockSync       = "stock_sync"
	ReferenceManual          = "manual"
)

// ReversalReferenceType tipo de referencia de los movimientos compensatorios de refType.
func ReversalReferenceType(refType string) string {
	return refType + "_reversal"
}

// InventoryMovement registro inmutable de un cambio de stock.
// StockAfter = StockBefore ± Quantity según Type; Quantity siempre es positiva.
type InventoryMovement struct {
	ID              string
	CompanyID       string
	ItemID          string
	Type            string
	Quantity        decimal.Decimal
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	StockBefore     decimal.Decimal
	StockAfter      decimal.Decimal
	MovementDate    time.Time
	Note            string
	CreatedAt       time.Time
}

// Delta cambio neto con signo que produjo el movimiento.
func (m *InventoryMovement) Delta() decimal.Decimal {
	return m.StockAfter.Sub(m.StockBefore)
}
