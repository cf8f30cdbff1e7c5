package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item producto o servicio facturable. CurrentStock solo cambia a través del ledger de inventario.
type Item struct {
	ID                string
	CompanyID         string
	SKU               string // código interno único por empresa
	Name              string
	Price             decimal.Decimal
	TaxRate           decimal.Decimal // porcentaje, ej. 18
	CurrentStock      decimal.Decimal
	AvailableStock    decimal.Decimal
	TrackInventory    bool
	ExternalProductID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
