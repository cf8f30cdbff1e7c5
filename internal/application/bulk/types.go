package bulk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clases de error por fila.
const (
	IssueStructural  = "structural"  // campos faltantes o valores fuera de rango: bloquea el lote
	IssueReferential = "referential" // cliente o ítem inexistente: falla solo la fila
)

// Límites de filas por operación.
type Limits struct {
	MaxCreate int
	MaxUpdate int
	MaxDelete int
}

// DefaultLimits límites por defecto.
func DefaultLimits() Limits {
	return Limits{MaxCreate: 100, MaxUpdate: 100, MaxDelete: 50}
}

// CreateLine línea de una factura a crear.
type CreateLine struct {
	ItemID      string          `json:"item_id" validate:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	// UnitPrice en cero toma el precio del ítem.
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// CreateRow factura a crear.
type CreateRow struct {
	CustomerID  string       `json:"customer_id" validate:"required"`
	InvoiceDate *time.Time   `json:"invoice_date"`
	DueDate     *time.Time   `json:"due_date"`
	Notes       string       `json:"notes" validate:"max=2000"`
	Terms       string       `json:"terms" validate:"max=2000"`
	Items       []CreateLine `json:"items" validate:"required,min=1,dive"`
}

// CreateRequest lote de creación.
type CreateRequest struct {
	Invoices     []CreateRow `json:"invoices"`
	ValidateOnly bool        `json:"validate_only"`
}

// UpdateFields campos modificables; nil significa sin cambio.
type UpdateFields struct {
	Status        *string `json:"status" validate:"omitempty,oneof=confirmed cancelled"`
	PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=unpaid partial paid"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
	Terms         *string `json:"terms" validate:"omitempty,max=2000"`
}

func (f UpdateFields) empty() bool {
	return f.Status == nil && f.PaymentStatus == nil && f.Notes == nil && f.Terms == nil
}

// UpdateRequest actualización masiva de facturas.
type UpdateRequest struct {
	IDs    []string     `json:"ids" validate:"required,min=1,dive,required"`
	Fields UpdateFields `json:"fields"`
	// Reason se guarda como motivo cuando Status pasa a cancelled.
	Reason string `json:"reason"`
}

// DeleteRequest anulación masiva (borrado lógico).
type DeleteRequest struct {
	IDs              []string `json:"ids" validate:"required,min=1,dive,required"`
	Reason           string   `json:"reason"`
	ReverseInventory bool     `json:"reverse_inventory"`
}

// RowIssue errores de una fila (fila desde 1).
type RowIssue struct {
	Row    int      `json:"row"`
	Kind   string   `json:"kind"`
	Errors []string `json:"errors"`
}

// ValidationReport resultado de validar un lote.
type ValidationReport struct {
	Total     int        `json:"total"`
	ValidRows []int      `json:"valid_rows"`
	Issues    []RowIssue `json:"issues"`
}

// Structural indica si alguna fila tiene errores estructurales.
func (r *ValidationReport) Structural() bool {
	for _, i := range r.Issues {
		if i.Kind == IssueStructural {
			return true
		}
	}
	return false
}

func (r *ValidationReport) issue(row int) *RowIssue {
	for i := range r.Issues {
		if r.Issues[i].Row == row {
			return &r.Issues[i]
		}
	}
	return nil
}

// RowSuccess fila aplicada.
type RowSuccess struct {
	Row            int      `json:"row,omitempty"`
	InvoiceID      string   `json:"invoice_id"`
	DocumentNumber string   `json:"document_number,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RowFailure fila rechazada con su motivo.
type RowFailure struct {
	Row       int    `json:"row,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// Outcome resultado parcial: siempre trae ambas listas.
type Outcome struct {
	Successful []RowSuccess      `json:"successful"`
	Failed     []RowFailure      `json:"failed"`
	Validation *ValidationReport `json:"validation,omitempty"`
}

func newOutcome() *Outcome {
	return &Outcome{Successful: []RowSuccess{}, Failed: []RowFailure{}}
}

// Partial indica éxito parcial (207).
func (o *Outcome) Partial() bool {
	return len(o.Successful) > 0 && len(o.Failed) > 0
}
