// Package ledger es el único escritor del stock: cada cambio queda como un movimiento inmutable
// y el stock del ítem es la proyección de esos movimientos.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// Reference documento que origina el movimiento.
type Reference struct {
	Type   string
	ID     string
	Number string
}

// ApplyCommand cambio de stock con signo: Delta negativo es salida.
type ApplyCommand struct {
	CompanyID string
	ItemID    string
	Delta     decimal.Decimal
	// Type se deduce del signo de Delta si viene vacío.
	Type      string
	Reference Reference
	Note      string
	Date      time.Time
}

// Ledger casos de uso de apply/reverse.
type Ledger struct {
	tx      repository.TxRunner
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New construye el ledger.
func New(tx repository.TxRunner, log *logger.Logger, m *metrics.Metrics) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{tx: tx, log: log.Named("ledger"), metrics: m, now: time.Now}
}

// Apply registra el movimiento en su propia transacción.
func (l *Ledger) Apply(ctx context.Context, cmd ApplyCommand) (*entity.InventoryMovement, error) {
	var out *entity.InventoryMovement
	err := l.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		out, err = l.ApplyInTx(ctx, r, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyInTx bloquea el ítem, calcula stock_after y escribe movimiento + stock en la transacción
// del llamador. Con track_inventory activo rechaza con ErrInsufficientStock si el stock quedaría
// negativo, sin escribir nada.
func (l *Ledger) ApplyInTx(ctx context.Context, r repository.Repositories, cmd ApplyCommand) (*entity.InventoryMovement, error) {
	if cmd.CompanyID == "" || cmd.ItemID == "" {
		return nil, fmt.Errorf("%w: company_id e item_id son requeridos", domain.ErrInvalidInput)
	}
	if cmd.Delta.IsZero() {
		return nil, fmt.Errorf("%w: la cantidad del movimiento no puede ser cero", domain.ErrInvalidInput)
	}
	item, err := r.Items.GetForUpdate(ctx, cmd.CompanyID, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("bloquear ítem: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, cmd.ItemID)
	}

	after := item.CurrentStock.Add(cmd.Delta)
	if item.TrackInventory && after.IsNegative() {
		return nil, fmt.Errorf("%w: %s disponible %s, requerido %s",
			domain.ErrInsufficientStock, item.SKU, item.CurrentStock.String(), cmd.Delta.Neg().String())
	}

	mvType := cmd.Type
	if mvType == "" {
		mvType = entity.MovementTypeIn
		if cmd.Delta.IsNegative() {
			mvType = entity.MovementTypeOut
		}
	}
	return l.write(ctx, r, item, mvType, cmd.Delta, cmd.Reference, cmd.Note, cmd.Date)
}

// Reverse compensa los movimientos de la referencia en su propia transacción.
func (l *Ledger) Reverse(ctx context.Context, companyID, refType, refID string) ([]*entity.InventoryMovement, error) {
	var out []*entity.InventoryMovement
	err := l.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		out, err = l.ReverseInTx(ctx, r, companyID, refType, refID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReverseInTx agrega un movimiento compensatorio por cada movimiento original de la referencia.
// Si la referencia ya fue revertida no hace nada y devuelve una lista vacía.
func (l *Ledger) ReverseInTx(ctx context.Context, r repository.Repositories, companyID, refType, refID string) ([]*entity.InventoryMovement, error) {
	if companyID == "" || refType == "" || refID == "" {
		return nil, fmt.Errorf("%w: referencia incompleta", domain.ErrInvalidInput)
	}
	originals, err := r.Movements.ListByReference(ctx, companyID, refType, refID)
	if err != nil {
		return nil, fmt.Errorf("consultar movimientos: %w", err)
	}
	if len(originals) == 0 {
		return nil, nil
	}

	// Bloqueo en orden de ID para no cruzarse con otra reversión que toque los mismos ítems.
	ids := make([]string, 0, len(originals))
	seen := map[string]bool{}
	for _, m := range originals {
		if !seen[m.ItemID] {
			seen[m.ItemID] = true
			ids = append(ids, m.ItemID)
		}
	}
	sort.Strings(ids)
	items := make(map[string]*entity.Item, len(ids))
	for _, id := range ids {
		it, err := r.Items.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return nil, fmt.Errorf("bloquear ítem: %w", err)
		}
		if it == nil {
			return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
		}
		items[id] = it
	}

	revType := entity.ReversalReferenceType(refType)
	done, err := r.Movements.ListByReference(ctx, companyID, revType, refID)
	if err != nil {
		return nil, fmt.Errorf("consultar reversiones: %w", err)
	}
	if len(done) > 0 {
		l.log.Debug().Str("reference_type", refType).Str("reference_id", refID).Msg("referencia ya revertida")
		return []*entity.InventoryMovement{}, nil
	}

	out := make([]*entity.InventoryMovement, 0, len(originals))
	for _, orig := range originals {
		delta := orig.Delta().Neg()
		if delta.IsZero() {
			continue
		}
		mvType := entity.MovementTypeIn
		if delta.IsNegative() {
			mvType = entity.MovementTypeOut
		}
		ref := Reference{Type: revType, ID: refID, Number: orig.ReferenceNumber}
		note := fmt.Sprintf("reversión de movimiento %s", orig.ID)
		mv, err := l.write(ctx, r, items[orig.ItemID], mvType, delta, ref, note, time.Time{})
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, nil
}

// write persiste el movimiento y la nueva proyección de stock; item se actualiza en memoria para
// que varios movimientos del mismo ítem en una transacción encadenen stock_before.
func (l *Ledger) write(ctx context.Context, r repository.Repositories, item *entity.Item, mvType string,
	delta decimal.Decimal, ref Reference, note string, date time.Time) (*entity.InventoryMovement, error) {
	now := l.now()
	if date.IsZero() {
		date = now
	}
	before := item.CurrentStock
	after := before.Add(delta)
	available := item.AvailableStock.Add(delta)

	mv := &entity.InventoryMovement{
		CompanyID:       item.CompanyID,
		ItemID:          item.ID,
		Type:            mvType,
		Quantity:        delta.Abs(),
		ReferenceType:   ref.Type,
		ReferenceID:     ref.ID,
		ReferenceNumber: ref.Number,
		StockBefore:     before,
		StockAfter:      after,
		MovementDate:    date,
		Note:            note,
		CreatedAt:       now,
	}
	if err := r.Movements.Create(ctx, mv); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}
	if err := r.Items.UpdateStock(ctx, item.CompanyID, item.ID, after, available); err != nil {
		return nil, fmt.Errorf("actualizar stock: %w", err)
	}
	item.CurrentStock = after
	item.AvailableStock = available

	l.metrics.ObserveMovement(mvType)
	l.log.Debug().Str("item_id", item.ID).Str("type", mvType).
		Str("before", before.String()).Str("after", after.String()).Msg("movimiento registrado")
	return mv, nil
}

// IsInsufficientStock indica si err es un rechazo por stock insuficiente.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock)
}
