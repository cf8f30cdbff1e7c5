package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo implementación append-only de movimientos (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

const movementColumns = `id, company_id, item_id, movement_type, quantity, reference_type, reference_id,
	reference_number, stock_before, stock_after, movement_date, note, created_at`

// Create inserta un movimiento. No existe Update ni Delete.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.CompanyID, m.ItemID, m.Type, m.Quantity, m.ReferenceType, m.ReferenceID,
		nullIfEmpty(m.ReferenceNumber), m.StockBefore, m.StockAfter, m.MovementDate,
		nullIfEmpty(m.Note), m.CreatedAt,
	)
	if err != nil {
		return storeErr("insert movement", err)
	}
	return nil
}

// ListByReference movimientos originados por una referencia, en orden de registro.
func (r *InventoryMovementRepo) ListByReference(ctx context.Context, companyID, refType, refID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `company_id = $1 AND reference_type = $2 AND reference_id = $3`, companyID, refType, refID)
}

// ListByItem historial de un ítem, en orden de registro.
func (r *InventoryMovementRepo) ListByItem(ctx context.Context, companyID, itemID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `company_id = $1 AND item_id = $2`, companyID, itemID)
}

func (r *InventoryMovementRepo) list(ctx context.Context, where string, args ...any) ([]*entity.InventoryMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM inventory_movements WHERE ` + where + ` ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list movements", err)
	}
	defer rows.Close()

	var list []*entity.InventoryMovement
	for rows.Next() {
		var (
			m         entity.InventoryMovement
			refNumber *string
			note      *string
		)
		if err := rows.Scan(
			&m.ID, &m.CompanyID, &m.ItemID, &m.Type, &m.Quantity, &m.ReferenceType, &m.ReferenceID,
			&refNumber, &m.StockBefore, &m.StockAfter, &m.MovementDate, &note, &m.CreatedAt,
		); err != nil {
			return nil, storeErr("scan movement", err)
		}
		m.ReferenceNumber = emptyIfNull(refNumber)
		m.Note = emptyIfNull(note)
		list = append(list, &m)
	}
	return list, rows.Err()
}
