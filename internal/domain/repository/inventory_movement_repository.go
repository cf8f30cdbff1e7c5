package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// InventoryMovementRepository puerto append-only de movimientos.
type InventoryMovementRepository interface {
	Create(ctx context.Context, m *entity.InventoryMovement) error
	ListByReference(ctx context.Context, companyID, refType, refID string) ([]*entity.InventoryMovement, error)
	ListByItem(ctx context.Context, companyID, itemID string) ([]*entity.InventoryMovement, error)
}
