package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// ItemRepository puerto de persistencia de ítems.
// El stock solo se escribe con UpdateStock, usado exclusivamente por el ledger.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	// Update actualiza los datos descriptivos; no toca el stock.
	Update(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Item, error)
	GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Item, error)
	GetBySKU(ctx context.Context, companyID, sku string) (*entity.Item, error)
	// GetForUpdate bloquea la fila del ítem hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, companyID, id string) (*entity.Item, error)
	UpdateStock(ctx context.Context, companyID, id string, current, available decimal.Decimal) error
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Item, error)
}
