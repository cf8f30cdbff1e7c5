package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// CustomerRepository puerto de persistencia de clientes.
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	Update(ctx context.Context, c *entity.Customer) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Customer, error)
	GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Customer, error)
	// GetByEmail compara sin distinguir mayúsculas.
	GetByEmail(ctx context.Context, companyID, email string) (*entity.Customer, error)
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Customer, error)
}
