package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// IntegrationRepository puerto de persistencia de conexiones con tiendas externas.
type IntegrationRepository interface {
	// Upsert crea o reemplaza la conexión de la empresa (una por empresa).
	Upsert(ctx context.Context, in *entity.Integration) error
	GetByCompany(ctx context.Context, companyID string) (*entity.Integration, error)
	TouchLastSync(ctx context.Context, id string, at time.Time) error
}
