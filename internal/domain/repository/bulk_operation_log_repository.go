package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// BulkOperationLogRepository auditoría de operaciones masivas.
type BulkOperationLogRepository interface {
	Create(ctx context.Context, l *entity.BulkOperationLog) error
}
