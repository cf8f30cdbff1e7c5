package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// WebhookEventRepository bitácora de eventos de webhook.
type WebhookEventRepository interface {
	Create(ctx context.Context, e *entity.WebhookEvent) error
	// UpdateStatus persiste el estado; si el evento ya estaba en estado final devuelve domain.ErrTerminalState.
	UpdateStatus(ctx context.Context, e *entity.WebhookEvent) error
	GetByID(ctx context.Context, companyID, id string) (*entity.WebhookEvent, error)
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.WebhookEvent, error)
}
