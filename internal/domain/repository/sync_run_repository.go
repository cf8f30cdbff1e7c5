package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// SyncRunRepository persistencia de corridas de sincronización.
type SyncRunRepository interface {
	Create(ctx context.Context, r *entity.SyncRun) error
	// Finish persiste el cierre; si la corrida ya estaba cerrada devuelve domain.ErrTerminalState.
	Finish(ctx context.Context, r *entity.SyncRun) error
	// Claim toma la corrida en curso para un ejecutor: solo si nadie la tiene o el lease anterior
	// es de antes de staleBefore. Devuelve false si otro ejecutor la tiene.
	Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.SyncRun, error)
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.SyncRun, error)
	GetRunning(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error)
	// LastCompleted corrida completada más reciente del tipo, o nil.
	LastCompleted(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error)
}
