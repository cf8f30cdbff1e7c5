package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.SyncRunRepository = (*SyncRunRepo)(nil)

// SyncRunRepo corridas de sincronización.
type SyncRunRepo struct {
	q Querier
}

// NewSyncRunRepository construye el adaptador.
func NewSyncRunRepository(q Querier) *SyncRunRepo {
	return &SyncRunRepo{q: q}
}

const syncRunColumns = `id, company_id, sync_type, manual, status, since, started_at, finished_at,
	duration_ms, processed, succeeded, failed, summary, error, claimed_at`

// Create inserta la corrida en estado running.
func (r *SyncRunRepo) Create(ctx context.Context, run *entity.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return err
	}
	query := `INSERT INTO sync_runs (` + syncRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.q.Exec(ctx, query,
		run.ID, run.CompanyID, run.SyncType, run.Manual, run.Status, run.Since, run.StartedAt, run.FinishedAt,
		run.DurationMs, run.Processed, run.Succeeded, run.Failed, string(summary), nullIfEmpty(run.Error),
		run.ClaimedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return storeErr("insert sync run", err)
	}
	return nil
}

// Finish cierra la corrida una sola vez.
func (r *SyncRunRepo) Finish(ctx context.Context, run *entity.SyncRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return err
	}
	query := `
		UPDATE sync_runs
		SET status = $2, finished_at = $3, duration_ms = $4, processed = $5, succeeded = $6,
		    failed = $7, summary = $8, error = $9
		WHERE id = $1 AND status = 'running'`
	tag, err := r.q.Exec(ctx, query,
		run.ID, run.Status, run.FinishedAt, run.DurationMs, run.Processed, run.Succeeded,
		run.Failed, string(summary), nullIfEmpty(run.Error),
	)
	if err != nil {
		return storeErr("finish sync run", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTerminalState
	}
	return nil
}

// Claim toma la corrida con un UPDATE condicional: entre entregas concurrentes solo una afecta la fila.
func (r *SyncRunRepo) Claim(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE sync_runs SET claimed_at = $2
		WHERE id = $1 AND status = 'running' AND (claimed_at IS NULL OR claimed_at < $3)`
	tag, err := r.q.Exec(ctx, query, id, now, staleBefore)
	if err != nil {
		return false, storeErr("claim sync run", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SyncRunRepo) getOne(ctx context.Context, where string, args ...any) (*entity.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE ` + where
	run, err := scanSyncRun(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get sync run", err)
	}
	return run, nil
}

// GetByID obtiene una corrida.
func (r *SyncRunRepo) GetByID(ctx context.Context, id string) (*entity.SyncRun, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetRunning corrida en curso del tipo, o nil.
func (r *SyncRunRepo) GetRunning(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error) {
	return r.getOne(ctx, `company_id = $1 AND sync_type = $2 AND status = 'running'
		ORDER BY started_at DESC LIMIT 1`, companyID, syncType)
}

// LastCompleted corrida completada más reciente del tipo, o nil.
func (r *SyncRunRepo) LastCompleted(ctx context.Context, companyID, syncType string) (*entity.SyncRun, error) {
	return r.getOne(ctx, `company_id = $1 AND sync_type = $2 AND status = 'completed'
		ORDER BY started_at DESC LIMIT 1`, companyID, syncType)
}

// ListByCompany historial de corridas, más recientes primero.
func (r *SyncRunRepo) ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE company_id = $1 ORDER BY started_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, storeErr("list sync runs", err)
	}
	defer rows.Close()

	var list []*entity.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, storeErr("scan sync run", err)
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

func scanSyncRun(row pgxScanner) (*entity.SyncRun, error) {
	var (
		run     entity.SyncRun
		summary []byte
		msg     *string
	)
	err := row.Scan(
		&run.ID, &run.CompanyID, &run.SyncType, &run.Manual, &run.Status, &run.Since, &run.StartedAt,
		&run.FinishedAt, &run.DurationMs, &run.Processed, &run.Succeeded, &run.Failed, &summary, &msg,
		&run.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, err
		}
	}
	run.Error = emptyIfNull(msg)
	return &run, nil
}
