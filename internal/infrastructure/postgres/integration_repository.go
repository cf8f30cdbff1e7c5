package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.IntegrationRepository = (*IntegrationRepo)(nil)

// IntegrationRepo conexiones con tiendas externas (una por empresa).
type IntegrationRepo struct {
	q Querier
}

// NewIntegrationRepository construye el adaptador.
func NewIntegrationRepository(q Querier) *IntegrationRepo {
	return &IntegrationRepo{q: q}
}

const integrationColumns = `id, company_id, platform, base_url, access_token, webhook_secret, is_active,
	last_sync_at, created_at, updated_at`

// Upsert crea o reemplaza la conexión de la empresa.
func (r *IntegrationRepo) Upsert(ctx context.Context, in *entity.Integration) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	query := `
		INSERT INTO integrations (` + integrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, now(), now())
		ON CONFLICT (company_id) DO UPDATE SET
			platform       = EXCLUDED.platform,
			base_url       = EXCLUDED.base_url,
			access_token   = EXCLUDED.access_token,
			webhook_secret = EXCLUDED.webhook_secret,
			is_active      = EXCLUDED.is_active,
			updated_at     = now()
		RETURNING ` + integrationColumns
	saved, err := scanIntegration(r.q.QueryRow(ctx, query,
		in.ID, in.CompanyID, in.Platform, in.BaseURL, nullIfEmpty(in.AccessToken),
		nullIfEmpty(in.WebhookSecret), in.IsActive,
	))
	if err != nil {
		return storeErr("upsert integration", err)
	}
	*in = *saved
	return nil
}

// GetByCompany devuelve la conexión de la empresa o nil.
func (r *IntegrationRepo) GetByCompany(ctx context.Context, companyID string) (*entity.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE company_id = $1`
	in, err := scanIntegration(r.q.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get integration", err)
	}
	return in, nil
}

// TouchLastSync registra la hora de la última sincronización.
func (r *IntegrationRepo) TouchLastSync(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE integrations SET last_sync_at = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return storeErr("touch integration", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanIntegration(row pgxScanner) (*entity.Integration, error) {
	var (
		in            entity.Integration
		token, secret *string
	)
	err := row.Scan(
		&in.ID, &in.CompanyID, &in.Platform, &in.BaseURL, &token, &secret, &in.IsActive,
		&in.LastSyncAt, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.AccessToken = emptyIfNull(token)
	in.WebhookSecret = emptyIfNull(secret)
	return &in, nil
}
