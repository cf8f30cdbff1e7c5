package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)

// WebhookEventRepo bitácora de eventos de webhook.
type WebhookEventRepo struct {
	q Querier
}

// NewWebhookEventRepository construye el adaptador.
func NewWebhookEventRepository(q Querier) *WebhookEventRepo {
	return &WebhookEventRepo{q: q}
}

const webhookEventColumns = `id, company_id, integration_id, event_type, external_id, payload_digest, status,
	signature_verified, payload, result, error, received_at, processed_at`

// Create registra el evento en estado received.
func (r *WebhookEventRepo) Create(ctx context.Context, e *entity.WebhookEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `INSERT INTO webhook_events (` + webhookEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, nullIfEmpty(e.IntegrationID), e.EventType, nullIfEmpty(e.ExternalID),
		nullIfEmpty(e.PayloadDigest), e.Status, e.SignatureVerified, jsonOrNull(e.Payload), jsonOrNull(e.Result), nullIfEmpty(e.Error),
		e.ReceivedAt, e.ProcessedAt,
	)
	if err != nil {
		return storeErr("insert webhook event", err)
	}
	return nil
}

// UpdateStatus escribe el nuevo estado solo si el evento no estaba cerrado.
func (r *WebhookEventRepo) UpdateStatus(ctx context.Context, e *entity.WebhookEvent) error {
	query := `
		UPDATE webhook_events
		SET status = $2, external_id = $3, signature_verified = $4, result = $5, error = $6, processed_at = $7
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.Status, nullIfEmpty(e.ExternalID), e.SignatureVerified, jsonOrNull(e.Result),
		nullIfEmpty(e.Error), e.ProcessedAt,
	)
	if err != nil {
		return storeErr("update webhook event", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTerminalState
	}
	return nil
}

// GetByID obtiene un evento.
func (r *WebhookEventRepo) GetByID(ctx context.Context, companyID, id string) (*entity.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE company_id = $1 AND id = $2`
	e, err := scanWebhookEvent(r.q.QueryRow(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get webhook event", err)
	}
	return e, nil
}

// ListByCompany últimos eventos de la empresa.
func (r *WebhookEventRepo) ListByCompany(ctx context.Context, companyID string, limit int) ([]*entity.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events
		WHERE company_id = $1 ORDER BY received_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, storeErr("list webhook events", err)
	}
	defer rows.Close()

	var list []*entity.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, storeErr("scan webhook event", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanWebhookEvent(row pgxScanner) (*entity.WebhookEvent, error) {
	var (
		e                         entity.WebhookEvent
		integrationID, extID, msg *string
		digest                    *string
		payload, result           []byte
	)
	err := row.Scan(
		&e.ID, &e.CompanyID, &integrationID, &e.EventType, &extID, &digest, &e.Status, &e.SignatureVerified,
		&payload, &result, &msg, &e.ReceivedAt, &e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	e.IntegrationID = emptyIfNull(integrationID)
	e.ExternalID = emptyIfNull(extID)
	e.PayloadDigest = emptyIfNull(digest)
	e.Error = emptyIfNull(msg)
	e.Payload = payload
	e.Result = result
	return &e, nil
}

func jsonOrNull(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
