package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.DocumentSequenceRepository = (*DocumentSequenceRepo)(nil)

// DocumentSequenceRepo consecutivos sobre PostgreSQL (usable con pool o tx).
type DocumentSequenceRepo struct {
	q Querier
}

// NewDocumentSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentSequenceRepository(q Querier) *DocumentSequenceRepo {
	return &DocumentSequenceRepo{q: q}
}

const sequenceColumns = `id, company_id, document_type, financial_year, prefix, suffix, padding,
	current_number, reset_on_new_year, created_at, updated_at`

// Next incrementa con un único UPDATE: el bloqueo de fila serializa a los llamadores concurrentes
// hasta el commit de la transacción que lo tomó.
func (r *DocumentSequenceRepo) Next(ctx context.Context, companyID, docType, fy string) (*entity.DocumentSequence, int64, error) {
	query := `
		UPDATE document_sequences
		SET current_number = current_number + 1, updated_at = now()
		WHERE company_id = $1 AND document_type = $2 AND financial_year = $3
		RETURNING ` + sequenceColumns
	seq, err := scanSequence(r.q.QueryRow(ctx, query, companyID, docType, fy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, storeErr("next sequence", err)
	}
	return seq, seq.CurrentNumber - 1, nil
}

// CreateIfAbsent inserta el consecutivo; si ya existe no hace nada.
func (r *DocumentSequenceRepo) CreateIfAbsent(ctx context.Context, seq *entity.DocumentSequence) error {
	if seq.ID == "" {
		seq.ID = uuid.New().String()
	}
	now := time.Now()
	query := `
		INSERT INTO document_sequences (` + sequenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (company_id, document_type, financial_year) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		seq.ID, seq.CompanyID, seq.DocumentType, seq.FinancialYear, seq.Prefix, seq.Suffix,
		seq.Padding, seq.CurrentNumber, seq.ResetOnNewYear, now,
	)
	if err != nil {
		return storeErr("insert sequence", err)
	}
	return nil
}

// Upsert guarda la configuración; current_number nunca retrocede.
func (r *DocumentSequenceRepo) Upsert(ctx context.Context, seq *entity.DocumentSequence) error {
	if seq.ID == "" {
		seq.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_sequences (` + sequenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (company_id, document_type, financial_year) DO UPDATE SET
			prefix            = EXCLUDED.prefix,
			suffix            = EXCLUDED.suffix,
			padding           = EXCLUDED.padding,
			reset_on_new_year = EXCLUDED.reset_on_new_year,
			current_number    = GREATEST(document_sequences.current_number, EXCLUDED.current_number),
			updated_at        = now()
		RETURNING ` + sequenceColumns
	saved, err := scanSequence(r.q.QueryRow(ctx, query,
		seq.ID, seq.CompanyID, seq.DocumentType, seq.FinancialYear, seq.Prefix, seq.Suffix,
		seq.Padding, seq.CurrentNumber, seq.ResetOnNewYear,
	))
	if err != nil {
		return storeErr("upsert sequence", err)
	}
	*seq = *saved
	return nil
}

// Get devuelve el consecutivo o nil si no existe.
func (r *DocumentSequenceRepo) Get(ctx context.Context, companyID, docType, fy string) (*entity.DocumentSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM document_sequences
		WHERE company_id = $1 AND document_type = $2 AND financial_year = $3`
	seq, err := scanSequence(r.q.QueryRow(ctx, query, companyID, docType, fy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get sequence", err)
	}
	return seq, nil
}

// Latest devuelve el consecutivo del año fiscal más reciente.
func (r *DocumentSequenceRepo) Latest(ctx context.Context, companyID, docType string) (*entity.DocumentSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM document_sequences
		WHERE company_id = $1 AND document_type = $2
		ORDER BY financial_year DESC LIMIT 1`
	seq, err := scanSequence(r.q.QueryRow(ctx, query, companyID, docType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("latest sequence", err)
	}
	return seq, nil
}

// ListByYear lista los consecutivos de la empresa para un año fiscal.
func (r *DocumentSequenceRepo) ListByYear(ctx context.Context, companyID, fy string) ([]*entity.DocumentSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM document_sequences
		WHERE company_id = $1 AND financial_year = $2
		ORDER BY document_type`
	rows, err := r.q.Query(ctx, query, companyID, fy)
	if err != nil {
		return nil, storeErr("list sequences", err)
	}
	defer rows.Close()

	var list []*entity.DocumentSequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, storeErr("scan sequence", err)
		}
		list = append(list, seq)
	}
	return list, rows.Err()
}

func scanSequence(row pgxScanner) (*entity.DocumentSequence, error) {
	var s entity.DocumentSequence
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.DocumentType, &s.FinancialYear, &s.Prefix, &s.Suffix, &s.Padding,
		&s.CurrentNumber, &s.ResetOnNewYear, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
