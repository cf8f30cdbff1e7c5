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

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

const customerColumns = `id, company_id, name, email, phone, external_customer_id, created_at, updated_at`

// Create persiste el cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
	}
	query := `INSERT INTO customers (` + customerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Name, nullIfEmpty(c.Email), nullIfEmpty(c.Phone),
		nullIfEmpty(c.ExternalCustomerID), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storeErr("insert customer", err)
	}
	return nil
}

// Update actualiza nombre, contacto e ID externo.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	query := `
		UPDATE customers SET name = $3, email = $4, phone = $5, external_customer_id = $6, updated_at = now()
		WHERE company_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.CompanyID, c.ID, c.Name, nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.ExternalCustomerID),
	)
	if err != nil {
		return storeErr("update customer", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CustomerRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE ` + where + ` ORDER BY created_at LIMIT 1`
	c, err := scanCustomer(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get customer", err)
	}
	return c, nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Customer, error) {
	return r.getOne(ctx, `company_id = $1 AND id = $2`, companyID, id)
}

// GetByExternalID busca por el ID de cliente de la tienda externa.
func (r *CustomerRepo) GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Customer, error) {
	return r.getOne(ctx, `company_id = $1 AND external_customer_id = $2`, companyID, externalID)
}

// GetByEmail busca por email sin distinguir mayúsculas.
func (r *CustomerRepo) GetByEmail(ctx context.Context, companyID, email string) (*entity.Customer, error) {
	return r.getOne(ctx, `company_id = $1 AND lower(email) = lower($2)`, companyID, email)
}

// ListByIDs carga varios clientes en una sola consulta.
func (r *CustomerRepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE company_id = $1 AND id = ANY($2)`
	rows, err := r.q.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, storeErr("list customers", err)
	}
	defer rows.Close()

	var list []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, storeErr("scan customer", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanCustomer(row pgxScanner) (*entity.Customer, error) {
	var (
		c                   entity.Customer
		email, phone, extID *string
	)
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &email, &phone, &extID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Email = emptyIfNull(email)
	c.Phone = emptyIfNull(phone)
	c.ExternalCustomerID = emptyIfNull(extID)
	return &c, nil
}
