package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, company_id, sku, name, price, tax_rate, current_stock, available_stock,
	track_inventory, external_product_id, created_at, updated_at`

// Create inserta el ítem con su stock inicial.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
	}
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.CompanyID, item.SKU, item.Name, item.Price, item.TaxRate,
		item.CurrentStock, item.AvailableStock, item.TrackInventory, nullIfEmpty(item.ExternalProductID),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storeErr("insert item", err)
	}
	return nil
}

// Update actualiza datos descriptivos; el stock queda fuera.
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	query := `
		UPDATE items
		SET sku = $3, name = $4, price = $5, tax_rate = $6, track_inventory = $7,
		    external_product_id = $8, updated_at = now()
		WHERE company_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		item.CompanyID, item.ID, item.SKU, item.Name, item.Price, item.TaxRate,
		item.TrackInventory, nullIfEmpty(item.ExternalProductID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storeErr("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ItemRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + where
	item, err := scanItem(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get item", err)
	}
	return item, nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Item, error) {
	return r.getOne(ctx, `company_id = $1 AND id = $2`, companyID, id)
}

// GetByExternalID busca por el ID de producto de la tienda externa.
func (r *ItemRepo) GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Item, error) {
	return r.getOne(ctx, `company_id = $1 AND external_product_id = $2`, companyID, externalID)
}

// GetBySKU busca por código interno sin distinguir mayúsculas.
func (r *ItemRepo) GetBySKU(ctx context.Context, companyID, sku string) (*entity.Item, error) {
	return r.getOne(ctx, `company_id = $1 AND lower(sku) = lower($2)`, companyID, sku)
}

// GetForUpdate obtiene el ítem y bloquea la fila (SELECT FOR UPDATE).
func (r *ItemRepo) GetForUpdate(ctx context.Context, companyID, id string) (*entity.Item, error) {
	return r.getOne(ctx, `company_id = $1 AND id = $2 FOR UPDATE`, companyID, id)
}

// UpdateStock escribe el stock proyectado.
func (r *ItemRepo) UpdateStock(ctx context.Context, companyID, id string, current, available decimal.Decimal) error {
	query := `
		UPDATE items SET current_stock = $3, available_stock = $4, updated_at = now()
		WHERE company_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query, companyID, id, current, available)
	if err != nil {
		return storeErr("update stock", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByIDs carga varios ítems en una sola consulta.
func (r *ItemRepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE company_id = $1 AND id = ANY($2)`
	rows, err := r.q.Query(ctx, query, companyID, ids)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()

	var list []*entity.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeErr("scan item", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func scanItem(row pgxScanner) (*entity.Item, error) {
	var (
		it    entity.Item
		extID *string
	)
	err := row.Scan(
		&it.ID, &it.CompanyID, &it.SKU, &it.Name, &it.Price, &it.TaxRate, &it.CurrentStock,
		&it.AvailableStock, &it.TrackInventory, &extID, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.ExternalProductID = emptyIfNull(extID)
	return &it, nil
}
