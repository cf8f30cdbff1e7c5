package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type itemRepo struct {
	s      *Store
	locked bool
}

func (r *itemRepo) Create(ctx context.Context, item *entity.Item) error {
	return r.s.do(r.locked, func(st *state) error {
		for _, it := range st.items {
			if it.CompanyID == item.CompanyID && item.SKU != "" && strings.EqualFold(it.SKU, item.SKU) {
				return domain.ErrDuplicate
			}
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		st.items[item.ID] = *item
		return nil
	})
}

func (r *itemRepo) Update(ctx context.Context, item *entity.Item) error {
	return r.s.do(r.locked, func(st *state) error {
		cur, ok := st.items[item.ID]
		if !ok || cur.CompanyID != item.CompanyID {
			return domain.ErrNotFound
		}
		cur.SKU = item.SKU
		cur.Name = item.Name
		cur.Price = item.Price
		cur.TaxRate = item.TaxRate
		cur.TrackInventory = item.TrackInventory
		cur.ExternalProductID = item.ExternalProductID
		cur.UpdatedAt = item.UpdatedAt
		st.items[item.ID] = cur
		return nil
	})
}

func (r *itemRepo) find(companyID string, match func(entity.Item) bool) (*entity.Item, error) {
	var out *entity.Item
	err := r.s.do(r.locked, func(st *state) error {
		for _, it := range st.items {
			if it.CompanyID == companyID && match(it) {
				found := it
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *itemRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Item, error) {
	return r.find(companyID, func(it entity.Item) bool { return it.ID == id })
}

func (r *itemRepo) GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Item, error) {
	return r.find(companyID, func(it entity.Item) bool {
		return externalID != "" && it.ExternalProductID == externalID
	})
}

func (r *itemRepo) GetBySKU(ctx context.Context, companyID, sku string) (*entity.Item, error) {
	return r.find(companyID, func(it entity.Item) bool {
		return sku != "" && strings.EqualFold(it.SKU, sku)
	})
}

func (r *itemRepo) GetForUpdate(ctx context.Context, companyID, id string) (*entity.Item, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *itemRepo) UpdateStock(ctx context.Context, companyID, id string, current, available decimal.Decimal) error {
	return r.s.do(r.locked, func(st *state) error {
		cur, ok := st.items[id]
		if !ok || cur.CompanyID != companyID {
			return domain.ErrNotFound
		}
		if err := r.s.fault("items.update_stock", id); err != nil {
			return err
		}
		cur.CurrentStock = current
		cur.AvailableStock = available
		cur.UpdatedAt = time.Now()
		st.items[id] = cur
		return nil
	})
}

func (r *itemRepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Item, error) {
	var out []*entity.Item
	err := r.s.do(r.locked, func(st *state) error {
		for _, id := range ids {
			if it, ok := st.items[id]; ok && it.CompanyID == companyID {
				found := it
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}
