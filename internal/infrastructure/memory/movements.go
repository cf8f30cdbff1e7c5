package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type movementRepo struct {
	s      *Store
	locked bool
}

func (r *movementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	return r.s.do(r.locked, func(st *state) error {
		if err := r.s.fault("movements.create", m.ItemID); err != nil {
			return err
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *movementRepo) list(match func(entity.InventoryMovement) bool) ([]*entity.InventoryMovement, error) {
	var out []*entity.InventoryMovement
	err := r.s.do(r.locked, func(st *state) error {
		for _, m := range st.movements {
			if match(m) {
				found := m
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}

func (r *movementRepo) ListByReference(ctx context.Context, companyID, refType, refID string) ([]*entity.InventoryMovement, error) {
	return r.list(func(m entity.InventoryMovement) bool {
		return m.CompanyID == companyID && m.ReferenceType == refType && m.ReferenceID == refID
	})
}

func (r *movementRepo) ListByItem(ctx context.Context, companyID, itemID string) ([]*entity.InventoryMovement, error) {
	return r.list(func(m entity.InventoryMovement) bool {
		return m.CompanyID == companyID && m.ItemID == itemID
	})
}
