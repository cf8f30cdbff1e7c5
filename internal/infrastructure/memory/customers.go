package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type customerRepo struct {
	s      *Store
	locked bool
}

func (r *customerRepo) Create(ctx context.Context, c *entity.Customer) error {
	return r.s.do(r.locked, func(st *state) error {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepo) Update(ctx context.Context, c *entity.Customer) error {
	return r.s.do(r.locked, func(st *state) error {
		cur, ok := st.customers[c.ID]
		if !ok || cur.CompanyID != c.CompanyID {
			return domain.ErrNotFound
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *customerRepo) find(companyID string, match func(entity.Customer) bool) (*entity.Customer, error) {
	var out *entity.Customer
	err := r.s.do(r.locked, func(st *state) error {
		for _, c := range st.customers {
			if c.CompanyID == companyID && match(c) {
				found := c
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *customerRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Customer, error) {
	return r.find(companyID, func(c entity.Customer) bool { return c.ID == id })
}

func (r *customerRepo) GetByExternalID(ctx context.Context, companyID, externalID string) (*entity.Customer, error) {
	return r.find(companyID, func(c entity.Customer) bool {
		return externalID != "" && c.ExternalCustomerID == externalID
	})
}

func (r *customerRepo) GetByEmail(ctx context.Context, companyID, email string) (*entity.Customer, error) {
	return r.find(companyID, func(c entity.Customer) bool {
		return email != "" && strings.EqualFold(c.Email, email)
	})
}

func (r *customerRepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.Customer, error) {
	var out []*entity.Customer
	err := r.s.do(r.locked, func(st *state) error {
		for _, id := range ids {
			if c, ok := st.customers[id]; ok && c.CompanyID == companyID {
				found := c
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}
