// Package resolver correlaciona registros de la tienda externa con clientes e ítems internos.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
)

// Outcome estrategia con la que se resolvió el registro.
type Outcome string

const (
	MatchExternalID Outcome = "external_id"
	MatchEmail      Outcome = "email"
	MatchSKU        Outcome = "sku"
	Created         Outcome = "created"
)

// ExternalCustomer cliente tal como llega de la tienda.
type ExternalCustomer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// DisplayName nombre para mostrar; cae al email si no hay nombre.
func (c ExternalCustomer) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return "Cliente " + c.ID
}

// ExternalProduct producto tal como llega de la tienda. Nunca trae stock: ese dato va por el ledger.
type ExternalProduct struct {
	ID      string
	SKU     string
	Name    string
	Price   decimal.Decimal
	TaxRate decimal.Decimal
}

// Resolver estrategias de correlación ordenadas: id externo, clave secundaria, creación.
type Resolver struct {
	log  *logger.Logger
	fold cases.Caser
	now  func() time.Time
}

// New construye el resolver.
func New(log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{log: log.Named("resolver"), fold: cases.Fold(), now: time.Now}
}

// NormalizeEmail recorta y pliega mayúsculas para comparar emails.
func (s *Resolver) NormalizeEmail(email string) string {
	return s.fold.String(strings.TrimSpace(email))
}

// ResolveCustomer busca por id externo, luego por email y si no hay coincidencia crea el cliente.
// Un match por email completa el id externo para futuras correlaciones.
func (s *Resolver) ResolveCustomer(ctx context.Context, r repository.Repositories, companyID string, ext ExternalCustomer) (*entity.Customer, Outcome, error) {
	if ext.ID == "" && strings.TrimSpace(ext.Email) == "" {
		return nil, "", fmt.Errorf("%w: el cliente externo no trae id ni email", domain.ErrInvalidInput)
	}
	if ext.ID != "" {
		c, err := r.Customers.GetByExternalID(ctx, companyID, ext.ID)
		if err != nil {
			return nil, "", fmt.Errorf("buscar cliente por id externo: %w", err)
		}
		if c != nil {
			return c, MatchExternalID, nil
		}
	}

	email := s.NormalizeEmail(ext.Email)
	if email != "" {
		c, err := r.Customers.GetByEmail(ctx, companyID, email)
		if err != nil {
			return nil, "", fmt.Errorf("buscar cliente por email: %w", err)
		}
		if c != nil {
			if c.ExternalCustomerID == "" && ext.ID != "" {
				c.ExternalCustomerID = ext.ID
				c.UpdatedAt = s.now()
				if err := r.Customers.Update(ctx, c); err != nil {
					return nil, "", fmt.Errorf("vincular cliente: %w", err)
				}
			}
			return c, MatchEmail, nil
		}
	}

	now := s.now()
	c := &entity.Customer{
		CompanyID:          companyID,
		Name:               ext.DisplayName(),
		Email:              email,
		Phone:              ext.Phone,
		ExternalCustomerID: ext.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.Customers.Create(ctx, c); err != nil {
		return nil, "", fmt.Errorf("crear cliente: %w", err)
	}
	s.log.Info().Str("company_id", companyID).Str("customer_id", c.ID).
		Str("external_id", ext.ID).Msg("cliente creado desde la tienda")
	return c, Created, nil
}

// UpsertCustomer resuelve el cliente y refresca nombre, email y teléfono con los datos externos.
func (s *Resolver) UpsertCustomer(ctx context.Context, r repository.Repositories, companyID string, ext ExternalCustomer) (*entity.Customer, Outcome, error) {
	c, outcome, err := s.ResolveCustomer(ctx, r, companyID, ext)
	if err != nil || outcome == Created {
		return c, outcome, err
	}
	changed := false
	if name := ext.DisplayName(); (ext.FirstName != "" || ext.LastName != "") && name != c.Name {
		c.Name = name
		changed = true
	}
	if email := s.NormalizeEmail(ext.Email); email != "" && email != c.Email {
		c.Email = email
		changed = true
	}
	if ext.Phone != "" && ext.Phone != c.Phone {
		c.Phone = ext.Phone
		changed = true
	}
	if !changed {
		return c, outcome, nil
	}
	c.UpdatedAt = s.now()
	if err := r.Customers.Update(ctx, c); err != nil {
		return nil, "", fmt.Errorf("actualizar cliente: %w", err)
	}
	return c, outcome, nil
}

// ResolveItem busca por id de producto externo y luego por SKU. Sin coincidencia devuelve
// domain.ErrNotFound, que los llamadores reportan como advertencia de línea.
func (s *Resolver) ResolveItem(ctx context.Context, r repository.Repositories, companyID, externalID, sku string) (*entity.Item, Outcome, error) {
	if externalID != "" {
		it, err := r.Items.GetByExternalID(ctx, companyID, externalID)
		if err != nil {
			return nil, "", fmt.Errorf("buscar ítem por id externo: %w", err)
		}
		if it != nil {
			return it, MatchExternalID, nil
		}
	}
	if sku = strings.TrimSpace(sku); sku != "" {
		it, err := r.Items.GetBySKU(ctx, companyID, sku)
		if err != nil {
			return nil, "", fmt.Errorf("buscar ítem por SKU: %w", err)
		}
		if it != nil {
			return it, MatchSKU, nil
		}
	}
	return nil, "", fmt.Errorf("%w: ítem sin correspondencia (producto %q, sku %q)", domain.ErrNotFound, externalID, sku)
}

// UpsertItem crea o actualiza los datos descriptivos del ítem. El stock no se toca.
func (s *Resolver) UpsertItem(ctx context.Context, r repository.Repositories, companyID string, ext ExternalProduct) (*entity.Item, Outcome, error) {
	if ext.ID == "" && strings.TrimSpace(ext.SKU) == "" {
		return nil, "", fmt.Errorf("%w: el producto externo no trae id ni sku", domain.ErrInvalidInput)
	}
	now := s.now()
	it, outcome, err := s.ResolveItem(ctx, r, companyID, ext.ID, ext.SKU)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}
	if it == nil {
		it = &entity.Item{
			CompanyID:         companyID,
			SKU:               strings.TrimSpace(ext.SKU),
			Name:              ext.Name,
			Price:             ext.Price,
			TaxRate:           ext.TaxRate,
			CurrentStock:      decimal.Zero,
			AvailableStock:    decimal.Zero,
			TrackInventory:    true,
			ExternalProductID: ext.ID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if it.SKU == "" {
			it.SKU = "EXT-" + ext.ID
		}
		if it.Name == "" {
			it.Name = it.SKU
		}
		if err := r.Items.Create(ctx, it); err != nil {
			return nil, "", fmt.Errorf("crear ítem: %w", err)
		}
		return it, Created, nil
	}

	if ext.Name != "" {
		it.Name = ext.Name
	}
	if !ext.Price.IsZero() {
		it.Price = ext.Price
	}
	if !ext.TaxRate.IsZero() {
		it.TaxRate = ext.TaxRate
	}
	if it.ExternalProductID == "" {
		it.ExternalProductID = ext.ID
	}
	it.UpdatedAt = now
	if err := r.Items.Update(ctx, it); err != nil {
		return nil, "", fmt.Errorf("actualizar ítem: %w", err)
	}
	return it, outcome, nil
}
