package resolver_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/memory"
)

func TestResolveCustomer_OrdenDeEstrategias(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	res := resolver.New(nil)

	existing := &entity.Customer{CompanyID: "C1", Name: "Ana", Email: "ana@tienda.co"}
	require.NoError(t, repos.Customers.Create(ctx, existing))

	c, outcome, err := res.ResolveCustomer(ctx, repos, "C1", resolver.ExternalCustomer{ID: "77", Email: " ANA@Tienda.co "})
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchEmail, outcome)
	assert.Equal(t, existing.ID, c.ID)
	assert.Equal(t, "77", c.ExternalCustomerID, "el match por email vincula el id externo")

	c, outcome, err = res.ResolveCustomer(ctx, repos, "C1", resolver.ExternalCustomer{ID: "77", Email: "otro@correo.co"})
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchExternalID, outcome)
	assert.Equal(t, existing.ID, c.ID)

	c, outcome, err = res.ResolveCustomer(ctx, repos, "C1", resolver.ExternalCustomer{ID: "88", Email: "Nuevo@Correo.co", FirstName: "Luis", LastName: "Díaz"})
	require.NoError(t, err)
	assert.Equal(t, resolver.Created, outcome)
	assert.Equal(t, "Luis Díaz", c.Name)
	assert.Equal(t, "nuevo@correo.co", c.Email)
	assert.Equal(t, "88", c.ExternalCustomerID)
}

func TestResolveCustomer_SinDatos(t *testing.T) {
	store := memory.NewStore()
	_, _, err := resolver.New(nil).ResolveCustomer(context.Background(), store.Repositories(), "C1", resolver.ExternalCustomer{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolveCustomer_EmpresasAisladas(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	require.NoError(t, repos.Customers.Create(ctx, &entity.Customer{CompanyID: "C2", Email: "ana@tienda.co", ExternalCustomerID: "77"}))

	c, outcome, err := resolver.New(nil).ResolveCustomer(ctx, repos, "C1", resolver.ExternalCustomer{ID: "77", Email: "ana@tienda.co"})
	require.NoError(t, err)
	assert.Equal(t, resolver.Created, outcome)
	assert.Equal(t, "C1", c.CompanyID)
}

func TestUpsertCustomer_ActualizaDatos(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	require.NoError(t, repos.Customers.Create(ctx, &entity.Customer{CompanyID: "C1", Name: "Ana", ExternalCustomerID: "77"}))

	c, outcome, err := resolver.New(nil).UpsertCustomer(ctx, repos, "C1",
		resolver.ExternalCustomer{ID: "77", FirstName: "Ana", LastName: "Ruiz", Phone: "300"})
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchExternalID, outcome)

	got, err := repos.Customers.GetByID(ctx, "C1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", got.Name)
	assert.Equal(t, "300", got.Phone)
}

func TestResolveItem(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	res := resolver.New(nil)
	require.NoError(t, repos.Items.Create(ctx, &entity.Item{CompanyID: "C1", SKU: "A1", ExternalProductID: "P-9"}))

	it, outcome, err := res.ResolveItem(ctx, repos, "C1", "P-9", "")
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchExternalID, outcome)
	assert.Equal(t, "A1", it.SKU)

	_, outcome, err = res.ResolveItem(ctx, repos, "C1", "P-desconocido", "a1")
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchSKU, outcome)

	_, _, err = res.ResolveItem(ctx, repos, "C1", "P-0", "ZZ")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertItem_NoTocaStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	res := resolver.New(nil)
	require.NoError(t, repos.Items.Create(ctx, &entity.Item{
		CompanyID: "C1", SKU: "A1", Name: "Viejo", CurrentStock: decimal.NewFromInt(10), TrackInventory: true,
	}))

	it, outcome, err := res.UpsertItem(ctx, repos, "C1", resolver.ExternalProduct{ID: "P-1", SKU: "A1", Name: "Nuevo", Price: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, resolver.MatchSKU, outcome)

	got, err := repos.Items.GetByID(ctx, "C1", it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", got.Name)
	assert.Equal(t, "P-1", got.ExternalProductID)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(10)))

	created, outcome, err := res.UpsertItem(ctx, repos, "C1", resolver.ExternalProduct{ID: "P-2"})
	require.NoError(t, err)
	assert.Equal(t, resolver.Created, outcome)
	assert.Equal(t, "EXT-P-2", created.SKU)
	assert.True(t, created.CurrentStock.IsZero())
}
