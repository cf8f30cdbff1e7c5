package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
)

type linea struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type pedido struct {
	CompanyID string  `json:"company_id" validate:"required"`
	Lines     []linea `json:"lines" validate:"required,min=1,dive"`
}

func TestFields_UsaNombresJSON(t *testing.T) {
	errs := validation.Fields(pedido{Lines: []linea{{SKU: "", Quantity: 0}}})
	require.Len(t, errs, 3)

	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Message
	}
	assert.Equal(t, "es obligatorio", got["company_id"])
	assert.Equal(t, "es obligatorio", got["lines[0].sku"])
	assert.Equal(t, "debe ser mayor que 0", got["lines[0].quantity"])
}

func TestStruct_EnvuelveErrInvalidInput(t *testing.T) {
	err := validation.Struct(pedido{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoError(t, validation.Struct(pedido{CompanyID: "C1", Lines: []linea{{SKU: "A1", Quantity: 1}}}))
}
