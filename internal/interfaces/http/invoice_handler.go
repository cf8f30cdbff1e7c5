package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Integraciones-api/internal/application/billing"
	"github.com/jhoicas/Integraciones-api/internal/application/dto"
)

// InvoiceHandler consulta de facturas e integración de la empresa (protegido).
type InvoiceHandler struct {
	invoices     *billing.InvoiceUseCase
	integrations *billing.IntegrationUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(invoices *billing.InvoiceUseCase, integrations *billing.IntegrationUseCase) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, integrations: integrations}
}

// GetByID obtiene el detalle completo de una factura.
// GET /api/invoices/:id
// @Summary  Detalle de factura
// @Tags     invoices
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "id de la factura"
// @Success  200 {object} dto.InvoiceResponse
// @Failure  404 {object} dto.ErrorResponse
// @Router   /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	invoice, err := h.invoices.GetInvoice(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

// SaveIntegration crea o reemplaza la conexión con la tienda.
// POST /api/integrations
// @Summary  Guardar integración
// @Tags     integrations
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body dto.SaveIntegrationRequest true "integración"
// @Success  200 {object} dto.IntegrationResponse
// @Router   /integrations [post]
func (h *InvoiceHandler) SaveIntegration(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SaveIntegrationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.integrations.Save(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetIntegration devuelve la integración con secretos enmascarados.
// GET /api/integrations
// @Summary  Integración de la empresa
// @Tags     integrations
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} dto.IntegrationResponse
// @Router   /integrations [get]
func (h *InvoiceHandler) GetIntegration(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.integrations.Get(c.Context(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
