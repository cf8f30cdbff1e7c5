package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Integraciones-api/internal/application/bulk"
	"github.com/jhoicas/Integraciones-api/internal/domain"
)

// BulkHandler operaciones masivas sobre facturas.
type BulkHandler struct {
	op *bulk.Operator
}

// NewBulkHandler construye el handler.
func NewBulkHandler(op *bulk.Operator) *BulkHandler {
	return &BulkHandler{op: op}
}

// respond 207 si hubo éxito parcial; okStatus si todo salió bien; 400 si nada se aplicó por validación.
func respond(c *fiber.Ctx, out *bulk.Outcome, okStatus int) error {
	switch {
	case out.Partial():
		return c.Status(fiber.StatusMultiStatus).JSON(out)
	case len(out.Failed) > 0:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.Status(okStatus).JSON(out)
}

// Create crea facturas por lote; con validate_only solo valida.
// POST /api/invoices/bulk
// @Summary  Crear facturas por lote
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body bulk.CreateRequest true "lote"
// @Success  201 {object} bulk.Outcome
// @Success  207 {object} bulk.Outcome
// @Router   /invoices/bulk [post]
func (h *BulkHandler) Create(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in bulk.CreateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.op.Create(c.Context(), companyID, userID, in)
	if err != nil {
		if out != nil && errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(out)
		}
		return writeError(c, err)
	}
	if in.ValidateOnly {
		return c.JSON(out)
	}
	return respond(c, out, fiber.StatusCreated)
}

// Update actualiza status, payment_status, notes o terms por lote.
// PUT /api/invoices/bulk
// @Summary  Actualizar facturas por lote
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body bulk.UpdateRequest true "lote"
// @Success  200 {object} bulk.Outcome
// @Success  207 {object} bulk.Outcome
// @Router   /invoices/bulk [put]
func (h *BulkHandler) Update(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in bulk.UpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.op.Update(c.Context(), companyID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, out, fiber.StatusOK)
}

// Delete anula facturas por lote.
// DELETE /api/invoices/bulk
// @Summary  Anular facturas por lote
// @Tags     invoices
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body bulk.DeleteRequest true "lote"
// @Success  200 {object} bulk.Outcome
// @Success  207 {object} bulk.Outcome
// @Router   /invoices/bulk [delete]
func (h *BulkHandler) Delete(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in bulk.DeleteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.op.Delete(c.Context(), companyID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, out, fiber.StatusOK)
}
