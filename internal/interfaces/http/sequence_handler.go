package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Integraciones-api/internal/application/dto"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// SequenceHandler configuración de consecutivos.
type SequenceHandler struct {
	allocator *sequence.Allocator
}

// NewSequenceHandler construye el handler.
func NewSequenceHandler(allocator *sequence.Allocator) *SequenceHandler {
	return &SequenceHandler{allocator: allocator}
}

// List consecutivos del año fiscal (?financial_year=2024-25; vacío = actual).
// GET /api/settings/sequences
// @Summary  Consecutivos de documentos
// @Tags     settings
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.SequenceResponse
// @Router   /settings/sequences [get]
func (h *SequenceHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	seqs, err := h.allocator.Settings(c.Context(), companyID, c.Query("financial_year"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSequenceResponses(seqs))
}

// Save crea o actualiza la configuración por (tipo de documento, año fiscal).
// POST /api/settings/sequences
// @Summary  Guardar consecutivos
// @Tags     settings
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body []sequence.Setting true "configuración"
// @Success  200 {array} dto.SequenceResponse
// @Router   /settings/sequences [post]
func (h *SequenceHandler) Save(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in []sequence.Setting
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	seqs, err := h.allocator.SaveSettings(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSequenceResponses(seqs))
}

func toSequenceResponses(seqs []*entity.DocumentSequence) []dto.SequenceResponse {
	out := make([]dto.SequenceResponse, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, dto.SequenceResponse{
			DocumentType:   s.DocumentType,
			FinancialYear:  s.FinancialYear,
			Prefix:         s.Prefix,
			Suffix:         s.Suffix,
			Padding:        s.Padding,
			CurrentNumber:  s.CurrentNumber,
			ResetOnNewYear: s.ResetOnNewYear,
			NextNumber:     s.Format(s.CurrentNumber),
		})
	}
	return out
}
