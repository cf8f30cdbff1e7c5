package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Integraciones-api/internal/application/dto"
	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

// Cabeceras aceptadas para la firma HMAC del cuerpo, en orden de preferencia.
var signatureHeaders = []string{"X-Webhook-Signature", "X-Shopify-Hmac-Sha256", "X-WC-Webhook-Signature"}

// WebhookHandler recibe los eventos de la tienda externa.
type WebhookHandler struct {
	pipeline *ingestion.Pipeline
	events   repository.WebhookEventRepository
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(pipeline *ingestion.Pipeline, events repository.WebhookEventRepository) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline, events: events}
}

// Receive procesa un evento firmado.
// POST /api/webhooks/commerce
// @Summary  Recibir webhook de la tienda
// @Tags     webhooks
// @Accept   json
// @Produce  json
// @Success  200 {object} dto.Envelope
// @Failure  400 {object} dto.Envelope
// @Failure  404 {object} dto.Envelope
// @Router   /webhooks/commerce [post]
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	signature := ""
	for _, name := range signatureHeaders {
		if v := c.Get(name); v != "" {
			signature = v
			break
		}
	}

	res, err := h.pipeline.Handle(c.Context(), ingestion.Request{Body: body, Signature: signature})
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidSignature):
			status = fiber.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(dto.Envelope{Success: false, Message: err.Error()})
	}
	return c.JSON(dto.Envelope{Success: true, Message: "evento " + res.Action, Data: res})
}

// Events lista los eventos recientes de la empresa del token.
// GET /api/webhooks/events?limit=
// @Summary  Bitácora de webhooks
// @Tags     webhooks
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.WebhookEventResponse
// @Router   /webhooks/events [get]
func (h *WebhookHandler) Events(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.events.ListByCompany(c.Context(), companyID, page.Limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.WebhookEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.WebhookEventResponse{
			ID:                e.ID,
			EventType:         e.EventType,
			ExternalID:        e.ExternalID,
			PayloadDigest:     e.PayloadDigest,
			Status:            e.Status,
			SignatureVerified: e.SignatureVerified,
			Result:            e.Result,
			Error:             e.Error,
			ReceivedAt:        e.ReceivedAt,
			ProcessedAt:       e.ProcessedAt,
		})
	}
	return c.JSON(out)
}
