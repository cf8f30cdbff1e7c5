package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Integraciones-api/internal/application/batchsync"
	"github.com/jhoicas/Integraciones-api/internal/application/dto"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/gpubsub"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
)

// SyncHandler disparo y consulta de sincronizaciones por lotes.
type SyncHandler struct {
	orch       *batchsync.Orchestrator
	pushToken  string
	runTimeout time.Duration
	log        *logger.Logger
}

// NewSyncHandler construye el handler. pushToken protege el endpoint push de Pub/Sub (vacío lo deja abierto).
func NewSyncHandler(orch *batchsync.Orchestrator, pushToken string, runTimeout time.Duration, log *logger.Logger) *SyncHandler {
	if log == nil {
		log = logger.Nop()
	}
	if runTimeout <= 0 {
		runTimeout = 15 * time.Minute
	}
	return &SyncHandler{orch: orch, pushToken: pushToken, runTimeout: runTimeout, log: log.Named("sync_http")}
}

// Trigger crea la corrida y responde de inmediato; el procesamiento sigue desligado de la petición.
// POST /api/sync
// @Summary  Disparar sincronización
// @Tags     sync
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body dto.TriggerSyncRequest true "tipo de sincronización"
// @Success  200 {object} dto.TriggerSyncResponse
// @Failure  409 {object} dto.ErrorResponse
// @Router   /sync [post]
func (h *SyncHandler) Trigger(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.TriggerSyncRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.CompanyID != "" && in.CompanyID != companyID {
		return writeError(c, domain.ErrForbidden)
	}
	run, err := h.orch.Trigger(c.Context(), batchsync.TriggerRequest{
		CompanyID: companyID, SyncType: in.SyncType, Manual: in.Manual, Full: in.Full,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TriggerSyncResponse{Success: true, SyncID: run.ID, Status: run.Status})
}

// Status devuelve una corrida (?sync_id=) o las corridas recientes de la empresa.
// GET /api/sync
// @Summary  Estado de sincronización
// @Tags     sync
// @Produce  json
// @Security BearerAuth
// @Param    sync_id query string false "id de la corrida"
// @Success  200 {array} dto.SyncRunResponse
// @Router   /sync [get]
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	if q := c.Query("company_id"); q != "" && q != companyID {
		return writeError(c, domain.ErrForbidden)
	}
	if id := c.Query("sync_id"); id != "" {
		run, err := h.orch.Get(c.Context(), companyID, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(toSyncRunResponse(run))
	}
	runs, err := h.orch.List(c.Context(), companyID, c.QueryInt("limit", 20))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SyncRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toSyncRunResponse(r))
	}
	return c.JSON(out)
}

// Retry relanza una corrida fallida.
// POST /api/sync/:id/retry
// @Summary  Reintentar sincronización
// @Tags     sync
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "id de la corrida"
// @Success  200 {object} dto.TriggerSyncResponse
// @Router   /sync/{id}/retry [post]
func (h *SyncHandler) Retry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	run, err := h.orch.Retry(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TriggerSyncResponse{Success: true, SyncID: run.ID, Status: run.Status})
}

// Push ejecuta la corrida entregada por la suscripción push de Pub/Sub. Responde 2xx (ack) cuando
// la corrida quedó cerrada o no existe; 500 hace que Pub/Sub la reintente.
// POST /api/internal/pubsub/sync?token=
func (h *SyncHandler) Push(c *fiber.Ctx) error {
	if h.pushToken != "" && subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.pushToken)) != 1 {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	msg, err := gpubsub.DecodePush(c.Body())
	if err != nil {
		h.log.Warn().Err(err).Msg("mensaje push descartado")
		return c.SendStatus(fiber.StatusNoContent)
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
	defer cancel()

	err = h.orch.Execute(ctx, msg.RunID)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	run, getErr := h.orch.Get(ctx, msg.CompanyID, msg.RunID)
	if getErr == nil && run.IsTerminal() {
		return c.SendStatus(fiber.StatusNoContent)
	}
	h.log.Error().Err(err).Str("sync_id", msg.RunID).Msg("corrida sin cerrar; se pide reentrega")
	return c.SendStatus(fiber.StatusInternalServerError)
}

func toSyncRunResponse(r *entity.SyncRun) dto.SyncRunResponse {
	summary := r.Summary
	if summary == nil {
		summary = []string{}
	}
	return dto.SyncRunResponse{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		SyncType:   r.SyncType,
		Manual:     r.Manual,
		Status:     r.Status,
		Since:      r.Since,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.DurationMs,
		Processed:  r.Processed,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Summary:    summary,
		Error:      r.Error,
	}
}
