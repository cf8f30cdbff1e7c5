package entity

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/domain"
)

// Estados del evento de webhook: received -> processing -> completed | failed.
const (
	EventStatusReceived   = "received"
	EventStatusProcessing = "processing"
	EventStatusCompleted  = "completed"
	EventStatusFailed     = "failed"
)

// WebhookEvent bitácora durable de cada evento recibido.
type WebhookEvent struct {
	ID                string
	CompanyID         string
	IntegrationID     string
	EventType         string
	ExternalID        string
	PayloadDigest     string
	Status            string
	SignatureVerified bool
	Payload           json.RawMessage
	Result            json.RawMessage
	Error             string
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}

// IsTerminal indica si el evento ya terminó (completed o failed).
func (e *WebhookEvent) IsTerminal() bool {
	return e.Status == EventStatusCompleted || e.Status == EventStatusFailed
}

// Start pasa el evento a processing.
func (e *WebhookEvent) Start() error {
	if e.Status != EventStatusReceived {
		return domain.ErrTerminalState
	}
	e.Status = EventStatusProcessing
	return nil
}

// Complete cierra el evento con éxito. Solo se puede cerrar una vez.
func (e *WebhookEvent) Complete(result json.RawMessage, now time.Time) error {
	if e.IsTerminal() {
		return domain.ErrTerminalState
	}
	e.Status = EventStatusCompleted
	e.Result = result
	e.ProcessedAt = &now
	return nil
}

// Fail cierra el evento con error. Válido desde received (firma inválida) o processing.
func (e *WebhookEvent) Fail(msg string, now time.Time) error {
	if e.IsTerminal() {
		return domain.ErrTerminalState
	}
	e.Status = EventStatusFailed
	e.Error = msg
	e.ProcessedAt = &now
	return nil
}
