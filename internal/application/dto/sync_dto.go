package dto

import (
	"encoding/json"
	"time"
)

// TriggerSyncRequest body para POST /api/sync. CompanyID se toma del token si viene vacío.
type TriggerSyncRequest struct {
	CompanyID string `json:"company_id"`
	SyncType  string `json:"sync_type"`
	Manual    bool   `json:"manual"`
	Full      bool   `json:"full"`
}

// SyncRunResponse estado de una corrida.
type SyncRunResponse struct {
	ID         string     `json:"sync_id"`
	CompanyID  string     `json:"company_id"`
	SyncType   string     `json:"sync_type"`
	Manual     bool       `json:"manual"`
	Status     string     `json:"status"`
	Since      *time.Time `json:"since,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	Processed  int        `json:"records_processed"`
	Succeeded  int        `json:"records_succeeded"`
	Failed     int        `json:"records_failed"`
	Summary    []string   `json:"summary"`
	Error      string     `json:"error,omitempty"`
}

// TriggerSyncResponse respuesta inmediata del disparo.
type TriggerSyncResponse struct {
	Success bool   `json:"success"`
	SyncID  string `json:"sync_id"`
	Status  string `json:"status"`
}

// WebhookEventResponse evento de la bitácora.
type WebhookEventResponse struct {
	ID                string          `json:"id"`
	EventType         string          `json:"event_type"`
	ExternalID        string          `json:"external_id,omitempty"`
	PayloadDigest     string          `json:"payload_digest,omitempty"`
	Status            string          `json:"status"`
	SignatureVerified bool            `json:"signature_verified"`
	Result            json.RawMessage `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
	ReceivedAt        time.Time       `json:"received_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}

// SequenceResponse configuración y contador de un consecutivo.
type SequenceResponse struct {
	DocumentType   string `json:"document_type"`
	FinancialYear  string `json:"financial_year"`
	Prefix         string `json:"prefix"`
	Suffix         string `json:"suffix"`
	Padding        int    `json:"padding"`
	CurrentNumber  int64  `json:"current_number"`
	ResetOnNewYear bool   `json:"reset_on_new_year"`
	NextNumber     string `json:"next_number"`
}
