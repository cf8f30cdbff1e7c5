package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/domain"
)

// Tipos de sincronización.
const (
	SyncTypeProducts  = "products"
	SyncTypeCustomers = "customers"
	SyncTypeOrders    = "orders"
	SyncTypeInventory = "inventory"
)

// Estados de la corrida.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// DefaultSummaryLimit líneas de resumen que se guardan por corrida.
const DefaultSummaryLimit = 50

// IsSyncType valida el tipo de sincronización.
func IsSyncType(s string) bool {
	switch s {
	case SyncTypeProducts, SyncTypeCustomers, SyncTypeOrders, SyncTypeInventory:
		return true
	}
	return false
}

// SyncRun corrida de sincronización por lotes. Se cierra una sola vez.
type SyncRun struct {
	ID         string
	CompanyID  string
	SyncType   string
	Manual     bool
	Status     string
	Since      *time.Time // inicio de la última corrida exitosa del mismo tipo
	StartedAt  time.Time
	FinishedAt *time.Time
	DurationMs int64
	Processed  int
	Succeeded  int
	Failed     int
	Summary    []string
	Error      string
	ClaimedAt  *time.Time // lease del ejecutor

	omitted int
}

// IsTerminal indica si la corrida ya terminó.
func (r *SyncRun) IsTerminal() bool {
	return r.Status == SyncStatusCompleted || r.Status == SyncStatusFailed
}

// RecordSuccess cuenta un registro procesado con éxito.
func (r *SyncRun) RecordSuccess(line string, limit int) {
	r.Processed++
	r.Succeeded++
	r.addSummary(line, limit)
}

// RecordFailure cuenta un registro fallido sin detener la corrida.
func (r *SyncRun) RecordFailure(line string, limit int) {
	r.Processed++
	r.Failed++
	r.addSummary(line, limit)
}

func (r *SyncRun) addSummary(line string, limit int) {
	if line == "" {
		return
	}
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	if len(r.Summary) >= limit {
		r.omitted++
		return
	}
	r.Summary = append(r.Summary, line)
}

// Complete cierra la corrida como completada.
func (r *SyncRun) Complete(now time.Time) error {
	return r.finish(SyncStatusCompleted, "", now)
}

// Fail cierra la corrida como fallida.
func (r *SyncRun) Fail(msg string, now time.Time) error {
	return r.finish(SyncStatusFailed, msg, now)
}

func (r *SyncRun) finish(status, msg string, now time.Time) error {
	if r.IsTerminal() {
		return domain.ErrTerminalState
	}
	if r.omitted > 0 {
		r.Summary = append(r.Summary, fmt.Sprintf("... %d líneas omitidas", r.omitted))
		r.omitted = 0
	}
	r.Status = status
	r.Error = msg
	r.FinishedAt = &now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
	return nil
}
