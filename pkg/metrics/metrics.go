// Package metrics contadores Prometheus del motor de conciliación.
// Todos los métodos aceptan un receptor nil para que los tests no necesiten registrar métricas.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics agrupa los colectores del servicio.
type Metrics struct {
	registry *prometheus.Registry

	WebhookEvents       *prometheus.CounterVec
	SyncRuns            *prometheus.CounterVec
	SyncRecords         *prometheus.CounterVec
	InventoryMovements  *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	BulkRows            *prometheus.CounterVec
	SequenceAllocations *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
}

// New registra los colectores en un registry propio.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_events_total",
			Help: "Eventos de webhook procesados por tipo y estado final.",
		}, []string{"event_type", "status"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sync_runs_total",
			Help: "Corridas de sincronización finalizadas.",
		}, []string{"sync_type", "status"}),
		SyncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sync_records_total",
			Help: "Registros externos procesados en corridas de sincronización.",
		}, []string{"sync_type", "result"}),
		InventoryMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_movements_total",
			Help: "Movimientos de inventario registrados.",
		}, []string{"movement_type"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outbound_notifications_total",
			Help: "Notificaciones de factura enviadas a la tienda externa.",
		}, []string{"result"}),
		BulkRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "bulk_invoice_rows_total",
			Help: "Filas procesadas por operaciones masivas.",
		}, []string{"operation", "result"}),
		SequenceAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sequence_allocations_total",
			Help: "Números de documento emitidos.",
		}, []string{"document_type"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "Estado del circuit breaker (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
	}
	reg.MustRegister(m.WebhookEvents, m.SyncRuns, m.SyncRecords, m.InventoryMovements,
		m.Notifications, m.BulkRows, m.SequenceAllocations, m.BreakerState)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) ObserveSyncRun(syncType, status string) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(syncType, status).Inc()
}

func (m *Metrics) ObserveSyncRecord(syncType string, ok bool) {
	if m == nil {
		return
	}
	m.SyncRecords.WithLabelValues(syncType, result(ok)).Inc()
}

func (m *Metrics) ObserveMovement(movementType string) {
	if m == nil {
		return
	}
	m.InventoryMovements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) ObserveNotification(ok bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveBulkRows(operation string, succeeded, failed int) {
	if m == nil {
		return
	}
	m.BulkRows.WithLabelValues(operation, "success").Add(float64(succeeded))
	m.BulkRows.WithLabelValues(operation, "failure").Add(float64(failed))
}

func (m *Metrics) ObserveAllocation(docType string) {
	if m == nil {
		return
	}
	m.SequenceAllocations.WithLabelValues(docType).Inc()
}

// BreakerListener adapta el gauge al callback de resilience.NewBreaker.
func (m *Metrics) BreakerListener(name string, _, to gobreaker.State) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
