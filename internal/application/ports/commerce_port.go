package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// InvoiceNotification datos de la factura que se reportan a la tienda externa.
type InvoiceNotification struct {
	ExternalOrderID string          `json:"order_id"`
	InvoiceID       string          `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
	InvoiceStatus   string          `json:"invoice_status"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// Notifier puerto de salida hacia la tienda: informa la factura emitida para un pedido.
// Las fallas se reportan envueltas en domain.ErrExternalNotify.
type Notifier interface {
	NotifyInvoice(ctx context.Context, in *entity.Integration, n InvoiceNotification) error
}

// CommerceSource puerto de lectura paginada de la tienda externa para las sincronizaciones.
type CommerceSource interface {
	// FetchPage devuelve los registros de la página (desde 1) y si hay más páginas.
	// since limita a registros modificados después de esa fecha cuando no es nil.
	FetchPage(ctx context.Context, in *entity.Integration, syncType string, since *time.Time, page int) ([]json.RawMessage, bool, error)
}

// Locker exclusión mutua entre réplicas del servicio para una clave (ej. un pedido externo).
type Locker interface {
	// Lock bloquea key hasta llamar a la función devuelta.
	Lock(ctx context.Context, key string) (func(), error)
}

// NopLocker no bloquea; la restricción única de la base de datos sigue siendo el árbitro final.
type NopLocker struct{}

// Lock implementa Locker.
func (NopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// SyncDispatcher entrega una corrida de sincronización para ejecutarla fuera de la petición.
type SyncDispatcher interface {
	Dispatch(ctx context.Context, run *entity.SyncRun) error
}
