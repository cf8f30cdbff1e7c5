package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia de facturas y sus líneas.
type InvoiceRepository interface {
	// Create devuelve domain.ErrActiveInvoiceExists si el pedido externo ya tiene factura activa y
	// domain.ErrConflict si el número ya existe para el tipo y año fiscal.
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	// Update actualiza estado, estado de pago, notas, términos y motivo de anulación.
	Update(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	GetForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	// GetActiveByExternalOrder devuelve la factura no anulada del pedido externo, o nil.
	GetActiveByExternalOrder(ctx context.Context, companyID, externalOrderID string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
}

// PaymentAllocationRepository puerto de lectura de pagos aplicados a facturas.
type PaymentAllocationRepository interface {
	CountByInvoice(ctx context.Context, invoiceID string) (int, error)
}
