package repository

import "context"

// Repositories repositorios ligados a una misma transacción.
type Repositories struct {
	Sequences DocumentSequenceRepository
	Items     ItemRepository
	Movements InventoryMovementRepository
	Customers CustomerRepository
	Invoices  InvoiceRepository
	Payments  PaymentAllocationRepository
	BulkLogs  BulkOperationLogRepository
}

// TxRunner ejecuta fn dentro de una transacción: commit si fn devuelve nil, rollback si no.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
