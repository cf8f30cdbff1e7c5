// Package memory implementa los puertos de repositorio en memoria.
// Las transacciones se serializan con un único mutex y se revierten restaurando una copia del estado.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

// Fault permite simular fallas de escritura en tests; key identifica la fila afectada.
type Fault func(key string) error

// Store almacén en memoria con la misma semántica transaccional que PostgreSQL.
type Store struct {
	mu     sync.Mutex
	st     *state
	faults map[string]Fault
}

type state struct {
	sequences    map[string]entity.DocumentSequence
	items        map[string]entity.Item
	movements    []entity.InventoryMovement
	customers    map[string]entity.Customer
	invoices     map[string]entity.Invoice
	invoiceItems map[string][]entity.InvoiceItem
	payments     []entity.PaymentAllocation
	integrations map[string]entity.Integration
	events       map[string]entity.WebhookEvent
	eventOrder   []string
	syncRuns     map[string]entity.SyncRun
	runOrder     []string
	bulkLogs     []entity.BulkOperationLog
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		st: &state{
			sequences:    map[string]entity.DocumentSequence{},
			items:        map[string]entity.Item{},
			customers:    map[string]entity.Customer{},
			invoices:     map[string]entity.Invoice{},
			invoiceItems: map[string][]entity.InvoiceItem{},
			integrations: map[string]entity.Integration{},
			events:       map[string]entity.WebhookEvent{},
			syncRuns:     map[string]entity.SyncRun{},
		},
		faults: map[string]Fault{},
	}
}

func (s *state) clone() *state {
	c := &state{
		sequences:    make(map[string]entity.DocumentSequence, len(s.sequences)),
		items:        make(map[string]entity.Item, len(s.items)),
		movements:    append([]entity.InventoryMovement(nil), s.movements...),
		customers:    make(map[string]entity.Customer, len(s.customers)),
		invoices:     make(map[string]entity.Invoice, len(s.invoices)),
		invoiceItems: make(map[string][]entity.InvoiceItem, len(s.invoiceItems)),
		payments:     append([]entity.PaymentAllocation(nil), s.payments...),
		integrations: make(map[string]entity.Integration, len(s.integrations)),
		events:       make(map[string]entity.WebhookEvent, len(s.events)),
		eventOrder:   append([]string(nil), s.eventOrder...),
		syncRuns:     make(map[string]entity.SyncRun, len(s.syncRuns)),
		runOrder:     append([]string(nil), s.runOrder...),
		bulkLogs:     append([]entity.BulkOperationLog(nil), s.bulkLogs...),
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.invoiceItems {
		c.invoiceItems[k] = append([]entity.InvoiceItem(nil), v...)
	}
	for k, v := range s.integrations {
		c.integrations[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.syncRuns {
		c.syncRuns[k] = v
	}
	return c
}

// SetFault registra una falla simulada para la operación op (ej. "invoices.create").
func (s *Store) SetFault(op string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = f
}

// AddPayment registra un pago aplicado a la factura.
func (s *Store) AddPayment(invoiceID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.payments = append(s.st.payments, entity.PaymentAllocation{
		ID:        uuid.NewString(),
		PaymentID: uuid.NewString(),
		InvoiceID: invoiceID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Store) fault(op, key string) error {
	if f, ok := s.faults[op]; ok {
		return f(key)
	}
	return nil
}

// do ejecuta fn con el estado; si locked es false toma el mutex.
func (s *Store) do(locked bool, fn func(st *state) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

// WithinTx implementa repository.TxRunner.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Repositories devuelve los repositorios fuera de transacción.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(false)
}

func (s *Store) repos(locked bool) repository.Repositories {
	return repository.Repositories{
		Sequences: &sequenceRepo{s: s, locked: locked},
		Items:     &itemRepo{s: s, locked: locked},
		Movements: &movementRepo{s: s, locked: locked},
		Customers: &customerRepo{s: s, locked: locked},
		Invoices:  &invoiceRepo{s: s, locked: locked},
		Payments:  &paymentRepo{s: s, locked: locked},
		BulkLogs:  &bulkLogRepo{s: s, locked: locked},
	}
}

// Integrations repositorio de integraciones.
func (s *Store) Integrations() repository.IntegrationRepository { return &integrationRepo{s: s} }

// WebhookEvents repositorio de eventos de webhook.
func (s *Store) WebhookEvents() repository.WebhookEventRepository { return &eventRepo{s: s} }

// SyncRuns repositorio de corridas de sincronización.
func (s *Store) SyncRuns() repository.SyncRunRepository { return &syncRunRepo{s: s} }

// BulkLogs devuelve las filas de auditoría masiva registradas.
func (s *Store) BulkLogs() []entity.BulkOperationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.BulkOperationLog(nil), s.st.bulkLogs...)
}
