package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, customer_id, document_type, financial_year, document_number,
	invoice_date, due_date, subtotal, tax_total, total, status, payment_status, external_order_id,
	external_order_number, source, notes, terms, cancel_reason, created_at, updated_at`

// Nombres de las restricciones únicas de invoices (ver migrations).
const (
	constraintActiveExternalOrder = "invoices_active_external_order"
	constraintDocumentNumber      = "invoices_document_number"
)

// Create persiste la cabecera. Una segunda factura activa para el mismo pedido externo devuelve
// domain.ErrActiveInvoiceExists; un número ya emitido en el mismo tipo y año fiscal devuelve domain.ErrConflict.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.DocumentType, inv.FinancialYear, inv.DocumentNumber,
		inv.InvoiceDate, inv.DueDate,
		inv.Subtotal, inv.TaxTotal, inv.Total, inv.Status, inv.PaymentStatus,
		nullIfEmpty(inv.ExternalOrderID), nullIfEmpty(inv.ExternalOrderNumber), inv.Source,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.Terms), nullIfEmpty(inv.CancelReason),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		switch uniqueConstraint(err) {
		case constraintActiveExternalOrder:
			return domain.ErrActiveInvoiceExists
		case constraintDocumentNumber:
			return fmt.Errorf("%w: número %s ya emitido en %s", domain.ErrConflict, inv.DocumentNumber, inv.FinancialYear)
		}
		return storeErr("insert invoice", err)
	}
	return nil
}

// CreateItem persiste una línea.
func (r *InvoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_items (id, invoice_id, item_id, sku, description, quantity, unit_price, tax_rate, tax_amount, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.InvoiceID, nullIfEmpty(item.ItemID), nullIfEmpty(item.SKU), item.Description,
		item.Quantity, item.UnitPrice, item.TaxRate, item.TaxAmount, item.Amount,
	)
	if err != nil {
		return storeErr("insert invoice item", err)
	}
	return nil
}

// Update actualiza los campos mutables de la cabecera.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $3, payment_status = $4, notes = $5, terms = $6, cancel_reason = $7, updated_at = $8
		WHERE company_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		inv.CompanyID, inv.ID, inv.Status, inv.PaymentStatus,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.Terms), nullIfEmpty(inv.CancelReason), inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storeErr("update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) getOne(ctx context.Context, where string, args ...any) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get invoice", err)
	}
	return inv, nil
}

// GetByID obtiene una factura por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `company_id = $1 AND id = $2`, companyID, id)
}

// GetForUpdate obtiene la factura y bloquea la fila (SELECT FOR UPDATE).
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `company_id = $1 AND id = $2 FOR UPDATE`, companyID, id)
}

// GetActiveByExternalOrder factura no anulada del pedido externo, bloqueada para la transacción.
func (r *InvoiceRepo) GetActiveByExternalOrder(ctx context.Context, companyID, externalOrderID string) (*entity.Invoice, error) {
	return r.getOne(ctx,
		`company_id = $1 AND external_order_id = $2 AND status <> 'cancelled' FOR UPDATE`,
		companyID, externalOrderID)
}

// GetItems líneas de la factura.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, item_id, sku, description, quantity, unit_price, tax_rate, tax_amount, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, storeErr("list invoice items", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceItem
	for rows.Next() {
		var (
			it          entity.InvoiceItem
			itemID, sku *string
		)
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &itemID, &sku, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.TaxRate, &it.TaxAmount, &it.Amount,
		); err != nil {
			return nil, storeErr("scan invoice item", err)
		}
		it.ItemID = emptyIfNull(itemID)
		it.SKU = emptyIfNull(sku)
		list = append(list, &it)
	}
	return list, rows.Err()
}

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var (
		inv                            entity.Invoice
		extID, extNumber, notes, terms *string
		cancelReason                   *string
	)
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.DocumentType, &inv.FinancialYear, &inv.DocumentNumber,
		&inv.InvoiceDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.Status, &inv.PaymentStatus,
		&extID, &extNumber, &inv.Source, &notes, &terms, &cancelReason, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.ExternalOrderID = emptyIfNull(extID)
	inv.ExternalOrderNumber = emptyIfNull(extNumber)
	inv.Notes = emptyIfNull(notes)
	inv.Terms = emptyIfNull(terms)
	inv.CancelReason = emptyIfNull(cancelReason)
	return &inv, nil
}

var _ repository.PaymentAllocationRepository = (*PaymentAllocationRepo)(nil)

// PaymentAllocationRepo lectura de pagos aplicados.
type PaymentAllocationRepo struct {
	q Querier
}

// NewPaymentAllocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentAllocationRepository(q Querier) *PaymentAllocationRepo {
	return &PaymentAllocationRepo{q: q}
}

// CountByInvoice cantidad de pagos aplicados a la factura.
func (r *PaymentAllocationRepo) CountByInvoice(ctx context.Context, invoiceID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM payment_allocations WHERE invoice_id = $1`, invoiceID).Scan(&n)
	if err != nil {
		return 0, storeErr("count payment allocations", err)
	}
	return n, nil
}

var _ repository.BulkOperationLogRepository = (*BulkOperationLogRepo)(nil)

// BulkOperationLogRepo auditoría de operaciones masivas.
type BulkOperationLogRepo struct {
	q Querier
}

// NewBulkOperationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBulkOperationLogRepository(q Querier) *BulkOperationLogRepo {
	return &BulkOperationLogRepo{q: q}
}

// Create inserta la fila de resumen.
func (r *BulkOperationLogRepo) Create(ctx context.Context, l *entity.BulkOperationLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `
		INSERT INTO bulk_operation_logs (id, company_id, user_id, operation, total, succeeded, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.CompanyID, nullIfEmpty(l.UserID), l.Operation, l.Total, l.Succeeded, l.Failed, l.CreatedAt,
	)
	if err != nil {
		return storeErr("insert bulk log", err)
	}
	return nil
}
