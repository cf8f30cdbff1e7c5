// Package bulk operaciones masivas sobre facturas: validar, crear, actualizar y anular por lotes
// con resultado por fila.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// Operator casos de uso masivos.
type Operator struct {
	tx        repository.TxRunner
	allocator *sequence.Allocator
	ledger    *ledger.Ledger
	limits    Limits
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewOperator construye el operador.
func NewOperator(tx repository.TxRunner, allocator *sequence.Allocator, ledgerUC *ledger.Ledger, limits Limits, log *logger.Logger, m *metrics.Metrics) *Operator {
	def := DefaultLimits()
	if limits.MaxCreate <= 0 {
		limits.MaxCreate = def.MaxCreate
	}
	if limits.MaxUpdate <= 0 {
		limits.MaxUpdate = def.MaxUpdate
	}
	if limits.MaxDelete <= 0 {
		limits.MaxDelete = def.MaxDelete
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Operator{tx: tx, allocator: allocator, ledger: ledgerUC, limits: limits, log: log.Named("bulk"), metrics: m, now: time.Now}
}

func checkSize(n, max int, op string) error {
	if n == 0 {
		return fmt.Errorf("%w: el lote está vacío", domain.ErrInvalidInput)
	}
	if n > max {
		return fmt.Errorf("%w: %s admite hasta %d filas, se recibieron %d", domain.ErrBatchTooLarge, op, max, n)
	}
	return nil
}

// Validate revisa el lote sin escribir nada. Carga clientes e ítems referenciados una sola vez.
func (uc *Operator) Validate(ctx context.Context, companyID string, rows []CreateRow) (*ValidationReport, error) {
	if err := checkSize(len(rows), uc.limits.MaxCreate, "create"); err != nil {
		return nil, err
	}
	customers, items, err := uc.references(ctx, companyID, rows)
	if err != nil {
		return nil, err
	}
	return validateRows(rows, customers, items), nil
}

func (uc *Operator) references(ctx context.Context, companyID string, rows []CreateRow) (map[string]*entity.Customer, map[string]*entity.Item, error) {
	var customerIDs, itemIDs []string
	seenC, seenI := map[string]bool{}, map[string]bool{}
	for _, r := range rows {
		if r.CustomerID != "" && !seenC[r.CustomerID] {
			seenC[r.CustomerID] = true
			customerIDs = append(customerIDs, r.CustomerID)
		}
		for _, l := range r.Items {
			if l.ItemID != "" && !seenI[l.ItemID] {
				seenI[l.ItemID] = true
				itemIDs = append(itemIDs, l.ItemID)
			}
		}
	}
	customers := map[string]*entity.Customer{}
	items := map[string]*entity.Item{}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		cs, err := r.Customers.ListByIDs(ctx, companyID, customerIDs)
		if err != nil {
			return fmt.Errorf("cargar clientes: %w", err)
		}
		for _, c := range cs {
			customers[c.ID] = c
		}
		its, err := r.Items.ListByIDs(ctx, companyID, itemIDs)
		if err != nil {
			return fmt.Errorf("cargar ítems: %w", err)
		}
		for _, it := range its {
			items[it.ID] = it
		}
		return nil
	})
	return customers, items, err
}

func validateRows(rows []CreateRow, customers map[string]*entity.Customer, items map[string]*entity.Item) *ValidationReport {
	rep := &ValidationReport{Total: len(rows), ValidRows: []int{}, Issues: []RowIssue{}}
	hundred := decimal.NewFromInt(100)
	for i, r := range rows {
		n := i + 1
		var structural, referential []string
		for _, fe := range validation.Fields(r) {
			structural = append(structural, fe.Field+": "+fe.Message)
		}
		for j, l := range r.Items {
			if !l.Quantity.IsPositive() {
				structural = append(structural, fmt.Sprintf("items[%d].quantity: debe ser mayor que 0", j))
			}
			if l.UnitPrice.IsNegative() {
				structural = append(structural, fmt.Sprintf("items[%d].unit_price: no puede ser negativo", j))
			}
			if l.TaxRate.IsNegative() || l.TaxRate.GreaterThan(hundred) {
				structural = append(structural, fmt.Sprintf("items[%d].tax_rate: debe estar entre 0 y 100", j))
			}
			if l.ItemID != "" && items[l.ItemID] == nil {
				referential = append(referential, fmt.Sprintf("items[%d].item_id: el ítem %s no existe", j, l.ItemID))
			}
		}
		if r.CustomerID != "" && customers[r.CustomerID] == nil {
			referential = append([]string{"customer_id: el cliente " + r.CustomerID + " no existe"}, referential...)
		}
		if r.DueDate != nil && r.InvoiceDate != nil && r.DueDate.Before(*r.InvoiceDate) {
			structural = append(structural, "due_date: no puede ser anterior a invoice_date")
		}

		switch {
		case len(structural) > 0:
			rep.Issues = append(rep.Issues, RowIssue{Row: n, Kind: IssueStructural, Errors: append(structural, referential...)})
		case len(referential) > 0:
			rep.Issues = append(rep.Issues, RowIssue{Row: n, Kind: IssueReferential, Errors: referential})
		default:
			rep.ValidRows = append(rep.ValidRows, n)
		}
	}
	return rep
}

// Create valida el lote y, si no hay errores estructurales, crea cada factura en su propia
// transacción. Las filas con referencias inexistentes y las que fallan al persistir se reportan
// sin afectar a las demás. Con ValidateOnly solo devuelve el reporte.
func (uc *Operator) Create(ctx context.Context, companyID, userID string, req CreateRequest) (*Outcome, error) {
	rep, err := uc.Validate(ctx, companyID, req.Invoices)
	if err != nil {
		return nil, err
	}
	out := newOutcome()
	out.Validation = rep
	if req.ValidateOnly {
		return out, nil
	}
	if rep.Structural() {
		return out, fmt.Errorf("%w: el lote tiene filas con errores estructurales", domain.ErrInvalidInput)
	}

	for i, row := range req.Invoices {
		n := i + 1
		if issue := rep.issue(n); issue != nil {
			out.Failed = append(out.Failed, RowFailure{Row: n, Code: "referential", Reason: strings.Join(issue.Errors, "; ")})
			continue
		}
		ok, err := uc.createRow(ctx, companyID, row)
		if err != nil {
			out.Failed = append(out.Failed, RowFailure{Row: n, Code: code(err), Reason: err.Error()})
			uc.log.Warn().Err(err).Str("company_id", companyID).Int("row", n).Msg("fila de creación masiva fallida")
			continue
		}
		ok.Row = n
		out.Successful = append(out.Successful, *ok)
	}
	uc.audit(ctx, companyID, userID, entity.BulkOperationCreate, len(req.Invoices), out)
	return out, nil
}

func (uc *Operator) createRow(ctx context.Context, companyID string, row CreateRow) (*RowSuccess, error) {
	res := &RowSuccess{}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		customer, err := r.Customers.GetByID(ctx, companyID, row.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return fmt.Errorf("%w: cliente %s", domain.ErrReferential, row.CustomerID)
		}
		alloc, err := uc.allocator.AllocateInTx(ctx, r, companyID, entity.DocumentTypeInvoice)
		if err != nil {
			return err
		}

		now := uc.now()
		inv := &entity.Invoice{
			CompanyID:      companyID,
			CustomerID:     customer.ID,
			DocumentType:   alloc.DocumentType,
			FinancialYear:  alloc.FinancialYear,
			DocumentNumber: alloc.Number,
			InvoiceDate:    now,
			DueDate:        row.DueDate,
			Status:         entity.InvoiceStatusConfirmed,
			PaymentStatus:  entity.PaymentStatusUnpaid,
			Source:         entity.InvoiceSourceBulk,
			Notes:          row.Notes,
			Terms:          row.Terms,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if row.InvoiceDate != nil {
			inv.InvoiceDate = *row.InvoiceDate
		}

		hundred := decimal.NewFromInt(100)
		lines := make([]*entity.InvoiceItem, len(row.Items))
		tracked := make([]*entity.Item, len(row.Items))
		for i, l := range row.Items {
			item, err := r.Items.GetByID(ctx, companyID, l.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("%w: ítem %s", domain.ErrReferential, l.ItemID)
			}
			price := l.UnitPrice
			if price.IsZero() {
				price = item.Price
			}
			desc := l.Description
			if desc == "" {
				desc = item.Name
			}
			amount := l.Quantity.Mul(price)
			tax := amount.Mul(l.TaxRate).Div(hundred).Round(2)
			lines[i] = &entity.InvoiceItem{
				ItemID: item.ID, SKU: item.SKU, Description: desc,
				Quantity: l.Quantity, UnitPrice: price, TaxRate: l.TaxRate, TaxAmount: tax, Amount: amount,
			}
			if item.TrackInventory {
				tracked[i] = item
			}
			inv.Subtotal = inv.Subtotal.Add(amount)
			inv.TaxTotal = inv.TaxTotal.Add(tax)
		}
		inv.Total = inv.Subtotal.Add(inv.TaxTotal)
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("crear factura: %w", err)
		}

		ref := ledger.Reference{Type: entity.ReferenceInvoice, ID: inv.ID, Number: inv.DocumentNumber}
		for i, line := range lines {
			line.InvoiceID = inv.ID
			if err := r.Invoices.CreateItem(ctx, line); err != nil {
				return fmt.Errorf("crear línea %d: %w", i+1, err)
			}
			if tracked[i] == nil {
				continue
			}
			_, err := uc.ledger.ApplyInTx(ctx, r, ledger.ApplyCommand{
				CompanyID: companyID, ItemID: line.ItemID, Delta: line.Quantity.Neg(),
				Type: entity.MovementTypeOut, Reference: ref, Date: inv.InvoiceDate,
			})
			if ledger.IsInsufficientStock(err) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("línea %d (%s): %v", i+1, line.SKU, err))
				continue
			}
			if err != nil {
				return err
			}
		}
		res.InvoiceID = inv.ID
		res.DocumentNumber = inv.DocumentNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Update aplica los campos permitidos a cada factura. Status cancelled sigue el mismo camino que
// Delete con reversión de inventario.
func (uc *Operator) Update(ctx context.Context, companyID, userID string, req UpdateRequest) (*Outcome, error) {
	if err := checkSize(len(req.IDs), uc.limits.MaxUpdate, "update"); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Fields.empty() {
		return nil, fmt.Errorf("%w: no hay campos para actualizar", domain.ErrInvalidInput)
	}

	out := newOutcome()
	for _, id := range req.IDs {
		err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
			inv, err := r.Invoices.GetForUpdate(ctx, companyID, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
			}
			f := req.Fields
			if f.Status != nil && *f.Status == entity.InvoiceStatusConfirmed && inv.IsCancelled() {
				return fmt.Errorf("%w: una factura anulada no se puede reactivar", domain.ErrConflict)
			}
			if f.PaymentStatus != nil {
				inv.PaymentStatus = *f.PaymentStatus
			}
			if f.Notes != nil {
				inv.Notes = *f.Notes
			}
			if f.Terms != nil {
				inv.Terms = *f.Terms
			}
			if f.Status != nil && *f.Status == entity.InvoiceStatusCancelled {
				return uc.cancelInTx(ctx, r, inv, req.Reason, true)
			}
			inv.UpdatedAt = uc.now()
			return r.Invoices.Update(ctx, inv)
		})
		uc.collect(out, id, err)
	}
	uc.audit(ctx, companyID, userID, entity.BulkOperationUpdate, len(req.IDs), out)
	return out, nil
}

// Delete anula cada factura (nunca la borra). Rechaza las que tienen pagos aplicados o ya están
// anuladas. Con ReverseInventory revierte las salidas de inventario de la factura.
func (uc *Operator) Delete(ctx context.Context, companyID, userID string, req DeleteRequest) (*Outcome, error) {
	if err := checkSize(len(req.IDs), uc.limits.MaxDelete, "delete"); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	out := newOutcome()
	for _, id := range req.IDs {
		err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
			inv, err := r.Invoices.GetForUpdate(ctx, companyID, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
			}
			return uc.cancelInTx(ctx, r, inv, req.Reason, req.ReverseInventory)
		})
		uc.collect(out, id, err)
	}
	uc.audit(ctx, companyID, userID, entity.BulkOperationDelete, len(req.IDs), out)
	return out, nil
}

func (uc *Operator) cancelInTx(ctx context.Context, r repository.Repositories, inv *entity.Invoice, reason string, reverse bool) error {
	if inv.IsCancelled() {
		return domain.ErrAlreadyCancelled
	}
	paid, err := r.Payments.CountByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	if paid > 0 {
		return domain.ErrInvoiceHasPayments
	}
	inv.Status = entity.InvoiceStatusCancelled
	inv.CancelReason = reason
	inv.UpdatedAt = uc.now()
	if err := r.Invoices.Update(ctx, inv); err != nil {
		return fmt.Errorf("anular factura: %w", err)
	}
	if !reverse {
		return nil
	}
	_, err = uc.ledger.ReverseInTx(ctx, r, inv.CompanyID, entity.ReferenceInvoice, inv.ID)
	return err
}

func (uc *Operator) collect(out *Outcome, id string, err error) {
	if err != nil {
		out.Failed = append(out.Failed, RowFailure{InvoiceID: id, Code: code(err), Reason: err.Error()})
		return
	}
	out.Successful = append(out.Successful, RowSuccess{InvoiceID: id})
}

// audit registra la fila de auditoría del lote. Su falla no cambia el resultado ya aplicado.
func (uc *Operator) audit(ctx context.Context, companyID, userID, op string, total int, out *Outcome) {
	entry := &entity.BulkOperationLog{
		CompanyID: companyID,
		UserID:    userID,
		Operation: op,
		Total:     total,
		Succeeded: len(out.Successful),
		Failed:    len(out.Failed),
		CreatedAt: uc.now(),
	}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		return r.BulkLogs.Create(ctx, entry)
	})
	if err != nil {
		uc.log.Error().Err(err).Str("company_id", companyID).Str("operation", op).Msg("no se pudo registrar la auditoría masiva")
	}
	uc.metrics.ObserveBulkRows(op, entry.Succeeded, entry.Failed)
	uc.log.Info().Str("company_id", companyID).Str("operation", op).Int("total", total).
		Int("succeeded", entry.Succeeded).Int("failed", entry.Failed).Msg("operación masiva")
}

// code clasifica el error de fila para el cliente.
func code(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvoiceHasPayments):
		return "has_payments"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrReferential):
		return "referential"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	}
	return "persistence"
}
