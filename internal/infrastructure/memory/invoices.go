package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

type invoiceRepo struct {
	s      *Store
	locked bool
}

func (r *invoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	return r.s.do(r.locked, func(st *state) error {
		if err := r.s.fault("invoices.create", inv.CustomerID); err != nil {
			return err
		}
		for _, other := range st.invoices {
			if other.CompanyID != inv.CompanyID {
				continue
			}
			if inv.ExternalOrderID != "" && other.ExternalOrderID == inv.ExternalOrderID && !other.IsCancelled() {
				return domain.ErrActiveInvoiceExists
			}
			if inv.DocumentNumber != "" && other.DocumentNumber == inv.DocumentNumber &&
				other.DocumentType == inv.DocumentType && other.FinancialYear == inv.FinancialYear {
				return fmt.Errorf("%w: número %s ya emitido en %s", domain.ErrConflict, inv.DocumentNumber, inv.FinancialYear)
			}
		}
		if inv.ID == "" {
			inv.ID = uuid.New().String()
		}
		st.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *invoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	return r.s.do(r.locked, func(st *state) error {
		if _, ok := st.invoices[item.InvoiceID]; !ok {
			return domain.ErrNotFound
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		st.invoiceItems[item.InvoiceID] = append(st.invoiceItems[item.InvoiceID], *item)
		return nil
	})
}

func (r *invoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	return r.s.do(r.locked, func(st *state) error {
		cur, ok := st.invoices[inv.ID]
		if !ok || cur.CompanyID != inv.CompanyID {
			return domain.ErrNotFound
		}
		if err := r.s.fault("invoices.update", inv.ID); err != nil {
			return err
		}
		cur.Status = inv.Status
		cur.PaymentStatus = inv.PaymentStatus
		cur.Notes = inv.Notes
		cur.Terms = inv.Terms
		cur.CancelReason = inv.CancelReason
		cur.UpdatedAt = inv.UpdatedAt
		st.invoices[inv.ID] = cur
		return nil
	})
}

func (r *invoiceRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.s.do(r.locked, func(st *state) error {
		if inv, ok := st.invoices[id]; ok && inv.CompanyID == companyID {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepo) GetForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *invoiceRepo) GetActiveByExternalOrder(ctx context.Context, companyID, externalOrderID string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.s.do(r.locked, func(st *state) error {
		for _, inv := range st.invoices {
			if inv.CompanyID == companyID && inv.ExternalOrderID == externalOrderID && !inv.IsCancelled() {
				found := inv
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	var out []*entity.InvoiceItem
	err := r.s.do(r.locked, func(st *state) error {
		for _, it := range st.invoiceItems[invoiceID] {
			found := it
			out = append(out, &found)
		}
		return nil
	})
	return out, err
}

// CountActiveInvoices cuenta facturas no anuladas de la empresa (útil en tests).
func (s *Store) CountActiveInvoices(companyID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, inv := range s.st.invoices {
		if inv.CompanyID == companyID && !inv.IsCancelled() {
			n++
		}
	}
	return n
}

type paymentRepo struct {
	s      *Store
	locked bool
}

func (r *paymentRepo) CountByInvoice(ctx context.Context, invoiceID string) (int, error) {
	var n int
	err := r.s.do(r.locked, func(st *state) error {
		for _, p := range st.payments {
			if p.InvoiceID == invoiceID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type bulkLogRepo struct {
	s      *Store
	locked bool
}

func (r *bulkLogRepo) Create(ctx context.Context, l *entity.BulkOperationLog) error {
	return r.s.do(r.locked, func(st *state) error {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		st.bulkLogs = append(st.bulkLogs, *l)
		return nil
	})
}
