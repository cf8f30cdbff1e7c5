package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Integraciones-api/internal/application/dto"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

// InvoiceUseCase consulta de facturas.
type InvoiceUseCase struct {
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(invoices repository.InvoiceRepository, customers repository.CustomerRepository) *InvoiceUseCase {
	return &InvoiceUseCase{invoices: invoices, customers: customers}
}

// GetInvoice devuelve la factura con sus líneas. ErrNotFound si no existe en la empresa.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	if companyID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	inv, err := uc.invoices.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	items, err := uc.invoices.GetItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	out := toInvoiceResponse(inv, items)
	if c, err := uc.customers.GetByID(ctx, companyID, inv.CustomerID); err == nil && c != nil {
		out.CustomerName = c.Name
	}
	return out, nil
}

func toInvoiceResponse(inv *entity.Invoice, items []*entity.InvoiceItem) *dto.InvoiceResponse {
	out := &dto.InvoiceResponse{
		ID:                  inv.ID,
		CompanyID:           inv.CompanyID,
		CustomerID:          inv.CustomerID,
		DocumentNumber:      inv.DocumentNumber,
		InvoiceDate:         inv.InvoiceDate,
		DueDate:             inv.DueDate,
		Subtotal:            inv.Subtotal,
		TaxTotal:            inv.TaxTotal,
		Total:               inv.Total,
		Status:              inv.Status,
		PaymentStatus:       inv.PaymentStatus,
		Source:              inv.Source,
		ExternalOrderID:     inv.ExternalOrderID,
		ExternalOrderNumber: inv.ExternalOrderNumber,
		Notes:               inv.Notes,
		Terms:               inv.Terms,
		CancelReason:        inv.CancelReason,
		Items:               make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.InvoiceItemResponse{
			ID:          it.ID,
			ItemID:      it.ItemID,
			SKU:         it.SKU,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			TaxAmount:   it.TaxAmount,
			Amount:      it.Amount,
		})
	}
	return out
}
