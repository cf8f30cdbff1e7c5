package sequence

import (
	"context"
	"fmt"

	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

// Setting configuración de un consecutivo.
type Setting struct {
	DocumentType   string `json:"document_type" validate:"required,oneof=invoice credit_note quotation delivery_challan"`
	FinancialYear  string `json:"financial_year" validate:"omitempty,len=7"`
	Prefix         string `json:"prefix" validate:"max=20"`
	Suffix         string `json:"suffix" validate:"max=20"`
	Padding        int    `json:"padding" validate:"gte=0,lte=12"`
	ResetOnNewYear bool   `json:"reset_on_new_year"`
	// StartNumber opcional: solo puede adelantar el contador.
	StartNumber int64 `json:"start_number" validate:"gte=0"`
}

// Settings lista la configuración del año fiscal (el actual si fy está vacío). Los tipos sin
// fila todavía se devuelven con sus valores por defecto.
func (a *Allocator) Settings(ctx context.Context, companyID, fy string) ([]*entity.DocumentSequence, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id requerido", domain.ErrInvalidInput)
	}
	if fy == "" {
		fy = entity.FinancialYearOf(a.now())
	}
	var list []*entity.DocumentSequence
	err := a.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		list, err = r.Sequences.ListByYear(ctx, companyID, fy)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listar consecutivos: %w", err)
	}
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s.DocumentType] = true
	}
	for _, docType := range []string{
		entity.DocumentTypeInvoice, entity.DocumentTypeCreditNote,
		entity.DocumentTypeQuotation, entity.DocumentTypeDeliveryChallan,
	} {
		if !seen[docType] {
			list = append(list, entity.DefaultSequence(companyID, docType, fy))
		}
	}
	return list, nil
}

// SaveSettings guarda varias configuraciones en una transacción. No modifica números ya emitidos:
// current_number solo puede crecer.
func (a *Allocator) SaveSettings(ctx context.Context, companyID string, settings []Setting) ([]*entity.DocumentSequence, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id requerido", domain.ErrInvalidInput)
	}
	if len(settings) == 0 {
		return nil, fmt.Errorf("%w: sin configuraciones", domain.ErrInvalidInput)
	}
	for i := range settings {
		if err := validation.Struct(settings[i]); err != nil {
			return nil, fmt.Errorf("configuración %d: %w", i, err)
		}
	}

	saved := make([]*entity.DocumentSequence, 0, len(settings))
	err := a.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		saved = saved[:0]
		for _, s := range settings {
			fy := s.FinancialYear
			if fy == "" {
				fy = entity.FinancialYearOf(a.now())
			}
			seq := &entity.DocumentSequence{
				CompanyID:      companyID,
				DocumentType:   s.DocumentType,
				FinancialYear:  fy,
				Prefix:         s.Prefix,
				Suffix:         s.Suffix,
				Padding:        s.Padding,
				ResetOnNewYear: s.ResetOnNewYear,
				CurrentNumber:  1,
			}
			if s.StartNumber > 0 {
				seq.CurrentNumber = s.StartNumber
			}
			if err := r.Sequences.Upsert(ctx, seq); err != nil {
				return fmt.Errorf("guardar consecutivo %s: %w", s.DocumentType, err)
			}
			saved = append(saved, seq)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("company_id", companyID).Int("count", len(saved)).Msg("configuración de consecutivos actualizada")
	return saved, nil
}
