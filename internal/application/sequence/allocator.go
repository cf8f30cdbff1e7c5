// Package sequence emite números de documento consecutivos por empresa, tipo y año fiscal.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// Allocation número emitido.
type Allocation struct {
	Number        string // formateado: prefijo + número + sufijo
	Value         int64
	DocumentType  string
	FinancialYear string
}

// Allocator casos de uso del consecutivo de documentos.
type Allocator struct {
	tx      repository.TxRunner
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAllocator construye el asignador.
func NewAllocator(tx repository.TxRunner, log *logger.Logger, m *metrics.Metrics) *Allocator {
	if log == nil {
		log = logger.Nop()
	}
	return &Allocator{tx: tx, log: log.Named("sequence"), metrics: m, now: time.Now}
}

// WithClock reemplaza el reloj (tests y procesos de cierre de año).
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// Allocate emite el siguiente número en su propia transacción.
func (a *Allocator) Allocate(ctx context.Context, companyID, docType string) (*Allocation, error) {
	var out *Allocation
	err := a.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		out, err = a.AllocateInTx(ctx, r, companyID, docType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllocateInTx emite el siguiente número dentro de la transacción del llamador: si la
// transacción se revierte, el contador tampoco avanza.
func (a *Allocator) AllocateInTx(ctx context.Context, r repository.Repositories, companyID, docType string) (*Allocation, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company_id requerido", domain.ErrInvalidInput)
	}
	if !entity.IsDocumentType(docType) {
		return nil, fmt.Errorf("%w: tipo de documento %q no soportado", domain.ErrInvalidInput, docType)
	}
	fy := entity.FinancialYearOf(a.now())

	seq, n, err := r.Sequences.Next(ctx, companyID, docType, fy)
	if err != nil {
		return nil, fmt.Errorf("asignar consecutivo: %w", err)
	}
	if seq == nil {
		// Primer documento del año fiscal: crear la fila y volver a incrementar.
		seed, err := a.seed(ctx, r, companyID, docType, fy)
		if err != nil {
			return nil, err
		}
		if err := r.Sequences.CreateIfAbsent(ctx, seed); err != nil {
			return nil, fmt.Errorf("crear consecutivo: %w", err)
		}
		seq, n, err = r.Sequences.Next(ctx, companyID, docType, fy)
		if err != nil {
			return nil, fmt.Errorf("asignar consecutivo: %w", err)
		}
		if seq == nil {
			return nil, fmt.Errorf("%w: consecutivo %s/%s no disponible", domain.ErrPersistence, docType, fy)
		}
	}

	a.metrics.ObserveAllocation(docType)
	return &Allocation{
		Number:        seq.Format(n),
		Value:         n,
		DocumentType:  docType,
		FinancialYear: fy,
	}, nil
}

// seed configuración de la fila de un año fiscal nuevo: hereda prefijo/sufijo/relleno del año
// anterior y continúa la numeración si ese consecutivo no se reinicia.
func (a *Allocator) seed(ctx context.Context, r repository.Repositories, companyID, docType, fy string) (*entity.DocumentSequence, error) {
	seed := entity.DefaultSequence(companyID, docType, fy)
	prev, err := r.Sequences.Latest(ctx, companyID, docType)
	if err != nil {
		return nil, fmt.Errorf("consultar consecutivo anterior: %w", err)
	}
	if prev == nil {
		return seed, nil
	}
	seed.Prefix = prev.Prefix
	seed.Suffix = prev.Suffix
	seed.Padding = prev.Padding
	seed.ResetOnNewYear = prev.ResetOnNewYear
	if !prev.ResetOnNewYear {
		seed.CurrentNumber = prev.CurrentNumber
	}
	a.log.Info().Str("company_id", companyID).Str("document_type", docType).
		Str("financial_year", fy).Int64("start", seed.CurrentNumber).Msg("nuevo año fiscal para consecutivo")
	return seed, nil
}
