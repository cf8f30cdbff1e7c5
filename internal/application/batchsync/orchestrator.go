// Package batchsync corre sincronizaciones por lotes contra la tienda externa: la petición crea la
// corrida y devuelve su id; el trabajo sigue fuera de la petición y el estado se consulta después.
package batchsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// Config límites de las corridas.
type Config struct {
	SummaryLimit int           // líneas de resumen guardadas por corrida
	RunTimeout   time.Duration // duración máxima de una corrida despachada en goroutine
	MaxPages     int           // 0 = sin límite
}

// TriggerRequest solicitud de sincronización.
type TriggerRequest struct {
	CompanyID string `json:"company_id" validate:"required"`
	SyncType  string `json:"sync_type" validate:"required,oneof=products customers orders inventory"`
	Manual    bool   `json:"manual"`
	// Full ignora el cursor de la última corrida completada.
	Full bool `json:"full"`
}

// Orchestrator casos de uso de sincronización por lotes.
type Orchestrator struct {
	runs         repository.SyncRunRepository
	integrations repository.IntegrationRepository
	source       ports.CommerceSource
	pipeline     *ingestion.Pipeline
	dispatcher   ports.SyncDispatcher
	cfg          Config
	log          *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewOrchestrator construye el orquestador. Sin dispatcher las corridas se ejecutan en una goroutine.
func NewOrchestrator(
	runs repository.SyncRunRepository,
	integrations repository.IntegrationRepository,
	source ports.CommerceSource,
	pipeline *ingestion.Pipeline,
	dispatcher ports.SyncDispatcher,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = entity.DefaultSummaryLimit
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	o := &Orchestrator{
		runs:         runs,
		integrations: integrations,
		source:       source,
		pipeline:     pipeline,
		cfg:          cfg,
		log:          log.Named("batchsync"),
		metrics:      m,
		now:          time.Now,
	}
	if dispatcher == nil {
		dispatcher = &GoroutineDispatcher{o: o}
	}
	o.dispatcher = dispatcher
	return o
}

// Trigger crea la corrida en estado running y la despacha. Devuelve domain.ErrConflict si ya hay
// una corrida del mismo tipo en curso para la empresa.
func (o *Orchestrator) Trigger(ctx context.Context, req TriggerRequest) (*entity.SyncRun, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := o.integration(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	running, err := o.runs.GetRunning(ctx, req.CompanyID, req.SyncType)
	if err != nil {
		return nil, fmt.Errorf("consultar corridas en curso: %w", err)
	}
	if running != nil {
		return nil, fmt.Errorf("%w: la sincronización %s ya está en curso (%s)", domain.ErrConflict, req.SyncType, running.ID)
	}

	run := &entity.SyncRun{
		CompanyID: req.CompanyID,
		SyncType:  req.SyncType,
		Manual:    req.Manual,
		Status:    entity.SyncStatusRunning,
		StartedAt: o.now(),
	}
	if !req.Full {
		last, err := o.runs.LastCompleted(ctx, req.CompanyID, req.SyncType)
		if err != nil {
			return nil, fmt.Errorf("consultar última corrida: %w", err)
		}
		if last != nil {
			since := last.StartedAt
			run.Since = &since
		}
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("crear corrida: %w", err)
	}

	if err := o.dispatcher.Dispatch(ctx, run); err != nil {
		o.close(ctx, run, fmt.Errorf("no se pudo despachar la corrida: %w", err))
		return nil, err
	}
	o.log.Info().Str("company_id", run.CompanyID).Str("sync_id", run.ID).Str("sync_type", run.SyncType).
		Bool("manual", run.Manual).Msg("sincronización iniciada")
	return run, nil
}

// Retry vuelve a lanzar una corrida fallida con el mismo tipo.
func (o *Orchestrator) Retry(ctx context.Context, companyID, runID string) (*entity.SyncRun, error) {
	prev, err := o.Get(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	if prev.Status != entity.SyncStatusFailed {
		return nil, fmt.Errorf("%w: solo se reintentan corridas fallidas (estado %s)", domain.ErrConflict, prev.Status)
	}
	return o.Trigger(ctx, TriggerRequest{CompanyID: companyID, SyncType: prev.SyncType, Manual: true})
}

// Get corrida de la empresa o domain.ErrNotFound.
func (o *Orchestrator) Get(ctx context.Context, companyID, runID string) (*entity.SyncRun, error) {
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("consultar corrida: %w", err)
	}
	if run == nil || run.CompanyID != companyID {
		return nil, fmt.Errorf("%w: corrida %s", domain.ErrNotFound, runID)
	}
	return run, nil
}

// List corridas recientes de la empresa, la más nueva primero.
func (o *Orchestrator) List(ctx context.Context, companyID string, limit int) ([]*entity.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return o.runs.ListByCompany(ctx, companyID, limit)
}

// Execute procesa la corrida página por página. Cada registro se procesa por separado: su falla se
// cuenta y se resume sin detener la corrida. La corrida se cierra una sola vez; si ya estaba
// cerrada o la tiene otro ejecutor (reentrega del mensaje) no hace nada. El lease del ejecutor
// dura RunTimeout; vencido, otra entrega puede retomar la corrida.
func (o *Orchestrator) Execute(ctx context.Context, runID string) error {
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("consultar corrida: %w", err)
	}
	if run == nil {
		return fmt.Errorf("%w: corrida %s", domain.ErrNotFound, runID)
	}
	if run.IsTerminal() {
		o.log.Debug().Str("sync_id", runID).Msg("corrida ya cerrada; se ignora")
		return nil
	}
	now := o.now()
	claimed, err := o.runs.Claim(ctx, runID, now, now.Add(-o.cfg.RunTimeout))
	if err != nil {
		return fmt.Errorf("reclamar corrida: %w", err)
	}
	if !claimed {
		o.log.Debug().Str("sync_id", runID).Msg("corrida en manos de otro ejecutor; se ignora")
		return nil
	}
	run.ClaimedAt = &now
	log := o.log.WithCompany(run.CompanyID)

	in, err := o.integration(ctx, run.CompanyID)
	if err != nil {
		o.close(ctx, run, err)
		return err
	}

	for page := 1; o.cfg.MaxPages == 0 || page <= o.cfg.MaxPages; page++ {
		records, more, err := o.source.FetchPage(ctx, in, run.SyncType, run.Since, page)
		if err != nil {
			err = fmt.Errorf("leer página %d: %w", page, err)
			o.close(ctx, run, err)
			return err
		}
		for _, raw := range records {
			if err := ctx.Err(); err != nil {
				o.close(ctx, run, fmt.Errorf("corrida interrumpida: %w", err))
				return err
			}
			line, err := o.process(ctx, in, run.SyncType, raw)
			if err != nil {
				run.RecordFailure(line+": "+err.Error(), o.cfg.SummaryLimit)
				o.metrics.ObserveSyncRecord(run.SyncType, false)
				log.Warn().Err(err).Str("sync_id", run.ID).Str("record", line).Msg("registro fallido")
				continue
			}
			run.RecordSuccess(line, o.cfg.SummaryLimit)
			o.metrics.ObserveSyncRecord(run.SyncType, true)
		}
		if !more {
			break
		}
	}

	o.close(ctx, run, nil)
	if err := o.integrations.TouchLastSync(context.WithoutCancel(ctx), in.ID, *run.FinishedAt); err != nil {
		log.Warn().Err(err).Msg("no se pudo actualizar last_sync_at")
	}
	return nil
}

// close cierra la corrida como completada (cause nil) o fallida y la persiste.
func (o *Orchestrator) close(ctx context.Context, run *entity.SyncRun, cause error) {
	now := o.now()
	var err error
	if cause != nil {
		err = run.Fail(cause.Error(), now)
	} else {
		err = run.Complete(now)
	}
	if err == nil {
		// El cierre se persiste aunque el contexto de la corrida haya expirado.
		err = o.runs.Finish(context.WithoutCancel(ctx), run)
	}
	if err != nil {
		o.log.Error().Err(err).Str("sync_id", run.ID).Msg("no se pudo cerrar la corrida")
		return
	}
	o.metrics.ObserveSyncRun(run.SyncType, run.Status)
	o.log.Info().Str("company_id", run.CompanyID).Str("sync_id", run.ID).Str("status", run.Status).
		Int("processed", run.Processed).Int("failed", run.Failed).Int64("duration_ms", run.DurationMs).
		Msg("sincronización finalizada")
}

func (o *Orchestrator) integration(ctx context.Context, companyID string) (*entity.Integration, error) {
	in, err := o.integrations.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("consultar integración: %w", err)
	}
	if in == nil || !in.IsActive {
		return nil, fmt.Errorf("%w: integración de la empresa %s no existe o está inactiva", domain.ErrNotFound, companyID)
	}
	return in, nil
}

// process aplica un registro externo con la misma lógica que el webhook equivalente.
// Un panic en el registro se convierte en error para no abortar la corrida.
func (o *Orchestrator) process(ctx context.Context, in *entity.Integration, syncType string, raw json.RawMessage) (line string, err error) {
	line = recordLabel(syncType, raw)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic procesando registro: %v", r)
		}
	}()

	var res *ingestion.Result
	switch syncType {
	case entity.SyncTypeOrders:
		var order *ingestion.Order
		if order, err = ingestion.DecodeOrder(raw); err != nil {
			return line, err
		}
		if order.IsCancelled() {
			res, err = o.pipeline.CancelOrder(ctx, in.CompanyID, string(order.ID), "anulado en la tienda")
		} else {
			res, err = o.pipeline.ProcessOrder(ctx, in, order, entity.InvoiceSourceSync)
		}
	case entity.SyncTypeCustomers:
		var c *ingestion.Customer
		if c, err = ingestion.DecodeCustomer(raw); err != nil {
			return line, err
		}
		res, err = o.pipeline.UpsertCustomer(ctx, in.CompanyID, c)
	case entity.SyncTypeProducts:
		var p *ingestion.Product
		if p, err = ingestion.DecodeProduct(raw); err != nil {
			return line, err
		}
		res, err = o.pipeline.UpsertProduct(ctx, in.CompanyID, p)
	case entity.SyncTypeInventory:
		var s *ingestion.StockChange
		if s, err = ingestion.DecodeStockChange(raw); err != nil {
			return line, err
		}
		s.Key = ingestion.Digest(raw)
		res, err = o.pipeline.ApplyStockChange(ctx, in.CompanyID, s)
	default:
		return line, fmt.Errorf("%w: tipo de sincronización %q", domain.ErrInvalidInput, syncType)
	}
	if err != nil {
		return line, err
	}
	return describe(line, res), nil
}

func describe(line string, res *ingestion.Result) string {
	out := line + ": " + res.Action
	if res.DocumentNumber != "" {
		out += " " + res.DocumentNumber
	}
	if n := len(res.Warnings); n > 0 {
		out += fmt.Sprintf(" (%d advertencias)", n)
	}
	return out
}

var labels = map[string]string{
	entity.SyncTypeOrders:    "pedido",
	entity.SyncTypeCustomers: "cliente",
	entity.SyncTypeProducts:  "producto",
	entity.SyncTypeInventory: "inventario",
}

func recordLabel(syncType string, raw json.RawMessage) string {
	var ref struct {
		ID        ingestion.ID `json:"id"`
		ProductID ingestion.ID `json:"product_id"`
		SKU       string       `json:"sku"`
	}
	_ = json.Unmarshal(raw, &ref)
	id := string(ref.ID)
	if id == "" {
		id = string(ref.ProductID)
	}
	if id == "" {
		id = ref.SKU
	}
	if id == "" {
		id = "?"
	}
	return labels[syncType] + " " + id
}

// GoroutineDispatcher ejecuta la corrida en una goroutine desligada de la petición, con su propio
// timeout.
type GoroutineDispatcher struct {
	o *Orchestrator
}

// Dispatch implementa ports.SyncDispatcher.
func (d *GoroutineDispatcher) Dispatch(_ context.Context, run *entity.SyncRun) error {
	if d.o == nil {
		return errors.New("dispatcher sin orquestador")
	}
	runID := run.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.o.cfg.RunTimeout)
		defer cancel()
		if err := d.o.Execute(ctx, runID); err != nil {
			d.o.log.Error().Err(err).Str("sync_id", runID).Msg("corrida fallida")
		}
	}()
	return nil
}
