// Package ingestion procesa eventos de la tienda externa (webhooks) y expone las mismas
// operaciones por registro para las sincronizaciones por lotes.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// Acciones del resultado.
const (
	ActionCreated   = "created"
	ActionDuplicate = "duplicate"
	ActionCancelled = "cancelled"
	ActionNoop      = "noop"
	ActionUpserted  = "upserted"
	ActionAdjusted  = "adjusted"
)

// Request webhook crudo: el cuerpo se necesita sin parsear para verificar la firma.
type Request struct {
	Body      []byte
	Signature string
}

// Result resultado de procesar un evento o registro.
type Result struct {
	Action         string   `json:"action"`
	EventID        string   `json:"event_id,omitempty"`
	InvoiceID      string   `json:"invoice_id,omitempty"`
	DocumentNumber string   `json:"document_number,omitempty"`
	CustomerID     string   `json:"customer_id,omitempty"`
	ItemID         string   `json:"item_id,omitempty"`
	Movements      int      `json:"movements,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Pipeline orquesta resolver, consecutivo y ledger por evento.
type Pipeline struct {
	tx           repository.TxRunner
	integrations repository.IntegrationRepository
	events       repository.WebhookEventRepository
	allocator    *sequence.Allocator
	ledger       *ledger.Ledger
	resolver     *resolver.Resolver
	notifier     ports.Notifier
	locker       ports.Locker
	log          *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewPipeline construye el pipeline. notifier puede ser nil (sin notificación) y locker nil usa ports.NopLocker.
func NewPipeline(
	tx repository.TxRunner,
	integrations repository.IntegrationRepository,
	events repository.WebhookEventRepository,
	allocator *sequence.Allocator,
	ledgerUC *ledger.Ledger,
	res *resolver.Resolver,
	notifier ports.Notifier,
	locker ports.Locker,
	log *logger.Logger,
	m *metrics.Metrics,
) *Pipeline {
	if locker == nil {
		locker = ports.NopLocker{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		tx:           tx,
		integrations: integrations,
		events:       events,
		allocator:    allocator,
		ledger:       ledgerUC,
		resolver:     res,
		notifier:     notifier,
		locker:       locker,
		log:          log.Named("ingestion"),
		metrics:      m,
		now:          time.Now,
	}
}

// Handle registra, verifica y procesa un webhook. Todo evento queda en la bitácora, incluso el que
// no valida o no tiene integración activa; en ese caso queda failed con el motivo.
// Errores: domain.ErrInvalidInput, domain.ErrNotFound (integración), domain.ErrInvalidSignature.
func (uc *Pipeline) Handle(ctx context.Context, req Request) (*Result, error) {
	event := &entity.WebhookEvent{
		Status:        entity.EventStatusReceived,
		PayloadDigest: Digest(req.Body),
		ReceivedAt:    uc.now(),
	}
	if json.Valid(req.Body) {
		event.Payload = json.RawMessage(req.Body)
	}

	env, in, rejected := uc.admit(ctx, req.Body)
	event.CompanyID = env.CompanyID
	event.EventType = env.EventType
	if in != nil {
		event.IntegrationID = in.ID
		event.ExternalID = externalID(env.EventType, env.Data)
		event.SignatureVerified = in.RequiresSignature() && VerifySignature(in.WebhookSecret, req.Body, req.Signature)
	}
	if err := uc.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("registrar evento: %w", err)
	}
	log := uc.log.WithCompany(env.CompanyID)

	if rejected != nil {
		uc.finish(ctx, event, nil, rejected)
		log.Warn().Err(rejected).Str("event_id", event.ID).Str("event_type", env.EventType).Msg("webhook rechazado")
		return nil, rejected
	}
	if in.RequiresSignature() && !event.SignatureVerified {
		uc.finish(ctx, event, nil, domain.ErrInvalidSignature)
		log.Warn().Str("event_id", event.ID).Str("event_type", env.EventType).Msg("webhook con firma inválida")
		return nil, domain.ErrInvalidSignature
	}

	if err := event.Start(); err != nil {
		return nil, err
	}
	if err := uc.events.UpdateStatus(ctx, event); err != nil {
		return nil, fmt.Errorf("actualizar evento: %w", err)
	}

	res, err := uc.dispatch(ctx, in, env, event.PayloadDigest)
	uc.finish(ctx, event, res, err)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Str("event_type", env.EventType).Msg("evento fallido")
		return nil, err
	}
	res.EventID = event.ID
	log.Info().Str("event_id", event.ID).Str("event_type", env.EventType).Str("action", res.Action).
		Int("warnings", len(res.Warnings)).Msg("evento procesado")
	return res, nil
}

// admit parsea y valida el sobre y busca la integración. El sobre se devuelve aunque falle
// (lo que se haya podido leer) para que el evento quede registrado con lo que trae.
func (uc *Pipeline) admit(ctx context.Context, body []byte) (Envelope, *entity.Integration, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, nil, fmt.Errorf("%w: cuerpo JSON inválido", domain.ErrInvalidInput)
	}
	if err := validation.Struct(env); err != nil {
		return env, nil, err
	}
	in, err := uc.Integration(ctx, env.CompanyID)
	if err != nil {
		return env, nil, err
	}
	return env, in, nil
}

// Integration integración activa de la empresa o domain.ErrNotFound.
func (uc *Pipeline) Integration(ctx context.Context, companyID string) (*entity.Integration, error) {
	in, err := uc.integrations.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("consultar integración: %w", err)
	}
	if in == nil || !in.IsActive {
		return nil, fmt.Errorf("%w: integración de la empresa %s no existe o está inactiva", domain.ErrNotFound, companyID)
	}
	return in, nil
}

// finish deja el evento en su estado final. La bitácora no debe tapar el error del procesamiento.
func (uc *Pipeline) finish(ctx context.Context, event *entity.WebhookEvent, res *Result, procErr error) {
	now := uc.now()
	var err error
	if procErr != nil {
		err = event.Fail(procErr.Error(), now)
	} else {
		out, _ := json.Marshal(res)
		err = event.Complete(out, now)
	}
	if err == nil {
		err = uc.events.UpdateStatus(ctx, event)
	}
	if err != nil {
		uc.log.Error().Err(err).Str("event_id", event.ID).Msg("no se pudo cerrar el evento")
	}
	uc.metrics.ObserveWebhook(event.EventType, event.Status)
}

// dispatch enruta por tipo de evento. digest identifica la entrega para los ajustes relativos de stock.
func (uc *Pipeline) dispatch(ctx context.Context, in *entity.Integration, env Envelope, digest string) (*Result, error) {
	switch env.EventType {
	case EventOrderCreated, EventOrderConfirmed:
		o, err := DecodeOrder(env.Data)
		if err != nil {
			return nil, err
		}
		return uc.ProcessOrder(ctx, in, o, entity.InvoiceSourceWebhook)
	case EventOrderCancelled:
		o, err := DecodeOrder(env.Data)
		if err != nil {
			return nil, err
		}
		if o.ID == "" {
			return nil, fmt.Errorf("%w: order.id requerido", domain.ErrInvalidInput)
		}
		return uc.CancelOrder(ctx, in.CompanyID, string(o.ID), "anulado en la tienda")
	case EventCustomerCreated, EventCustomerUpdated:
		c, err := DecodeCustomer(env.Data)
		if err != nil {
			return nil, err
		}
		return uc.UpsertCustomer(ctx, in.CompanyID, c)
	case EventProductCreated, EventProductUpdated:
		p, err := DecodeProduct(env.Data)
		if err != nil {
			return nil, err
		}
		return uc.UpsertProduct(ctx, in.CompanyID, p)
	case EventInventoryUpdated, EventStockUpdated:
		s, err := DecodeStockChange(env.Data)
		if err != nil {
			return nil, err
		}
		s.Key = digest
		return uc.ApplyStockChange(ctx, in.CompanyID, s)
	}
	return nil, fmt.Errorf("%w: tipo de evento %q no soportado", domain.ErrInvalidInput, env.EventType)
}

// lock serializa el trabajo sobre un pedido entre réplicas. Si el lock no está disponible se
// continúa: el índice único de facturas activas sigue garantizando una sola factura.
func (uc *Pipeline) lock(ctx context.Context, companyID, orderID string) func() {
	unlock, err := uc.locker.Lock(ctx, "order:"+companyID+":"+orderID)
	if err != nil {
		uc.log.Warn().Err(err).Str("company_id", companyID).Str("order_id", orderID).Msg("sin lock de pedido; se continúa")
		return func() {}
	}
	return unlock
}

// ProcessOrder crea la factura del pedido: cliente, número, cabecera, líneas y salidas de
// inventario en una sola transacción. Si ya existe una factura activa para el pedido devuelve
// esa factura con acción duplicate. Las líneas sin producto o sin stock quedan como advertencias.
func (uc *Pipeline) ProcessOrder(ctx context.Context, in *entity.Integration, o *Order, source string) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	companyID := in.CompanyID
	orderID := string(o.ID)
	defer uc.lock(ctx, companyID, orderID)()

	var res *Result
	var inv *entity.Invoice
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		existing, err := r.Invoices.GetActiveByExternalOrder(ctx, companyID, orderID)
		if err != nil {
			return fmt.Errorf("consultar factura del pedido: %w", err)
		}
		if existing != nil {
			res = duplicateResult(existing)
			return nil
		}
		res, inv, err = uc.createInvoice(ctx, r, companyID, o, source)
		return err
	})
	if errors.Is(err, domain.ErrActiveInvoiceExists) {
		// Otra entrega del mismo pedido ganó la carrera; devolver la factura ganadora.
		return uc.existing(ctx, companyID, orderID)
	}
	if err != nil {
		return nil, err
	}
	if inv != nil {
		uc.notify(ctx, in, inv, res.Warnings)
	}
	return res, nil
}

func duplicateResult(inv *entity.Invoice) *Result {
	return &Result{Action: ActionDuplicate, InvoiceID: inv.ID, DocumentNumber: inv.DocumentNumber, CustomerID: inv.CustomerID}
}

func (uc *Pipeline) existing(ctx context.Context, companyID, orderID string) (*Result, error) {
	var res *Result
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		inv, err := r.Invoices.GetActiveByExternalOrder(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("%w: factura del pedido %s", domain.ErrNotFound, orderID)
		}
		res = duplicateResult(inv)
		return nil
	})
	return res, err
}

func (uc *Pipeline) createInvoice(ctx context.Context, r repository.Repositories, companyID string, o *Order, source string) (*Result, *entity.Invoice, error) {
	res := &Result{Action: ActionCreated}
	customer, _, err := uc.resolver.ResolveCustomer(ctx, r, companyID, o.Customer.external())
	if err != nil {
		return nil, nil, err
	}
	alloc, err := uc.allocator.AllocateInTx(ctx, r, companyID, entity.DocumentTypeInvoice)
	if err != nil {
		return nil, nil, err
	}

	hundred := decimal.NewFromInt(100)
	lines := make([]*entity.InvoiceItem, len(o.Items))
	subtotal, tax := decimal.Zero, decimal.Zero
	for i, l := range o.Items {
		amount := l.Quantity.Mul(l.Price)
		lineTax := amount.Mul(l.TaxRate).Div(hundred).Round(2)
		lines[i] = &entity.InvoiceItem{
			SKU:         l.SKU,
			Description: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Price,
			TaxRate:     l.TaxRate,
			TaxAmount:   lineTax,
			Amount:      amount,
		}
		subtotal = subtotal.Add(amount)
		tax = tax.Add(lineTax)
	}
	// Los totales de la tienda mandan cuando vienen informados.
	if o.Subtotal.IsPositive() {
		subtotal = o.Subtotal
	}
	total := subtotal.Add(tax)
	if o.TotalAmount.IsPositive() {
		total = o.TotalAmount
	}

	now := uc.now()
	inv := &entity.Invoice{
		CompanyID:           companyID,
		CustomerID:          customer.ID,
		DocumentType:        alloc.DocumentType,
		FinancialYear:       alloc.FinancialYear,
		DocumentNumber:      alloc.Number,
		InvoiceDate:         now,
		Subtotal:            subtotal,
		TaxTotal:            total.Sub(subtotal),
		Total:               total,
		Status:              entity.InvoiceStatusConfirmed,
		PaymentStatus:       o.paymentStatus(),
		ExternalOrderID:     string(o.ID),
		ExternalOrderNumber: string(o.OrderNumber),
		Source:              source,
		Notes:               o.Note,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.Invoices.Create(ctx, inv); err != nil {
		return nil, nil, fmt.Errorf("crear factura: %w", err)
	}

	ref := ledger.Reference{Type: entity.ReferenceInvoice, ID: inv.ID, Number: inv.DocumentNumber}
	for i, l := range o.Items {
		line := lines[i]
		line.InvoiceID = inv.ID
		item, _, err := uc.resolver.ResolveItem(ctx, r, companyID, string(l.ProductID), l.SKU)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			res.warn("línea %d (%s): producto sin correspondencia, no se descuenta inventario", i+1, lineLabel(l))
		case err != nil:
			return nil, nil, err
		default:
			line.ItemID = item.ID
			if line.SKU == "" {
				line.SKU = item.SKU
			}
			if line.Description == "" {
				line.Description = item.Name
			}
		}
		if err := r.Invoices.CreateItem(ctx, line); err != nil {
			return nil, nil, fmt.Errorf("crear línea %d: %w", i+1, err)
		}
		if item == nil || !item.TrackInventory {
			continue
		}
		_, err = uc.ledger.ApplyInTx(ctx, r, ledger.ApplyCommand{
			CompanyID: companyID,
			ItemID:    item.ID,
			Delta:     l.Quantity.Neg(),
			Type:      entity.MovementTypeOut,
			Reference: ref,
			Note:      "pedido " + string(o.OrderNumber),
			Date:      now,
		})
		if ledger.IsInsufficientStock(err) {
			res.warn("línea %d (%s): %v", i+1, lineLabel(l), err)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		res.Movements++
	}

	res.InvoiceID = inv.ID
	res.DocumentNumber = inv.DocumentNumber
	res.CustomerID = customer.ID
	return res, inv, nil
}

func lineLabel(l OrderLine) string {
	if l.SKU != "" {
		return l.SKU
	}
	if l.ProductID != "" {
		return string(l.ProductID)
	}
	return l.Name
}

// notify informa la factura a la tienda. Es best-effort: la falla solo se registra.
func (uc *Pipeline) notify(ctx context.Context, in *entity.Integration, inv *entity.Invoice, warnings []string) {
	if uc.notifier == nil {
		return
	}
	err := uc.notifier.NotifyInvoice(ctx, in, ports.InvoiceNotification{
		ExternalOrderID: inv.ExternalOrderID,
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.DocumentNumber,
		InvoiceAmount:   inv.Total,
		InvoiceStatus:   inv.Status,
		InvoiceDate:     inv.InvoiceDate,
		Warnings:        warnings,
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("company_id", inv.CompanyID).Str("invoice_id", inv.ID).
			Str("order_id", inv.ExternalOrderID).Msg("no se pudo notificar la factura a la tienda")
	}
}

// CancelOrder anula la factura activa del pedido y revierte sus movimientos de inventario.
// Sin factura activa es un no-op exitoso.
func (uc *Pipeline) CancelOrder(ctx context.Context, companyID, orderID, reason string) (*Result, error) {
	defer uc.lock(ctx, companyID, orderID)()

	res := &Result{Action: ActionNoop}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		found, err := r.Invoices.GetActiveByExternalOrder(ctx, companyID, orderID)
		if err != nil {
			return fmt.Errorf("consultar factura del pedido: %w", err)
		}
		if found == nil {
			return nil
		}
		inv, err := r.Invoices.GetForUpdate(ctx, companyID, found.ID)
		if err != nil {
			return fmt.Errorf("bloquear factura: %w", err)
		}
		if inv == nil || inv.IsCancelled() {
			return nil
		}
		inv.Status = entity.InvoiceStatusCancelled
		inv.CancelReason = reason
		inv.UpdatedAt = uc.now()
		if err := r.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("anular factura: %w", err)
		}
		movs, err := uc.ledger.ReverseInTx(ctx, r, companyID, entity.ReferenceInvoice, inv.ID)
		if err != nil {
			return err
		}
		res = &Result{
			Action:         ActionCancelled,
			InvoiceID:      inv.ID,
			DocumentNumber: inv.DocumentNumber,
			CustomerID:     inv.CustomerID,
			Movements:      len(movs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpsertCustomer crea o actualiza el cliente del evento.
func (uc *Pipeline) UpsertCustomer(ctx context.Context, companyID string, c *Customer) (*Result, error) {
	if c.ID == "" && c.Email == "" {
		return nil, fmt.Errorf("%w: el cliente no trae id ni email", domain.ErrInvalidInput)
	}
	res := &Result{Action: ActionUpserted}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		cust, outcome, err := uc.resolver.UpsertCustomer(ctx, r, companyID, c.external())
		if err != nil {
			return err
		}
		if outcome == resolver.Created {
			res.Action = ActionCreated
		}
		res.CustomerID = cust.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpsertProduct crea o actualiza los datos descriptivos del ítem; el stock no cambia.
func (uc *Pipeline) UpsertProduct(ctx context.Context, companyID string, p *Product) (*Result, error) {
	res := &Result{Action: ActionUpserted}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		item, outcome, err := uc.resolver.UpsertItem(ctx, r, companyID, p.external())
		if err != nil {
			return err
		}
		if outcome == resolver.Created {
			res.Action = ActionCreated
		}
		res.ItemID = item.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyStockChange registra un ajuste por la diferencia entre el stock viejo y el nuevo que reporta
// la tienda. Sin stock viejo se ajusta contra el stock actual. Nunca sobrescribe el stock directamente.
// Con stock viejo el ajuste es relativo: la entrega (s.Key) se registra como referencia del movimiento
// y una segunda entrega con la misma Key devuelve duplicate sin mover stock.
func (uc *Pipeline) ApplyStockChange(ctx context.Context, companyID string, s *StockChange) (*Result, error) {
	res := &Result{Action: ActionNoop}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		found, _, err := uc.resolver.ResolveItem(ctx, r, companyID, string(s.ProductID), s.SKU)
		if err != nil {
			return err
		}
		item, err := r.Items.GetForUpdate(ctx, companyID, found.ID)
		if err != nil {
			return fmt.Errorf("bloquear ítem: %w", err)
		}
		res.ItemID = item.ID
		base := item.CurrentStock
		refID := string(s.ProductID)
		if refID == "" {
			refID = s.SKU
		}
		if s.OldStock != nil {
			base = *s.OldStock
			if s.Key != "" {
				refID = s.Key
				// El lock del ítem serializa entregas concurrentes de la misma Key.
				prior, err := r.Movements.ListByReference(ctx, companyID, entity.ReferenceStockSync, refID)
				if err != nil {
					return fmt.Errorf("consultar ajustes previos: %w", err)
				}
				if len(prior) > 0 {
					res.Action = ActionDuplicate
					return nil
				}
			}
		}
		delta := s.NewStock.Sub(base)
		if delta.IsZero() {
			return nil
		}
		_, err = uc.ledger.ApplyInTx(ctx, r, ledger.ApplyCommand{
			CompanyID: companyID,
			ItemID:    item.ID,
			Delta:     delta,
			Type:      entity.MovementTypeAdjustment,
			Reference: ledger.Reference{Type: entity.ReferenceStockSync, ID: refID},
			Note:      fmt.Sprintf("stock reportado por la tienda: %s", s.NewStock.String()),
		})
		if ledger.IsInsufficientStock(err) {
			res.warn("%s: %v", item.SKU, err)
			return nil
		}
		if err != nil {
			return err
		}
		res.Action = ActionAdjusted
		res.Movements = 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
