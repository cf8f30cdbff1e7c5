package batchsync_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/internal/application/batchsync"
	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/memory"
)

// fakeSource sirve páginas fijas por tipo de sincronización. Con release, cada página espera a que
// el test la libere y avisa en entered.
type fakeSource struct {
	mu      sync.Mutex
	pages   map[string][][]string
	failAt  int
	since   []*time.Time
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) FetchPage(_ context.Context, _ *entity.Integration, syncType string, since *time.Time, page int) ([]json.RawMessage, bool, error) {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	if f.failAt > 0 && page == f.failAt {
		return nil, false, errors.New("HTTP 503")
	}
	pages := f.pages[syncType]
	if page > len(pages) {
		return nil, false, nil
	}
	out := make([]json.RawMessage, len(pages[page-1]))
	for i, r := range pages[page-1] {
		out[i] = json.RawMessage(r)
	}
	return out, page < len(pages), nil
}

// captureDispatcher guarda las corridas; el test las ejecuta cuando quiere.
type captureDispatcher struct {
	runs []*entity.SyncRun
	err  error
}

func (d *captureDispatcher) Dispatch(_ context.Context, run *entity.SyncRun) error {
	d.runs = append(d.runs, run)
	return d.err
}

type fixture struct {
	store  *memory.Store
	source *fakeSource
	disp   *captureDispatcher
	orch   *batchsync.Orchestrator
}

func newFixture(t *testing.T, cfg batchsync.Config, withDispatcher bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Integrations().Upsert(context.Background(), &entity.Integration{
		CompanyID: "C1", Platform: entity.PlatformGeneric, BaseURL: "http://tienda.local", IsActive: true,
	}))
	pipeline := ingestion.NewPipeline(store, store.Integrations(), store.WebhookEvents(),
		sequence.NewAllocator(store, nil, nil), ledger.New(store, nil, nil), resolver.New(nil),
		nil, nil, nil, nil)
	f := &fixture{store: store, source: &fakeSource{pages: map[string][][]string{}}, disp: &captureDispatcher{}}
	var disp ports.SyncDispatcher
	if withDispatcher {
		disp = f.disp
	}
	f.orch = batchsync.NewOrchestrator(store.SyncRuns(), store.Integrations(), f.source, pipeline, disp, cfg, nil, nil)
	return f
}

func (f *fixture) trigger(t *testing.T, syncType string) *entity.SyncRun {
	t.Helper()
	run, err := f.orch.Trigger(context.Background(), batchsync.TriggerRequest{CompanyID: "C1", SyncType: syncType, Manual: true})
	require.NoError(t, err)
	assert.Equal(t, entity.SyncStatusRunning, run.Status)
	return run
}

func TestTrigger_Validaciones(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()

	_, err := f.orch.Trigger(ctx, batchsync.TriggerRequest{CompanyID: "C1", SyncType: "facturas"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orch.Trigger(ctx, batchsync.TriggerRequest{CompanyID: "C9", SyncType: entity.SyncTypeOrders})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.trigger(t, entity.SyncTypeOrders)
	_, err = f.orch.Trigger(ctx, batchsync.TriggerRequest{CompanyID: "C1", SyncType: entity.SyncTypeOrders})
	assert.ErrorIs(t, err, domain.ErrConflict, "una sola corrida en curso por tipo")

	f.trigger(t, entity.SyncTypeProducts)
}

func TestTrigger_FallaDeDespachoCierraLaCorrida(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	f.disp.err = errors.New("pubsub no disponible")

	_, err := f.orch.Trigger(context.Background(), batchsync.TriggerRequest{CompanyID: "C1", SyncType: entity.SyncTypeOrders})
	require.Error(t, err)

	runs, err := f.orch.List(context.Background(), "C1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entity.SyncStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "pubsub no disponible")
}

func TestExecute_PedidosConFallasPorRegistro(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	a1 := &entity.Item{CompanyID: "C1", SKU: "A1", CurrentStock: decimal.NewFromInt(10), TrackInventory: true}
	require.NoError(t, f.store.Repositories().Items.Create(ctx, a1))

	f.source.pages[entity.SyncTypeOrders] = [][]string{{
		`{"id":"EXT-1","order_number":"O-1","items":[{"sku":"A1","quantity":2,"price":50}]}`,
		`{"id":"EXT-1","order_number":"O-1","items":[{"sku":"A1","quantity":2,"price":50}]}`,
		`{"id":"EXT-2","items":[{"sku":"A1","quantity":0,"price":50}]}`,
		`"no-es-un-pedido"`,
	}}
	run := f.trigger(t, entity.SyncTypeOrders)
	require.NoError(t, f.orch.Execute(ctx, run.ID))

	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncStatusCompleted, got.Status)
	assert.Equal(t, 4, got.Processed)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	require.Len(t, got.Summary, 4)
	assert.Equal(t, "pedido EXT-1: created INV-0001", got.Summary[0])
	assert.Equal(t, "pedido EXT-1: duplicate INV-0001", got.Summary[1])
	assert.Contains(t, got.Summary[2], "pedido EXT-2")
	assert.NotNil(t, got.FinishedAt)
	assert.Equal(t, 1, f.store.CountActiveInvoices("C1"))

	inv, err := f.store.Repositories().Invoices.GetActiveByExternalOrder(ctx, "C1", "EXT-1")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceSourceSync, inv.Source)

	in, err := f.store.Integrations().GetByCompany(ctx, "C1")
	require.NoError(t, err)
	assert.NotNil(t, in.LastSyncAt)

	// Reentrega del mensaje de la corrida ya cerrada.
	require.NoError(t, f.orch.Execute(ctx, run.ID))
	again, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Processed)
}

func TestExecute_ReentregaConcurrenteNoEjecutaDosVeces(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	f.source.pages[entity.SyncTypeCustomers] = [][]string{{`{"id":1,"email":"a@x.co"}`, `{"id":2,"email":"b@x.co"}`}}
	f.source.entered = make(chan struct{}, 4)
	f.source.release = make(chan struct{})
	run := f.trigger(t, entity.SyncTypeCustomers)

	done := make(chan error, 1)
	go func() { done <- f.orch.Execute(ctx, run.ID) }()
	<-f.source.entered

	// Segunda entrega del mismo mensaje mientras la primera sigue leyendo.
	require.NoError(t, f.orch.Execute(ctx, run.ID))
	assert.Empty(t, f.source.entered, "la segunda entrega no llega a leer la tienda")

	close(f.source.release)
	require.NoError(t, <-done)

	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Processed)
	assert.Equal(t, 2, got.Succeeded)
	require.NotNil(t, got.ClaimedAt)
}

func TestExecute_CorridaReclamadaSeIgnora(t *testing.T) {
	f := newFixture(t, batchsync.Config{RunTimeout: time.Hour}, true)
	ctx := context.Background()
	f.source.pages[entity.SyncTypeOrders] = [][]string{{`{"id":"EXT-1","items":[{"sku":"X","quantity":1,"price":5}]}`}}
	run := f.trigger(t, entity.SyncTypeOrders)

	now := time.Now()
	ok, err := f.store.SyncRuns().Claim(ctx, run.ID, now, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.orch.Execute(ctx, run.ID), "la reentrega se confirma sin ejecutar")
	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncStatusRunning, got.Status)
	assert.Equal(t, 0, got.Processed)
	assert.Empty(t, f.source.since)
	assert.Equal(t, 0, f.store.CountActiveInvoices("C1"))
}

func TestExecute_InventarioRelativoNoSeDuplicaEntreCorridas(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	a1 := &entity.Item{CompanyID: "C1", SKU: "A1", CurrentStock: decimal.NewFromInt(10), TrackInventory: true}
	require.NoError(t, f.store.Repositories().Items.Create(ctx, a1))
	f.source.pages[entity.SyncTypeInventory] = [][]string{{`{"sku":"A1","old_stock":10,"new_stock":7}`}}

	for i := 0; i < 2; i++ {
		run := f.trigger(t, entity.SyncTypeInventory)
		require.NoError(t, f.orch.Execute(ctx, run.ID))
	}

	it, err := f.store.Repositories().Items.GetByID(ctx, "C1", a1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), it.CurrentStock.IntPart())
	runs, err := f.orch.List(ctx, "C1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventario A1: duplicate"}, runs[0].Summary)
}

func TestExecute_PedidoAnuladoEnLaTienda(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	f.source.pages[entity.SyncTypeOrders] = [][]string{
		{`{"id":"EXT-1","items":[{"sku":"X","quantity":1,"price":5}]}`},
	}
	run := f.trigger(t, entity.SyncTypeOrders)
	require.NoError(t, f.orch.Execute(ctx, run.ID))

	f.source.pages[entity.SyncTypeOrders] = [][]string{
		{`{"id":"EXT-1","status":"cancelled","items":[{"sku":"X","quantity":1,"price":5}]}`},
	}
	run = f.trigger(t, entity.SyncTypeOrders)
	require.NoError(t, f.orch.Execute(ctx, run.ID))

	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pedido EXT-1: cancelled INV-0001"}, got.Summary)
	assert.Equal(t, 0, f.store.CountActiveInvoices("C1"))
}

func TestExecute_PaginasYCursor(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	f.source.pages[entity.SyncTypeProducts] = [][]string{
		{`{"id":"P1","sku":"A1","name":"Uno"}`, `{"id":"P2","sku":"A2","name":"Dos"}`},
		{`{"id":"P3","sku":"A3","name":"Tres"}`},
	}
	first := f.trigger(t, entity.SyncTypeProducts)
	require.NoError(t, f.orch.Execute(ctx, first.ID))

	got, err := f.orch.Get(ctx, "C1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Succeeded)
	assert.Nil(t, f.source.since[0], "la primera corrida es completa")

	it, err := f.store.Repositories().Items.GetByExternalID(ctx, "C1", "P3")
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.True(t, it.CurrentStock.IsZero())

	second := f.trigger(t, entity.SyncTypeProducts)
	require.NotNil(t, second.Since)
	assert.True(t, second.Since.Equal(first.StartedAt))
	require.NoError(t, f.orch.Execute(ctx, second.ID))
	last := f.source.since[len(f.source.since)-1]
	require.NotNil(t, last)
	assert.True(t, last.Equal(first.StartedAt))
}

func TestExecute_FallaDeLaTiendaCierraComoFallida(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	ctx := context.Background()
	f.source.pages[entity.SyncTypeCustomers] = [][]string{
		{`{"id":1,"email":"a@x.co"}`},
		{`{"id":2,"email":"b@x.co"}`},
	}
	f.source.failAt = 2
	run := f.trigger(t, entity.SyncTypeCustomers)
	require.Error(t, f.orch.Execute(ctx, run.ID))

	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncStatusFailed, got.Status)
	assert.Contains(t, got.Error, "HTTP 503")
	assert.Equal(t, 1, got.Succeeded, "lo procesado antes de la falla se conserva")

	retry, err := f.orch.Retry(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, retry.ID)
	assert.Equal(t, entity.SyncTypeCustomers, retry.SyncType)

	f.source.failAt = 0
	require.NoError(t, f.orch.Execute(ctx, retry.ID))
	_, err = f.orch.Retry(ctx, "C1", retry.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestExecute_ResumenAcotado(t *testing.T) {
	f := newFixture(t, batchsync.Config{SummaryLimit: 2}, true)
	ctx := context.Background()
	var page []string
	for i := 1; i <= 5; i++ {
		page = append(page, fmt.Sprintf(`{"id":%d,"email":"c%d@x.co"}`, i, i))
	}
	f.source.pages[entity.SyncTypeCustomers] = [][]string{page}
	run := f.trigger(t, entity.SyncTypeCustomers)
	require.NoError(t, f.orch.Execute(ctx, run.ID))

	got, err := f.orch.Get(ctx, "C1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Processed)
	require.Len(t, got.Summary, 3)
	assert.Equal(t, "... 3 líneas omitidas", got.Summary[2])
}

func TestGet_OtraEmpresa(t *testing.T) {
	f := newFixture(t, batchsync.Config{}, true)
	run := f.trigger(t, entity.SyncTypeOrders)
	_, err := f.orch.Get(context.Background(), "C2", run.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGoroutineDispatcher_EjecutaFueraDeLaPeticion(t *testing.T) {
	f := newFixture(t, batchsync.Config{RunTimeout: 5 * time.Second}, false)
	f.source.pages[entity.SyncTypeCustomers] = [][]string{{`{"id":1,"email":"a@x.co"}`}}

	run := f.trigger(t, entity.SyncTypeCustomers)
	require.Eventually(t, func() bool {
		got, err := f.orch.Get(context.Background(), "C1", run.ID)
		return err == nil && got.Status == entity.SyncStatusCompleted
	}, 3*time.Second, 10*time.Millisecond)
}
