package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Integraciones-api/pkg/config"
)

const migrationFile = "../../../migrations/0001_init.sql"

// RepositoryIntegrationSuite corre los adaptadores contra un PostgreSQL real con el esquema de
// migrations/. Cada test usa su propia empresa, así no hace falta limpiar tablas.
type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	tx        *postgres.TxRunner
}

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("tests de integración con PostgreSQL omitidos en modo -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(RepositoryIntegrationSuite))
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("integraciones"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.pool, err = postgres.NewPool(s.ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 30})
	s.Require().NoError(err)

	schema, err := os.ReadFile(migrationFile)
	s.Require().NoError(err)
	// Sin argumentos pgx usa el protocolo simple: el archivo completo va en un solo Exec.
	_, err = s.pool.Exec(s.ctx, string(schema))
	s.Require().NoError(err)

	s.tx = postgres.NewTxRunner(s.pool)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.ctx))
	}
}

func clockAt(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func (s *RepositoryIntegrationSuite) company() string {
	company := uuid.NewString()
	s.Require().NoError(postgres.NewIntegrationRepository(s.pool).Upsert(s.ctx, &entity.Integration{
		CompanyID: company, Platform: entity.PlatformGeneric, BaseURL: "http://tienda.local", IsActive: true,
	}))
	return company
}

func (s *RepositoryIntegrationSuite) item(company, sku string, stock int64) *entity.Item {
	it := &entity.Item{CompanyID: company, SKU: sku, Name: sku, CurrentStock: decimal.NewFromInt(stock),
		AvailableStock: decimal.NewFromInt(stock), TrackInventory: true}
	s.Require().NoError(postgres.NewItemRepository(s.pool).Create(s.ctx, it))
	return it
}

func (s *RepositoryIntegrationSuite) pipeline(allocator *sequence.Allocator) *ingestion.Pipeline {
	return ingestion.NewPipeline(s.tx, postgres.NewIntegrationRepository(s.pool), postgres.NewWebhookEventRepository(s.pool),
		allocator, ledger.New(s.tx, nil, nil), resolver.New(nil), nil, nil, nil, nil)
}

func (s *RepositoryIntegrationSuite) TestNextConcurrenteSinHuecosNiRepetidos() {
	company := uuid.NewString()
	allocator := sequence.NewAllocator(s.tx, nil, nil).WithClock(clockAt(2025, time.June, 1))

	first, err := allocator.Allocate(s.ctx, company, entity.DocumentTypeInvoice)
	s.Require().NoError(err)
	s.Equal("INV-0001", first.Number)

	const workers = 20
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := allocator.Allocate(s.ctx, company, entity.DocumentTypeInvoice)
			if s.NoError(err) {
				values <- a.Value
			}
		}()
	}
	wg.Wait()
	close(values)

	var got []int64
	for v := range values {
		got = append(got, v)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	s.Require().Len(got, workers)
	for i, v := range got {
		s.Equal(int64(i+2), v, "consecutivo sin huecos ni repetidos")
	}
}

func (s *RepositoryIntegrationSuite) TestNextRevertidoNoConsumeNumero() {
	company := uuid.NewString()
	allocator := sequence.NewAllocator(s.tx, nil, nil).WithClock(clockAt(2025, time.June, 1))

	_, err := allocator.Allocate(s.ctx, company, entity.DocumentTypeInvoice)
	s.Require().NoError(err)

	boom := fmt.Errorf("falla después de numerar")
	err = s.tx.WithinTx(s.ctx, func(ctx context.Context, r repository.Repositories) error {
		_, err := allocator.AllocateInTx(ctx, r, company, entity.DocumentTypeInvoice)
		s.Require().NoError(err)
		return boom
	})
	s.ErrorIs(err, boom)

	next, err := allocator.Allocate(s.ctx, company, entity.DocumentTypeInvoice)
	s.Require().NoError(err)
	s.Equal("INV-0002", next.Number)
}

func (s *RepositoryIntegrationSuite) TestFacturasUnicidadPorPedidoYNumeroPorAnio() {
	company := uuid.NewString()
	customer := &entity.Customer{CompanyID: company, Name: "Cliente"}
	s.Require().NoError(postgres.NewCustomerRepository(s.pool).Create(s.ctx, customer))
	invoices := postgres.NewInvoiceRepository(s.pool)
	invoice := func(orderID, number, fy string) *entity.Invoice {
		now := time.Now()
		return &entity.Invoice{
			CompanyID: company, CustomerID: customer.ID, DocumentType: entity.DocumentTypeInvoice,
			FinancialYear: fy, DocumentNumber: number, InvoiceDate: now, Status: entity.InvoiceStatusConfirmed,
			PaymentStatus: "unpaid", ExternalOrderID: orderID, Source: entity.InvoiceSourceWebhook,
			CreatedAt: now, UpdatedAt: now,
		}
	}

	first := invoice("EXT-1", "INV-0001", "2024-25")
	s.Require().NoError(invoices.Create(s.ctx, first))

	err := invoices.Create(s.ctx, invoice("EXT-1", "INV-0002", "2024-25"))
	s.ErrorIs(err, domain.ErrActiveInvoiceExists)
	s.ErrorIs(err, domain.ErrDuplicate)

	err = invoices.Create(s.ctx, invoice("EXT-2", "INV-0001", "2024-25"))
	s.ErrorIs(err, domain.ErrConflict)
	s.NotErrorIs(err, domain.ErrActiveInvoiceExists)

	s.NoError(invoices.Create(s.ctx, invoice("EXT-3", "INV-0001", "2025-26")), "el número reiniciado no choca entre años")

	first.Status = entity.InvoiceStatusCancelled
	s.Require().NoError(invoices.Update(s.ctx, first))
	s.NoError(invoices.Create(s.ctx, invoice("EXT-1", "INV-0002", "2024-25")), "un pedido anulado admite factura nueva")
}

func (s *RepositoryIntegrationSuite) TestProcessOrderConcurrenteUnaSolaFactura() {
	company := s.company()
	a1 := s.item(company, "A1", 10)
	in, err := postgres.NewIntegrationRepository(s.pool).GetByCompany(s.ctx, company)
	s.Require().NoError(err)
	p := s.pipeline(sequence.NewAllocator(s.tx, nil, nil).WithClock(clockAt(2025, time.June, 1)))

	order, err := ingestion.DecodeOrder([]byte(`{"order":{"id":"EXT-1","items":[{"sku":"A1","quantity":2,"price":50}]}}`))
	s.Require().NoError(err)

	const workers = 8
	results := make(chan *ingestion.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.ProcessOrder(s.ctx, in, order, entity.InvoiceSourceWebhook)
			if s.NoError(err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	created, invoiceIDs := 0, map[string]bool{}
	for res := range results {
		if res.Action == ingestion.ActionCreated {
			created++
		} else {
			s.Equal(ingestion.ActionDuplicate, res.Action)
		}
		invoiceIDs[res.InvoiceID] = true
	}
	s.Equal(1, created)
	s.Len(invoiceIDs, 1, "todas las entregas devuelven la misma factura")

	it, err := postgres.NewItemRepository(s.pool).GetByID(s.ctx, company, a1.ID)
	s.Require().NoError(err)
	s.True(it.CurrentStock.Equal(decimal.NewFromInt(8)), "el stock se descuenta una sola vez")

	next, err := ingestion.DecodeOrder([]byte(`{"order":{"id":"EXT-2","items":[{"sku":"A1","quantity":1,"price":50}]}}`))
	s.Require().NoError(err)
	res, err := p.ProcessOrder(s.ctx, in, next, entity.InvoiceSourceWebhook)
	s.Require().NoError(err)
	s.Equal("INV-0002", res.DocumentNumber, "los perdedores no dejan huecos")
}

func (s *RepositoryIntegrationSuite) TestCambioDeAnioFiscalReiniciaSinChocar() {
	company := s.company()
	in, err := postgres.NewIntegrationRepository(s.pool).GetByCompany(s.ctx, company)
	s.Require().NoError(err)
	clock := time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	allocator := sequence.NewAllocator(s.tx, nil, nil).WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	})
	p := s.pipeline(allocator)

	order := func(id string) *ingestion.Order {
		o, err := ingestion.DecodeOrder([]byte(fmt.Sprintf(`{"order":{"id":%q,"items":[{"sku":"X","quantity":1,"price":5}]}}`, id)))
		s.Require().NoError(err)
		return o
	}

	march, err := p.ProcessOrder(s.ctx, in, order("EXT-MAR"), entity.InvoiceSourceWebhook)
	s.Require().NoError(err)
	s.Equal(ingestion.ActionCreated, march.Action)
	s.Equal("INV-0001", march.DocumentNumber)

	mu.Lock()
	clock = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	mu.Unlock()
	april, err := p.ProcessOrder(s.ctx, in, order("EXT-ABR"), entity.InvoiceSourceWebhook)
	s.Require().NoError(err)
	s.Equal(ingestion.ActionCreated, april.Action)
	s.Equal("INV-0001", april.DocumentNumber)
	s.NotEqual(march.InvoiceID, april.InvoiceID)

	got, err := postgres.NewInvoiceRepository(s.pool).GetByID(s.ctx, company, april.InvoiceID)
	s.Require().NoError(err)
	s.Equal("2025-26", got.FinancialYear)
	s.Equal(entity.DocumentTypeInvoice, got.DocumentType)
}

func (s *RepositoryIntegrationSuite) TestAjusteRelativoReentregadoSeAplicaUnaVez() {
	company := s.company()
	a1 := s.item(company, "A1", 10)
	p := s.pipeline(sequence.NewAllocator(s.tx, nil, nil))
	old, next := decimal.NewFromInt(10), decimal.NewFromInt(7)
	change := func() *ingestion.StockChange {
		return &ingestion.StockChange{SKU: "A1", OldStock: &old, NewStock: &next, Key: "entrega-1"}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.ApplyStockChange(s.ctx, company, change())
			s.NoError(err)
		}()
	}
	wg.Wait()

	res, err := p.ApplyStockChange(s.ctx, company, change())
	s.Require().NoError(err)
	s.Equal(ingestion.ActionDuplicate, res.Action)

	it, err := postgres.NewItemRepository(s.pool).GetByID(s.ctx, company, a1.ID)
	s.Require().NoError(err)
	s.True(it.CurrentStock.Equal(decimal.NewFromInt(7)))
	movs, err := postgres.NewInventoryMovementRepository(s.pool).ListByReference(s.ctx, company, entity.ReferenceStockSync, "entrega-1")
	s.Require().NoError(err)
	s.Len(movs, 1)
}

func (s *RepositoryIntegrationSuite) TestClaimDeCorridaUnSoloGanador() {
	runs := postgres.NewSyncRunRepository(s.pool)
	now := time.Now().UTC()
	run := &entity.SyncRun{CompanyID: uuid.NewString(), SyncType: entity.SyncTypeOrders,
		Status: entity.SyncStatusRunning, StartedAt: now}
	s.Require().NoError(runs.Create(s.ctx, run))

	const workers = 10
	wins := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := runs.Claim(s.ctx, run.ID, now, now.Add(-15*time.Minute))
			if s.NoError(err) {
				wins <- ok
			}
		}()
	}
	wg.Wait()
	close(wins)
	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	s.Equal(1, won)

	later := now.Add(time.Hour)
	ok, err := runs.Claim(s.ctx, run.ID, later, later.Add(-15*time.Minute))
	s.Require().NoError(err)
	s.True(ok, "un lease vencido se retoma")

	got, err := runs.GetByID(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.ClaimedAt)
	s.WithinDuration(later, *got.ClaimedAt, time.Millisecond)
}

func (s *RepositoryIntegrationSuite) TestEventoRechazadoQuedaRegistrado() {
	p := s.pipeline(sequence.NewAllocator(s.tx, nil, nil))
	unknown := uuid.NewString()
	body := []byte(`{"company_id":"` + unknown + `","event_type":"order.created","data":{"order":{"id":"1"}}}`)

	_, err := p.Handle(s.ctx, ingestion.Request{Body: body})
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = p.Handle(s.ctx, ingestion.Request{Body: []byte("no-json")})
	s.ErrorIs(err, domain.ErrInvalidInput)

	events := postgres.NewWebhookEventRepository(s.pool)
	list, err := events.ListByCompany(s.ctx, unknown, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(entity.EventStatusFailed, list[0].Status)
	s.Equal(ingestion.Digest(body), list[0].PayloadDigest)

	anonymous, err := events.ListByCompany(s.ctx, "", 100)
	s.Require().NoError(err)
	found := false
	for _, e := range anonymous {
		if e.PayloadDigest == ingestion.Digest([]byte("no-json")) {
			found = true
			s.Equal(entity.EventStatusFailed, e.Status)
			s.Empty(e.Payload)
		}
	}
	s.True(found, "el cuerpo inválido también queda en la bitácora")
}
