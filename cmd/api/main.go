package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/Integraciones-api/docs"
	"github.com/jhoicas/Integraciones-api/internal/application/batchsync"
	"github.com/jhoicas/Integraciones-api/internal/application/billing"
	"github.com/jhoicas/Integraciones-api/internal/application/bulk"
	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/commerce"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/gpubsub"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/lock"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/memory"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Integraciones-api/internal/interfaces/http"
	"github.com/jhoicas/Integraciones-api/pkg/config"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// stores repositorios que no participan de las transacciones de negocio.
type stores struct {
	tx           repository.TxRunner
	repos        repository.Repositories
	integrations repository.IntegrationRepository
	events       repository.WebhookEventRepository
	runs         repository.SyncRunRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	m := metrics.New("integraciones")

	var st stores
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		st = stores{
			tx:           postgres.NewTxRunner(pool),
			repos:        postgres.Repositories(pool),
			integrations: postgres.NewIntegrationRepository(pool),
			events:       postgres.NewWebhookEventRepository(pool),
			runs:         postgres.NewSyncRunRepository(pool),
		}
	} else {
		log.Warn().Msg("sin DATABASE_URL ni DB_HOST: se usa el almacén en memoria")
		mem := memory.NewStore()
		st = stores{
			tx:           mem,
			repos:        mem.Repositories(),
			integrations: mem.Integrations(),
			events:       mem.WebhookEvents(),
			runs:         mem.SyncRuns(),
		}
	}

	// Bloqueo entre instancias; sin Redis la base de datos sigue siendo el árbitro final.
	var locker ports.Locker = ports.NopLocker{}
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible; bloqueo distribuido desactivado")
		} else {
			defer rdb.Close()
			locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, log)
		}
	}

	commerceClient := commerce.New(commerce.Config{
		Timeout:           cfg.Notifier.Timeout,
		MaxFailures:       uint32(cfg.Notifier.MaxFailures),
		OpenTimeout:       cfg.Notifier.OpenTimeout,
		RequestsPerSecond: cfg.Sync.RequestsPerSecond,
		PageSize:          cfg.Sync.PageSize,
		MaxResponseBytes:  int64(cfg.Sync.MaxResponseMB) << 20,
	}, log, m)

	allocator := sequence.NewAllocator(st.tx, log, m)
	ledgerUC := ledger.New(st.tx, log, m)
	pipeline := ingestion.NewPipeline(
		st.tx, st.integrations, st.events,
		allocator, ledgerUC, resolver.New(log),
		commerceClient, locker, log, m,
	)

	// Corridas detached: Pub/Sub si hay proyecto configurado, goroutines locales si no.
	var dispatcher ports.SyncDispatcher
	if cfg.PubSub.ProjectID != "" {
		client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID, cfg.PubSub.CredentialsJSON)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente Pub/Sub")
		}
		defer client.Close()
		d, err := gpubsub.NewDispatcher(ctx, client, cfg.PubSub.TopicID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("tópico Pub/Sub")
		}
		defer d.Stop()
		dispatcher = d
	}
	orchestrator := batchsync.NewOrchestrator(
		st.runs, st.integrations, commerceClient, pipeline, dispatcher,
		batchsync.Config{SummaryLimit: cfg.Sync.SummaryLimit, RunTimeout: cfg.Sync.RunTimeout},
		log, m,
	)

	bulkOp := bulk.NewOperator(st.tx, allocator, ledgerUC, bulk.Limits{
		MaxCreate: cfg.Bulk.MaxCreate,
		MaxUpdate: cfg.Bulk.MaxUpdate,
		MaxDelete: cfg.Bulk.MaxDelete,
	}, log, m)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Integraciones API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Pipeline:      pipeline,
		WebhookEvents: st.events,
		Sync:          orchestrator,
		Bulk:          bulkOp,
		Allocator:     allocator,
		InvoiceUC:     billing.NewInvoiceUseCase(st.repos.Invoices, st.repos.Customers),
		IntegrationUC: billing.NewIntegrationUseCase(st.integrations),
		Metrics:       m,
		Log:           log,
		JWTSecret:     cfg.JWT.Secret,
		PushToken:     cfg.PubSub.PushToken,
		RunTimeout:    cfg.Sync.RunTimeout,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
