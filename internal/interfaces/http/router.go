package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/Integraciones-api/internal/application/batchsync"
	"github.com/jhoicas/Integraciones-api/internal/application/billing"
	"github.com/jhoicas/Integraciones-api/internal/application/bulk"
	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Pipeline      *ingestion.Pipeline
	WebhookEvents repository.WebhookEventRepository
	Sync          *batchsync.Orchestrator
	Bulk          *bulk.Operator
	Allocator     *sequence.Allocator
	InvoiceUC     *billing.InvoiceUseCase
	IntegrationUC *billing.IntegrationUseCase
	Metrics       *metrics.Metrics
	Log           *logger.Logger
	JWTSecret     string
	PushToken     string
	RunTimeout    time.Duration
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(requestid.New())
	if deps.Log != nil {
		app.Use(RequestLogger(deps.Log))
	}
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")
	webhookHandler := NewWebhookHandler(deps.Pipeline, deps.WebhookEvents)
	syncHandler := NewSyncHandler(deps.Sync, deps.PushToken, deps.RunTimeout, deps.Log)

	// Públicos: autenticados por firma HMAC o token de la suscripción push
	api.Post("/webhooks/commerce", webhookHandler.Receive)
	api.Post("/internal/pubsub/sync", syncHandler.Push)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(RoleAdmin)

	protected.Get("/webhooks/events", adminOnly, webhookHandler.Events)

	sync := protected.Group("/sync", adminOnly)
	sync.Post("/", syncHandler.Trigger)
	sync.Get("/", syncHandler.Status)
	sync.Post("/:id/retry", syncHandler.Retry)

	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.IntegrationUC)
	integrations := protected.Group("/integrations", adminOnly)
	integrations.Post("/", invoiceHandler.SaveIntegration)
	integrations.Get("/", invoiceHandler.GetIntegration)

	sequenceHandler := NewSequenceHandler(deps.Allocator)
	settings := protected.Group("/settings/sequences", adminOnly)
	settings.Get("/", sequenceHandler.List)
	settings.Post("/", sequenceHandler.Save)

	// Invoices: las rutas /bulk se registran antes que /:id
	invoices := protected.Group("/invoices")
	bulkHandler := NewBulkHandler(deps.Bulk)
	writers := RequireRole(RoleAdmin, RoleSeller)
	invoices.Post("/bulk", writers, bulkHandler.Create)
	invoices.Put("/bulk", writers, bulkHandler.Update)
	invoices.Delete("/bulk", writers, bulkHandler.Delete)
	invoices.Get("/:id", invoiceHandler.GetByID)
}
