package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/internal/application/batchsync"
	"github.com/jhoicas/Integraciones-api/internal/application/billing"
	"github.com/jhoicas/Integraciones-api/internal/application/bulk"
	"github.com/jhoicas/Integraciones-api/internal/application/ingestion"
	"github.com/jhoicas/Integraciones-api/internal/application/ledger"
	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/application/sequence"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Integraciones-api/internal/interfaces/http"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
)

type emptySource struct{}

func (emptySource) FetchPage(context.Context, *entity.Integration, string, *time.Time, int) ([]json.RawMessage, bool, error) {
	return nil, false, nil
}

type heldDispatcher struct {
	mu   sync.Mutex
	runs []string
}

func (d *heldDispatcher) Dispatch(_ context.Context, run *entity.SyncRun) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs = append(d.runs, run.ID)
	return nil
}

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
	disp  *heldDispatcher
}

func newAPI(t *testing.T, secret string) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Integrations().Upsert(context.Background(), &entity.Integration{
		CompanyID: testCompanyID, Platform: entity.PlatformGeneric, BaseURL: "http://tienda.local",
		WebhookSecret: secret, IsActive: true,
	}))
	m := metrics.New("test")
	alloc := sequence.NewAllocator(store, nil, m)
	led := ledger.New(store, nil, m)
	pipe := ingestion.NewPipeline(store, store.Integrations(), store.WebhookEvents(), alloc, led, resolver.New(nil), nil, nil, nil, m)
	disp := &heldDispatcher{}
	orch := batchsync.NewOrchestrator(store.SyncRuns(), store.Integrations(), emptySource{}, pipe, disp, batchsync.Config{}, nil, m)
	repos := store.Repositories()

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Pipeline:      pipe,
		WebhookEvents: store.WebhookEvents(),
		Sync:          orch,
		Bulk:          bulk.NewOperator(store, alloc, led, bulk.DefaultLimits(), nil, m),
		Allocator:     alloc,
		InvoiceUC:     billing.NewInvoiceUseCase(repos.Invoices, repos.Customers),
		IntegrationUC: billing.NewIntegrationUseCase(store.Integrations()),
		Metrics:       m,
		JWTSecret:     testJWTSecret,
		PushToken:     "push-token",
	})
	return &apiFixture{app: app, store: store, disp: disp}
}

func (f *apiFixture) do(t *testing.T, method, path, role string, body []byte, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

const webhookOrder = `{"company_id":"` + testCompanyID + `","event_type":"order.created","data":{"order":{"id":"EXT-1","order_number":"O-100","items":[{"sku":"A1","quantity":2,"price":50}],"subtotal":100,"total_amount":118}}}`

func TestWebhook_CreaFacturaYRepeticionEsIdempotente(t *testing.T) {
	f := newAPI(t, "")
	ctx := context.Background()
	item := &entity.Item{CompanyID: testCompanyID, SKU: "A1", Name: "A1", CurrentStock: decimal.NewFromInt(10),
		AvailableStock: decimal.NewFromInt(10), TrackInventory: true}
	require.NoError(t, f.store.Repositories().Items.Create(ctx, item))

	resp, body := f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(webhookOrder), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var env struct {
		Success bool             `json:"success"`
		Data    ingestion.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.True(t, env.Success)
	assert.Equal(t, ingestion.ActionCreated, env.Data.Action)
	assert.Equal(t, "INV-0001", env.Data.DocumentNumber)

	resp, body = f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(webhookOrder), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again struct {
		Data ingestion.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, ingestion.ActionDuplicate, again.Data.Action)
	assert.Equal(t, env.Data.InvoiceID, again.Data.InvoiceID)
	assert.Equal(t, 1, f.store.CountActiveInvoices(testCompanyID))

	resp, body = f.do(t, http.MethodGet, "/api/invoices/"+env.Data.InvoiceID, "vendedor", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"document_number":"INV-0001"`)

	resp, body = f.do(t, http.MethodGet, "/api/webhooks/events?limit=5", "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Len(t, events, 2)
}

func TestWebhook_Errores(t *testing.T) {
	f := newAPI(t, "s3cr3t")

	resp, body := f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(webhookOrder), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"success":false`)

	sig := ingestion.Sign("s3cr3t", []byte(webhookOrder))
	resp, _ = f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(webhookOrder), map[string]string{"X-Shopify-Hmac-Sha256": sig})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "firma válida en cabecera alternativa")

	other := `{"company_id":"otra","event_type":"order.created","data":{}}`
	resp, _ = f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(other), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/webhooks/commerce", "", []byte(`{"event_type":`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSync_DispararConsultarYEjecutarPorPush(t *testing.T) {
	f := newAPI(t, "")

	resp, body := f.do(t, http.MethodPost, "/api/sync", "admin", []byte(`{"sync_type":"products","manual":true}`), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var trig struct {
		Success bool   `json:"success"`
		SyncID  string `json:"sync_id"`
	}
	require.NoError(t, json.Unmarshal(body, &trig))
	require.NotEmpty(t, trig.SyncID)
	assert.Equal(t, []string{trig.SyncID}, f.disp.runs)

	resp, _ = f.do(t, http.MethodPost, "/api/sync", "admin", []byte(`{"sync_type":"products"}`), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/sync", "vendedor", []byte(`{"sync_type":"products"}`), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/sync", "admin", []byte(`{"company_id":"otra","sync_type":"orders"}`), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	data, err := json.Marshal(map[string]string{"run_id": trig.SyncID, "company_id": testCompanyID, "sync_type": "products"})
	require.NoError(t, err)
	push, err := json.Marshal(map[string]any{"message": map[string]string{"data": base64.StdEncoding.EncodeToString(data), "messageId": "1"}})
	require.NoError(t, err)

	resp, _ = f.do(t, http.MethodPost, "/api/internal/pubsub/sync?token=otro", "", push, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/internal/pubsub/sync?token=push-token", "", push, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/sync?sync_id="+trig.SyncID, "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run map[string]any
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, entity.SyncStatusCompleted, run["status"])

	resp, body = f.do(t, http.MethodGet, "/api/sync", "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(body, &runs))
	assert.Len(t, runs, 1)

	resp, _ = f.do(t, http.MethodPost, "/api/sync/"+trig.SyncID+"/retry", "admin", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "solo se reintentan corridas fallidas")
}

func TestBulk_ExitoParcialResponde207(t *testing.T) {
	f := newAPI(t, "")
	ctx := context.Background()
	repos := f.store.Repositories()
	c := &entity.Customer{CompanyID: testCompanyID, Name: "Ana"}
	require.NoError(t, repos.Customers.Create(ctx, c))
	it := &entity.Item{CompanyID: testCompanyID, SKU: "A1", Name: "A1", Price: decimal.NewFromInt(10)}
	require.NoError(t, repos.Items.Create(ctx, it))

	row := func(customerID string) map[string]any {
		return map[string]any{"customer_id": customerID, "items": []map[string]any{{"item_id": it.ID, "quantity": 1}}}
	}
	body, err := json.Marshal(map[string]any{"invoices": []any{row(c.ID), row("no-existe")}})
	require.NoError(t, err)

	resp, out := f.do(t, http.MethodPost, "/api/invoices/bulk", "bodeguero", body, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out = f.do(t, http.MethodPost, "/api/invoices/bulk", "vendedor", body, nil)
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode, string(out))
	var outcome bulk.Outcome
	require.NoError(t, json.Unmarshal(out, &outcome))
	require.Len(t, outcome.Successful, 1)
	require.Len(t, outcome.Failed, 1)

	del, err := json.Marshal(map[string]any{"ids": []string{outcome.Successful[0].InvoiceID}, "reason": "prueba"})
	require.NoError(t, err)
	resp, out = f.do(t, http.MethodDelete, "/api/invoices/bulk", "admin", del, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(out))

	resp, _ = f.do(t, http.MethodPost, "/api/invoices/bulk", "admin", []byte(`{"invoices":[{"items":[]}]}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegraciones_SecretosEnmascarados(t *testing.T) {
	f := newAPI(t, "s3cr3t-key")
	resp, body := f.do(t, http.MethodGet, "/api/integrations", "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "s3cr3t-key")
	assert.Contains(t, string(body), "-key")

	resp, body = f.do(t, http.MethodPost, "/api/integrations", "admin", []byte(`{"platform":"shopify","base_url":"no es url"}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}

func TestSecuencias_GuardarYListar(t *testing.T) {
	f := newAPI(t, "")
	resp, body := f.do(t, http.MethodPost, "/api/settings/sequences", "admin",
		[]byte(`[{"document_type":"invoice","prefix":"FV-","padding":6}]`), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"next_number":"FV-000001"`)

	resp, body = f.do(t, http.MethodGet, "/api/settings/sequences", "admin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"prefix":"FV-"`)
}

func TestMetrics_Expuestas(t *testing.T) {
	f := newAPI(t, "")
	resp, _ := f.do(t, http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
