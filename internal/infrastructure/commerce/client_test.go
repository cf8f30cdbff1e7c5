package commerce_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/commerce"
	"github.com/jhoicas/Integraciones-api/pkg/resilience"
)

func newClient() *commerce.Client {
	return commerce.New(commerce.Config{
		Timeout:           2 * time.Second,
		MaxFailures:       2,
		OpenTimeout:       time.Minute,
		RequestsPerSecond: 100,
		PageSize:          2,
	}, nil, nil)
}

func TestNotifyInvoice_EnviaPUT(t *testing.T) {
	var got map[string]any
	var token, path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		token = r.Header.Get("X-Shopify-Access-Token")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	in := &entity.Integration{ID: "I1", Platform: entity.PlatformShopify, BaseURL: srv.URL, AccessToken: "tok"}
	err := newClient().NotifyInvoice(context.Background(), in, ports.InvoiceNotification{
		ExternalOrderID: "EXT-1", InvoiceID: "F1", InvoiceNumber: "INV-0001",
		InvoiceAmount: decimal.NewFromInt(118), InvoiceStatus: entity.InvoiceStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/orders/EXT-1/invoice", path)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "INV-0001", got["invoice_number"])
	assert.Equal(t, "F1", got["invoice_id"])
}

func TestNotifyInvoice_FallaAbreCircuito(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient()
	in := &entity.Integration{ID: "I1", Platform: entity.PlatformGeneric, BaseURL: srv.URL}
	n := ports.InvoiceNotification{ExternalOrderID: "EXT-1"}
	for i := 0; i < 2; i++ {
		err := c.NotifyInvoice(context.Background(), in, n)
		assert.ErrorIs(t, err, domain.ErrExternalNotify)
	}
	err := c.NotifyInvoice(context.Background(), in, n)
	assert.ErrorIs(t, err, domain.ErrExternalNotify)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "con el circuito abierto no se llama a la tienda")
}

func TestNotifyInvoice_SinURL(t *testing.T) {
	err := newClient().NotifyInvoice(context.Background(), &entity.Integration{ID: "I1"}, ports.InvoiceNotification{})
	assert.ErrorIs(t, err, domain.ErrExternalNotify)
}

func TestFetchPage_FormatosDeRespuesta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/products":
			assert.Equal(t, "2", r.URL.Query().Get("per_page"))
			assert.Equal(t, "2024-05-01T00:00:00Z", r.URL.Query().Get("updated_at_min"))
			_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
		case "/customers":
			_, _ = w.Write([]byte(`{"customers":[{"id":"9"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient()
	in := &entity.Integration{ID: "I1", BaseURL: srv.URL, AccessToken: "tok"}
	since := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	recs, more, err := c.FetchPage(context.Background(), in, entity.SyncTypeProducts, &since, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.True(t, more, "página llena indica que puede haber más")

	recs, more, err = c.FetchPage(context.Background(), in, entity.SyncTypeCustomers, nil, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.False(t, more)
	assert.JSONEq(t, `{"id":"9"}`, string(recs[0]))

	_, _, err = c.FetchPage(context.Background(), in, "facturas", nil, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = c.FetchPage(context.Background(), in, entity.SyncTypeOrders, nil, 1)
	assert.Error(t, err)
}

func TestFetchPage_RespuestaDemasiadoGrande(t *testing.T) {
	page := `[{"id":"1","name":"` + strings.Repeat("x", 200) + `"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()
	in := &entity.Integration{ID: "I1", BaseURL: srv.URL}

	c := commerce.New(commerce.Config{RequestsPerSecond: 100, MaxResponseBytes: 64}, nil, nil)
	_, _, err := c.FetchPage(context.Background(), in, entity.SyncTypeProducts, nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "más de 64 bytes")

	c = commerce.New(commerce.Config{RequestsPerSecond: 100, MaxResponseBytes: int64(len(page))}, nil, nil)
	recs, _, err := c.FetchPage(context.Background(), in, entity.SyncTypeProducts, nil, 1)
	require.NoError(t, err, "una página exactamente en el tope se acepta")
	assert.Len(t, recs, 1)
}
