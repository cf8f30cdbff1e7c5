// Package commerce cliente HTTP hacia la tienda externa: notificación de facturas y lectura
// paginada para las sincronizaciones.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
	"github.com/jhoicas/Integraciones-api/pkg/metrics"
	"github.com/jhoicas/Integraciones-api/pkg/resilience"
)

// Config parámetros del cliente.
type Config struct {
	Timeout           time.Duration
	MaxFailures       uint32
	OpenTimeout       time.Duration
	RequestsPerSecond int
	PageSize          int
	MaxResponseBytes  int64 // tope de la página leída; 0 = DefaultMaxResponseBytes
}

// DefaultMaxResponseBytes tope de una página de sincronización.
const DefaultMaxResponseBytes = 10 << 20

// Client implementa ports.Notifier y ports.CommerceSource.
// Cada integración tiene su propio circuit breaker y limitador de peticiones.
type Client struct {
	cfg     Config
	http    *http.Client
	log     *logger.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
	limiters map[string]*rate.Limiter
}

var (
	_ ports.Notifier       = (*Client)(nil)
	_ ports.CommerceSource = (*Client)(nil)
)

// New construye el cliente.
func New(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log.Named("commerce"),
		metrics:  m,
		breakers: map[string]*resilience.Breaker{},
		limiters: map[string]*rate.Limiter{},
	}
}

func (c *Client) breaker(in *entity.Integration) *resilience.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[in.ID]
	if !ok {
		bc := resilience.DefaultBreakerConfig("commerce-" + in.ID)
		if c.cfg.MaxFailures > 0 {
			bc.FailureThreshold = c.cfg.MaxFailures
		}
		if c.cfg.OpenTimeout > 0 {
			bc.Timeout = c.cfg.OpenTimeout
		}
		b = resilience.NewBreaker(bc, c.log, c.metrics.BreakerListener)
		c.breakers[in.ID] = b
	}
	return b
}

func (c *Client) limiter(in *entity.Integration) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[in.ID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), c.cfg.RequestsPerSecond)
		c.limiters[in.ID] = l
	}
	return l
}

// NotifyInvoice PUT {base}/orders/{id}/invoice con los datos de la factura.
func (c *Client) NotifyInvoice(ctx context.Context, in *entity.Integration, n ports.InvoiceNotification) error {
	err := c.notify(ctx, in, n)
	c.metrics.ObserveNotification(err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExternalNotify, err)
	}
	return nil
}

func (c *Client) notify(ctx context.Context, in *entity.Integration, n ports.InvoiceNotification) error {
	if in == nil || in.BaseURL == "" {
		return errors.New("integración sin URL base")
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("serializar notificación: %w", err)
	}
	endpoint, err := joinURL(in.BaseURL, "orders", n.ExternalOrderID, "invoice")
	if err != nil {
		return err
	}
	return c.breaker(in).Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		setAuth(req, in)
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("PUT %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("PUT %s: HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return nil
	})
}

// FetchPage GET {base}/{recurso}?page=&per_page=&updated_at_min=.
// Acepta un arreglo JSON o un objeto que envuelva el arreglo en la clave del recurso, "data" o "items".
func (c *Client) FetchPage(ctx context.Context, in *entity.Integration, syncType string, since *time.Time, page int) ([]json.RawMessage, bool, error) {
	if in == nil || in.BaseURL == "" {
		return nil, false, fmt.Errorf("%w: integración sin URL base", domain.ErrInvalidInput)
	}
	if !entity.IsSyncType(syncType) {
		return nil, false, fmt.Errorf("%w: tipo de sincronización %q", domain.ErrInvalidInput, syncType)
	}
	endpoint, err := joinURL(in.BaseURL, syncType)
	if err != nil {
		return nil, false, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
	if since != nil {
		q.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}
	endpoint += "?" + q.Encode()

	if err := c.limiter(in).Wait(ctx); err != nil {
		return nil, false, err
	}
	var raw []byte
	err = c.breaker(in).Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		setAuth(req, in)
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
		}
		// Se lee un byte de más para distinguir una página en el tope de una truncada.
		raw, err = io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1))
		if err != nil {
			return fmt.Errorf("leer respuesta: %w", err)
		}
		if int64(len(raw)) > c.cfg.MaxResponseBytes {
			return fmt.Errorf("GET %s: respuesta de más de %d bytes", endpoint, c.cfg.MaxResponseBytes)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	records, err := decodeRecords(raw, syncType)
	if err != nil {
		return nil, false, err
	}
	return records, len(records) >= c.cfg.PageSize, nil
}

func decodeRecords(raw []byte, resource string) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var list []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("respuesta inválida: %w", err)
		}
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("respuesta inválida: %w", err)
	}
	for _, key := range []string{resource, "data", "items"} {
		if v, ok := wrapped[key]; ok {
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("respuesta inválida en %q: %w", key, err)
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("respuesta sin arreglo de %s", resource)
}

// setAuth cabecera de autenticación según la plataforma.
func setAuth(req *http.Request, in *entity.Integration) {
	if in.AccessToken == "" {
		return
	}
	switch in.Platform {
	case entity.PlatformShopify:
		req.Header.Set("X-Shopify-Access-Token", in.AccessToken)
	default:
		req.Header.Set("Authorization", "Bearer "+in.AccessToken)
	}
}

func joinURL(base string, parts ...string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: URL base inválida %q", domain.ErrInvalidInput, base)
	}
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return u.String() + "/" + strings.Join(escaped, "/"), nil
}
