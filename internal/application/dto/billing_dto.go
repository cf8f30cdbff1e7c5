package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID                  string                `json:"id"`
	CompanyID           string                `json:"company_id"`
	CustomerID          string                `json:"customer_id"`
	CustomerName        string                `json:"customer_name,omitempty"`
	DocumentNumber      string                `json:"document_number"`
	InvoiceDate         time.Time             `json:"invoice_date"`
	DueDate             *time.Time            `json:"due_date,omitempty"`
	Subtotal            decimal.Decimal       `json:"subtotal"`
	TaxTotal            decimal.Decimal       `json:"tax_total"`
	Total               decimal.Decimal       `json:"total"`
	Status              string                `json:"status"`
	PaymentStatus       string                `json:"payment_status"`
	Source              string                `json:"source"`
	ExternalOrderID     string                `json:"external_order_id,omitempty"`
	ExternalOrderNumber string                `json:"external_order_number,omitempty"`
	Notes               string                `json:"notes,omitempty"`
	Terms               string                `json:"terms,omitempty"`
	CancelReason        string                `json:"cancel_reason,omitempty"`
	Items               []InvoiceItemResponse `json:"items"`
}

// InvoiceItemResponse línea de detalle en la respuesta.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"item_id,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Amount      decimal.Decimal `json:"amount"`
}

// SaveIntegrationRequest body para POST /api/integrations.
type SaveIntegrationRequest struct {
	Platform      string `json:"platform" validate:"required,oneof=shopify woocommerce generic"`
	BaseURL       string `json:"base_url" validate:"required,url"`
	AccessToken   string `json:"access_token"`
	WebhookSecret string `json:"webhook_secret"`
	IsActive      *bool  `json:"is_active"`
}

// IntegrationResponse integración con los secretos enmascarados.
type IntegrationResponse struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"company_id"`
	Platform      string     `json:"platform"`
	BaseURL       string     `json:"base_url"`
	AccessToken   string     `json:"access_token,omitempty"`
	WebhookSecret string     `json:"webhook_secret,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}
