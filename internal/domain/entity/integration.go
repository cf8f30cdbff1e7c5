package entity

import "time"

// Plataformas de comercio soportadas.
const (
	PlatformShopify     = "shopify"
	PlatformWooCommerce = "woocommerce"
	PlatformGeneric     = "generic"
)

// Integration conexión de una empresa con su tienda externa.
// WebhookSecret vacío significa que los webhooks no se verifican.
type Integration struct {
	ID            string
	CompanyID     string
	Platform      string
	BaseURL       string
	AccessToken   string
	WebhookSecret string
	IsActive      bool
	LastSyncAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RequiresSignature indica si los webhooks de esta integración deben venir firmados.
func (i *Integration) RequiresSignature() bool {
	return i.WebhookSecret != ""
}
