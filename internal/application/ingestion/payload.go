package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Integraciones-api/internal/application/resolver"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// Tipos de evento aceptados.
const (
	EventOrderCreated     = "order.created"
	EventOrderConfirmed   = "order.confirmed"
	EventOrderCancelled   = "order.cancelled"
	EventCustomerCreated  = "customer.created"
	EventCustomerUpdated  = "customer.updated"
	EventProductCreated   = "product.created"
	EventProductUpdated   = "product.updated"
	EventInventoryUpdated = "inventory.updated"
	EventStockUpdated     = "stock.updated"
)

// Envelope cuerpo del webhook.
type Envelope struct {
	CompanyID string          `json:"company_id" validate:"required"`
	EventType string          `json:"event_type" validate:"required,oneof=order.created order.confirmed order.cancelled customer.created customer.updated product.created product.updated inventory.updated stock.updated"`
	Data      json.RawMessage `json:"data" validate:"required"`
}

// ID acepta ids numéricos o de texto; las tiendas usan ambos.
type ID string

// UnmarshalJSON implementa json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id inválido %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

// Order pedido externo.
type Order struct {
	ID              ID              `json:"id"`
	OrderNumber     ID              `json:"order_number"`
	Status          string          `json:"status"`
	FinancialStatus string          `json:"financial_status"`
	Customer        Customer        `json:"customer"`
	Items           []OrderLine     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Note            string          `json:"note"`
}

// OrderLine línea del pedido.
type OrderLine struct {
	ProductID ID              `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// Customer cliente externo.
type Customer struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Product producto externo.
type Product struct {
	ID      ID              `json:"id"`
	SKU     string          `json:"sku"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// StockChange cambio de stock reportado por la tienda. OldStock es opcional.
type StockChange struct {
	ProductID ID               `json:"product_id"`
	SKU       string           `json:"sku"`
	OldStock  *decimal.Decimal `json:"old_stock"`
	NewStock  *decimal.Decimal `json:"new_stock"`
	// Key identifica la entrega. Con OldStock el ajuste es relativo y no se aplica dos veces.
	Key string `json:"-"`
}

// guestCustomer cliente usado cuando el pedido no trae id ni email.
var guestCustomer = resolver.ExternalCustomer{ID: "guest", FirstName: "Cliente", LastName: "mostrador"}

func (c Customer) external() resolver.ExternalCustomer {
	if c.ID == "" && strings.TrimSpace(c.Email) == "" {
		return guestCustomer
	}
	return resolver.ExternalCustomer{
		ID:        string(c.ID),
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}

func (p Product) external() resolver.ExternalProduct {
	return resolver.ExternalProduct{ID: string(p.ID), SKU: p.SKU, Name: p.Name, Price: p.Price, TaxRate: p.TaxRate}
}

// validate reglas mínimas del pedido antes de abrir la transacción.
func (o *Order) validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: order.id requerido", domain.ErrInvalidInput)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: el pedido %s no tiene ítems", domain.ErrInvalidInput, o.ID)
	}
	for i, l := range o.Items {
		if !l.Quantity.IsPositive() {
			return fmt.Errorf("%w: línea %d con cantidad no positiva", domain.ErrInvalidInput, i+1)
		}
		if l.Price.IsNegative() {
			return fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}

// IsCancelled indica si el pedido viene anulado (sincronización de pedidos).
func (o *Order) IsCancelled() bool {
	switch strings.ToLower(o.Status) {
	case "cancelled", "canceled", "voided", "refunded":
		return true
	}
	return false
}

// paymentStatus traduce el estado financiero de la tienda.
func (o *Order) paymentStatus() string {
	switch strings.ToLower(o.FinancialStatus) {
	case "paid", "completed":
		return entity.PaymentStatusPaid
	case "partially_paid", "partial":
		return entity.PaymentStatusPartial
	}
	return entity.PaymentStatusUnpaid
}

// unwrap devuelve data[key] si existe; si no, data completo (tiendas que no envuelven el objeto).
func unwrap(data json.RawMessage, key string) json.RawMessage {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if v, ok := wrapped[key]; ok && len(v) > 0 && v[0] == '{' {
			return v
		}
	}
	return data
}

func decode(data json.RawMessage, key string, dst any) error {
	if err := json.Unmarshal(unwrap(data, key), dst); err != nil {
		return fmt.Errorf("%w: %s inválido: %v", domain.ErrInvalidInput, key, err)
	}
	return nil
}

// DecodeOrder interpreta {order:{...}} o el pedido sin envolver.
func DecodeOrder(data json.RawMessage) (*Order, error) {
	var o Order
	if err := decode(data, "order", &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DecodeCustomer interpreta {customer:{...}} o el cliente sin envolver.
func DecodeCustomer(data json.RawMessage) (*Customer, error) {
	var c Customer
	if err := decode(data, "customer", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeProduct interpreta {product:{...}} o el producto sin envolver.
func DecodeProduct(data json.RawMessage) (*Product, error) {
	var p Product
	if err := decode(data, "product", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeStockChange interpreta {inventory:{...}} o el cambio sin envolver.
func DecodeStockChange(data json.RawMessage) (*StockChange, error) {
	var s StockChange
	if err := decode(data, "inventory", &s); err != nil {
		return nil, err
	}
	if s.NewStock == nil {
		return nil, fmt.Errorf("%w: new_stock requerido", domain.ErrInvalidInput)
	}
	if s.ProductID == "" && strings.TrimSpace(s.SKU) == "" {
		return nil, fmt.Errorf("%w: product_id o sku requerido", domain.ErrInvalidInput)
	}
	return &s, nil
}

// externalID id del registro principal del evento, para la bitácora.
func externalID(eventType string, data json.RawMessage) string {
	key := strings.SplitN(eventType, ".", 2)[0]
	var ref struct {
		ID        ID `json:"id"`
		ProductID ID `json:"product_id"`
	}
	if err := json.Unmarshal(unwrap(data, key), &ref); err != nil {
		return ""
	}
	if ref.ID != "" {
		return string(ref.ID)
	}
	return string(ref.ProductID)
}
