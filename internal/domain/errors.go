package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidSignature   = errors.New("firma del webhook inválida")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrReferential        = errors.New("referencia no resuelta")
	ErrPersistence        = errors.New("error de persistencia")
	ErrExternalNotify     = errors.New("notificación externa fallida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrBatchTooLarge      = errors.New("el lote excede el máximo permitido")
	ErrInvoiceHasPayments = errors.New("la factura tiene pagos aplicados")
	ErrAlreadyCancelled   = errors.New("la factura ya está anulada")
	ErrTerminalState      = errors.New("el registro ya está en estado final")
)

// ErrActiveInvoiceExists el pedido externo ya tiene una factura no anulada. Es un ErrDuplicate.
var ErrActiveInvoiceExists = fmt.Errorf("%w: el pedido ya tiene una factura activa", ErrDuplicate)
