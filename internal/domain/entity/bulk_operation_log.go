package entity

import "time"

// Operaciones masivas sobre facturas.
const (
	BulkOperationCreate = "create"
	BulkOperationUpdate = "update"
	BulkOperationDelete = "delete"
)

// BulkOperationLog fila de auditoría por cada llamada masiva.
type BulkOperationLog struct {
	ID        string
	CompanyID string
	UserID    string
	Operation string
	Total     int
	Succeeded int
	Failed    int
	CreatedAt time.Time
}
