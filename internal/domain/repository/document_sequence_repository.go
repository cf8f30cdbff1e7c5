package repository

import (
	"context"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

// DocumentSequenceRepository puerto de persistencia de consecutivos.
// Es el único escritor de current_number.
type DocumentSequenceRepository interface {
	// Next incrementa atómicamente el consecutivo y devuelve la fila resultante junto con
	// el número emitido (valor previo al incremento). Devuelve (nil, 0, nil) si la fila no existe.
	Next(ctx context.Context, companyID, docType, financialYear string) (*entity.DocumentSequence, int64, error)
	// CreateIfAbsent inserta la fila si no existe; si otra transacción la creó primero no hace nada.
	CreateIfAbsent(ctx context.Context, seq *entity.DocumentSequence) error
	// Upsert guarda la configuración (prefijo, sufijo, relleno, reinicio). Nunca reduce current_number.
	Upsert(ctx context.Context, seq *entity.DocumentSequence) error
	Get(ctx context.Context, companyID, docType, financialYear string) (*entity.DocumentSequence, error)
	// Latest devuelve el consecutivo del año fiscal más reciente para el tipo de documento.
	Latest(ctx context.Context, companyID, docType string) (*entity.DocumentSequence, error)
	ListByYear(ctx context.Context, companyID, financialYear string) ([]*entity.DocumentSequence, error)
}
