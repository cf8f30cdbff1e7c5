package entity

import (
	"fmt"
	"strings"
	"time"
)

// Tipos de documento con numeración propia.
const (
	DocumentTypeInvoice         = "invoice"
	DocumentTypeCreditNote      = "credit_note"
	DocumentTypeQuotation       = "quotation"
	DocumentTypeDeliveryChallan = "delivery_challan"
)

// FiscalYearStartMonth mes en que inicia el año fiscal (abril).
const FiscalYearStartMonth = time.April

// DocumentSequence consecutivo por (empresa, tipo de documento, año fiscal).
// CurrentNumber es el siguiente número a emitir: solo crece.
type DocumentSequence struct {
	ID             string
	CompanyID      string
	DocumentType   string
	FinancialYear  string // "2024-25"
	Prefix         string
	Suffix         string
	Padding        int
	CurrentNumber  int64
	ResetOnNewYear bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Format arma el número visible: prefijo + número con ceros a la izquierda + sufijo.
func (s *DocumentSequence) Format(n int64) string {
	pad := s.Padding
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%0*d%s", s.Prefix, pad, n, s.Suffix)
}

// FinancialYearOf devuelve la etiqueta "YYYY-YY" del año fiscal que contiene t.
func FinancialYearOf(t time.Time) string {
	start := t.Year()
	if t.Month() < FiscalYearStartMonth {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// IsDocumentType indica si el tipo de documento es soportado.
func IsDocumentType(docType string) bool {
	_, ok := defaultPrefixes[docType]
	return ok
}

var defaultPrefixes = map[string]string{
	DocumentTypeInvoice:         "INV-",
	DocumentTypeCreditNote:      "CN-",
	DocumentTypeQuotation:       "QT-",
	DocumentTypeDeliveryChallan: "DC-",
}

// DefaultSequence configuración inicial de un consecutivo nuevo.
func DefaultSequence(companyID, docType, financialYear string) *DocumentSequence {
	prefix, ok := defaultPrefixes[docType]
	if !ok {
		prefix = strings.ToUpper(docType) + "-"
	}
	return &DocumentSequence{
		CompanyID:      companyID,
		DocumentType:   docType,
		FinancialYear:  financialYear,
		Prefix:         prefix,
		Padding:        4,
		CurrentNumber:  1,
		ResetOnNewYear: true,
	}
}
