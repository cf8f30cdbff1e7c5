package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
)

func TestFinancialYearOf_IniciaEnAbril(t *testing.T) {
	cases := map[string]time.Time{
		"2023-24": time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC),
		"2024-25": time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		"2099-00": time.Date(2099, time.December, 1, 0, 0, 0, 0, time.UTC),
	}
	for want, at := range cases {
		assert.Equal(t, want, entity.FinancialYearOf(at), at.String())
	}
}

func TestDocumentSequence_Format(t *testing.T) {
	s := &entity.DocumentSequence{Prefix: "INV-", Suffix: "/A", Padding: 4}
	assert.Equal(t, "INV-0007/A", s.Format(7))
	assert.Equal(t, "INV-12345/A", s.Format(12345), "el relleno no trunca números largos")

	s.Padding = 0
	assert.Equal(t, "INV-7/A", s.Format(7))
}

func TestDefaultSequence(t *testing.T) {
	s := entity.DefaultSequence("C1", entity.DocumentTypeCreditNote, "2024-25")
	assert.Equal(t, "CN-", s.Prefix)
	assert.Equal(t, int64(1), s.CurrentNumber)
	assert.True(t, s.ResetOnNewYear)
	assert.True(t, entity.IsDocumentType(entity.DocumentTypeInvoice))
	assert.False(t, entity.IsDocumentType("receipt"))
}
