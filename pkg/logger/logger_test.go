package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/pkg/logger"
)

func TestLogger_JSONConCampos(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	log.Named("ingestion").WithCompany("C1").Warn().Str("sku", "A1").Msg("stock insuficiente")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "ingestion", line["component"])
	assert.Equal(t, "C1", line["company_id"])
	assert.Equal(t, "A1", line["sku"])
}

func TestLogger_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "error", Output: &buf})
	log.Info().Msg("no debe salir")
	assert.Empty(t, buf.String())
}
