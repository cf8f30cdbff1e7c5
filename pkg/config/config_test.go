package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Bulk.MaxCreate)
	assert.Equal(t, 50, cfg.Bulk.MaxDelete)
	assert.Equal(t, 50, cfg.Sync.SummaryLimit)
	assert.Equal(t, 10, cfg.Sync.MaxResponseMB)
	assert.Equal(t, 10*time.Second, cfg.Notifier.Timeout)
}

func TestLoad_EnvSobrescribe(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("BULK_MAX_DELETE", "10")
	t.Setenv("NOTIFIER_TIMEOUT", "3s")
	t.Setenv("SYNC_RUN_TIMEOUT", "120")
	t.Setenv("SYNC_MAX_RESPONSE_MB", "2")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, 10, cfg.Bulk.MaxDelete)
	assert.Equal(t, 3*time.Second, cfg.Notifier.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Sync.RunTimeout)
	assert.Equal(t, 2, cfg.Sync.MaxResponseMB)
}

func TestLoad_ProductionSinSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNCodificaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w", DBName: "x", SSLMode: "disable"}
	assert.True(t, c.Enabled())
	assert.Equal(t, "postgres://app:p%40ss%3Aw@db:5432/x?sslmode=disable", c.ConnectionString())
}
