package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/infrastructure/lock"
)

func TestNewRedisClient_SinServidor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := lock.NewRedisClient(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestNopLocker(t *testing.T) {
	var l ports.Locker = ports.NopLocker{}
	unlock, err := l.Lock(context.Background(), "pedido")
	assert.NoError(t, err)
	assert.NotPanics(t, unlock)
}
