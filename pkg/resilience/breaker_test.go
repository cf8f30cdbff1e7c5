package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Integraciones-api/pkg/resilience"
)

func TestBreaker_AbreTrasFallasConsecutivas(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig("tienda")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	b := resilience.NewBreaker(cfg, nil, func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	boom := errors.New("502")
	assert.ErrorIs(t, b.Do(context.Background(), func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(context.Background(), func() error { return boom }), boom)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	err := b.Do(context.Background(), func() error { called = true; return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called, "con el circuito abierto no se debe llamar a la tienda")
	require.Len(t, transitions, 1)
	assert.Equal(t, gobreaker.StateOpen, transitions[0])
}

func TestBreaker_ContextoCancelado(t *testing.T) {
	b := resilience.NewBreaker(resilience.DefaultBreakerConfig("tienda"), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
