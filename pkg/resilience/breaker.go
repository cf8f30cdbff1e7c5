// Package resilience envuelve sony/gobreaker para las llamadas HTTP hacia tiendas externas.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jhoicas/Integraciones-api/pkg/logger"
)

// ErrCircuitOpen el circuito está abierto y la llamada no se intentó.
var ErrCircuitOpen = errors.New("circuito abierto")

// BreakerConfig configuración del circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // llamadas permitidas en half-open
	Interval         time.Duration // ventana para reiniciar contadores en closed (0 = nunca)
	Timeout          time.Duration // tiempo en open antes de pasar a half-open
	FailureThreshold uint32        // fallas consecutivas que abren el circuito
}

// DefaultBreakerConfig valores por defecto.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker circuit breaker con log de cambios de estado.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
	log  *logger.Logger
}

// StateListener recibe los cambios de estado (p. ej. métricas).
type StateListener func(name string, from, to gobreaker.State)

// NewBreaker construye el breaker. listener puede ser nil.
func NewBreaker(cfg BreakerConfig, log *logger.Logger, listener StateListener) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("cambio de estado del circuit breaker")
			if listener != nil {
				listener(name, from, to)
			}
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: cfg.Name, log: log}
}

// Do ejecuta fn a través del breaker. Si el contexto ya expiró no se intenta la llamada.
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return err
}

// State estado actual del circuito.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
