package remote

import (
	"github.com/sony/gobreaker"

	"github.com/Kamar-Folarin/propsync/internal/config"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
)

// CircuitBreaker guards calls to the remote API
type CircuitBreaker interface {
	Execute(fn func() error) error
}

type noopBreaker struct{}

func (n *noopBreaker) Execute(fn func() error) error {
	return fn()
}

// NoopBreaker returns a breaker that never opens
func NoopBreaker() CircuitBreaker {
	return &noopBreaker{}
}

type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (g *gobreakerWrapper) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// NewCircuitBreaker builds a breaker from cfg. Only transient failures count
// toward tripping; a rejected payload says nothing about server health.
func NewCircuitBreaker(cfg config.BreakerConfig) CircuitBreaker {
	if !cfg.Enabled {
		return NoopBreaker()
	}

	settings := gobreaker.Settings{
		Name:        "remote-api",
		MaxRequests: uint32(cfg.HalfOpenMaxSuccess),
		Interval:    cfg.SamplingInterval,
		Timeout:     cfg.RecoveryTime,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.IsTerminal(err) || apperrors.IsUnauthorized(err)
		},
	}

	return &gobreakerWrapper{
		cb: gobreaker.NewCircuitBreaker(settings),
	}
}

func isBreakerRejection(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
