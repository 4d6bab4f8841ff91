package apperr

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker fails fast once a downstream service keeps answering with
// ServiceUnavailable. Other kinds (NotFound, Unauthorized, Malformed) are
// answers from a live service and never trip it.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// BreakerSettings tunes a Breaker. Zero values pick the defaults.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	Cooldown            time.Duration
	OnStateChange       func(name, from, to string)
}

// NewBreaker creates a breaker that opens after ConsecutiveFailures
// (default 5) unavailable results and probes again after Cooldown
// (default 30s).
func NewBreaker(s BreakerSettings) *Breaker {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	cooldown := s.Cooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || KindOf(err) != ServiceUnavailable
		},
	}
	if s.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			s.OnStateChange(name, from.String(), to.String())
		}
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Do runs fn through the breaker. A rejected call returns a
// ServiceUnavailable error tagged with op.
func (b *Breaker) Do(op string, fn func() error) error {
	if b == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return New(ServiceUnavailable, op, err)
	}
	return err
}

// State reports the breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}
