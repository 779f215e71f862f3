package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker shields a dependency: after too many consecutive failures
// it rejects calls outright, then lets a bounded number of probes through
// once the cooldown elapses.
type CircuitBreaker struct {
	mu sync.Mutex

	limit    int           // consecutive failures before opening
	cooldown time.Duration // how long to stay open
	probes   int           // concurrent probes allowed while half-open

	state     CircuitState
	failures  int
	until     time.Time // open state expires at this instant
	probing   int
	probeWins int
	now       func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	cfg := NormalizeCircuitBreakerConfig(CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	})
	return &CircuitBreaker{
		limit:    cfg.FailureThreshold,
		cooldown: cfg.OpenTimeout,
		probes:   cfg.HalfOpenMaxReq,
		state:    CircuitStateClosed,
		now:      time.Now,
	}
}

// Allow reports whether a call may proceed, reserving a probe slot when the
// breaker is half-open.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Before(b.until) {
			return ErrCircuitOpen
		}
		b.enterHalfOpen()
	}
	if b.state == CircuitStateHalfOpen {
		if b.probing >= b.probes {
			return ErrCircuitOpen
		}
		b.probing++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.releaseProbe()
		b.probeWins++
		if b.probeWins >= b.probes && b.probing == 0 {
			b.state = CircuitStateClosed
			b.failures = 0
			b.until = time.Time{}
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.limit {
			b.trip()
		}
	case CircuitStateHalfOpen:
		b.releaseProbe()
		b.trip()
	case CircuitStateOpen:
		// failures while open push the reopen deadline out
		b.until = b.now().Add(b.cooldown)
	}
}

// State reports half_open once an open breaker's cooldown has elapsed, even
// before the next Allow call performs the transition.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && !b.now().Before(b.until) {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitStateOpen
	b.until = b.now().Add(b.cooldown)
	b.probing = 0
	b.probeWins = 0
}

func (b *CircuitBreaker) enterHalfOpen() {
	b.state = CircuitStateHalfOpen
	b.probing = 0
	b.probeWins = 0
}

func (b *CircuitBreaker) releaseProbe() {
	if b.probing > 0 {
		b.probing--
	}
}
