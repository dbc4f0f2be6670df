package ollama

import (
	"sync"
	"time"
)

// breakerState represents the circuit breaker state.
type breakerState int

const (
	breakerClosed   breakerState = iota // normal operation, calls pass through
	breakerOpen                         // calls rejected immediately
	breakerHalfOpen                     // one probe call allowed to test recovery
)

// breaker guards the Ollama backend: after repeated failures, repair
// attempts stop hitting the dead endpoint until the reset timeout elapses.
// Thread-safe: all state transitions hold the mutex.
type breaker struct {
	mu           sync.Mutex
	state        breakerState
	failures     int
	threshold    int
	resetTimeout time.Duration
	lastFailure  time.Time
	now          func() time.Time // injectable clock for testing
}

func newBreaker(threshold int, resetTimeout time.Duration) *breaker {
	return &breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// allow reports whether a call may proceed. An open breaker transitions
// to half-open once the reset timeout has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && b.now().Sub(b.lastFailure) >= b.resetTimeout {
		b.state = breakerHalfOpen
	}
	return b.state != breakerOpen
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()
	switch b.state {
	case breakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = breakerOpen
		}
	case breakerHalfOpen:
		b.state = breakerOpen
	}
}
