package remote

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker opens after threshold consecutive failures and stays open for the
// cooldown window. After the window one trial call is let through; its
// outcome decides between closing and re-opening.
type breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	threshold int
	cooldown  time.Duration
	openUntil time.Time
	now       func() time.Time // swapped in tests
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		return true
	case breakerHalfOpen:
		// Only one trial at a time; concurrent callers stay blocked.
		return false
	default:
		if b.now().Before(b.openUntil) {
			return false
		}
		b.state = breakerHalfOpen
		return true
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// recordFailure reports whether this failure opened the circuit.
func (b *breaker) recordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openUntil = b.now().Add(b.cooldown)
		return true
	}
	b.failures++
	if b.threshold > 0 && b.failures >= b.threshold && b.state != breakerOpen {
		b.state = breakerOpen
		b.openUntil = b.now().Add(b.cooldown)
		return true
	}
	return false
}
