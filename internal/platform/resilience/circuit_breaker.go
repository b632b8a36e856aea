// Package resilience guards calls to upstream data sources.
package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker trips after FailureThreshold consecutive failures, rejects calls
// for OpenTimeout, then lets HalfOpenMaxReq probes through. A disabled
// breaker allows everything.
type Breaker struct {
	mu sync.Mutex

	name string
	cfg  BreakerConfig

	state          State
	failures       int
	openedAt       time.Time
	probesInFlight int
	probeSuccesses int
	now            func() time.Time
	onStateChange  func(name string, from, to State)
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		name:  name,
		cfg:   cfg.Normalize(),
		state: StateClosed,
		now:   time.Now,
	}
}

func (b *Breaker) Name() string {
	return b.name
}

// OnStateChange registers a callback invoked under the breaker lock on every
// transition. It must not call back into the breaker.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by exactly one Record.
func (b *Breaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}

	if b.state == StateHalfOpen {
		if b.probesInFlight >= b.cfg.HalfOpenMaxReq {
			return ErrOpen
		}
		b.probesInFlight++
	}
	return nil
}

// Record reports the outcome of an allowed call. Only errors for which
// countsAsFailure returns true trip the breaker; a nil countsAsFailure counts
// every non-nil error.
func (b *Breaker) Record(err error, countsAsFailure func(error) bool) {
	if !b.cfg.Enabled {
		return
	}
	failed := err != nil && (countsAsFailure == nil || countsAsFailure(err))

	b.mu.Lock()
	defer b.mu.Unlock()

	if failed {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.cfg.HalfOpenMaxReq && b.probesInFlight == 0 {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) recordFailure() {
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	case StateOpen:
		b.openedAt = b.now()
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.probesInFlight = 0
	b.probeSuccesses = 0
	switch to {
	case StateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case StateOpen:
		b.openedAt = b.now()
	}
	if b.onStateChange != nil && from != to {
		b.onStateChange(b.name, from, to)
	}
}
