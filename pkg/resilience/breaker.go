package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Do while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker phase. Its numeric value is what the
// circuit_breaker_state gauge reports.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BreakerConfig tunes a Breaker. Zero values take the defaults noted.
type BreakerConfig struct {
	// Threshold is how many consecutive failures open the breaker (5).
	Threshold int
	// Cooldown is how long an open breaker rejects calls (30s).
	Cooldown time.Duration
	// Probes is how many calls a half-open breaker lets through (1).
	Probes int
	// IsFailure decides which errors count against the breaker. By default
	// every non-nil error does.
	IsFailure func(error) bool
	// OnStateChange runs after each transition, outside the breaker's lock.
	OnStateChange func(name string, from, to State)
}

// Breaker guards calls to a backend that may go away, such as the result
// cache. It opens after Threshold consecutive failures, rejects calls for
// Cooldown, then admits Probes trial calls before closing again.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Do runs fn unless the breaker is open. Errors from fn are returned
// unchanged; only those IsFailure accepts move the breaker toward open.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(b.cfg.IsFailure(err))
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerSnapshot is the breaker's externally visible status.
type BreakerSnapshot struct {
	Name     string    `json:"name"`
	State    State     `json:"state"`
	Failures int       `json:"consecutive_failures"`
	OpenedAt time.Time `json:"opened_at,omitzero"`
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := BreakerSnapshot{Name: b.name, State: b.state, Failures: b.failures}
	if b.state != StateClosed {
		snap.OpenedAt = b.openedAt
	}
	return snap
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	var from State
	changed := false
	defer func() {
		b.mu.Unlock()
		if changed {
			b.notify(from, StateHalfOpen)
		}
	}()

	switch b.state {
	case StateOpen:
		wait := b.cfg.Cooldown - b.now().Sub(b.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s, retry in %s", ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
		}
		from, changed = b.state, true
		b.state = StateHalfOpen
		b.inFlight = 1
		return nil
	case StateHalfOpen:
		if b.inFlight >= b.cfg.Probes {
			return fmt.Errorf("%w: %s, probe in progress", ErrCircuitOpen, b.name)
		}
		b.inFlight++
	}
	return nil
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	from := b.state
	to := from
	if failed {
		b.failures++
		if from == StateHalfOpen || (from == StateClosed && b.failures >= b.cfg.Threshold) {
			to = StateOpen
			b.openedAt = b.now()
		}
	} else if from != StateOpen {
		b.failures = 0
		to = StateClosed
	}
	if from == StateHalfOpen {
		b.inFlight--
	}
	if to == StateClosed {
		b.inFlight = 0
	}
	b.state = to
	failures := b.failures
	b.mu.Unlock()

	if to != from {
		if to == StateOpen {
			b.logger.Warn("circuit opened", "consecutive_failures", failures, "cooldown", b.cfg.Cooldown)
		}
		b.notify(from, to)
	}
}

func (b *Breaker) notify(from, to State) {
	b.logger.Info("circuit state changed", "from", from, "to", to)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
