package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// State is the circuit breaker's position in its state machine.
type State string

const (
	// StateClosed: requests pass through, failures are counted.
	StateClosed State = "closed"
	// StateOpen: requests fail immediately without touching the dependency.
	StateOpen State = "open"
	// StateHalfOpen: one probe at a time tests recovery.
	StateHalfOpen State = "half_open"
)

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures trip Closed -> Open.
	FailureThreshold int
	// SuccessThreshold consecutive probe successes close a half-open breaker.
	SuccessThreshold int
	// RecoveryTimeout is how long an open breaker waits before probing.
	RecoveryTimeout time.Duration
}

// Breaker guards one named dependency for the process lifetime.
// State is not persisted across restarts.
type Breaker struct {
	name    string
	cfg     BreakerConfig
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	probeInFlight bool

	now func() time.Time // injectable for tests
}

// NewBreaker creates a closed breaker for the named dependency.
// metrics may be nil.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger, metrics *telemetry.Metrics) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	return &Breaker{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		state:   StateClosed,
		now:     time.Now,
	}
}

// Name returns the guarded dependency's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, applying the Open -> HalfOpen timer.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Do runs fn under the breaker's admission control. When the breaker is
// open (or a half-open probe is already in flight) fn is never invoked and
// a *CircuitOpenError is returned.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()

	switch b.state {
	case StateOpen:
		return &CircuitOpenError{Name: b.name, State: StateOpen}
	case StateHalfOpen:
		if b.probeInFlight {
			return &CircuitOpenError{Name: b.name, State: StateHalfOpen}
		}
		b.probeInFlight = true
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.probeInFlight = false
		if !success {
			b.transitionLocked(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	case StateOpen:
		// A call admitted before the trip finished after it; its outcome
		// no longer changes the decision.
	}
}

// maybeHalfOpenLocked applies the recovery timer. Caller holds mu.
func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
		b.transitionLocked(StateHalfOpen)
	}
}

// transitionLocked moves to a new state and resets counters. Caller holds mu.
func (b *Breaker) transitionLocked(next State) {
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0
	b.probeInFlight = false
	if next == StateOpen {
		b.openedAt = b.now()
	}

	b.logger.Warn("circuit breaker transition",
		zap.String("dependency", b.name),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	if b.metrics != nil {
		b.metrics.RecordBreakerTransition(b.name, string(next))
	}
}

// BreakerRegistry hands out one breaker per named dependency.
type BreakerRegistry struct {
	cfg     BreakerConfig
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakerRegistry creates a registry applying cfg to new breakers.
func NewBreakerRegistry(cfg BreakerConfig, logger *zap.Logger, metrics *telemetry.Metrics) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the named dependency, creating it on first use.
func (r *BreakerRegistry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.cfg, r.logger, r.metrics)
		r.breakers[name] = b
	}
	return b
}
