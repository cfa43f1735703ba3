package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// LimiterConfig tunes the per-key token bucket.
type LimiterConfig struct {
	// RequestsPerMinute is the refill rate.
	RequestsPerMinute float64
	// Burst is the bucket capacity.
	Burst int
	// MaxConcurrent bounds in-flight requests per key.
	MaxConcurrent int
	// IdleEviction is how long an unused key survives before cleanup.
	IdleEviction time.Duration
}

// keyState is the bucket plus concurrency counter for one key.
// Tokens refill lazily inside rate.Limiter from elapsed wall-clock time;
// no background timer runs.
type keyState struct {
	bucket   *rate.Limiter
	inFlight int
	lastSeen time.Time
}

// Limiter admits requests per key when a token is available and the key's
// in-flight count is below the concurrency cap.
type Limiter struct {
	cfg     LimiterConfig
	logger  *zap.Logger
	metrics *telemetry.Metrics

	mu   sync.Mutex
	keys map[string]*keyState

	now func() time.Time // injectable for tests
}

// NewLimiter creates a limiter. Keys are created lazily on first use and
// evicted once idle. metrics may be nil.
func NewLimiter(cfg LimiterConfig, logger *zap.Logger, metrics *telemetry.Metrics) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = 10 * time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		keys:    make(map[string]*keyState),
		now:     time.Now,
	}
}

// Acquire admits one request for key, consuming a token and incrementing
// the in-flight counter. The returned release func must be called exactly
// once when the request finishes, success or failure.
//
// Rejection returns a *RateLimitedError carrying a retry-after estimate
// computed from the refill rate.
func (l *Limiter) Acquire(key string) (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ks, ok := l.keys[key]
	if !ok {
		ks = &keyState{
			bucket: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerMinute/60.0), l.cfg.Burst),
		}
		l.keys[key] = ks
	}
	ks.lastSeen = l.now()

	if ks.inFlight >= l.cfg.MaxConcurrent {
		if l.metrics != nil {
			l.metrics.RecordRateLimitRejection(key, "concurrency")
		}
		return nil, &RateLimitedError{Key: key, RetryAfter: l.retryAfter(ks)}
	}

	if !ks.bucket.AllowN(l.now(), 1) {
		if l.metrics != nil {
			l.metrics.RecordRateLimitRejection(key, "tokens")
		}
		return nil, &RateLimitedError{Key: key, RetryAfter: l.retryAfter(ks)}
	}

	ks.inFlight++

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if ks.inFlight > 0 {
				ks.inFlight--
			}
		})
	}, nil
}

// retryAfter estimates the wait until one token is available. Caller holds mu.
func (l *Limiter) retryAfter(ks *keyState) time.Duration {
	res := ks.bucket.ReserveN(l.now(), 1)
	if !res.OK() {
		return time.Minute
	}
	delay := res.DelayFrom(l.now())
	res.CancelAt(l.now())
	if delay <= 0 {
		// Concurrency rejection with tokens available; suggest a short pause.
		return time.Second
	}
	return delay
}

// Tokens reports the current token count for key, creating nothing.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ks, ok := l.keys[key]
	if !ok {
		return float64(l.cfg.Burst)
	}
	return ks.bucket.TokensAt(l.now())
}

// Cleanup evicts idle keys: no in-flight requests and unused for longer
// than the idle horizon. Returns the number evicted.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	horizon := l.now().Add(-l.cfg.IdleEviction)
	evicted := 0
	for key, ks := range l.keys {
		if ks.inFlight == 0 && ks.lastSeen.Before(horizon) {
			delete(l.keys, key)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Debug("rate limiter evicted idle keys", zap.Int("count", evicted))
	}
	return evicted
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
