package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func newTestBreaker(t *testing.T, cfg BreakerConfig) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("embedding", cfg, zap.NewNop(), nil)
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, b.State())
		assert.ErrorIs(t, b.Do(context.Background(), fail), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, b.Do(context.Background(), fail))
	require.Error(t, b.Do(context.Background(), fail))
	require.NoError(t, b.Do(context.Background(), succeed))
	require.Error(t, b.Do(context.Background(), fail))
	require.Error(t, b.Do(context.Background(), fail))
	// Still closed: the success broke the streak.
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	b, now := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, b.Do(context.Background(), fail))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Do(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})

	var coe *CircuitOpenError
	require.ErrorAs(t, err, &coe)
	assert.Equal(t, "embedding", coe.Name)
	assert.Equal(t, StateOpen, coe.State)
	assert.False(t, invoked, "open breaker must not touch the dependency")

	// Still open just before the recovery timeout.
	*now = now.Add(59 * time.Second)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenAllowsSingleProbe(t *testing.T) {
	b, now := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: time.Minute})

	require.Error(t, b.Do(context.Background(), fail))
	*now = now.Add(time.Minute)
	require.Equal(t, StateHalfOpen, b.State())

	// Admit one probe; hold it in flight and verify the second is rejected.
	probeStarted := make(chan struct{})
	probeRelease := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		probeDone <- b.Do(context.Background(), func(context.Context) error {
			close(probeStarted)
			<-probeRelease
			return nil
		})
	}()
	<-probeStarted

	var coe *CircuitOpenError
	err := b.Do(context.Background(), succeed)
	require.ErrorAs(t, err, &coe)
	assert.Equal(t, StateHalfOpen, coe.State)

	close(probeRelease)
	require.NoError(t, <-probeDone)

	// One more success closes (SuccessThreshold=2).
	require.NoError(t, b.Do(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, b.Do(context.Background(), fail))
	*now = now.Add(time.Minute)
	require.Equal(t, StateHalfOpen, b.State())

	require.ErrorIs(t, b.Do(context.Background(), fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerRegistryReusesInstances(t *testing.T) {
	reg := NewBreakerRegistry(BreakerConfig{FailureThreshold: 1}, zap.NewNop(), nil)

	a := reg.Get("embedding")
	b := reg.Get("embedding")
	c := reg.Get("cache-l2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestBreakerRegistriesAreIsolated(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour}
	r1 := NewBreakerRegistry(cfg, zap.NewNop(), nil)
	r2 := NewBreakerRegistry(cfg, zap.NewNop(), nil)

	require.Error(t, r1.Get("dep").Do(context.Background(), fail))
	assert.Equal(t, StateOpen, r1.Get("dep").State())
	assert.Equal(t, StateClosed, r2.Get("dep").State())
}
