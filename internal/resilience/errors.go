package resilience

import (
	"fmt"
	"time"
)

// CircuitOpenError is returned when a call fails fast because the
// dependency's breaker is not admitting traffic.
type CircuitOpenError struct {
	Name  string
	State State
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// RateLimitedError is returned when admission is rejected. RetryAfter is
// an estimate derived from the bucket's refill rate.
type RateLimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for key %q, retry after %s", e.Key, e.RetryAfter)
}
