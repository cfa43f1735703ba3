// Package resilience provides the failure-isolation primitives that guard
// calls into external dependencies: a per-dependency circuit breaker and a
// per-key token-bucket rate limiter.
//
// Both are constructed explicitly and handed to the services that need
// them; there are no package-level singletons, so tests get isolated
// instances for free.
package resilience
