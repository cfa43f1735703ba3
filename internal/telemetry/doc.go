// Package telemetry provides fire-and-forget observability for patternd.
//
// Cache tiers and the search pipeline publish events to a bounded,
// non-blocking bus; a single consumer goroutine drains the bus into
// Prometheus collectors. Publishing never blocks the request path: when
// the queue is full the event is dropped and counted.
package telemetry
