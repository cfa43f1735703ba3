// Package cache provides the tiered cache fronting expensive search work.
//
// Three tiers of increasing latency and capacity: an in-process LRU (L1),
// an optional NATS JetStream key-value bucket (L2), and an optional SQLite
// store for long-lived artifacts such as precomputed embeddings (L3).
// Reads consult tiers in order and warm shallower tiers on a deeper hit.
// A corrupt or expired entry is a miss, never an error, on cacheable paths.
package cache
