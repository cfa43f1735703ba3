package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is the bounded in-process L1 tier: fixed max entry count,
// TTL expiry, least-recently-used eviction at capacity.
type Memory struct {
	lru *expirable.LRU[string, []byte]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates the L1 tier. ttl bounds every entry; per-entry TTLs
// shorter than this are enforced by the envelope layer above.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Memory{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

func (m *Memory) Name() string { return "l1" }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	return value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *Memory) Stats() Stats {
	return Stats{
		Entries: int64(m.lru.Len()),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}
