package cache

import (
	"context"
	"time"
)

// Kind namespaces cache keys by artifact class so metrics and
// invalidation stay independent per kind.
type Kind string

const (
	KindPattern   Kind = "pattern"
	KindSearch    Kind = "search"
	KindEmbedding Kind = "embedding"
)

// Key builds the namespaced cache key for an artifact.
func Key(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// Stats is a point-in-time view of one tier.
type Stats struct {
	Entries int64
	Hits    int64
	Misses  int64
}

// Tier is one cache backend. Implementations store opaque envelopes
// produced by the codec layer; they never interpret payloads.
//
// Get returns (value, true, nil) on a hit and (nil, false, nil) on a
// clean miss. Errors indicate the tier itself failed, which callers
// treat as a miss after logging.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Stats() Stats
}
