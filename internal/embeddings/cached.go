package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/cache"
)

// Cached wraps a Provider with the embedding tier of the cache. Query
// vectors are keyed by model and text so switching models never serves
// a stale vector.
type Cached struct {
	provider Provider
	model    string
	store    *cache.MultiLevel
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCached wraps provider with caching.
func NewCached(provider Provider, model string, store *cache.MultiLevel, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{
		provider: provider,
		model:    model,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

// EmbedQuery returns the cached vector for text, or generates and
// caches one.
func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := embeddingKey(c.model, text)

	if raw, ok := c.store.Get(ctx, cache.KindEmbedding, key); ok {
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err == nil && len(vector) > 0 {
			return vector, nil
		}
		c.logger.Debug("discarding undecodable cached embedding", zap.String("key", key))
	}

	vector, err := c.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vector); err == nil {
		c.store.Set(ctx, cache.KindEmbedding, key, raw, c.ttl)
	}
	return vector, nil
}

// embeddingKey hashes model and text into a fixed-width cache id.
func embeddingKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
