package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/patternd/internal/logging"
)

// Config is the root configuration for patternd.
type Config struct {
	Catalog   CatalogConfig   `koanf:"catalog"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Cache     CacheConfig     `koanf:"cache"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Logging   logging.Config  `koanf:"logging"`
}

// CatalogConfig locates the pattern catalog snapshot.
type CatalogConfig struct {
	// Path to the JSON catalog snapshot produced by the ingestion tooling.
	Path string `koanf:"path"`
}

// RetrievalConfig tunes the blended retrieval pipeline.
type RetrievalConfig struct {
	// BM25 term-frequency saturation.
	K1 float64 `koanf:"k1"`
	// BM25 length normalization.
	B float64 `koanf:"b"`
	// Terms seen fewer times than this across the catalog are dropped
	// from the inverted index.
	MinTermFreq int `koanf:"min_term_freq"`

	// Graph traversal.
	GraphK              int     `koanf:"graph_k"`
	MaxHops             int     `koanf:"max_hops"`
	EdgeWeightThreshold float64 `koanf:"edge_weight_threshold"`
	MetadataEdges       bool    `koanf:"metadata_edges"`

	// Blend weights. Semantic/keyword come from the alpha tuner per query;
	// graph and fuzzy contributions are fixed.
	GraphWeight float64 `koanf:"graph_weight"`
	FuzzyWeight float64 `koanf:"fuzzy_weight"`

	// MMR selection stops once the marginal score falls below this.
	MinDiversityScore float64 `koanf:"min_diversity_score"`
	// How many seeds from dense+sparse feed graph augmentation.
	GraphSeedCount int `koanf:"graph_seed_count"`
}

// CacheConfig configures the three cache tiers.
type CacheConfig struct {
	L1 MemoryTierConfig `koanf:"l1"`
	L2 NATSTierConfig   `koanf:"l2"`
	L3 SQLiteTierConfig `koanf:"l3"`
	// Compression algorithm for L2/L3 values: "gzip" or "none".
	Compression string `koanf:"compression"`
	// TTL applied to search result entries.
	SearchTTL Duration `koanf:"search_ttl"`
	// TTL applied to embedding entries.
	EmbeddingTTL Duration `koanf:"embedding_ttl"`
}

// MemoryTierConfig configures the in-process L1 tier.
type MemoryTierConfig struct {
	MaxEntries int      `koanf:"max_entries"`
	TTL        Duration `koanf:"ttl"`
}

// NATSTierConfig configures the optional remote L2 tier (JetStream KV).
type NATSTierConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Bucket  string `koanf:"bucket"`
	// "write_through" waits for the store ack; "write_back" fires and forgets.
	WriteStrategy string   `koanf:"write_strategy"`
	Timeout       Duration `koanf:"timeout"`
}

// SQLiteTierConfig configures the optional persistent L3 tier.
type SQLiteTierConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// BreakerConfig configures circuit breakers for external dependencies.
type BreakerConfig struct {
	FailureThreshold int      `koanf:"failure_threshold"`
	SuccessThreshold int      `koanf:"success_threshold"`
	RecoveryTimeout  Duration `koanf:"recovery_timeout"`
}

// RateLimitConfig configures the per-key token bucket limiter.
type RateLimitConfig struct {
	RequestsPerMinute float64  `koanf:"requests_per_minute"`
	Burst             int      `koanf:"burst"`
	MaxConcurrent     int      `koanf:"max_concurrent"`
	IdleEviction      Duration `koanf:"idle_eviction"`
}

// EmbeddingConfig configures the external embedding provider.
type EmbeddingConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Retrieval.K1 == 0 {
		cfg.Retrieval.K1 = 1.2
	}
	if cfg.Retrieval.B == 0 {
		cfg.Retrieval.B = 0.75
	}
	if cfg.Retrieval.MinTermFreq == 0 {
		cfg.Retrieval.MinTermFreq = 1
	}
	if cfg.Retrieval.GraphK == 0 {
		cfg.Retrieval.GraphK = 8
	}
	if cfg.Retrieval.MaxHops == 0 {
		cfg.Retrieval.MaxHops = 2
	}
	if cfg.Retrieval.EdgeWeightThreshold == 0 {
		cfg.Retrieval.EdgeWeightThreshold = 0.5
	}
	if cfg.Retrieval.GraphWeight == 0 {
		cfg.Retrieval.GraphWeight = 0.1
	}
	if cfg.Retrieval.FuzzyWeight == 0 {
		cfg.Retrieval.FuzzyWeight = 0.1
	}
	if cfg.Retrieval.MinDiversityScore == 0 {
		cfg.Retrieval.MinDiversityScore = 0.05
	}
	if cfg.Retrieval.GraphSeedCount == 0 {
		cfg.Retrieval.GraphSeedCount = 10
	}

	if cfg.Cache.L1.MaxEntries == 0 {
		cfg.Cache.L1.MaxEntries = 1000
	}
	if cfg.Cache.L1.TTL == 0 {
		cfg.Cache.L1.TTL = Duration(5 * time.Minute)
	}
	if cfg.Cache.L2.Bucket == "" {
		cfg.Cache.L2.Bucket = "patternd_cache"
	}
	if cfg.Cache.L2.WriteStrategy == "" {
		cfg.Cache.L2.WriteStrategy = "write_through"
	}
	if cfg.Cache.L2.Timeout == 0 {
		cfg.Cache.L2.Timeout = Duration(2 * time.Second)
	}
	if cfg.Cache.Compression == "" {
		cfg.Cache.Compression = "none"
	}
	if cfg.Cache.SearchTTL == 0 {
		cfg.Cache.SearchTTL = Duration(10 * time.Minute)
	}
	if cfg.Cache.EmbeddingTTL == 0 {
		cfg.Cache.EmbeddingTTL = Duration(24 * time.Hour)
	}

	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.SuccessThreshold == 0 {
		cfg.Breaker.SuccessThreshold = 2
	}
	if cfg.Breaker.RecoveryTimeout == 0 {
		cfg.Breaker.RecoveryTimeout = Duration(30 * time.Second)
	}

	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 120
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.MaxConcurrent == 0 {
		cfg.RateLimit.MaxConcurrent = 10
	}
	if cfg.RateLimit.IdleEviction == 0 {
		cfg.RateLimit.IdleEviction = Duration(10 * time.Minute)
	}

	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8080"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(5 * time.Second)
	}

	if cfg.Logging.Format == "" {
		cfg.Logging = *logging.NewDefaultConfig()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Retrieval.K1 <= 0 {
		return fmt.Errorf("retrieval.k1 must be > 0, got %v", c.Retrieval.K1)
	}
	if c.Retrieval.B < 0 || c.Retrieval.B > 1 {
		return fmt.Errorf("retrieval.b must be in [0,1], got %v", c.Retrieval.B)
	}
	if c.Retrieval.EdgeWeightThreshold < 0 || c.Retrieval.EdgeWeightThreshold > 1 {
		return fmt.Errorf("retrieval.edge_weight_threshold must be in [0,1], got %v", c.Retrieval.EdgeWeightThreshold)
	}
	if c.Retrieval.MaxHops < 1 {
		return fmt.Errorf("retrieval.max_hops must be >= 1, got %d", c.Retrieval.MaxHops)
	}
	if c.Cache.L1.MaxEntries < 1 {
		return fmt.Errorf("cache.l1.max_entries must be >= 1, got %d", c.Cache.L1.MaxEntries)
	}
	switch c.Cache.L2.WriteStrategy {
	case "write_through", "write_back":
	default:
		return fmt.Errorf("cache.l2.write_strategy must be 'write_through' or 'write_back', got %q", c.Cache.L2.WriteStrategy)
	}
	switch c.Cache.Compression {
	case "none", "gzip":
	default:
		return fmt.Errorf("cache.compression must be 'none' or 'gzip', got %q", c.Cache.Compression)
	}
	if c.Cache.L2.Enabled && c.Cache.L2.URL == "" {
		return fmt.Errorf("cache.l2.url required when l2 enabled")
	}
	if c.Cache.L3.Enabled && c.Cache.L3.Path == "" {
		return fmt.Errorf("cache.l3.path required when l3 enabled")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be >= 1, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.SuccessThreshold < 1 {
		return fmt.Errorf("breaker.success_threshold must be >= 1, got %d", c.Breaker.SuccessThreshold)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must be > 0, got %v", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit.burst must be >= 1, got %d", c.RateLimit.Burst)
	}
	if c.RateLimit.MaxConcurrent < 1 {
		return fmt.Errorf("ratelimit.max_concurrent must be >= 1, got %d", c.RateLimit.MaxConcurrent)
	}
	return c.Logging.Validate()
}
