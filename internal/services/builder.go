package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/cache"
	"github.com/fyrsmithlabs/patternd/internal/catalog"
	"github.com/fyrsmithlabs/patternd/internal/config"
	"github.com/fyrsmithlabs/patternd/internal/embeddings"
	"github.com/fyrsmithlabs/patternd/internal/recommend"
	"github.com/fyrsmithlabs/patternd/internal/resilience"
	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// Build constructs the full service graph from configuration: catalog
// snapshot, cache tiers, resilience primitives, embedding provider, and
// the recommendation service.
func Build(cfg *config.Config, logger *zap.Logger) (Registry, error) {
	if err := telemetry.SetupMeterProvider(); err != nil {
		return nil, fmt.Errorf("installing meter provider: %w", err)
	}
	metrics := telemetry.NewMetrics()
	bus := telemetry.NewBus(1024, metrics)
	stages := telemetry.NewStageMetrics(logger)
	closers := []func(){bus.Close}

	fail := func(err error) (Registry, error) {
		for _, fn := range closers {
			fn()
		}
		return nil, err
	}

	snap, err := catalog.LoadSnapshot(cfg.Catalog.Path, catalog.GraphConfig{
		K:             cfg.Retrieval.GraphK,
		MetadataEdges: cfg.Retrieval.MetadataEdges,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("loading catalog: %w", err))
	}
	store := catalog.NewStore(snap, logger)

	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		RecoveryTimeout:  time.Duration(cfg.Breaker.RecoveryTimeout),
	}, logger, metrics)

	limiter := resilience.NewLimiter(resilience.LimiterConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		MaxConcurrent:     cfg.RateLimit.MaxConcurrent,
		IdleEviction:      time.Duration(cfg.RateLimit.IdleEviction),
	}, logger, metrics)

	codec, err := cache.NewCodec(cfg.Cache.Compression)
	if err != nil {
		return fail(fmt.Errorf("configuring cache compression: %w", err))
	}

	mlCfg := cache.MultiLevelConfig{
		L1:       cache.NewMemory(cfg.Cache.L1.MaxEntries, time.Duration(cfg.Cache.L1.TTL)),
		Codec:    codec,
		Strategy: cache.WriteStrategy(cfg.Cache.L2.WriteStrategy),
	}
	if cfg.Cache.L2.Enabled {
		l2, err := cache.NewNATS(cache.NATSConfig{
			URL:     cfg.Cache.L2.URL,
			Bucket:  cfg.Cache.L2.Bucket,
			Timeout: time.Duration(cfg.Cache.L2.Timeout),
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("connecting L2 cache: %w", err))
		}
		closers = append(closers, l2.Close)
		mlCfg.L2 = l2
		mlCfg.L2Breaker = breakers.Get("cache-l2")
	}
	if cfg.Cache.L3.Enabled {
		l3, err := cache.NewSQLite(cfg.Cache.L3.Path, logger)
		if err != nil {
			return fail(fmt.Errorf("opening L3 cache: %w", err))
		}
		closers = append(closers, func() {
			if err := l3.Close(); err != nil {
				logger.Warn("closing L3 cache", zap.Error(err))
			}
		})
		mlCfg.L3 = l3
	}
	tiered := cache.NewMultiLevel(mlCfg, bus, logger)

	tei, err := embeddings.NewTEI(embeddings.TEIConfig{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: time.Duration(cfg.Embedding.Timeout),
	}, stages)
	if err != nil {
		return fail(fmt.Errorf("configuring embedding provider: %w", err))
	}
	provider := embeddings.NewCached(tei, cfg.Embedding.Model, tiered,
		time.Duration(cfg.Cache.EmbeddingTTL), logger)

	svc, err := recommend.NewService(recommend.Options{
		Store:     store,
		Provider:  provider,
		Cache:     tiered,
		Limiter:   limiter,
		Breakers:  breakers,
		Logger:    logger,
		Metrics:   metrics,
		Stages:    stages,
		Retrieval: cfg.Retrieval,
		SearchTTL: time.Duration(cfg.Cache.SearchTTL),
	})
	if err != nil {
		return fail(fmt.Errorf("building recommend service: %w", err))
	}

	return NewRegistry(Options{
		Recommend: svc,
		Catalog:   store,
		Cache:     tiered,
		Breakers:  breakers,
		Limiter:   limiter,
		Metrics:   metrics,
		Closers:   closers,
	}), nil
}
