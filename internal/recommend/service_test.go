package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/cache"
	"github.com/fyrsmithlabs/patternd/internal/catalog"
	"github.com/fyrsmithlabs/patternd/internal/config"
	"github.com/fyrsmithlabs/patternd/internal/resilience"
	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

type fakeProvider struct {
	vec   []float32
	err   error
	calls int
}

func (p *fakeProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	p.calls++
	return p.vec, p.err
}

func testStore(t *testing.T) *catalog.Store {
	t.Helper()

	entries := []catalog.Entry{
		{
			ID: "builder", Name: "Builder", Category: "creational",
			Tags:       []string{"construction", "optional-parameters"},
			Complexity: "medium",
			Text:       "Create objects with many optional parameters step by step",
			Embedding:  []float32{1, 0, 0},
		},
		{
			ID: "factory-method", Name: "Factory Method", Category: "creational",
			Tags:       []string{"construction"},
			Complexity: "low",
			Text:       "Defer instantiation to subclasses through a creation method",
			Embedding:  []float32{0.6, 0.4, 0},
		},
		{
			ID: "observer", Name: "Observer", Category: "behavioral",
			Tags:       []string{"events"},
			Complexity: "medium",
			Text:       "Notify dependents automatically when subject state changes",
			Embedding:  []float32{0, 1, 0},
		},
		{
			ID: "singleton", Name: "Singleton", Category: "creational",
			Tags:       []string{"instance"},
			Complexity: "low",
			Text:       "Ensure a class has a single shared instance",
			Embedding:  []float32{0, 0, 1},
		},
	}
	graph := map[string]*catalog.Node{
		"builder": {ID: "builder", Neighbors: []catalog.Edge{
			{To: "factory-method", Weight: 0.9, Kind: catalog.EdgeSimilarity},
		}},
	}

	snap, err := catalog.NewSnapshot(entries, graph)
	require.NoError(t, err)
	return catalog.NewStore(snap, zap.NewNop())
}

type testDeps struct {
	provider *fakeProvider
	limiter  *resilience.Limiter
	breakers *resilience.BreakerRegistry
}

func newTestService(t *testing.T, mutate func(*testDeps)) (*Service, *testDeps) {
	t.Helper()

	deps := &testDeps{
		provider: &fakeProvider{vec: []float32{0.7, 0.5, 0.1}},
		limiter: resilience.NewLimiter(resilience.LimiterConfig{
			RequestsPerMinute: 600,
			Burst:             100,
			MaxConcurrent:     10,
		}, zap.NewNop(), nil),
		breakers: resilience.NewBreakerRegistry(resilience.BreakerConfig{
			FailureThreshold: 2,
			RecoveryTimeout:  time.Hour,
		}, zap.NewNop(), nil),
	}
	if mutate != nil {
		mutate(deps)
	}

	store := cache.NewMultiLevel(cache.MultiLevelConfig{
		L1: cache.NewMemory(100, time.Hour),
	}, telemetry.NopSink{}, zap.NewNop())

	svc, err := NewService(Options{
		Store:    testStore(t),
		Provider: deps.provider,
		Cache:    store,
		Limiter:  deps.limiter,
		Breakers: deps.breakers,
		Logger:   zap.NewNop(),
		Retrieval: config.RetrievalConfig{
			K1:                  1.2,
			B:                   0.75,
			MaxHops:             2,
			EdgeWeightThreshold: 0.5,
			GraphWeight:         0.1,
			FuzzyWeight:         0.1,
			MinDiversityScore:   0.01,
			GraphSeedCount:      10,
		},
		SearchTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc, deps
}

func TestSearchScenario(t *testing.T) {
	svc, _ := newTestService(t, nil)

	resp, err := svc.Search(context.Background(), Request{
		Query:      "How to create objects with many optional parameters",
		MaxResults: 3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	seen := make(map[string]struct{})
	for i, r := range resp.Results {
		_, dup := seen[r.ID]
		assert.False(t, dup, "pattern ids must be distinct")
		seen[r.ID] = struct{}{}

		assert.GreaterOrEqual(t, r.FinalScore, 0.0)
		assert.LessOrEqual(t, r.FinalScore, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].FinalScore, r.FinalScore)
		}
	}
	assert.Equal(t, "builder", resp.Results[0].ID)
	assert.NotEmpty(t, resp.QueryID)
	assert.InDelta(t, 1.0, resp.Alpha.Semantic+resp.Alpha.Keyword, 1e-9)
}

func TestSearchValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{Query: "   "}},
		{"negative max results", Request{Query: "q", MaxResults: -1}},
		{"excessive max results", Request{Query: "q", MaxResults: 500}},
		{"empty category filter", Request{Query: "q", Filters: Filters{Categories: []string{""}}}},
		{"empty tag filter", Request{Query: "q", Filters: Filters{Tags: []string{" "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(ctx, tt.req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSearchServedFromCacheSecondTime(t *testing.T) {
	svc, deps := newTestService(t, nil)
	ctx := context.Background()
	req := Request{Query: "builder with optional parameters", MaxResults: 2}

	first, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.NotEqual(t, first.QueryID, second.QueryID, "each request gets a fresh query id")
	assert.Equal(t, 1, deps.provider.calls, "cached search must not re-embed")
}

func TestSearchRateLimited(t *testing.T) {
	svc, _ := newTestService(t, func(d *testDeps) {
		d.limiter = resilience.NewLimiter(resilience.LimiterConfig{
			RequestsPerMinute: 1,
			Burst:             1,
			MaxConcurrent:     10,
		}, zap.NewNop(), nil)
	})
	ctx := context.Background()

	_, err := svc.Search(ctx, Request{Query: "observer pattern", ClientID: "client-1"})
	require.NoError(t, err)

	_, err = svc.Search(ctx, Request{Query: "singleton pattern", ClientID: "client-1"})
	var rlerr *resilience.RateLimitedError
	require.ErrorAs(t, err, &rlerr)
	assert.Equal(t, "client-1", rlerr.Key)
	assert.Greater(t, rlerr.RetryAfter, time.Duration(0))
}

func TestSearchDegradesToSparseOnEmbeddingFailure(t *testing.T) {
	svc, deps := newTestService(t, func(d *testDeps) {
		d.provider = &fakeProvider{err: errors.New("timeout")}
	})
	ctx := context.Background()

	resp, err := svc.Search(ctx, Request{Query: "create objects with optional parameters"})
	require.NoError(t, err, "embedding failure must degrade, not fail")
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "builder", resp.Results[0].ID)
	for _, r := range resp.Results {
		assert.Zero(t, r.DenseScore)
	}

	// Consecutive failures trip the embedding circuit; later searches
	// still work, now skipping the provider entirely.
	_, err = svc.Search(ctx, Request{Query: "notify dependents of state changes"})
	require.NoError(t, err)
	assert.Equal(t, resilience.StateOpen, deps.breakers.Get(embeddingDependency).State())

	callsBefore := deps.provider.calls
	_, err = svc.Search(ctx, Request{Query: "shared single instance"})
	require.NoError(t, err)
	assert.Equal(t, callsBefore, deps.provider.calls, "open circuit must not touch the provider")
}

func TestSearchDegradedResultIsNotCached(t *testing.T) {
	svc, deps := newTestService(t, func(d *testDeps) {
		d.provider = &fakeProvider{err: errors.New("timeout")}
	})
	ctx := context.Background()
	req := Request{Query: "create objects with optional parameters", MaxResults: 3}

	degraded, err := svc.Search(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, degraded.Results)
	for _, r := range degraded.Results {
		assert.Zero(t, r.DenseScore)
	}

	// Once the provider recovers, the identical query must be recomputed
	// with the dense signal, not replayed from cache.
	deps.provider.err = nil
	deps.provider.vec = []float32{0.7, 0.5, 0.1}

	recovered, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, recovered.Cached, "degraded results must not populate the search cache")
	assert.Positive(t, recovered.Results[0].DenseScore)
}

func TestSearchFailsWhenAllSignalSourcesFail(t *testing.T) {
	svc, _ := newTestService(t, func(d *testDeps) {
		d.provider = &fakeProvider{err: errors.New("timeout")}
	})

	_, err := svc.Search(context.Background(), Request{Query: "zzz qqq xxyyzz"})
	var derr *DependencyUnavailableError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, embeddingDependency, derr.Dependency)
}

func TestSearchDimensionMismatchIsFatal(t *testing.T) {
	svc, _ := newTestService(t, func(d *testDeps) {
		d.provider = &fakeProvider{vec: []float32{1, 0}}
	})

	_, err := svc.Search(context.Background(), Request{Query: "observer pattern"})
	assert.ErrorIs(t, err, catalog.ErrDimensionMismatch)
}

func TestSearchAppliesFilters(t *testing.T) {
	svc, _ := newTestService(t, nil)

	resp, err := svc.Search(context.Background(), Request{
		Query:   "notify dependents when state changes",
		Filters: Filters{Categories: []string{"behavioral"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "behavioral", r.Category)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, Request{Query: "observer pattern"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchRebuildSwapsPipeline(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// Swap in a one-entry catalog and rebuild; old entries disappear.
	entries := []catalog.Entry{
		{ID: "adapter", Name: "Adapter", Category: "structural",
			Text: "Convert one interface into another", Embedding: []float32{1, 0, 0}},
	}
	snap, err := catalog.NewSnapshot(entries, nil)
	require.NoError(t, err)
	svc.opts.Store.Swap(snap)
	svc.Rebuild()

	resp, err := svc.Search(context.Background(), Request{Query: "convert one interface into another"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "adapter", resp.Results[0].ID)
}
