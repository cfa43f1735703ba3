// Package recommend orchestrates the full search pipeline: validation,
// rate limiting, cached-result lookup, query analysis, embedding,
// concurrent dense/sparse retrieval, graph augmentation, fuzzy scoring,
// blending, and best-effort result caching.
package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/patternd/internal/cache"
	"github.com/fyrsmithlabs/patternd/internal/catalog"
	"github.com/fyrsmithlabs/patternd/internal/config"
	"github.com/fyrsmithlabs/patternd/internal/embeddings"
	"github.com/fyrsmithlabs/patternd/internal/logging"
	"github.com/fyrsmithlabs/patternd/internal/query"
	"github.com/fyrsmithlabs/patternd/internal/resilience"
	"github.com/fyrsmithlabs/patternd/internal/retrieval"
	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

const (
	maxQueryLength    = 8192
	maxResultsCeiling = 100
	defaultMaxResults = 10

	embeddingDependency = "embedding-provider"
)

// Filters narrows candidates by catalog metadata. Empty fields match
// everything.
type Filters struct {
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Request is one search call.
type Request struct {
	Query      string
	Filters    Filters
	MaxResults int
	// ClientID keys rate limiting; empty means "anonymous".
	ClientID string
}

// Response is the ordered recommendation list plus per-query context.
type Response struct {
	QueryID   string
	QueryType query.Type
	Alpha     query.Weights
	Cached    bool
	Results   []retrieval.BlendedResult
}

// cachedSearch is the cache payload for one completed search; the query
// id is minted fresh on every request, cached or not.
type cachedSearch struct {
	QueryType query.Type                `json:"query_type"`
	Alpha     query.Weights             `json:"alpha"`
	Results   []retrieval.BlendedResult `json:"results"`
}

// Options wires the service's collaborators.
type Options struct {
	Store    *catalog.Store
	Provider embeddings.Provider
	Cache    *cache.MultiLevel
	Limiter  *resilience.Limiter
	Breakers *resilience.BreakerRegistry
	Logger   *zap.Logger

	Metrics *telemetry.Metrics      // may be nil
	Stages  *telemetry.StageMetrics // may be nil

	Retrieval config.RetrievalConfig
	SearchTTL time.Duration
}

// pipeline is the per-snapshot retrieval stack. Rebuilt as a unit when
// the catalog snapshot is swapped so one query never mixes snapshots.
type pipeline struct {
	snap      *catalog.Snapshot
	dense     *retrieval.Dense
	sparse    *retrieval.Sparse
	augmenter *retrieval.Augmenter
	blender   *retrieval.Blender
}

// Service is the recommendation engine's single entry point.
type Service struct {
	opts Options
	pipe atomic.Pointer[pipeline]
}

// NewService builds the service and its initial retrieval pipeline from
// the store's current snapshot.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("recommend: catalog store required")
	case opts.Provider == nil:
		return nil, fmt.Errorf("recommend: embedding provider required")
	case opts.Cache == nil:
		return nil, fmt.Errorf("recommend: cache required")
	case opts.Limiter == nil:
		return nil, fmt.Errorf("recommend: rate limiter required")
	case opts.Breakers == nil:
		return nil, fmt.Errorf("recommend: breaker registry required")
	case opts.Logger == nil:
		return nil, fmt.Errorf("recommend: logger required")
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = 10 * time.Minute
	}

	s := &Service{opts: opts}
	s.pipe.Store(s.buildPipeline(opts.Store.Snapshot()))
	return s, nil
}

// Rebuild recreates the retrieval pipeline from the store's current
// snapshot. The explicit refresh trigger after a catalog swap.
func (s *Service) Rebuild() {
	s.pipe.Store(s.buildPipeline(s.opts.Store.Snapshot()))
	s.opts.Logger.Info("retrieval pipeline rebuilt",
		zap.Int("entries", s.opts.Store.Snapshot().Len()))
}

func (s *Service) buildPipeline(snap *catalog.Snapshot) *pipeline {
	r := s.opts.Retrieval
	return &pipeline{
		snap:  snap,
		dense: retrieval.NewDense(snap),
		sparse: retrieval.NewSparse(snap, retrieval.SparseConfig{
			K1:          r.K1,
			B:           r.B,
			MinTermFreq: r.MinTermFreq,
		}),
		augmenter: retrieval.NewAugmenter(snap, retrieval.AugmenterConfig{
			MaxHops:             r.MaxHops,
			EdgeWeightThreshold: r.EdgeWeightThreshold,
		}),
		blender: retrieval.NewBlender(snap, retrieval.BlendConfig{
			GraphWeight:       r.GraphWeight,
			FuzzyWeight:       r.FuzzyWeight,
			MinDiversityScore: r.MinDiversityScore,
		}),
	}
}

// Search runs the full pipeline for one query. Rate-limit and
// circuit-open rejections surface immediately; cache and graph failures
// degrade; dense/sparse degrade to each other; only the loss of every
// signal source is an error.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	release, err := s.opts.Limiter.Acquire(req.ClientID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = logging.WithQueryID(ctx, uuid.NewString())
	log := s.opts.Logger.With(logging.ContextFields(ctx)...)

	start := time.Now()
	outcome := "error"
	defer func() {
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordSearch(outcome, time.Since(start))
		}
	}()

	key := searchKey(req)
	if raw, ok := s.opts.Cache.Get(ctx, cache.KindSearch, key); ok {
		var cached cachedSearch
		if err := json.Unmarshal(raw, &cached); err == nil {
			outcome = "cache_hit"
			log.Debug("search served from cache", zap.Int("results", len(cached.Results)))
			return &Response{
				QueryID:   logging.QueryID(ctx),
				QueryType: cached.QueryType,
				Alpha:     cached.Alpha,
				Cached:    true,
				Results:   cached.Results,
			}, nil
		}
		log.Debug("discarding undecodable cached search", zap.Error(err))
	}

	analysis := s.analyze(ctx, req.Query)
	alpha := query.TuneAlpha(analysis)
	p := s.pipe.Load()

	queryVec, embedErr := s.embed(ctx, req.Query)
	if embedErr != nil {
		log.Warn("embedding unavailable, degrading to keyword-only retrieval",
			zap.Error(embedErr))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dense, sparse, err := s.retrieve(ctx, p, queryVec, req.Query)
	if err != nil {
		log.Error("retrieval failed", zap.Error(err))
		return nil, err
	}
	dense = filterDense(p.snap, dense, req.Filters)
	sparse = filterSparse(p.snap, sparse, req.Filters)

	if embedErr != nil && len(sparse) == 0 {
		return nil, &DependencyUnavailableError{Dependency: embeddingDependency, Err: embedErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph := s.augment(ctx, p, dense, sparse)
	graph = filterGraph(p.snap, graph, req.Filters)

	blendStart := time.Now()
	results := p.blender.Blend(alpha, dense, sparse, graph, req.MaxResults)
	s.recordStage(ctx, "blend", time.Since(blendStart), nil)

	// A sparse-only result set is not cached: once the embedding
	// provider recovers, the same query should get the full ranking
	// immediately instead of a degraded replay for the rest of the TTL.
	if embedErr == nil {
		if raw, err := json.Marshal(cachedSearch{
			QueryType: analysis.Type,
			Alpha:     alpha,
			Results:   results,
		}); err == nil {
			s.opts.Cache.Set(ctx, cache.KindSearch, key, raw, s.opts.SearchTTL)
		}
	}

	outcome = "ok"
	log.Info("search completed",
		zap.String("query_type", string(analysis.Type)),
		zap.Float64("alpha_semantic", alpha.Semantic),
		zap.Int("dense_candidates", len(dense)),
		zap.Int("sparse_candidates", len(sparse)),
		zap.Int("graph_candidates", len(graph)),
		zap.Int("results", len(results)),
		zap.Bool("degraded", embedErr != nil),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		QueryID:   logging.QueryID(ctx),
		QueryType: analysis.Type,
		Alpha:     alpha,
		Results:   results,
	}, nil
}

func (s *Service) analyze(ctx context.Context, q string) query.Analysis {
	start := time.Now()
	analysis := query.Analyze(q)
	s.recordStage(ctx, "analyze", time.Since(start), nil)
	return analysis
}

// embed fetches the query embedding behind the provider's breaker. Any
// failure, including an open circuit, degrades dense retrieval rather
// than failing the request while sparse results remain possible.
func (s *Service) embed(ctx context.Context, q string) ([]float32, error) {
	var vec []float32
	err := s.opts.Breakers.Get(embeddingDependency).Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = s.opts.Provider.EmbedQuery(ctx, q)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// retrieve runs dense and sparse retrieval concurrently. A nil query
// vector skips dense retrieval. A dimension mismatch is fatal for the
// request; it signals catalog/provider disagreement, not load.
func (s *Service) retrieve(ctx context.Context, p *pipeline, queryVec []float32, q string) ([]retrieval.DenseResult, []retrieval.SparseResult, error) {
	var (
		dense  []retrieval.DenseResult
		sparse []retrieval.SparseResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if queryVec != nil {
		g.Go(func() error {
			start := time.Now()
			var err error
			dense, err = p.dense.Retrieve(queryVec)
			s.recordStage(gctx, "dense", time.Since(start), err)
			return err
		})
	}
	g.Go(func() error {
		start := time.Now()
		sparse = p.sparse.Retrieve(q)
		s.recordStage(gctx, "sparse", time.Since(start), nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return dense, sparse, nil
}

// augment expands the top candidates through the similarity graph.
// Always absorbed: a graph problem means fewer signals, never a failed
// request.
func (s *Service) augment(ctx context.Context, p *pipeline, dense []retrieval.DenseResult, sparse []retrieval.SparseResult) []retrieval.GraphResult {
	start := time.Now()
	seeds := seedIDs(dense, sparse, s.opts.Retrieval.GraphSeedCount)
	results := p.augmenter.Augment(seeds)
	s.recordStage(ctx, "graph", time.Since(start), nil)
	return results
}

func (s *Service) recordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if s.opts.Stages != nil {
		s.opts.Stages.RecordStage(ctx, stage, d, err)
	}
}

// seedIDs interleaves dense and sparse rankings into a deduplicated
// seed list for graph traversal.
func seedIDs(dense []retrieval.DenseResult, sparse []retrieval.SparseResult, count int) []string {
	if count <= 0 {
		count = 10
	}
	seen := make(map[string]struct{}, count)
	seeds := make([]string, 0, count)
	add := func(id string) {
		if len(seeds) >= count {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		seeds = append(seeds, id)
	}

	for i := 0; i < len(dense) || i < len(sparse); i++ {
		if i < len(dense) {
			add(dense[i].ID)
		}
		if i < len(sparse) {
			add(sparse[i].ID)
		}
		if len(seeds) >= count {
			break
		}
	}
	return seeds
}

func validate(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if len(req.Query) > maxQueryLength {
		return &ValidationError{Field: "query", Reason: fmt.Sprintf("exceeds %d bytes", maxQueryLength)}
	}
	if req.MaxResults < 0 {
		return &ValidationError{Field: "max_results", Reason: "must not be negative"}
	}
	if req.MaxResults > maxResultsCeiling {
		return &ValidationError{Field: "max_results", Reason: fmt.Sprintf("exceeds ceiling of %d", maxResultsCeiling)}
	}
	if req.MaxResults == 0 {
		req.MaxResults = defaultMaxResults
	}
	for _, c := range req.Filters.Categories {
		if strings.TrimSpace(c) == "" {
			return &ValidationError{Field: "filters.categories", Reason: "must not contain empty values"}
		}
	}
	for _, tag := range req.Filters.Tags {
		if strings.TrimSpace(tag) == "" {
			return &ValidationError{Field: "filters.tags", Reason: "must not contain empty values"}
		}
	}
	if req.ClientID == "" {
		req.ClientID = "anonymous"
	}
	return nil
}

// searchKey derives a stable cache id from everything that affects the
// result set.
func searchKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Query))
	h.Write([]byte{0})
	for _, c := range req.Filters.Categories {
		h.Write([]byte(c))
		h.Write([]byte{1})
	}
	for _, tag := range req.Filters.Tags {
		h.Write([]byte(tag))
		h.Write([]byte{2})
	}
	fmt.Fprintf(h, "%d", req.MaxResults)
	return hex.EncodeToString(h.Sum(nil))
}

func matchesFilters(e *catalog.Entry, f Filters) bool {
	if len(f.Categories) > 0 && !containsFold(f.Categories, e.Category) {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, tag := range e.Tags {
			if containsFold(f.Tags, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func filterDense(snap *catalog.Snapshot, in []retrieval.DenseResult, f Filters) []retrieval.DenseResult {
	if len(f.Categories) == 0 && len(f.Tags) == 0 {
		return in
	}
	out := in[:0]
	for _, r := range in {
		if e, ok := snap.Entry(r.ID); ok && matchesFilters(e, f) {
			out = append(out, r)
		}
	}
	return out
}

func filterSparse(snap *catalog.Snapshot, in []retrieval.SparseResult, f Filters) []retrieval.SparseResult {
	if len(f.Categories) == 0 && len(f.Tags) == 0 {
		return in
	}
	out := in[:0]
	for _, r := range in {
		if e, ok := snap.Entry(r.ID); ok && matchesFilters(e, f) {
			out = append(out, r)
		}
	}
	return out
}

func filterGraph(snap *catalog.Snapshot, in []retrieval.GraphResult, f Filters) []retrieval.GraphResult {
	if len(f.Categories) == 0 && len(f.Tags) == 0 {
		return in
	}
	out := in[:0]
	for _, r := range in {
		if e, ok := snap.Entry(r.ID); ok && matchesFilters(e, f) {
			out = append(out, r)
		}
	}
	return out
}
