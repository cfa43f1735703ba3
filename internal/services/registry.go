// Package services wires the process's components together and hands
// them out through an explicit registry, so tests and commands can
// instantiate isolated instances instead of sharing hidden globals.
package services

import (
	"github.com/fyrsmithlabs/patternd/internal/cache"
	"github.com/fyrsmithlabs/patternd/internal/catalog"
	"github.com/fyrsmithlabs/patternd/internal/recommend"
	"github.com/fyrsmithlabs/patternd/internal/resilience"
	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// Registry provides access to all patternd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Recommend() *recommend.Service
	Catalog() *catalog.Store
	Cache() *cache.MultiLevel
	Breakers() *resilience.BreakerRegistry
	Limiter() *resilience.Limiter
	Metrics() *telemetry.Metrics

	// Close releases owned resources: the telemetry bus and any remote
	// or persistent cache tiers.
	Close()
}

// Options configures the registry with service instances.
type Options struct {
	Recommend *recommend.Service
	Catalog   *catalog.Store
	Cache     *cache.MultiLevel
	Breakers  *resilience.BreakerRegistry
	Limiter   *resilience.Limiter
	Metrics   *telemetry.Metrics

	// Closers run once, in order, on Close.
	Closers []func()
}

// registry is the concrete implementation of Registry.
type registry struct {
	recommend *recommend.Service
	catalog   *catalog.Store
	cache     *cache.MultiLevel
	breakers  *resilience.BreakerRegistry
	limiter   *resilience.Limiter
	metrics   *telemetry.Metrics
	closers   []func()
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		recommend: opts.Recommend,
		catalog:   opts.Catalog,
		cache:     opts.Cache,
		breakers:  opts.Breakers,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		closers:   opts.Closers,
	}
}

func (r *registry) Recommend() *recommend.Service          { return r.recommend }
func (r *registry) Catalog() *catalog.Store                { return r.catalog }
func (r *registry) Cache() *cache.MultiLevel               { return r.cache }
func (r *registry) Breakers() *resilience.BreakerRegistry  { return r.breakers }
func (r *registry) Limiter() *resilience.Limiter           { return r.limiter }
func (r *registry) Metrics() *telemetry.Metrics            { return r.metrics }

func (r *registry) Close() {
	for _, fn := range r.closers {
		fn()
	}
}
