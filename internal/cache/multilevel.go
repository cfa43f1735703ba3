package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/resilience"
	"github.com/fyrsmithlabs/patternd/internal/telemetry"
)

// WriteStrategy selects how deep-tier writes behave.
type WriteStrategy string

const (
	// WriteThrough waits for the deep tier's ack.
	WriteThrough WriteStrategy = "write_through"
	// WriteBack fires and forgets.
	WriteBack WriteStrategy = "write_back"
)

// MultiLevelConfig assembles the tiered cache.
type MultiLevelConfig struct {
	L1 Tier // required
	L2 Tier // optional remote KV
	L3 Tier // optional persistent store

	// L2Breaker guards the remote tier so an unreachable L2 degrades to
	// L1/L3-only instead of failing requests. Required when L2 is set.
	L2Breaker *resilience.Breaker

	Strategy     WriteStrategy
	Codec        Codec
	WriteTimeout time.Duration
}

// MultiLevel consults tiers in order on read and warms shallower tiers
// when a deeper tier hits. All failures below it are absorbed: the worst
// outcome of any tier problem is a recomputation.
type MultiLevel struct {
	cfg    MultiLevelConfig
	sink   telemetry.Sink
	logger *zap.Logger

	now func() time.Time
}

// NewMultiLevel builds the tiered cache. sink must not be nil; use
// telemetry.NopSink to discard events.
func NewMultiLevel(cfg MultiLevelConfig, sink telemetry.Sink, logger *zap.Logger) *MultiLevel {
	if cfg.Codec == nil {
		cfg.Codec = NoopCodec{}
	}
	if cfg.Strategy == "" {
		cfg.Strategy = WriteThrough
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &MultiLevel{cfg: cfg, sink: sink, logger: logger, now: time.Now}
}

// Get looks key up tier by tier. A hit at L2/L3 warms every shallower
// tier with the stored envelope unchanged, preserving its creation time
// and TTL. Corrupt and expired entries count as misses.
func (m *MultiLevel) Get(ctx context.Context, kind Kind, id string) ([]byte, bool) {
	key := Key(kind, id)

	tiers := m.tiers()
	for i, tier := range tiers {
		start := m.now()
		stored, found, err := m.tierGet(ctx, tier, key)
		m.emit(kind, key, tier.Name(), found && err == nil, m.now().Sub(start))

		if err != nil {
			m.logger.Debug("cache tier get failed, treating as miss",
				zap.String("tier", tier.Name()),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		if !found {
			continue
		}

		value, ok := open(stored, m.now())
		if !ok {
			// Expired or corrupt. Drop it so the next read skips straight
			// to recomputation.
			if derr := tier.Delete(ctx, key); derr != nil {
				m.logger.Debug("failed to drop stale cache entry",
					zap.String("tier", tier.Name()), zap.Error(derr))
			}
			continue
		}

		m.warm(ctx, tiers[:i], key, stored)
		return value, true
	}

	return nil, false
}

// Set stores value at every configured tier. L1 keeps the value
// uncompressed; L2/L3 receive the codec-compressed envelope. Deep-tier
// writes are detached from the request context so cancellation does not
// abandon a write already under way.
func (m *MultiLevel) Set(ctx context.Context, kind Kind, id string, value []byte, ttl time.Duration) {
	key := Key(kind, id)
	now := m.now()

	shallow, err := seal(NoopCodec{}, value, ttl, now)
	if err != nil {
		m.logger.Warn("sealing cache value failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.cfg.L1.Set(ctx, key, shallow, ttl); err != nil {
		m.logger.Debug("l1 set failed", zap.String("key", key), zap.Error(err))
	}
	m.emit(kind, key, m.cfg.L1.Name(), true, 0)

	if m.cfg.L2 == nil && m.cfg.L3 == nil {
		return
	}

	deep, err := seal(m.cfg.Codec, value, ttl, now)
	if err != nil {
		m.logger.Warn("compressing cache value failed", zap.String("key", key), zap.Error(err))
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.WriteTimeout)
	write := func() {
		defer cancel()
		if m.cfg.L2 != nil {
			start := m.now()
			err := m.l2do(wctx, func(c context.Context) error {
				return m.cfg.L2.Set(c, key, deep, ttl)
			})
			m.emit(kind, key, m.cfg.L2.Name(), err == nil, m.now().Sub(start))
			if err != nil {
				m.logger.Debug("l2 set failed", zap.String("key", key), zap.Error(err))
			}
		}
		if m.cfg.L3 != nil {
			start := m.now()
			err := m.cfg.L3.Set(wctx, key, deep, ttl)
			m.emit(kind, key, m.cfg.L3.Name(), err == nil, m.now().Sub(start))
			if err != nil {
				m.logger.Debug("l3 set failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	if m.cfg.Strategy == WriteBack {
		go write()
		return
	}
	write()
}

// Delete removes key from every tier, best effort.
func (m *MultiLevel) Delete(ctx context.Context, kind Kind, id string) {
	key := Key(kind, id)
	for _, tier := range m.tiers() {
		if err := tier.Delete(ctx, key); err != nil {
			m.logger.Debug("cache delete failed",
				zap.String("tier", tier.Name()), zap.String("key", key), zap.Error(err))
		}
	}
}

// Stats reports per-tier statistics keyed by tier name.
func (m *MultiLevel) Stats() map[string]Stats {
	out := make(map[string]Stats)
	for _, tier := range m.tiers() {
		out[tier.Name()] = tier.Stats()
	}
	return out
}

func (m *MultiLevel) tiers() []Tier {
	tiers := []Tier{m.cfg.L1}
	if m.cfg.L2 != nil {
		tiers = append(tiers, m.cfg.L2)
	}
	if m.cfg.L3 != nil {
		tiers = append(tiers, m.cfg.L3)
	}
	return tiers
}

// tierGet reads one tier, routing L2 through its breaker.
func (m *MultiLevel) tierGet(ctx context.Context, tier Tier, key string) ([]byte, bool, error) {
	if tier != m.cfg.L2 {
		return tier.Get(ctx, key)
	}
	var (
		value []byte
		found bool
	)
	err := m.l2do(ctx, func(c context.Context) error {
		var gerr error
		value, found, gerr = tier.Get(c, key)
		return gerr
	})
	return value, found, err
}

func (m *MultiLevel) l2do(ctx context.Context, fn func(context.Context) error) error {
	if m.cfg.L2Breaker == nil {
		return fn(ctx)
	}
	return m.cfg.L2Breaker.Do(ctx, fn)
}

// warm writes the stored envelope back into shallower tiers after a
// deeper hit.
func (m *MultiLevel) warm(ctx context.Context, shallower []Tier, key string, stored []byte) {
	for _, tier := range shallower {
		var err error
		if tier == m.cfg.L2 {
			err = m.l2do(ctx, func(c context.Context) error {
				return tier.Set(c, key, stored, 0)
			})
		} else {
			err = tier.Set(ctx, key, stored, 0)
		}
		if err != nil {
			m.logger.Debug("cache warm failed",
				zap.String("tier", tier.Name()), zap.String("key", key), zap.Error(err))
		}
	}
}

func (m *MultiLevel) emit(kind Kind, key, tier string, hit bool, latency time.Duration) {
	m.sink.Record(telemetry.Event{
		Kind:    telemetry.EventKind(kind),
		Key:     key,
		Tier:    tier,
		Hit:     hit,
		Latency: latency,
	})
}
