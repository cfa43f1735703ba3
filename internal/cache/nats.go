package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the L2 remote key-value tier.
type NATSConfig struct {
	URL     string
	Bucket  string
	Timeout time.Duration
}

// NATS is the optional remote L2 tier backed by a JetStream key-value
// bucket. TTL enforcement rides on the envelope layer; the bucket itself
// only bounds total size.
type NATS struct {
	conn   *nats.Conn
	kv     nats.KeyValue
	logger *zap.Logger

	timeout time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewNATS connects to the NATS server and binds (or creates) the bucket.
func NewNATS(cfg NATSConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("nats cache bucket required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	conn, err := nats.Connect(cfg.URL, nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("binding KV bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("L2 cache connected",
		zap.String("url", cfg.URL),
		zap.String("bucket", cfg.Bucket))

	return &NATS{conn: conn, kv: kv, logger: logger, timeout: cfg.Timeout}, nil
}

func (n *NATS) Name() string { return "l2" }

func (n *NATS) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := n.kv.Get(kvKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		n.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	n.hits.Add(1)
	return entry.Value(), true, nil
}

func (n *NATS) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := n.kv.Put(kvKey(key), value); err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

func (n *NATS) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(kvKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (n *NATS) Stats() Stats {
	s := Stats{Hits: n.hits.Load(), Misses: n.misses.Load()}
	if status, err := n.kv.Status(); err == nil {
		s.Entries = int64(status.Values())
	}
	return s
}

// Close drains the connection.
func (n *NATS) Close() {
	n.conn.Close()
}

// kvKey maps a namespaced cache key onto the NATS KV key charset,
// which does not allow ':'.
func kvKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}
