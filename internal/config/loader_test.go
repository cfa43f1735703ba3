package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.2, cfg.Retrieval.K1)
	assert.Equal(t, 0.75, cfg.Retrieval.B)
	assert.Equal(t, 2, cfg.Retrieval.MaxHops)
	assert.Equal(t, 1000, cfg.Cache.L1.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.L1.TTL.Duration())
	assert.Equal(t, "write_through", cfg.Cache.L2.WriteStrategy)
	assert.Equal(t, "none", cfg.Cache.Compression)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.RecoveryTimeout.Duration())
	assert.Equal(t, float64(120), cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
retrieval:
  k1: 1.5
  max_hops: 3
cache:
  compression: gzip
  l1:
    max_entries: 50
    ttl: 1m
breaker:
  failure_threshold: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.Retrieval.K1)
	assert.Equal(t, 3, cfg.Retrieval.MaxHops)
	assert.Equal(t, "gzip", cfg.Cache.Compression)
	assert.Equal(t, 50, cfg.Cache.L1.MaxEntries)
	assert.Equal(t, time.Minute, cfg.Cache.L1.TTL.Duration())
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	// Untouched sections keep defaults.
	assert.Equal(t, 0.75, cfg.Retrieval.B)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  max_hops: 3\n"), 0o600))

	t.Setenv("PATTERND_RETRIEVAL_MAX_HOPS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Retrieval.MaxHops)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad write strategy",
			yaml: "cache:\n  l2:\n    write_strategy: sometimes\n",
		},
		{
			name: "bad compression",
			yaml: "cache:\n  compression: zstd9000\n",
		},
		{
			name: "b out of range",
			yaml: "retrieval:\n  b: 1.5\n",
		},
		{
			name: "l2 enabled without url",
			yaml: "cache:\n  l2:\n    enabled: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("not a duration")))
}
