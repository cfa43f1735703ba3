package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// Store holds the current snapshot and supports atomic rebuilds.
// Readers get a consistent snapshot for the lifetime of one query.
type Store struct {
	current atomic.Pointer[Snapshot]
	logger  *zap.Logger
}

// NewStore creates a store seeded with the given snapshot.
func NewStore(snap *Snapshot, logger *zap.Logger) *Store {
	s := &Store{logger: logger}
	s.current.Store(snap)
	return s
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap replaces the snapshot. The explicit rebuild trigger for refreshed
// catalog or graph data.
func (s *Store) Swap(snap *Snapshot) {
	old := s.current.Swap(snap)
	s.logger.Info("catalog snapshot swapped",
		zap.Int("entries", snap.Len()),
		zap.Int("previous_entries", old.Len()),
		zap.Int("dimension", snap.Dimension))
}

// snapshotFile is the on-disk layout written by the ingestion tooling.
type snapshotFile struct {
	Entries []Entry `json:"entries"`
}

// LoadSnapshot reads a catalog snapshot from a JSON file and builds the
// similarity graph over it.
func LoadSnapshot(path string, graphCfg GraphConfig, logger *zap.Logger) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog snapshot %s: %w", path, err)
	}

	graph := BuildGraph(file.Entries, graphCfg)
	snap, err := NewSnapshot(file.Entries, graph)
	if err != nil {
		return nil, fmt.Errorf("building catalog snapshot: %w", err)
	}

	logger.Info("catalog snapshot loaded",
		zap.String("path", path),
		zap.Int("entries", snap.Len()),
		zap.Int("dimension", snap.Dimension))

	return snap, nil
}
