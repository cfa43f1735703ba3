package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	// ErrEmptyCatalog indicates a snapshot with no entries.
	ErrEmptyCatalog = errors.New("catalog has no entries")

	// ErrDimensionMismatch indicates inconsistent embedding dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Entry is one design pattern with metadata and its precomputed embedding.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Complexity string    `json:"complexity"`
	Text       string    `json:"text"`
	TextHash   string    `json:"text_hash"`
	Embedding  []float32 `json:"embedding"`
}

// EdgeKind distinguishes embedding-similarity edges from metadata edges.
type EdgeKind string

const (
	EdgeSimilarity EdgeKind = "similarity"
	EdgeMetadata   EdgeKind = "metadata"
)

// Edge is a weighted connection in the kNN similarity graph.
type Edge struct {
	To       string
	Distance float64
	Weight   float64
	Kind     EdgeKind
}

// Node is one catalog entry's position in the similarity graph.
// Neighbors are ordered by descending weight.
type Node struct {
	ID        string
	Neighbors []Edge
}

// Snapshot is an immutable view of the catalog plus its graph.
// Entries preserves catalog insertion order; retrieval tie-breaking
// depends on it.
type Snapshot struct {
	Entries   []Entry
	Graph     map[string]*Node
	Dimension int

	index map[string]int
}

// NewSnapshot validates entries and builds the id index.
// All embeddings must share one dimensionality.
func NewSnapshot(entries []Entry, graph map[string]*Node) (*Snapshot, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	dim := len(entries[0].Embedding)
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d has empty id", i)
		}
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("%w: entry %q has dimension %d, want %d",
				ErrDimensionMismatch, e.ID, len(e.Embedding), dim)
		}
		if _, dup := index[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entry id %q", e.ID)
		}
		index[e.ID] = i
	}

	if graph == nil {
		graph = map[string]*Node{}
	}

	return &Snapshot{
		Entries:   entries,
		Graph:     graph,
		Dimension: dim,
		index:     index,
	}, nil
}

// Entry returns the entry for id and whether it exists.
func (s *Snapshot) Entry(id string) (*Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.Entries[i], true
}

// Position returns the insertion-order index for id, or -1.
func (s *Snapshot) Position(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.Entries) }
