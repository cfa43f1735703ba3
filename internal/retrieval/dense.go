package retrieval

import (
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
)

// Dense ranks catalog entries by cosine similarity to a query embedding.
// Output is deterministic for identical inputs: descending by score with
// ties broken by catalog insertion order.
type Dense struct {
	snap *catalog.Snapshot
}

// NewDense creates a dense retriever over a catalog snapshot.
func NewDense(snap *catalog.Snapshot) *Dense {
	return &Dense{snap: snap}
}

// Retrieve scores every entry against the query embedding. The query
// vector's dimensionality must match the catalog's.
func (d *Dense) Retrieve(queryVec []float32) ([]DenseResult, error) {
	if len(queryVec) != d.snap.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, catalog has %d",
			catalog.ErrDimensionMismatch, len(queryVec), d.snap.Dimension)
	}

	results := make([]DenseResult, 0, d.snap.Len())
	for _, entry := range d.snap.Entries {
		results = append(results, DenseResult{
			ID:    entry.ID,
			Score: catalog.Clamp01(catalog.Cosine(queryVec, entry.Embedding)),
		})
	}

	// Stable sort keeps insertion order on equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
