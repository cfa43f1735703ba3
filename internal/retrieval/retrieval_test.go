package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
)

// testSnapshot builds a small catalog with 3-dimensional embeddings and
// a hand-wired similarity graph:
//
//	builder --0.9--> factory-method --0.7--> singleton --0.3--> observer
func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()

	entries := []catalog.Entry{
		{
			ID: "builder", Name: "Builder", Category: "creational",
			Tags:       []string{"construction", "optional-parameters"},
			Complexity: "medium",
			Text:       "Construct a complex object with many optional parameters step by step",
			Embedding:  []float32{1, 0, 0},
		},
		{
			ID: "factory-method", Name: "Factory Method", Category: "creational",
			Tags:       []string{"construction"},
			Complexity: "low",
			Text:       "Defer instantiation to subclasses through a creation method",
			Embedding:  []float32{0.9, 0.1, 0},
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
		"factory-method": {ID: "factory-method", Neighbors: []catalog.Edge{
			{To: "singleton", Weight: 0.7, Kind: catalog.EdgeSimilarity},
		}},
		"singleton": {ID: "singleton", Neighbors: []catalog.Edge{
			{To: "observer", Weight: 0.3, Kind: catalog.EdgeSimilarity},
		}},
	}

	snap, err := catalog.NewSnapshot(entries, graph)
	require.NoError(t, err)
	return snap
}
