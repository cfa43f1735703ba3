package catalog

import (
	"sort"
)

// GraphConfig tunes the offline kNN graph construction pass.
type GraphConfig struct {
	// K nearest neighbors per node by embedding distance.
	K int
	// MetadataEdges adds same-category / shared-tag edges, weighted
	// below similarity edges.
	MetadataEdges bool
	// MetadataWeight is the weight assigned to metadata edges.
	MetadataWeight float64
}

// BuildGraph constructs the kNN similarity graph over the entries.
//
// For each entry the K nearest neighbors by cosine similarity become
// similarity edges with weight equal to the similarity (clamped to [0,1])
// and distance 1-similarity. Metadata edges, when enabled, link entries
// sharing a category or tag that are not already similarity neighbors.
// Neighbor lists are ordered by descending weight with id ties resolved
// lexicographically so rebuilds are deterministic.
func BuildGraph(entries []Entry, cfg GraphConfig) map[string]*Node {
	if cfg.K <= 0 {
		cfg.K = 8
	}
	if cfg.MetadataWeight <= 0 {
		cfg.MetadataWeight = 0.3
	}

	graph := make(map[string]*Node, len(entries))

	for i := range entries {
		src := &entries[i]
		node := &Node{ID: src.ID}

		type scored struct {
			id  string
			sim float64
		}
		sims := make([]scored, 0, len(entries)-1)
		for j := range entries {
			if i == j {
				continue
			}
			sims = append(sims, scored{
				id:  entries[j].ID,
				sim: Clamp01(Cosine(src.Embedding, entries[j].Embedding)),
			})
		}
		sort.Slice(sims, func(a, b int) bool {
			if sims[a].sim != sims[b].sim {
				return sims[a].sim > sims[b].sim
			}
			return sims[a].id < sims[b].id
		})

		k := cfg.K
		if k > len(sims) {
			k = len(sims)
		}
		linked := make(map[string]bool, k)
		for _, s := range sims[:k] {
			node.Neighbors = append(node.Neighbors, Edge{
				To:       s.id,
				Distance: 1 - s.sim,
				Weight:   s.sim,
				Kind:     EdgeSimilarity,
			})
			linked[s.id] = true
		}

		if cfg.MetadataEdges {
			for j := range entries {
				if i == j || linked[entries[j].ID] {
					continue
				}
				if sharesMetadata(src, &entries[j]) {
					node.Neighbors = append(node.Neighbors, Edge{
						To:       entries[j].ID,
						Distance: 1 - cfg.MetadataWeight,
						Weight:   cfg.MetadataWeight,
						Kind:     EdgeMetadata,
					})
				}
			}
		}

		sort.SliceStable(node.Neighbors, func(a, b int) bool {
			if node.Neighbors[a].Weight != node.Neighbors[b].Weight {
				return node.Neighbors[a].Weight > node.Neighbors[b].Weight
			}
			return node.Neighbors[a].To < node.Neighbors[b].To
		})

		graph[src.ID] = node
	}

	return graph
}

func sharesMetadata(a, b *Entry) bool {
	if a.Category != "" && a.Category == b.Category {
		return true
	}
	for _, ta := range a.Tags {
		for _, tb := range b.Tags {
			if ta == tb {
				return true
			}
		}
	}
	return false
}
