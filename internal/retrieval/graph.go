package retrieval

import (
	"math"
	"sort"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
)

// AugmenterConfig tunes graph traversal.
type AugmenterConfig struct {
	// MaxHops bounds traversal depth from each seed.
	MaxHops int
	// EdgeWeightThreshold excludes weak edges from traversal.
	EdgeWeightThreshold float64
	// HopDecay multiplies the path score once per hop beyond the first.
	HopDecay float64
}

// Augmenter expands a seed candidate set through the precomputed kNN
// similarity graph, surfacing related entries the retrievers did not
// rank directly. Nodes unreachable within MaxHops are excluded, never
// penalized.
type Augmenter struct {
	snap *catalog.Snapshot
	cfg  AugmenterConfig
}

// NewAugmenter creates an augmenter over a catalog snapshot.
func NewAugmenter(snap *catalog.Snapshot, cfg AugmenterConfig) *Augmenter {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 2
	}
	if cfg.HopDecay <= 0 || cfg.HopDecay > 1 {
		cfg.HopDecay = 0.85
	}
	return &Augmenter{snap: snap, cfg: cfg}
}

// Augment traverses outward from each seed, at most MaxHops edges deep,
// following only edges whose weight exceeds the threshold. The path
// score is the product of edge weights, additionally decayed per hop
// after the first; a node reached by several paths keeps its best.
// Seeds themselves are not reported.
func (a *Augmenter) Augment(seeds []string) []GraphResult {
	seedSet := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s] = struct{}{}
	}

	best := make(map[string]GraphResult)
	for _, seed := range seeds {
		if _, ok := a.snap.Graph[seed]; !ok {
			continue
		}
		a.walk(seed, []string{seed}, 1.0, best, seedSet)
	}

	results := make([]GraphResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	// Score descending, catalog insertion order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return a.snap.Position(results[i].ID) < a.snap.Position(results[j].ID)
	})
	return results
}

func (a *Augmenter) walk(id string, path []string, score float64, best map[string]GraphResult, seedSet map[string]struct{}) {
	hops := len(path) - 1
	if hops >= a.cfg.MaxHops {
		return
	}

	node, ok := a.snap.Graph[id]
	if !ok {
		return
	}

	for _, edge := range node.Neighbors {
		if edge.Weight <= a.cfg.EdgeWeightThreshold {
			continue
		}
		if contains(path, edge.To) {
			continue
		}

		next := score * edge.Weight * math.Pow(a.cfg.HopDecay, float64(hops))
		nextPath := append(append([]string{}, path...), edge.To)

		if _, isSeed := seedSet[edge.To]; !isSeed {
			if prev, ok := best[edge.To]; !ok || next > prev.Score {
				best[edge.To] = GraphResult{
					ID:    edge.To,
					Path:  nextPath,
					Hops:  hops + 1,
					Score: next,
				}
			}
		}
		a.walk(edge.To, nextPath, next, best, seedSet)
	}
}

func contains(path []string, id string) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
