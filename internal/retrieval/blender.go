package retrieval

import (
	"sort"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
	"github.com/fyrsmithlabs/patternd/internal/fuzzy"
	"github.com/fyrsmithlabs/patternd/internal/query"
)

// BlendConfig tunes score fusion and diversity selection.
type BlendConfig struct {
	// GraphWeight scales the graph augmentation contribution.
	GraphWeight float64
	// FuzzyWeight scales the fuzzy confidence contribution.
	FuzzyWeight float64
	// MinDiversityScore stops selection once the best marginal score
	// falls below it.
	MinDiversityScore float64
	// DiversityLambda trades relevance against redundancy in the
	// marginal score: lambda*score - (1-lambda)*maxSimilarityToSelected.
	DiversityLambda float64
}

// BlendedResult is one recommended entry with its component scores and
// justification.
type BlendedResult struct {
	ID       string
	Name     string
	Category string

	DenseScore  float64
	SparseScore float64
	GraphScore  float64
	FinalScore  float64

	// DiversityScore is the marginal (redundancy-penalized) score at the
	// moment this result was selected.
	DiversityScore float64

	// Confidence is the fuzzy scorer's blended confidence.
	Confidence float64
	// MatchTypes names the signal sources that found this entry.
	MatchTypes []string
	// TermMatches carries per-term BM25 detail when keyword matched.
	TermMatches []TermMatch
	// GraphPath is the traversal path when the graph surfaced the entry.
	GraphPath []string
	Hops      int

	Rationale string
}

// Blender fuses dense, sparse, graph, and fuzzy signals into one ranked
// list, then selects a diverse subset with maximal-marginal-relevance.
type Blender struct {
	snap *catalog.Snapshot
	cfg  BlendConfig
}

// NewBlender creates a blender over a catalog snapshot.
func NewBlender(snap *catalog.Snapshot, cfg BlendConfig) *Blender {
	if cfg.DiversityLambda <= 0 || cfg.DiversityLambda > 1 {
		cfg.DiversityLambda = 0.7
	}
	return &Blender{snap: snap, cfg: cfg}
}

// Blend merges the three retrieval signals per candidate, scores each
// with the alpha split plus graph and fuzzy weights, and trims to
// maxResults via diversity-aware selection. Components are additive:
// an entry found by several retrievers receives each contribution once,
// with no per-source re-normalization.
func (b *Blender) Blend(alpha query.Weights, dense []DenseResult, sparse []SparseResult, graph []GraphResult, maxResults int) []BlendedResult {
	merged := b.merge(dense, sparse, graph)
	if len(merged) == 0 {
		return nil
	}

	for i := range merged {
		c := &merged[i]

		complexity := ""
		if entry, ok := b.snap.Entry(c.ID); ok {
			c.Name = entry.Name
			c.Category = entry.Category
			complexity = entry.Complexity
		}

		// Graph connectivity stands in for contextual fit: an entry
		// reachable from strong candidates fits the query's context even
		// when neither retriever ranked it directly.
		rel := fuzzy.Score(fuzzy.Signals{
			SemanticScore:   c.DenseScore,
			KeywordScore:    c.SparseScore,
			ComplexityLabel: complexity,
			ContextualFit:   c.GraphScore,
		})
		c.Confidence = rel.Confidence
		c.Rationale = rel.Rationale

		c.FinalScore = catalog.Clamp01(
			alpha.Semantic*c.DenseScore +
				alpha.Keyword*c.SparseScore +
				b.cfg.GraphWeight*c.GraphScore +
				b.cfg.FuzzyWeight*c.Confidence)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FinalScore > merged[j].FinalScore
	})

	if maxResults <= 0 || maxResults > len(merged) {
		maxResults = len(merged)
	}
	selected := b.selectDiverse(merged, maxResults)

	// Diversity selection can pick a well-separated candidate ahead of a
	// redundant higher-scoring one; the caller still gets score order.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].FinalScore > selected[j].FinalScore
	})
	return selected
}

// merge unions the per-retriever results keyed by entry id, in catalog
// insertion order so later sorting breaks ties deterministically.
func (b *Blender) merge(dense []DenseResult, sparse []SparseResult, graph []GraphResult) []BlendedResult {
	byID := make(map[string]*BlendedResult)
	get := func(id string) *BlendedResult {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &BlendedResult{ID: id}
		byID[id] = c
		return c
	}

	for _, r := range dense {
		c := get(r.ID)
		c.DenseScore = r.Score
		c.MatchTypes = append(c.MatchTypes, "semantic")
	}
	for _, r := range sparse {
		c := get(r.ID)
		c.SparseScore = r.Score
		c.TermMatches = r.Matches
		c.MatchTypes = append(c.MatchTypes, "keyword")
	}
	for _, r := range graph {
		c := get(r.ID)
		c.GraphScore = catalog.Clamp01(r.Score)
		c.GraphPath = r.Path
		c.Hops = r.Hops
		c.MatchTypes = append(c.MatchTypes, "graph")
	}

	merged := make([]BlendedResult, 0, len(byID))
	for _, entry := range b.snap.Entries {
		if c, ok := byID[entry.ID]; ok {
			merged = append(merged, *c)
		}
	}
	// Candidates the snapshot no longer knows (stale graph edges) are
	// dropped by the loop above.
	return merged
}

// selectDiverse runs maximal-marginal-relevance selection: repeatedly
// take the candidate with the best marginal score, penalizing the rest
// by their similarity to what is already picked. Selection stops early
// once the best marginal score falls below MinDiversityScore.
func (b *Blender) selectDiverse(pool []BlendedResult, maxResults int) []BlendedResult {
	lambda := b.cfg.DiversityLambda
	selected := make([]BlendedResult, 0, maxResults)
	used := make([]bool, len(pool))

	for len(selected) < maxResults {
		bestIdx := -1
		bestMarginal := 0.0
		for i := range pool {
			if used[i] {
				continue
			}
			marginal := pool[i].FinalScore
			if len(selected) > 0 {
				marginal = lambda*pool[i].FinalScore - (1-lambda)*b.maxSimilarity(pool[i].ID, selected)
			}
			if bestIdx == -1 || marginal > bestMarginal {
				bestIdx = i
				bestMarginal = marginal
			}
		}
		if bestIdx == -1 {
			break
		}
		if len(selected) > 0 && bestMarginal < b.cfg.MinDiversityScore {
			break
		}

		pick := pool[bestIdx]
		pick.DiversityScore = bestMarginal
		selected = append(selected, pick)
		used[bestIdx] = true
	}
	return selected
}

// maxSimilarity returns the highest embedding similarity between a
// candidate and any already-selected result.
func (b *Blender) maxSimilarity(id string, selected []BlendedResult) float64 {
	entry, ok := b.snap.Entry(id)
	if !ok {
		return 0
	}
	var max float64
	for _, s := range selected {
		other, ok := b.snap.Entry(s.ID)
		if !ok {
			continue
		}
		if sim := catalog.Clamp01(catalog.Cosine(entry.Embedding, other.Embedding)); sim > max {
			max = sim
		}
	}
	return max
}
