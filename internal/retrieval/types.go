package retrieval

// DenseResult is one catalog entry ranked by embedding similarity.
type DenseResult struct {
	ID    string
	Score float64 // cosine similarity clamped to [0,1]
}

// TermMatch explains one query term's contribution to a sparse score.
type TermMatch struct {
	Term   string
	TF     int
	IDF    float64
	Weight float64
}

// SparseResult is one catalog entry ranked by BM25.
type SparseResult struct {
	ID      string
	Score   float64 // normalized to [0,1] across the result set
	Raw     float64 // unnormalized BM25 score
	Matches []TermMatch
}

// GraphResult is one entry reached by traversing the similarity graph
// from a seed candidate.
type GraphResult struct {
	ID    string
	Path  []string // seed first, reached node last
	Hops  int
	Score float64
}
