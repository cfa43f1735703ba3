package fuzzy

import (
	"fmt"
	"strings"
)

// Signals are the raw per-candidate inputs to the scorer.
type Signals struct {
	// SemanticScore in [0,1], from dense retrieval.
	SemanticScore float64
	// KeywordScore in [0,1], from sparse retrieval.
	KeywordScore float64
	// ComplexityLabel is the catalog's free-form complexity metadata.
	ComplexityLabel string
	// ContextualFit in [0,1].
	ContextualFit float64
}

// Relevance is the scorer's interpretable output.
type Relevance struct {
	Semantic   Membership
	Keyword    Membership
	Complexity Membership
	Fit        Membership

	// Confidence blends the defuzzified dimensions into [0,1].
	Confidence float64
	// Rationale is justification text built from the dominant labels.
	Rationale string
}

// Defuzzification centroids per bin and blend weights per dimension.
var (
	binCentroids  = [3]float64{0.15, 0.5, 0.9}
	semanticBlend = 0.45
	keywordBlend  = 0.35
	fitBlend      = 0.2
)

// Score evaluates all four membership dimensions and blends them into one
// confidence. Inputs outside [0,1] are clamped first.
//
// Complexity is interpretive, not numeric: it contributes its dominant
// label to the rationale but carries no weight in the confidence blend,
// which covers semantic, keyword, and fit only. Catalog complexity is
// metadata about the pattern, not evidence that it matches the query.
func Score(s Signals) Relevance {
	r := Relevance{
		Semantic:   SemanticMembership(clamp01(s.SemanticScore)),
		Keyword:    KeywordMembership(clamp01(s.KeywordScore)),
		Complexity: ComplexityMembership(ParseComplexity(s.ComplexityLabel)),
		Fit:        FitMembership(clamp01(s.ContextualFit)),
	}

	r.Confidence = clamp01(
		semanticBlend*defuzzify(r.Semantic) +
			keywordBlend*defuzzify(r.Keyword) +
			fitBlend*defuzzify(r.Fit))

	r.Rationale = rationale(r)
	return r
}

// defuzzify collapses a membership into a scalar via bin centroids.
// Degrees are normalized here so the non-normalized complexity fallback
// cannot leak a >1 scalar.
func defuzzify(m Membership) float64 {
	var weighted, total float64
	for i, d := range m.Degrees {
		weighted += d * binCentroids[i]
		total += d
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func rationale(r Relevance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "semantic similarity %s", r.Semantic.Dominant())
	fmt.Fprintf(&b, ", keyword match %s", r.Keyword.Dominant())
	fmt.Fprintf(&b, ", complexity %s", r.Complexity.Dominant())
	fmt.Fprintf(&b, ", contextual fit %s", r.Fit.Dominant())
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
