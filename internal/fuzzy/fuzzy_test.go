package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(m Membership) float64 {
	return m.Degrees[0] + m.Degrees[1] + m.Degrees[2]
}

func TestContinuousMembershipsSumToOne(t *testing.T) {
	funcs := map[string]func(float64) Membership{
		"semantic": SemanticMembership,
		"keyword":  KeywordMembership,
		"fit":      FitMembership,
	}

	for name, fn := range funcs {
		t.Run(name, func(t *testing.T) {
			for x := -0.5; x <= 1.5; x += 0.01 {
				m := fn(x)
				assert.InDelta(t, 1.0, sum(m), 1e-9, "input %v", x)
				for _, d := range m.Degrees {
					assert.GreaterOrEqual(t, d, 0.0)
					assert.LessOrEqual(t, d, 1.0)
				}
			}
		})
	}
}

func TestSemanticMembershipBreakpoints(t *testing.T) {
	tests := []struct {
		input    float64
		dominant string
	}{
		{0.0, "low"},
		{0.39, "low"},
		{0.45, "low"},    // 0.75 low / 0.25 medium
		{0.55, "medium"}, // 0.25 low / 0.75 medium
		{0.6, "medium"},
		{0.75, "high"},
		{0.8, "high"},
		{1.0, "high"},
	}

	for _, tt := range tests {
		m := SemanticMembership(tt.input)
		assert.Equal(t, tt.dominant, m.Dominant(), "input %v", tt.input)
	}

	// Saturation beyond the outer breakpoints.
	assert.Equal(t, 1.0, SemanticMembership(-0.3).Degrees[0])
	assert.Equal(t, 1.0, SemanticMembership(1.3).Degrees[2])

	// Linear interpolation inside a transition band.
	m := SemanticMembership(0.5)
	assert.InDelta(t, 0.5, m.Degrees[0], 1e-9)
	assert.InDelta(t, 0.5, m.Degrees[1], 1e-9)
}

func TestKeywordMembershipPlateau(t *testing.T) {
	for x := 0.4; x <= 0.6; x += 0.02 {
		m := KeywordMembership(x)
		assert.Equal(t, 1.0, m.Degrees[1], "moderate must be flat at %v", x)
	}
	assert.Equal(t, "weak", KeywordMembership(0.1).Dominant())
	assert.Equal(t, "strong", KeywordMembership(0.9).Dominant())
}

func TestComplexityMembership(t *testing.T) {
	tests := []struct {
		label string
		want  [3]float64
	}{
		{"Low", [3]float64{1, 0, 0}},
		{"simple", [3]float64{1, 0, 0}},
		{"Medium", [3]float64{0, 1, 0}},
		{"intermediate", [3]float64{0, 1, 0}},
		{"High", [3]float64{0, 0, 1}},
		{"advanced", [3]float64{0, 0, 1}},
		// Unknown keeps the documented non-normalized fallback.
		{"??", [3]float64{0.2, 0.8, 0.2}},
		{"", [3]float64{0.2, 0.8, 0.2}},
	}

	for _, tt := range tests {
		m := ComplexityMembership(ParseComplexity(tt.label))
		assert.Equal(t, tt.want, m.Degrees, "label %q", tt.label)
	}

	// The fallback intentionally sums to 1.2.
	fallback := ComplexityMembership(ComplexityUnknown)
	assert.InDelta(t, 1.2, sum(fallback), 1e-9)
	assert.Equal(t, "moderate", fallback.Dominant())
}

func TestDominantTieBreaksByDeclarationOrder(t *testing.T) {
	m := Membership{
		Labels:  [3]string{"low", "medium", "high"},
		Degrees: [3]float64{0.5, 0.5, 0},
	}
	assert.Equal(t, "low", m.Dominant())

	m.Degrees = [3]float64{0.2, 0.4, 0.4}
	assert.Equal(t, "medium", m.Dominant())
}

func TestScore(t *testing.T) {
	r := Score(Signals{
		SemanticScore:   0.85,
		KeywordScore:    0.7,
		ComplexityLabel: "Medium",
		ContextualFit:   0.6,
	})

	assert.Equal(t, "high", r.Semantic.Dominant())
	assert.Equal(t, "moderate", r.Complexity.Dominant())
	assert.GreaterOrEqual(t, r.Confidence, 0.0)
	assert.LessOrEqual(t, r.Confidence, 1.0)
	assert.Contains(t, r.Rationale, "semantic similarity high")
	assert.Contains(t, r.Rationale, "complexity moderate")
}

func TestScoreClampsInputs(t *testing.T) {
	r := Score(Signals{SemanticScore: 4.2, KeywordScore: -1, ContextualFit: 2})
	require.Equal(t, 1.0, r.Semantic.Degrees[2])
	require.Equal(t, 1.0, r.Keyword.Degrees[0])
	assert.LessOrEqual(t, r.Confidence, 1.0)
}

func TestScoreConfidenceIndependentOfComplexity(t *testing.T) {
	// Complexity shapes the rationale only; the confidence blend covers
	// semantic, keyword, and fit.
	base := Score(Signals{SemanticScore: 0.7, KeywordScore: 0.5, ContextualFit: 0.6})
	for _, label := range []string{"", "low", "medium", "high", "mystery"} {
		r := Score(Signals{
			SemanticScore:   0.7,
			KeywordScore:    0.5,
			ContextualFit:   0.6,
			ComplexityLabel: label,
		})
		assert.Equal(t, base.Confidence, r.Confidence, "label %q", label)
	}
}

func TestScoreMonotonicInSemantic(t *testing.T) {
	prev := -1.0
	for x := 0.0; x <= 1.0; x += 0.05 {
		r := Score(Signals{SemanticScore: x, KeywordScore: 0.5, ContextualFit: 0.5})
		assert.GreaterOrEqual(t, r.Confidence, prev)
		prev = r.Confidence
	}
}
