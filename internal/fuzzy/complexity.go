package fuzzy

import "strings"

// Complexity is the closed enumeration behind the categorical complexity
// signal. Free-form catalog labels are normalized here once instead of
// string-matched throughout the scorer.
type Complexity int

const (
	ComplexityUnknown Complexity = iota
	ComplexityLow
	ComplexityMedium
	ComplexityHigh
)

// ParseComplexity normalizes a catalog label, accepting common synonyms.
// Unrecognized labels map to ComplexityUnknown rather than failing, so
// scoring stays total with missing metadata.
func ParseComplexity(label string) Complexity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low", "simple", "easy", "basic", "beginner":
		return ComplexityLow
	case "medium", "moderate", "intermediate", "mid":
		return ComplexityMedium
	case "high", "complex", "advanced", "hard", "expert":
		return ComplexityHigh
	default:
		return ComplexityUnknown
	}
}

// ComplexityMembership maps the enum to {simple, moderate, complex}.
//
// Known labels get crisp one-hot membership. The unknown fallback is a
// near-moderate distribution 0.2/0.8/0.2 that intentionally sums to 1.2;
// it is the one documented non-normalized case, and defuzzification
// normalizes it downstream rather than renormalizing here.
func ComplexityMembership(c Complexity) Membership {
	m := Membership{Labels: [3]string{"simple", "moderate", "complex"}}
	switch c {
	case ComplexityLow:
		m.Degrees[0] = 1
	case ComplexityMedium:
		m.Degrees[1] = 1
	case ComplexityHigh:
		m.Degrees[2] = 1
	default:
		m.Degrees = [3]float64{0.2, 0.8, 0.2}
	}
	return m
}
