package catalog

import "math"

// Cosine returns the cosine similarity of two equal-length vectors.
// Zero vectors yield 0 rather than NaN.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Clamp01 clamps v to [0,1]. Relationship strengths and component
// scores are kept in this range throughout the pipeline.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
