package query

// Weights is the semantic/keyword split used when blending retrieval
// signals. The two always sum to 1.
type Weights struct {
	Semantic float64
	Keyword  float64
}

// Target splits per query type at full classifier confidence.
const (
	exploratorySemantic = 0.75
	specificSemantic    = 0.3
	balancedSemantic    = 0.5
)

// TuneAlpha maps a query analysis to blend weights.
//
// Exploratory queries bias toward semantic weight, specific queries toward
// keyword weight. The mapping interpolates linearly between the neutral
// 0.5/0.5 split and the type's target split by the classifier's confidence,
// so low-confidence classifications fall back toward neutral.
func TuneAlpha(a Analysis) Weights {
	var target float64
	switch a.Type {
	case TypeExploratory:
		target = exploratorySemantic
	case TypeSpecific:
		target = specificSemantic
	default:
		target = balancedSemantic
	}

	conf := a.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	semantic := balancedSemantic + conf*(target-balancedSemantic)
	return Weights{Semantic: semantic, Keyword: 1 - semantic}
}
