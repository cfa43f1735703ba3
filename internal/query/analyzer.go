package query

import (
	"math"
	"strings"
	"unicode"
)

// Type labels the retrieval strategy a query calls for.
type Type string

const (
	// TypeExploratory: long, low term-specificity; intent beats exact terms.
	TypeExploratory Type = "exploratory"
	// TypeSpecific: short, term-dense, or contains code.
	TypeSpecific Type = "specific"
	// TypeBalanced: neither signal dominates.
	TypeBalanced Type = "balanced"
)

// Analysis holds derived features of one query. Created per request,
// discarded after scoring.
type Analysis struct {
	Length         int
	WordCount      int
	TechnicalTerms int
	Entropy        float64
	HasCodeSnippet bool
	Type           Type
	Confidence     float64
}

// technicalVocabulary is the curated term list used to estimate how
// software-specific a query is. Lowercase, single tokens.
var technicalVocabulary = map[string]bool{
	"abstract": true, "adapter": true, "api": true, "async": true,
	"builder": true, "cache": true, "callback": true, "class": true,
	"composite": true, "concurrency": true, "constructor": true,
	"coupling": true, "decorator": true, "dependency": true,
	"deserialize": true, "facade": true, "factory": true, "flyweight": true,
	"generic": true, "immutable": true, "inheritance": true, "injection": true,
	"interface": true, "iterator": true, "lazy": true, "listener": true,
	"mediator": true, "memento": true, "middleware": true, "mixin": true,
	"mutex": true, "observer": true, "polymorphism": true, "prototype": true,
	"proxy": true, "queue": true, "recursion": true, "refactor": true,
	"registry": true, "serialize": true, "singleton": true, "state": true,
	"strategy": true, "struct": true, "subclass": true, "thread": true,
	"visitor": true, "wrapper": true,
}

// codeMarkers are substrings that indicate an embedded code snippet.
var codeMarkers = []string{
	"```", "();", "=>", "::", "->", "){", "};", "==", "!=",
	"func ", "def ", "class ", "new ", "return ", "import ", "#include",
}

// Analyze computes query features and classifies the query.
func Analyze(raw string) Analysis {
	words := tokenize(raw)

	a := Analysis{
		Length:         len(raw),
		WordCount:      len(words),
		HasCodeSnippet: hasCode(raw),
		Entropy:        shannonEntropy(words),
	}
	for _, w := range words {
		if technicalVocabulary[w] {
			a.TechnicalTerms++
		}
	}

	a.Type, a.Confidence = classify(a)
	return a
}

// classify decides the query type and a confidence in [0,1].
//
// Specificity is the fraction of technical terms among all words; code
// snippets force specific with high confidence. Long low-specificity
// queries are exploratory. Everything else is balanced with confidence
// shrinking toward 0 near the decision boundaries.
func classify(a Analysis) (Type, float64) {
	if a.WordCount == 0 {
		return TypeBalanced, 0
	}

	if a.HasCodeSnippet {
		return TypeSpecific, 0.9
	}

	specificity := float64(a.TechnicalTerms) / float64(a.WordCount)

	switch {
	case a.WordCount <= 4 && specificity >= 0.5:
		conf := 0.6 + 0.4*specificity
		return TypeSpecific, math.Min(conf, 1)
	case a.WordCount >= 8 && specificity < 0.25:
		// Longer and vaguer means more confidently exploratory.
		conf := 0.5 + 0.05*float64(a.WordCount-8) + (0.25-specificity)
		return TypeExploratory, math.Min(conf, 1)
	default:
		// Distance from a neutral specificity of 0.35 sets confidence.
		conf := 0.3 + math.Abs(specificity-0.35)
		return TypeBalanced, math.Min(conf, 1)
	}
}

func tokenize(raw string) []string {
	return strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasCode(raw string) bool {
	for _, marker := range codeMarkers {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

// shannonEntropy estimates token-frequency entropy in bits.
func shannonEntropy(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	var entropy float64
	n := float64(len(words))
	for _, c := range freq {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
