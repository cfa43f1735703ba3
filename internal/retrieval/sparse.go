package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/patternd/internal/catalog"
)

// SparseConfig tunes the BM25 scorer.
type SparseConfig struct {
	// K1 controls term-frequency saturation.
	K1 float64
	// B controls document-length normalization.
	B float64
	// MinTermFreq excludes terms rarer than this (corpus-wide) from the
	// index to bound memory.
	MinTermFreq int
}

type posting struct {
	doc int // catalog insertion position
	tf  int
}

// Sparse ranks catalog entries with BM25 over an inverted index built
// from each entry's name, category, tags, and text.
type Sparse struct {
	cfg      SparseConfig
	snap     *catalog.Snapshot
	postings map[string][]posting
	docLens  []int
	avgLen   float64
}

// NewSparse builds the inverted index for a catalog snapshot.
func NewSparse(snap *catalog.Snapshot, cfg SparseConfig) *Sparse {
	if cfg.K1 <= 0 {
		cfg.K1 = 1.2
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = 0.75
	}

	s := &Sparse{
		cfg:      cfg,
		snap:     snap,
		postings: make(map[string][]posting),
		docLens:  make([]int, snap.Len()),
	}

	var totalLen int
	termTotals := make(map[string]int)
	for i, entry := range snap.Entries {
		tokens := tokenize(entryText(entry))
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int)
		for _, tok := range tokens {
			counts[tok]++
		}
		for term, tf := range counts {
			s.postings[term] = append(s.postings[term], posting{doc: i, tf: tf})
			termTotals[term] += tf
		}
	}
	if snap.Len() > 0 {
		s.avgLen = float64(totalLen) / float64(snap.Len())
	}

	if cfg.MinTermFreq > 1 {
		for term, total := range termTotals {
			if total < cfg.MinTermFreq {
				delete(s.postings, term)
			}
		}
	}
	return s
}

// Terms returns the number of indexed terms.
func (s *Sparse) Terms() int { return len(s.postings) }

// Retrieve scores catalog entries against the query. Results carry
// per-term match detail; Score is normalized so the best match is 1,
// Raw keeps the unnormalized BM25 value. Ties keep insertion order.
func (s *Sparse) Retrieve(query string) []SparseResult {
	terms := uniqueTokens(tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	n := float64(s.snap.Len())
	scores := make(map[int]float64)
	matches := make(map[int][]TermMatch)

	for _, term := range terms {
		plist, ok := s.postings[term]
		if !ok {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := 1 - s.cfg.B + s.cfg.B*float64(s.docLens[p.doc])/s.avgLen
			weight := idf * tf * (s.cfg.K1 + 1) / (tf + s.cfg.K1*norm)
			scores[p.doc] += weight
			matches[p.doc] = append(matches[p.doc], TermMatch{
				Term:   term,
				TF:     p.tf,
				IDF:    idf,
				Weight: weight,
			})
		}
	}

	// Assemble in insertion order so the stable sort has a deterministic
	// base ordering.
	results := make([]SparseResult, 0, len(scores))
	var maxRaw float64
	for doc := 0; doc < s.snap.Len(); doc++ {
		raw, ok := scores[doc]
		if !ok || raw <= 0 {
			continue
		}
		if raw > maxRaw {
			maxRaw = raw
		}
		results = append(results, SparseResult{
			ID:      s.snap.Entries[doc].ID,
			Raw:     raw,
			Matches: matches[doc],
		})
	}
	if maxRaw > 0 {
		for i := range results {
			results[i].Score = results[i].Raw / maxRaw
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Raw > results[j].Raw
	})
	return results
}

func entryText(e catalog.Entry) string {
	parts := []string{e.Name, e.Category}
	parts = append(parts, e.Tags...)
	parts = append(parts, e.Text)
	return strings.Join(parts, " ")
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "how": {},
	"i": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "with": {},
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// stopwords and single characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// uniqueTokens deduplicates while preserving first-seen order.
func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
