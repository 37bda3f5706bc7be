package examples

import (
	"sort"
	"strings"
)

// Index is a read-only similarity index over the example library. It is
// built once at startup and injected into the SQL generator; callers pass
// it explicitly rather than reaching for ambient state.
type Index struct {
	pairs  []Pair
	tokens [][]string
}

// NewIndex builds an index over the given pairs.
func NewIndex(pairs []Pair) *Index {
	idx := &Index{pairs: pairs}

	for _, pair := range pairs {
		// Index both the question and the SQL so that column-name mentions
		// in the user question ("fraud rate by hour") match examples whose
		// question phrasing differs but whose SQL touches the same columns.
		idx.tokens = append(idx.tokens, tokenize(pair.Question+" "+pair.SQL))
	}

	return idx
}

// Select returns the k library pairs most similar to the question,
// best first. Deterministic: ties break by library order.
func (idx *Index) Select(question string, k int) []Pair {
	if k <= 0 || len(idx.pairs) == 0 {
		return nil
	}

	queryTerms := tokenize(question)

	type scored struct {
		pos   int
		score float64
	}

	ranked := make([]scored, 0, len(idx.pairs))
	for i := range idx.pairs {
		ranked = append(ranked, scored{pos: i, score: similarity(queryTerms, idx.tokens[i])})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}

	selected := make([]Pair, 0, k)
	for _, r := range ranked[:k] {
		selected = append(selected, idx.pairs[r.pos])
	}

	return selected
}

// similarity computes a term-frequency score with a coverage bonus:
// matching more distinct query terms outweighs matching one term often.
func similarity(queryTerms, docTerms []string) float64 {
	if len(queryTerms) == 0 || len(docTerms) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(docTerms))
	for _, term := range docTerms {
		counts[term]++
	}

	const k1 = 1.2 // saturation parameter

	totalScore := 0.0
	matchedTerms := 0

	for _, term := range queryTerms {
		tf := float64(counts[term])
		if tf > 0 {
			matchedTerms++
			totalScore += tf / (tf + k1)
		}
	}

	if matchedTerms == 0 {
		return 0.0
	}

	avgScore := totalScore / float64(len(queryTerms))
	coverage := float64(matchedTerms) / float64(len(queryTerms))

	return avgScore * (0.7 + 0.3*coverage)
}

// tokenize splits text into lowercase terms, dropping punctuation and
// one-character fragments.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return false
		default:
			return true
		}
	})

	var terms []string

	for _, f := range fields {
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}

	return terms
}
