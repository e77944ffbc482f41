package painpoint

import (
	"math"
	"regexp"
	"sort"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]{2,}`)

// tfidfModel is a unigram+bigram TF-IDF vectorizer fit on a corpus. Vocabulary
// order is stable (sorted terms), so vector columns and tie-breaks are
// deterministic across runs.
type tfidfModel struct {
	terms []string
	index map[string]int
	idf   []float64
}

// tokenizeTerms extracts lowercase word tokens plus adjacent word pairs.
// Input is assumed normalized already.
func tokenizeTerms(text string) []string {
	words := tokenRe.FindAllString(text, -1)
	terms := make([]string, 0, len(words)*2)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// fitTFIDF builds a model over texts, keeping terms whose document frequency
// is at most maxDF (as a fraction of the corpus). Returns nil when the ceiling
// eliminates every term.
func fitTFIDF(texts []string, maxDF float64) *tfidfModel {
	n := len(texts)
	if n == 0 {
		return nil
	}

	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range tokenizeTerms(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	ceiling := maxDF * float64(n)
	var terms []string
	for term, count := range df {
		if float64(count) <= ceiling+1e-9 {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	sort.Strings(terms)

	m := &tfidfModel{
		terms: terms,
		index: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	total := float64(n)
	for i, term := range terms {
		m.index[term] = i
		// Smoothed IDF so rare terms score higher without ever going negative.
		m.idf[i] = math.Log((1+total)/(1+float64(df[term]))) + 1.0
	}
	return m
}

// fitTFIDFRelaxed tries progressively looser document-frequency ceilings until
// a non-empty vocabulary remains. A ceiling of 1.0 keeps every term, so this
// only returns nil when no text yields a single token.
func fitTFIDFRelaxed(texts []string) *tfidfModel {
	for _, ceiling := range []float64{0.95, 0.98, 1.0} {
		if m := fitTFIDF(texts, ceiling); m != nil {
			return m
		}
	}
	return nil
}

func (m *tfidfModel) dimension() int { return len(m.terms) }

// vector computes the L2-normalized TF-IDF vector for one text.
func (m *tfidfModel) vector(text string) []float64 {
	vec := make([]float64, len(m.terms))
	counts := make(map[int]int)
	total := 0
	for _, term := range tokenizeTerms(text) {
		if idx, ok := m.index[term]; ok {
			counts[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range counts {
		tf := float64(count) / float64(total)
		vec[idx] = tf * m.idf[idx]
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// matrixRows vectorizes every text, index-aligned with the input.
func (m *tfidfModel) matrixRows(texts []string) [][]float64 {
	rows := make([][]float64, len(texts))
	for i, text := range texts {
		rows[i] = m.vector(text)
	}
	return rows
}
