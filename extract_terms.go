package painpoint

import "sort"

// TopTerms ranks the terms that most distinguish a cluster's member texts from
// the full corpus: the TF-IDF model is fit on the whole corpus, evaluated over
// the members only, and each term's score is averaged across members. Returns
// at most n terms, highest average first, with ties broken by vocabulary order.
// An empty cluster or corpus yields an empty list.
func TopTerms(memberTexts, corpusTexts []string, n int) []string {
	if n <= 0 {
		return nil
	}

	members := dropEmpty(memberTexts)
	corpus := dropEmpty(corpusTexts)
	if len(members) == 0 || len(corpus) == 0 {
		return nil
	}

	model := fitTFIDFRelaxed(corpus)
	if model == nil {
		return nil
	}

	means := make([]float64, model.dimension())
	for _, text := range members {
		for i, v := range model.vector(text) {
			means[i] += v
		}
	}
	for i := range means {
		means[i] /= float64(len(members))
	}

	order := make([]int, len(means))
	for i := range order {
		order[i] = i
	}
	// Vocabulary is sorted, so equal scores fall back to lexicographic order.
	sort.SliceStable(order, func(a, b int) bool {
		return means[order[a]] > means[order[b]]
	})

	if n > len(order) {
		n = len(order)
	}
	terms := make([]string, 0, n)
	for _, idx := range order[:n] {
		terms = append(terms, model.terms[idx])
	}
	return terms
}

func dropEmpty(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
