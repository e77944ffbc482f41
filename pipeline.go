package painpoint

import (
	"context"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
)

// Result is the output of one pipeline run: cluster summaries ranked by
// descending size, plus run metadata and the recovered degradations.
type Result struct {
	Summaries    []ClusterSummary
	K            int
	Mode         VectorizeMode
	TotalRecords int
	Degradations []Degradation
}

// Analyzer runs the full clustering pipeline. All collaborators and the debug
// flag are injected; there is no shared state across runs.
type Analyzer struct {
	opts      Options
	embedder  Embedder
	generator TextGenerator
}

// NewAnalyzer wires the pipeline. embedder and generator may be nil, in which
// case the deterministic local paths are used throughout.
func NewAnalyzer(opts Options, embedder Embedder, generator TextGenerator) *Analyzer {
	return &Analyzer{opts: opts, embedder: embedder, generator: generator}
}

func (a *Analyzer) debugf(format string, args ...any) {
	if a.opts.Verbose {
		log.Printf(format, args...)
	}
}

// Run executes the sequential batch pipeline: vectorize, pick k, cluster,
// then extract terms and assemble a summary per cluster. Only ErrNoUsableText
// aborts; every other failure degrades and is recorded on the result.
func (a *Analyzer) Run(ctx context.Context, corpus *Corpus) (*Result, error) {
	n := len(corpus.Records)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 usable records, got %d", ErrNoUsableText, n)
	}

	weights := ComputeWeights(corpus.Records)
	if weights == nil {
		a.debugf("Uniform weights detected, clustering unweighted")
	} else {
		a.debugf("Computed weights for %d records", n)
	}

	features, mode, deg, err := Vectorize(ctx, corpus.Texts, a.embedder)
	if err != nil {
		return nil, err
	}
	result := &Result{Mode: mode, TotalRecords: n}
	if deg != nil {
		log.Printf("Warning: %s", deg)
		result.Degradations = append(result.Degradations, *deg)
	}
	rows, cols := features.Dims()
	a.debugf("Feature matrix: %d records x %d dimensions (%s)", rows, cols, mode)

	k := a.chooseK(features, n)
	a.debugf("Clustering with k=%d", k)

	assignments, centroids, err := ClusterRecords(features, k, weights)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster records: %w", err)
	}
	clusters := BuildClusters(assignments, centroids)
	RankClusters(clusters)
	result.K = k

	summarizer := NewSummarizer(a.generator, a.opts.PromptTemplate, a.opts.Samples)
	for _, cluster := range clusters {
		memberTexts := make([]string, 0, len(cluster.Members))
		memberNormalized := make([]string, 0, len(cluster.Members))
		for _, idx := range cluster.Members {
			memberTexts = append(memberTexts, corpus.Records[idx].Text)
			memberNormalized = append(memberNormalized, corpus.Texts[idx])
		}

		terms := TopTerms(memberNormalized, corpus.Texts, 8)
		summary, sdeg := summarizer.Summarize(ctx, cluster, memberTexts, terms)
		if sdeg != nil {
			log.Printf("Warning: %s", sdeg)
			result.Degradations = append(result.Degradations, *sdeg)
		}
		result.Summaries = append(result.Summaries, summary)
	}

	return result, nil
}

// chooseK applies the configured cluster count policy: a forced k is silently
// clamped to [1, n-1]; otherwise the selector searches the configured range,
// floored at the minimum and clamped below the record count.
func (a *Analyzer) chooseK(features *mat.Dense, n int) int {
	if a.opts.ForcedK > 0 {
		k := a.opts.ForcedK
		if k > n-1 {
			k = n - 1
		}
		if k < 1 {
			k = 1
		}
		if k != a.opts.ForcedK {
			a.debugf("Forced k=%d clamped to %d", a.opts.ForcedK, k)
		}
		return k
	}

	kMin := a.opts.MinClusters
	if kMin < 2 {
		kMin = 2
	}
	kMax := a.opts.MaxClusters
	if kMax < kMin {
		kMax = kMin
	}

	k := SelectClusterCount(features, kMin, kMax)
	if k < kMin {
		k = kMin
	}
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}
	return k
}
