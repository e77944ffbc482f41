package painpoint

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Embedder converts a batch of normalized texts into fixed-length vectors,
// one per text, in the same order. Implementations are external collaborators;
// any failure triggers fallback to local vectorization.
type Embedder interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorizeMode reports which strategy produced the feature matrix.
type VectorizeMode string

const (
	ModeEmbedding VectorizeMode = "embeddings"
	ModeLocal     VectorizeMode = "tfidf"
)

// Vectorize maps normalized texts to a dense, non-negative-friendly feature
// matrix. The embedder is preferred when present; on any failure (network,
// quota, malformed response) it records a degradation and falls back to local
// TF-IDF. Returns ErrNoUsableText only when even local vectorization finds no
// tokens.
func Vectorize(ctx context.Context, texts []string, embedder Embedder) (*mat.Dense, VectorizeMode, *Degradation, error) {
	if len(texts) == 0 {
		return nil, ModeLocal, nil, fmt.Errorf("%w: empty corpus", ErrNoUsableText)
	}

	var deg *Degradation
	if embedder != nil {
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err == nil {
			err = validateEmbeddings(texts, vectors)
		}
		if err == nil {
			m := denseFromRows(vectors)
			sanitizeMatrix(m)
			return m, ModeEmbedding, nil, nil
		}
		deg = &Degradation{
			Stage:  StageEmbedding,
			Reason: fmt.Sprintf("%s embedder failed, falling back to TF-IDF", embedder.Name()),
			Err:    err,
		}
	}

	model := fitTFIDFRelaxed(texts)
	if model == nil || model.dimension() == 0 {
		return nil, ModeLocal, deg, fmt.Errorf("%w: all texts empty after tokenization", ErrNoUsableText)
	}
	m := denseFromRows(model.matrixRows(texts))
	sanitizeMatrix(m)
	return m, ModeLocal, deg, nil
}

func validateEmbeddings(texts []string, vectors [][]float64) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(vectors), len(texts))
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("empty embedding vectors in response")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("inconsistent embedding dimension at index %d: %d != %d", i, len(v), dim)
		}
	}
	return nil
}

func denseFromRows(rows [][]float64) *mat.Dense {
	n := len(rows)
	d := len(rows[0])
	m := mat.NewDense(n, d, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// sanitizeMatrix replaces non-finite entries with zero and floors negatives to
// zero, in place. Returns the number of entries changed.
func sanitizeMatrix(m *mat.Dense) int {
	raw := m.RawMatrix()
	changed := 0
	for i := range raw.Data {
		v := raw.Data[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			raw.Data[i] = 0
			changed++
		} else if v < 0 {
			raw.Data[i] = 0
			changed++
		}
	}
	return changed
}
