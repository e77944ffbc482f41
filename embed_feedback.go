package painpoint

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// EmbeddingCache stores embedding vectors in SQLite keyed by model and text
// hash, so repeated runs over the same feedback never repeat paid API calls.
type EmbeddingCache struct {
	db *sql.DB
}

// OpenEmbeddingCache opens (or creates) the cache database at path.
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS embeddings (
		text_hash TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		embedding_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_model ON embeddings(model);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close embedding cache: %v", err)
		}
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}

	return &EmbeddingCache{db: db}, nil
}

func (c *EmbeddingCache) Close() error { return c.db.Close() }

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached vector for (model, text), if any.
func (c *EmbeddingCache) Get(model, text string) ([]float64, bool, error) {
	var embeddingJSON string
	err := c.db.QueryRow(
		"SELECT embedding_json FROM embeddings WHERE text_hash = ?",
		cacheKey(model, text),
	).Scan(&embeddingJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var vec []float64
	if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
		return nil, false, fmt.Errorf("failed to parse cached embedding: %w", err)
	}
	return vec, true, nil
}

// Put stores a vector for (model, text), replacing any previous entry.
func (c *EmbeddingCache) Put(model, text string, vec []float64) error {
	embeddingJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO embeddings (text_hash, model, embedding_json) VALUES (?, ?, ?)",
		cacheKey(model, text), model, string(embeddingJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// OpenAIEmbedder embeds texts through the OpenAI embeddings API in a single
// batched request, consulting the cache first when one is attached.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	cache  *EmbeddingCache
}

// NewOpenAIEmbedder creates an embedder for the given model. cache may be nil.
func NewOpenAIEmbedder(apiKey, model string, cache *EmbeddingCache) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		cache:  cache,
	}
}

func (e *OpenAIEmbedder) Name() string { return "openai" }

// EmbedBatch returns one vector per text, same order. Texts already present in
// the cache are not re-sent; the remainder goes out in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if e.cache != nil {
			vec, ok, err := e.cache.Get(e.model, text)
			if err != nil {
				log.Printf("Embedding cache read failed: %v", err)
			} else if ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: missing,
			},
			Model:          openai.EmbeddingModel(e.model),
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to call OpenAI embeddings API: %w", err)
		}
		if len(resp.Data) != len(missing) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(missing))
		}

		for _, d := range resp.Data {
			if d.Index < 0 || int(d.Index) >= len(missingIdx) {
				return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
			}
			i := missingIdx[d.Index]
			out[i] = d.Embedding
			if e.cache != nil {
				if err := e.cache.Put(e.model, texts[i], d.Embedding); err != nil {
					log.Printf("Embedding cache write failed: %v", err)
				}
			}
		}
	}

	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
	}
	return out, nil
}
