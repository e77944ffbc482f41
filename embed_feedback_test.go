package painpoint

import (
	"context"
	"path/filepath"
	"testing"
)

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	cache, err := OpenEmbeddingCache(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	}()

	if _, ok, err := cache.Get("model-a", "login fails"); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	want := []float64{0.1, 0.2, 0.3}
	if err := cache.Put("model-a", "login fails", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get("model-a", "login fails")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	// Same text under another model is a distinct entry.
	if _, ok, err := cache.Get("model-b", "login fails"); err != nil || ok {
		t.Fatalf("model should partition the cache, got ok=%v err=%v", ok, err)
	}
}

func TestEmbedBatchServedEntirelyFromCache(t *testing.T) {
	cache, err := OpenEmbeddingCache(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	texts := []string{"login fails", "dark mode"}
	vectors := [][]float64{{1, 0}, {0, 1}}
	for i, text := range texts {
		if err := cache.Put("test-model", text, vectors[i]); err != nil {
			t.Fatal(err)
		}
	}

	// No API key and no network: a warm cache must satisfy the whole batch.
	emb := NewOpenAIEmbedder("", "test-model", cache)
	got, err := emb.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vectors {
		if len(got[i]) != len(vectors[i]) || got[i][0] != vectors[i][0] {
			t.Fatalf("vector %d = %v, want %v", i, got[i], vectors[i])
		}
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := cacheKey("m", "text")
	b := cacheKey("m", "text")
	if a != b {
		t.Fatalf("cache key not deterministic: %q vs %q", a, b)
	}
	if a == cacheKey("m2", "text") || a == cacheKey("m", "text2") {
		t.Fatal("cache key should depend on both model and text")
	}
}
