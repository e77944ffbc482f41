package painpoint

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options is the configuration surface consumed by the pipeline. It is threaded
// explicitly through constructors; there is no package-level state.
type Options struct {
	// ForcedK forces the cluster count when > 0, clamped to [1, n-1].
	ForcedK     int
	MinClusters int
	MaxClusters int
	// Samples is the number of example texts kept per cluster in outputs.
	Samples int
	Verbose bool

	EmbeddingModel string
	ChatModel      string
	// CachePath is the SQLite embedding cache file. Empty disables caching.
	CachePath string
	// PromptTemplate overrides the summarization prompt. The literal {samples}
	// placeholder is replaced with the joined sample texts; if the placeholder
	// is missing, the samples are appended instead.
	PromptTemplate string
}

// DefaultOptions mirrors the defaults of the analyze command.
func DefaultOptions() Options {
	return Options{
		MinClusters:    2,
		MaxClusters:    8,
		Samples:        3,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		CachePath:      "embeddings.db",
	}
}

type fileConfig struct {
	MinClusters    int    `yaml:"min_clusters"`
	MaxClusters    int    `yaml:"max_clusters"`
	Samples        int    `yaml:"samples"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	CachePath      string `yaml:"cache_path"`
	PromptTemplate string `yaml:"prompt_template"`
}

// LoadOptions reads a YAML config file over the defaults. A missing file is
// not an error; it just returns the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return opts, nil
		}
		return opts, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return opts, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.MinClusters > 0 {
		opts.MinClusters = fc.MinClusters
	}
	if fc.MaxClusters > 0 {
		opts.MaxClusters = fc.MaxClusters
	}
	if fc.Samples > 0 {
		opts.Samples = fc.Samples
	}
	if fc.EmbeddingModel != "" {
		opts.EmbeddingModel = fc.EmbeddingModel
	}
	if fc.ChatModel != "" {
		opts.ChatModel = fc.ChatModel
	}
	if fc.CachePath != "" {
		opts.CachePath = fc.CachePath
	}
	if fc.PromptTemplate != "" {
		opts.PromptTemplate = fc.PromptTemplate
	}

	return opts, nil
}
