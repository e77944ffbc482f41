package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"painpoint"
)

var (
	flagK           int
	flagMinClusters int
	flagMaxClusters int
	flagSamples     int
	flagVerbose     bool
	flagConfig      string
	flagOutDir      string
)

func main() {
	// .env is optional; the pipeline runs fully offline without an API key.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "painpoint",
		Short: "Cluster and summarize customer feedback",
	}
	rootCmd.AddCommand(analyzeCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [feedback-file]",
	Short: "Cluster a feedback file and write summary reports",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := painpoint.LoadOptions(flagConfig)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts.ForcedK = flagK
		if cmd.Flags().Changed("min-clusters") {
			opts.MinClusters = flagMinClusters
		}
		if cmd.Flags().Changed("max-clusters") {
			opts.MaxClusters = flagMaxClusters
		}
		if cmd.Flags().Changed("samples") {
			opts.Samples = flagSamples
		}
		opts.Verbose = flagVerbose

		corpus, err := painpoint.LoadFeedback(args[0])
		if err != nil {
			log.Fatalf("Failed to load feedback: %v", err)
		}
		log.Printf("Loaded %d feedback records", len(corpus.Records))

		var embedder painpoint.Embedder
		var generator painpoint.TextGenerator
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			var cache *painpoint.EmbeddingCache
			if opts.CachePath != "" {
				cache, err = painpoint.OpenEmbeddingCache(opts.CachePath)
				if err != nil {
					log.Printf("Warning: embedding cache unavailable: %v", err)
				} else {
					defer func() {
						if err := cache.Close(); err != nil {
							log.Printf("Failed to close embedding cache: %v", err)
						}
					}()
				}
			}
			embedder = painpoint.NewOpenAIEmbedder(apiKey, opts.EmbeddingModel, cache)
			generator = painpoint.NewOpenAIGenerator(apiKey, opts.ChatModel)
		} else {
			log.Println("OPENAI_API_KEY not set, using local vectorization and heuristic summaries")
		}

		analyzer := painpoint.NewAnalyzer(opts, embedder, generator)
		result, err := analyzer.Run(context.Background(), corpus)
		if err != nil {
			if errors.Is(err, painpoint.ErrNoUsableText) {
				log.Fatalf("No usable input: %v", err)
			}
			log.Fatalf("Analysis failed: %v", err)
		}

		printConsoleReport(result)

		if err := writeArtifacts(result, flagOutDir); err != nil {
			log.Fatalf("Failed to write reports: %v", err)
		}
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&flagK, "k", 0, "Force number of clusters (0 = auto)")
	analyzeCmd.Flags().IntVar(&flagMinClusters, "min-clusters", 2, "Lower bound for auto cluster count")
	analyzeCmd.Flags().IntVar(&flagMaxClusters, "max-clusters", 8, "Upper bound for auto cluster count")
	analyzeCmd.Flags().IntVar(&flagSamples, "samples", 3, "Examples per cluster in outputs")
	analyzeCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	analyzeCmd.Flags().StringVar(&flagConfig, "config", "painpoint.yaml", "Path to config file")
	analyzeCmd.Flags().StringVar(&flagOutDir, "out-dir", ".", "Directory for output artifacts")
}

func printConsoleReport(result *painpoint.Result) {
	fmt.Println("\n=== Top Pain-Point Clusters ===")
	for _, s := range result.Summaries {
		terms := s.KeyTerms
		if len(terms) > 6 {
			terms = terms[:6]
		}
		fmt.Printf("[Cluster %d] count=%d  key_terms=%s\n", s.ClusterID, s.Count, strings.Join(terms, ", "))
		for _, e := range s.Examples {
			fmt.Printf("  - %s\n", e)
		}
		fmt.Printf("  summary: %s\n\n", s.Summary)
	}
}

func writeArtifacts(result *painpoint.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	csvPath := filepath.Join(outDir, "pain_point_summary.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create summary CSV: %w", err)
	}
	if err := painpoint.WriteCSV(f, result.Summaries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close summary CSV: %w", err)
	}

	markdown := painpoint.WriteMarkdown(result)
	mdPath := filepath.Join(outDir, "insights.md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	htmlContent, err := painpoint.WriteHTML(markdown)
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(outDir, "insights.html")
	if err := os.WriteFile(htmlPath, []byte(htmlContent), 0644); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}

	log.Printf("Wrote: %s, %s, %s", csvPath, mdPath, htmlPath)
	return nil
}
