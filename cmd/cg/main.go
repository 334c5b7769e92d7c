// Package main provides the cg CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/embedding"
	"github.com/matsen/citegraph/internal/semantic"
	"github.com/matsen/citegraph/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cg",
	Short: "Citation graph CLI for a personal document library",
	Long: `cg builds and maintains a citation graph over a personal document library.

Core features:
  - Reference extraction from document full text and PDFs
  - Citation resolution against library documents (ids, URLs, titles)
  - Metadata-driven citation building via Semantic Scholar
  - Duplicate detection and document merging
  - Subgraph queries around any document

Data is stored in SQLite under a .citegraph directory.
All commands output JSON by default for scripting and agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustFindRepository finds and validates the repository, exits on error.
// Returns the repository root path.
func mustFindRepository() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	repoRoot, err := config.FindRepository(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'cg init' to create a repository here.", err)
	}
	return repoRoot
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// newEmbeddingProvider builds an Ollama provider honoring global config.
func newEmbeddingProvider() *embedding.OllamaProvider {
	var opts []embedding.OllamaOption
	if url := config.GetOllamaURL(); url != "" {
		opts = append(opts, embedding.WithBaseURL(url))
	}
	if model := config.GetEmbeddingModel(); model != "" {
		opts = append(opts, embedding.WithModel(model, embedding.DefaultDimensions))
	}
	return embedding.NewOllamaProvider(opts...)
}

// mustValidateOllama checks that Ollama is running.
func mustValidateOllama(ctx context.Context, provider *embedding.OllamaProvider) {
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
}

// mustLoadSemanticIndex loads the semantic index, exits on error.
func mustLoadSemanticIndex(repoRoot string) *semantic.Index {
	idx, err := semantic.Load(config.CachePath(repoRoot))
	if err != nil {
		if err == semantic.ErrIndexNotFound {
			exitWithError(ExitConfigError, "Semantic index not found\n\nRun 'cg index build' to create the index.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return idx
}
