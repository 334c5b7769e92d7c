package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/semantic"
)

func init() {
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic similarity index",
	Long:  `Commands for building and inspecting the semantic similarity index used by 'cg dedupe --semantic'.`,
}

// IndexBuildResult is the response for index build command.
type IndexBuildResult struct {
	Status           string `json:"status"`
	DocumentsIndexed int    `json:"documents_indexed"`
	DocumentsSkipped int    `json:"documents_skipped"`
	DocumentsFailed  int    `json:"documents_failed"`
	Model            string `json:"model"`
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or rebuild the semantic index",
	Long: `Build or rebuild the semantic index from document titles and abstracts.

Requires Ollama to be running with the embedding model available.
Run 'ollama pull all-minilm:l6-v2' to download the default model.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoRoot := mustFindRepository()

	provider := newEmbeddingProvider()
	mustValidateOllama(ctx, provider)

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	docs, err := db.ListActiveDocuments()
	if err != nil {
		exitWithError(ExitError, "listing documents: %v", err)
	}

	idx, stats, err := semantic.Build(ctx, provider, docs)
	if err != nil {
		exitWithError(ExitError, "building index: %v", err)
	}

	if err := idx.Save(config.CachePath(repoRoot)); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Build complete:\n")
		fmt.Printf("  Documents indexed: %d\n", stats.Indexed)
		fmt.Printf("  Documents skipped: %d (too little text)\n", stats.Skipped)
		fmt.Printf("  Documents failed: %d\n", stats.Failed)
		fmt.Printf("  Model: %s\n", provider.ModelName())
	} else {
		outputJSON(IndexBuildResult{
			Status:           "complete",
			DocumentsIndexed: stats.Indexed,
			DocumentsSkipped: stats.Skipped,
			DocumentsFailed:  stats.Failed,
			Model:            provider.ModelName(),
		})
	}
	return nil
}

// IndexStatusResult is the response for index status command.
type IndexStatusResult struct {
	Status           string `json:"status"`
	DocumentsTotal   int    `json:"documents_total"`
	DocumentsIndexed int    `json:"documents_indexed"`
	Model            string `json:"model"`
	Created          string `json:"created"`
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show semantic index status",
	RunE:  runIndexStatus,
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	idx := mustLoadSemanticIndex(repoRoot)

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	total, err := db.CountDocuments()
	if err != nil {
		exitWithError(ExitError, "counting documents: %v", err)
	}

	status := "current"
	if idx.DocumentCount < total {
		status = "stale"
	}

	if humanOutput {
		fmt.Printf("Semantic index: %s\n", status)
		fmt.Printf("  Documents in library: %d\n", total)
		fmt.Printf("  Documents indexed: %d\n", idx.DocumentCount)
		fmt.Printf("  Model: %s\n", idx.ModelName)
		fmt.Printf("  Created: %s\n", idx.CreatedAt.Format(time.RFC3339))
	} else {
		outputJSON(IndexStatusResult{
			Status:           status,
			DocumentsTotal:   total,
			DocumentsIndexed: idx.DocumentCount,
			Model:            idx.ModelName,
			Created:          idx.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil
}
