package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/dedupe"
	"github.com/matsen/citegraph/internal/embedding"
	"github.com/matsen/citegraph/internal/semantic"
)

var (
	dedupeSemantic  bool
	dedupeThreshold float64
)

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeSemantic, "semantic", false, "Also run the embedding similarity strategy")
	dedupeCmd.Flags().Float64Var(&dedupeThreshold, "threshold", 0, "Similarity cutoff for the semantic strategy (overrides config)")
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find candidate duplicate documents",
	Long: `Find candidate duplicate documents.

Three strategies run independently: exact external-identifier collision,
matching (title, year, first author) keys, and optionally embedding
similarity over the semantic index. No documents are changed; review the
proposed pairs and apply them with 'cg merge'.

Examples:
  cg dedupe
  cg dedupe --semantic
  cg merge 12 7 --apply`,
	RunE: runDedupe,
}

// DedupeResult is the response for the dedupe command.
type DedupeResult struct {
	Total int           `json:"total"`
	Pairs []dedupe.Pair `json:"pairs"`
}

// semanticMatcher adapts the semantic index and an embedding provider into
// the similarity collaborator used by duplicate detection.
type semanticMatcher struct {
	idx      *semantic.Index
	provider embedding.Provider
}

func (m *semanticMatcher) Similar(ctx context.Context, text string, limit int) ([]dedupe.Match, error) {
	emb, err := m.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	results, err := m.idx.SearchVector(emb, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]dedupe.Match, len(results))
	for i, r := range results {
		matches[i] = dedupe.Match{DocumentID: r.DocumentID, Score: float64(r.Score)}
	}
	return matches, nil
}

func runDedupe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	var sim dedupe.SimilarityProvider
	if dedupeSemantic {
		idx := mustLoadSemanticIndex(repoRoot)
		provider := newEmbeddingProvider()
		mustValidateOllama(ctx, provider)
		sim = &semanticMatcher{idx: idx, provider: provider}
	}

	threshold := dedupeThreshold
	if threshold == 0 {
		threshold = cfg.SimilarityThreshold
	}

	pairs, err := dedupe.Detect(ctx, db, sim, dedupe.Options{SimilarityThreshold: threshold})
	if err != nil {
		exitWithError(ExitError, "detecting duplicates: %v", err)
	}

	if humanOutput {
		if len(pairs) == 0 {
			fmt.Println("No duplicate candidates found.")
			return nil
		}
		fmt.Printf("Found %d candidate pairs:\n\n", len(pairs))
		for _, p := range pairs {
			fmt.Printf("[%.2f] %d <-> %d (%s)\n", p.Confidence, p.AID, p.BID, p.Method)
			if p.Details != "" {
				fmt.Printf("       %s\n", p.Details)
			}
		}
		fmt.Printf("\nApply a pair with 'cg merge <src> <dst> --apply'\n")
	} else {
		if pairs == nil {
			pairs = []dedupe.Pair{}
		}
		outputJSON(DedupeResult{Total: len(pairs), Pairs: pairs})
	}
	return nil
}
