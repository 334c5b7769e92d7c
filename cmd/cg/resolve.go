package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/cite"
)

var resolveThreshold float64

func init() {
	resolveCmd.Flags().Float64Var(&resolveThreshold, "threshold", 0, "Fuzzy title similarity cutoff (overrides config)")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve unresolved citation edges against the library",
	Long: `Resolve unresolved citation edges against the library.

Each unresolved edge is tried against library documents by cite key, DOI,
arXiv id, ACL id, URL, exact normalized title, and finally fuzzy title
similarity. Edges that match nothing stay unresolved for a later pass.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	threshold := resolveThreshold
	if threshold == 0 {
		threshold = cfg.FuzzyThreshold
	}

	stats, err := cite.Resolve(db, cite.Options{FuzzyThreshold: threshold})
	if err != nil {
		exitWithError(ExitError, "resolving citations: %v", err)
	}

	if humanOutput {
		fmt.Printf("Resolution complete:\n")
		fmt.Printf("  Resolved: %d\n", stats.Resolved)
		fmt.Printf("    by cite key: %d\n", stats.ByCiteKey)
		fmt.Printf("    by DOI: %d\n", stats.ByDOI)
		fmt.Printf("    by arXiv: %d\n", stats.ByArXiv)
		fmt.Printf("    by ACL: %d\n", stats.ByACL)
		fmt.Printf("    by URL: %d\n", stats.ByURL)
		fmt.Printf("    by title: %d\n", stats.ByTitle)
		fmt.Printf("  Remaining unresolved: %d\n", stats.Remaining)
	} else {
		outputJSON(stats)
	}
	return nil
}
