package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/extract"
	"github.com/matsen/citegraph/internal/textsource"
)

var extractLimit int

func init() {
	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "Maximum number of documents to process (0 = all)")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract citation mentions from document full text",
	Long: `Extract citation mentions from document full text.

Scans each active document's text (or PDF) for a references section and
records one unresolved citation edge per reference entry. Re-running is
safe: mentions already recorded are skipped.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	texts := textsource.New(cfg.PDFRoot)
	stats, err := extract.Run(db, texts, nil, extractLimit)
	if err != nil {
		exitWithError(ExitError, "extracting citations: %v", err)
	}

	if humanOutput {
		fmt.Printf("Extraction complete:\n")
		fmt.Printf("  Citations extracted: %d\n", stats.Extracted)
		fmt.Printf("  Documents skipped: %d (no text or no references section)\n", stats.Skipped)
		fmt.Printf("  Documents failed: %d\n", stats.Failed)
	} else {
		outputJSON(stats)
	}
	return nil
}
