package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/storage"
)

var (
	mergeDryRun bool
	mergeApply  bool
)

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Show what would move without making changes")
	mergeCmd.Flags().BoolVar(&mergeApply, "apply", false, "Perform the merge")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <src-id> <dst-id>",
	Short: "Merge one document into another",
	Long: `Merge one document into another.

Tags, collections, notes, external identifiers, and citation edges move
from the source to the destination (relationships the destination already
has are skipped). The source becomes a tombstone pointing at the
destination. The destination's own fields are never overwritten.

Examples:
  cg merge 12 7 --dry-run   # Show what would move
  cg merge 12 7 --apply     # Merge document 12 into document 7`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeDryRun == mergeApply {
		return fmt.Errorf("must specify exactly one of --dry-run or --apply")
	}

	srcID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitWithError(ExitDataError, "invalid source id: %s", args[0])
	}
	dstID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitWithError(ExitDataError, "invalid destination id: %s", args[1])
	}
	if srcID == dstID {
		exitWithError(ExitDataError, "source and destination are the same document")
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	result, err := db.MergeDocuments(srcID, dstID, mergeDryRun)
	if err != nil {
		if err == storage.ErrSourceMerged || err == storage.ErrTargetMerged {
			exitWithError(ExitMergeError, "%v", err)
		}
		if errors.Is(err, storage.ErrNotFound) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "merging documents: %v", err)
	}

	if humanOutput {
		verb := "Merged"
		if result.DryRun {
			verb = "Would merge"
		}
		fmt.Printf("%s document %d into %d:\n", verb, result.SrcID, result.DstID)
		fmt.Printf("  Tags: %d\n", result.Moved.Tags)
		fmt.Printf("  Collections: %d\n", result.Moved.Collections)
		fmt.Printf("  Notes: %d\n", result.Moved.Notes)
		fmt.Printf("  External ids: %d\n", result.Moved.ExternalIDs)
		fmt.Printf("  Citations out: %d, in: %d\n", result.Moved.CitationsOut, result.Moved.CitationsIn)
	} else {
		outputJSON(result)
	}
	return nil
}
