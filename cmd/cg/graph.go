package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/storage"
)

var graphDepth int

func init() {
	graphCmd.Flags().IntVar(&graphDepth, "depth", 1, "Neighborhood depth (1 or 2)")
	rootCmd.AddCommand(graphCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph <document-id>",
	Short: "Show the citation neighborhood of a document",
	Long: `Show the citation neighborhood of a document.

Depth 1 lists documents the center cites and is cited by, plus its
unresolved mentions. Depth 2 also includes the direct edges of those
neighbors.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	centerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitWithError(ExitDataError, "invalid document id: %s", args[0])
	}
	if graphDepth < 1 || graphDepth > 2 {
		exitWithError(ExitDataError, "depth must be 1 or 2")
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	sub, err := graph.Query(db, centerID, graphDepth)
	if err != nil {
		if err == storage.ErrNotFound {
			exitWithError(ExitDataError, "document %d not found", centerID)
		}
		exitWithError(ExitError, "querying graph: %v", err)
	}

	if humanOutput {
		printSubgraphHuman(sub)
	} else {
		outputJSON(sub)
	}
	return nil
}

func printSubgraphHuman(sub *graph.Subgraph) {
	fmt.Printf("%d: %s", sub.Center.ID, truncateString(sub.Center.Title, DetailTitleMaxLen))
	if sub.Center.Year > 0 {
		fmt.Printf(" (%d)", sub.Center.Year)
	}
	fmt.Println()

	fmt.Printf("\nCites (%d):\n", len(sub.Cites))
	for _, n := range sub.Cites {
		fmt.Printf("  %d: %s\n", n.ID, truncateString(n.Title, DetailTitleMaxLen))
	}

	fmt.Printf("\nCited by (%d):\n", len(sub.CitedBy))
	for _, n := range sub.CitedBy {
		fmt.Printf("  %d: %s\n", n.ID, truncateString(n.Title, DetailTitleMaxLen))
	}

	if len(sub.UnresolvedRefs) > 0 {
		fmt.Printf("\nUnresolved mentions (%d):\n", len(sub.UnresolvedRefs))
		for _, r := range sub.UnresolvedRefs {
			fmt.Printf("  [%s] %s\n", r.Origin, truncateString(r.RawCite, DetailTitleMaxLen))
		}
	}

	if len(sub.Edges) > 0 {
		fmt.Printf("\nEdges (%d):\n", len(sub.Edges))
		for _, e := range sub.Edges {
			fmt.Printf("  %d -> %d\n", e.Src, e.Dst)
		}
	}
}
