package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/document"
)

var (
	listAll   bool
	listLimit int
)

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include merged (tombstoned) documents")
	listCmd.Flags().IntVar(&listLimit, "limit", DefaultListLimit, "Maximum number of documents to show")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List library documents",
	RunE:  runList,
}

// ListResponse is the response for the list command.
type ListResponse struct {
	Total     int                 `json:"total"`
	Documents []document.Document `json:"documents"`
}

func runList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	var docs []document.Document
	var err error
	if listAll {
		docs, err = db.ListDocuments()
	} else {
		docs, err = db.ListActiveDocuments()
	}
	if err != nil {
		exitWithError(ExitError, "listing documents: %v", err)
	}

	total := len(docs)
	if listLimit > 0 && len(docs) > listLimit {
		docs = docs[:listLimit]
	}

	if humanOutput {
		for _, d := range docs {
			marker := ""
			if d.Status == document.StatusMerged {
				marker = fmt.Sprintf(" [merged into %d]", d.MergedInto)
			}
			fmt.Printf("%d. %s%s\n", d.ID, truncateString(d.Title, ListTitleMaxLen), marker)
			if len(d.Authors) > 0 || d.Year > 0 {
				fmt.Printf("   %s (%d)\n", formatAuthorsShort(d.Authors, 3), d.Year)
			}
		}
		if total > len(docs) {
			fmt.Printf("\n(%d of %d documents shown)\n", len(docs), total)
		}
	} else {
		outputJSON(ListResponse{Total: total, Documents: docs})
	}
	return nil
}
