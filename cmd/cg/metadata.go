package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/cite"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/scholar"
)

var (
	metadataLimit   int
	metadataPaperID string
)

func init() {
	metadataCmd.Flags().IntVar(&metadataLimit, "limit", 0, "Maximum number of documents to query (0 = all)")
	metadataCmd.Flags().StringVar(&metadataPaperID, "paper", "", "Look up a single paper by API id (e.g. DOI:10.1234/x) instead of building edges")
	rootCmd.AddCommand(metadataCmd)
}

var metadataCmd = &cobra.Command{
	Use:     "metadata",
	Aliases: []string{"citations"},
	Short:   "Build citation edges from Semantic Scholar reference lists",
	Long: `Build citation edges from Semantic Scholar reference lists.

For each library document, fetches its reference list from the Semantic
Scholar Graph API and records citation edges. References matching a library
document become resolved edges; the rest are kept with their identifiers so
a later resolve pass can reconcile them as the library grows.

Set S2_API_KEY (environment or global config) for higher rate limits.`,
	RunE: runMetadata,
}

func runMetadata(cmd *cobra.Command, args []string) error {
	// Load .env file if present (for S2_API_KEY)
	_ = godotenv.Load()

	ctx := context.Background()

	var opts []scholar.ClientOption
	if key := config.GetS2APIKey(); key != "" {
		opts = append(opts, scholar.WithAPIKey(key))
	}
	client := scholar.NewClient(opts...)

	if metadataPaperID != "" {
		return lookupPaper(ctx, client, metadataPaperID)
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	stats, err := cite.BuildFromMetadata(ctx, db, client, nil, metadataLimit)
	if err != nil {
		exitWithError(ExitError, "building citations from metadata: %v", err)
	}

	if humanOutput {
		fmt.Printf("Metadata build complete:\n")
		fmt.Printf("  Documents processed: %d\n", stats.Processed)
		fmt.Printf("  Citations added: %d\n", stats.CitationsAdded)
		fmt.Printf("  API hits: %d, misses: %d\n", stats.APIHits, stats.APIMisses)
		fmt.Printf("  Documents skipped: %d (no usable identifier)\n", stats.Skipped)
	} else {
		outputJSON(stats)
	}
	return nil
}

// lookupPaper fetches one paper's identifiers, without touching the library.
func lookupPaper(ctx context.Context, client *scholar.Client, paperID string) error {
	ref, err := client.GetPaper(ctx, paperID)
	if err != nil {
		if scholar.IsNotFound(err) {
			exitWithError(ExitDataError, "paper %s not found", paperID)
		}
		exitWithError(ExitError, "looking up paper %s: %v", paperID, err)
	}

	if humanOutput {
		fmt.Printf("Title: %s\n", ref.Title)
		idTypes := make([]string, 0, len(ref.ExternalIDs))
		for idType := range ref.ExternalIDs {
			idTypes = append(idTypes, idType)
		}
		sort.Strings(idTypes)
		for _, idType := range idTypes {
			fmt.Printf("  %s: %s\n", idType, ref.ExternalIDs[idType])
		}
	} else {
		outputJSON(ref)
	}
	return nil
}
