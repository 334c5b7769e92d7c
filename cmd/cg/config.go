package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get and set repository configuration",
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	PDFRoot             string  `json:"pdf_root,omitempty"`
	FuzzyThreshold      float64 `json:"fuzzy_threshold,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show repository configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)

		if humanOutput {
			fmt.Printf("pdf_root: %s\n", cfg.PDFRoot)
			fmt.Printf("fuzzy_threshold: %g\n", cfg.FuzzyThreshold)
			fmt.Printf("similarity_threshold: %g\n", cfg.SimilarityThreshold)
		} else {
			outputJSON(ConfigResponse{
				PDFRoot:             cfg.PDFRoot,
				FuzzyThreshold:      cfg.FuzzyThreshold,
				SimilarityThreshold: cfg.SimilarityThreshold,
			})
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys:
  pdf_root              Absolute path to the PDF folder
  fuzzy_threshold       Title similarity cutoff for citation resolution
  similarity_threshold  Embedding similarity cutoff for duplicate detection`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	switch key {
	case "pdf_root":
		if err := config.ValidatePDFRoot(value); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		cfg.PDFRoot = config.ExpandPath(value)
	case "fuzzy_threshold", "similarity_threshold":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			exitWithError(ExitConfigError, "invalid %s: %s", key, value)
		}
		if err := config.ValidateThreshold(key, v); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if key == "fuzzy_threshold" {
			cfg.FuzzyThreshold = v
		} else {
			cfg.SimilarityThreshold = v
		}
	default:
		exitWithError(ExitConfigError, "unknown config key: %s", key)
	}

	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}
