package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/config"
)

var initPDFRoot string

func init() {
	initCmd.Flags().StringVar(&initPDFRoot, "pdf-root", "", "Absolute path to the PDF folder")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a citegraph repository in the current directory",
	Long: `Initialize a citegraph repository in the current directory.

Creates a .citegraph directory with a config file and an empty library
database.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if config.IsRepository(cwd) {
		exitWithError(ExitConfigError, "already a citegraph repository: %s", cwd)
	}

	if err := config.ValidatePDFRoot(initPDFRoot); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := os.MkdirAll(config.CachePath(cwd), 0755); err != nil {
		exitWithError(ExitError, "creating repository directory: %v", err)
	}

	cfg := &config.Config{PDFRoot: config.ExpandPath(initPDFRoot)}
	if err := cfg.Save(cwd); err != nil {
		exitWithError(ExitError, "writing config: %v", err)
	}

	// Open once so the schema exists before the first command runs.
	db := mustOpenDatabase(cwd)
	db.Close()

	if humanOutput {
		fmt.Printf("Initialized citegraph repository in %s\n", config.CitegraphPath(cwd))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.CitegraphPath(cwd)})
	}
	return nil
}
