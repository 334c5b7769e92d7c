package main

// Exit codes used by all cg commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, no repository, index not found)
	ExitDataError   = 3 // Data error (validation failure, Ollama not available)
	ExitMergeError  = 4 // Merge refused (tombstoned source or target)
)
