package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/extraction"
	"github.com/sgx-labs/loa/internal/llm"
	"github.com/sgx-labs/loa/internal/scanner"
	"github.com/sgx-labs/loa/internal/store"
)

func watchCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the transcript root and extract new sessions as they're written",
		Long: `Monitors the configured transcript directory for file changes and runs
the extraction pipeline against each one once its writes go quiet.

Blocks until interrupted. Requires an LLM client (see MEM_LLM_PROVIDER).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(root)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Transcript root to watch (default: configured scanner root)")
	return cmd
}

func runWatch(root string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	llmClient, err := llm.NewClient()
	if err != nil || llmClient == nil {
		return userError("No LLM client configured", "Set MEM_LLM_PROVIDER and MEM_LLM_MODEL (and MEM_LLM_API_KEY if remote)")
	}

	pipeline, err := extraction.NewPipeline(db, llmClient)
	if err != nil {
		return fmt.Errorf("build extraction pipeline: %w", err)
	}

	if root == "" {
		root = config.ScannerSettings().TranscriptRoot
	}
	return scanner.Watch(root, pipeline)
}
