package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
)

func importCmd() *cobra.Command {
	var (
		dryRun bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Scan the transcript root and import any sessions not already stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(dryRun, limit)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be imported without writing")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum transcripts to scan (0 = no limit)")
	return cmd
}

func runImport(dryRun bool, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := eng.ImportSessions(dryRun, limit)
	if err != nil {
		return fmt.Errorf("import sessions: %w", err)
	}

	fmt.Printf("  Scanned:  %s\n", cli.FormatNumber(result.Scanned))
	fmt.Printf("  Imported: %s%s%s\n", cli.Green, cli.FormatNumber(result.Imported), cli.Reset)
	fmt.Printf("  Skipped:  %s\n", cli.FormatNumber(result.Skipped))
	if dryRun {
		fmt.Printf("\n  %s(dry run, nothing written)%s\n", cli.Dim, cli.Reset)
	}
	return nil
}
