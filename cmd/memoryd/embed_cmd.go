package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/engine"
)

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Manage embeddings",
	}
	cmd.AddCommand(embedBackfillCmd(), embedStatsCmd())
	return cmd
}

func embedBackfillCmd() *cobra.Command {
	var (
		kind  string
		limit int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed rows missing a vector (or all rows, with --force)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbedBackfill(kind, limit, force)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to one kind (default: all embeddable kinds)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to embed (0 = no limit)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-embed rows that already have a vector")
	return cmd
}

func runEmbedBackfill(kind string, limit int, force bool) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := eng.EmbedBackfill(engine.EmbedBackfillOptions{Kind: kind, Limit: limit, Force: force})
	if err != nil {
		return fmt.Errorf("embed backfill: %w", err)
	}
	fmt.Printf("  Embedded: %s%s%s\n", cli.Green, cli.FormatNumber(result.Embedded), cli.Reset)
	fmt.Printf("  Failed:   %s\n", cli.FormatNumber(result.Failed))
	return nil
}

func embedStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show embedding counts and approximate storage size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbedStats()
		},
	}
}

func runEmbedStats() error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := eng.EmbedStats()
	if err != nil {
		return fmt.Errorf("embed stats: %w", err)
	}
	fmt.Printf("  Count:      %s\n", cli.FormatNumber(stats.Count))
	fmt.Printf("  Dimensions: %d\n", stats.Dimensions)
	fmt.Printf("  Bytes:      %s\n", cli.FormatNumber(int(stats.Bytes)))
	return nil
}
