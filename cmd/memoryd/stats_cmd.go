package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show row counts and database size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := eng.Stats()
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	kinds := make([]string, 0, len(stats.RowCounts))
	for k := range stats.RowCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	cli.Section("Rows")
	for _, k := range kinds {
		fmt.Printf("  %-12s %s%s%s\n", k, cli.Bold, cli.FormatNumber(stats.RowCounts[k]), cli.Reset)
	}
	fmt.Printf("\n  Database size: %s\n", cli.FormatNumber(int(stats.DatabaseBytes/1024))+" KB")

	embedStats, err := eng.EmbedStats()
	if err == nil {
		fmt.Printf("  Embeddings: %s (%d dimensions)\n", cli.FormatNumber(embedStats.Count), embedStats.Dimensions)
	}
	return nil
}
