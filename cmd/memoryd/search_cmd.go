package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/search"
)

func splitKinds(kinds string) []string {
	if strings.TrimSpace(kinds) == "" {
		return nil
	}
	parts := strings.Split(kinds, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func searchCmd() *cobra.Command {
	var (
		kinds string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text keyword search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(strings.Join(args, " "), splitKinds(kinds), limit)
		},
	}
	cmd.Flags().StringVar(&kinds, "kinds", "", "Comma-separated kinds to restrict to (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

func runSearch(query string, kinds []string, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := eng.Search(query, kinds, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	printResults(results)
	return nil
}

func semanticCmd() *cobra.Command {
	var (
		kinds string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Vector similarity search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSemantic(strings.Join(args, " "), splitKinds(kinds), limit)
		},
	}
	cmd.Flags().StringVar(&kinds, "kinds", "", "Comma-separated kinds to restrict to (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

func runSemantic(query string, kinds []string, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := eng.Semantic(query, kinds, limit)
	if err != nil {
		return fmt.Errorf("semantic search: %w", err)
	}
	if result.Degraded {
		fmt.Printf("%s(no embedding provider reachable, results unavailable)%s\n", cli.Dim, cli.Reset)
		return nil
	}
	printResults(result.Results)
	return nil
}

func hybridCmd() *cobra.Command {
	var (
		kinds string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "hybrid <query>",
		Short: "Lexical + semantic search, fused by reciprocal rank fusion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHybrid(strings.Join(args, " "), splitKinds(kinds), limit)
		},
	}
	cmd.Flags().StringVar(&kinds, "kinds", "", "Comma-separated kinds to restrict to (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

// runHybrid is also the handler for a bare query with no subcommand.
func runHybrid(query string, kinds []string, limit int) error {
	if limit <= 0 {
		limit = 10
	}
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := eng.Hybrid(query, kinds, limit)
	if err != nil {
		return fmt.Errorf("hybrid search: %w", err)
	}
	if result.Degraded {
		fmt.Printf("%s(semantic leg unavailable, showing lexical results only)%s\n", cli.Dim, cli.Reset)
	}
	printResults(result.Results)
	return nil
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Printf("%sNo results.%s\n", cli.Dim, cli.Reset)
		return
	}
	for i, r := range results {
		snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
		if len(snippet) > 160 {
			snippet = snippet[:160] + "…"
		}
		fmt.Printf("%s%2d.%s %s%s #%d%s  %s\n", cli.Dim, i+1, cli.Reset, cli.Cyan, r.Kind, r.ID, cli.Reset, snippet)
	}
}
