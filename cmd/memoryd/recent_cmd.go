package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/store"
)

func recentCmd() *cobra.Command {
	var (
		project string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "recent <kind>",
		Short: "List the most recent rows of one kind (decision, learning, breadcrumb, loa)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecent(args[0], project, limit)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Restrict to a project")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum rows")
	return cmd
}

func runRecent(kind, project string, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := eng.Recent(kind, project, limit)
	if err != nil {
		return fmt.Errorf("recent %s: %w", kind, err)
	}

	switch v := rows.(type) {
	case []store.Decision:
		for _, d := range v {
			fmt.Printf("%s#%d%s [%s] %s\n", cli.Cyan, d.ID, cli.Reset, formatTs(d.CreatedAt), d.Decision)
		}
	case []store.Learning:
		for _, l := range v {
			fmt.Printf("%s#%d%s [%s] %s\n", cli.Cyan, l.ID, cli.Reset, formatTs(l.CreatedAt), l.Problem)
		}
	case []store.Breadcrumb:
		for _, b := range v {
			fmt.Printf("%s#%d%s [%s] (%d) %s\n", cli.Cyan, b.ID, cli.Reset, formatTs(b.CreatedAt), b.Importance, b.Content)
		}
	case []store.LoAEntry:
		for _, e := range v {
			fmt.Printf("%s#%d%s [%s] %s\n", cli.Cyan, e.ID, cli.Reset, formatTs(e.CreatedAt), e.Title)
		}
	default:
		fmt.Printf("%s(no rows)%s\n", cli.Dim, cli.Reset)
	}
	return nil
}

func formatTs(unix int64) string {
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}
