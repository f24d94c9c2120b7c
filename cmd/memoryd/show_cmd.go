package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/store"
)

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show a single row by kind and id (message, decision, learning, breadcrumb, loa, telos, document)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return userError(fmt.Sprintf("Invalid id %q", args[1]), "Pass a numeric row id")
			}
			return runShow(args[0], id)
		},
	}
	return cmd
}

func runShow(kind string, id int64) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	row, err := eng.Show(kind, id)
	if err != nil {
		return fmt.Errorf("show %s #%d: %w", kind, id, err)
	}

	switch v := row.(type) {
	case *store.Message:
		fmt.Printf("[%s] %s (%s)\n%s\n", formatTs(v.Ts), v.Role, v.Project, v.Content)
	case *store.Decision:
		fmt.Printf("%s\n\nReasoning: %s\nAlternatives: %s\nStatus: %s\n", v.Decision, v.Reasoning, v.Alternatives, v.Status)
	case *store.Learning:
		fmt.Printf("Problem: %s\nSolution: %s\nPrevention: %s\nTags: %s\n", v.Problem, v.Solution, v.Prevention, v.Tags)
	case *store.Breadcrumb:
		fmt.Printf("%s\n(importance %d, project %s)\n", v.Content, v.Importance, v.Project)
	case *store.LoAEntry:
		fmt.Printf("%s\n\n%s\n", v.Title, v.Extract)
	case *store.TelosEntry:
		fmt.Printf("%s [%s/%s]\n%s\n", v.Title, v.Type, v.Category, v.Content)
	case *store.Document:
		fmt.Printf("%s (%s)\n%s\n", v.Title, v.Type, v.Summary)
	default:
		fmt.Printf("%v\n", row)
	}
	return nil
}
