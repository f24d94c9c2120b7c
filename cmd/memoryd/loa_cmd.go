package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/engine"
)

func loaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loa",
		Short: "Write, show, quote, and list captured session summaries",
	}
	cmd.AddCommand(loaWriteCmd(), loaShowCmd(), loaQuoteCmd(), loaListCmd())
	return cmd
}

func loaWriteCmd() *cobra.Command {
	var (
		session   string
		project   string
		continues int64
		tags      string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "write <title>",
		Short: "Extract and record a titled summary of messages since the session's last entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return userError("Missing --session", "Pass the session's external id with --session")
			}
			title := args[0]
			for _, a := range args[1:] {
				title += " " + a
			}
			return runLoAWrite(session, title, project, continues, tags, limit)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "External session id")
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().Int64Var(&continues, "continues", 0, "Parent loa entry id, if this one continues it")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().IntVar(&limit, "limit", 0, "Tail N messages instead of everything since the last entry")
	return cmd
}

func runLoAWrite(session, title, project string, continues int64, tags string, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := eng.LoAWrite(session, title, engine.LoAWriteOptions{
		Project:   project,
		Continues: continues,
		Tags:      tags,
		Limit:     limit,
	})
	if err != nil {
		return fmt.Errorf("loa write: %w", err)
	}
	fmt.Printf("%s✓%s Recorded loa #%d (%d messages)\n", cli.Green, cli.Reset, entry.ID, entry.MessageCount)
	return nil
}

func loaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a full loa entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return userError(fmt.Sprintf("Invalid id %q", args[0]), "Pass a numeric loa id")
			}
			return runLoAShow(id)
		},
	}
}

func runLoAShow(id int64) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := eng.LoAShow(id)
	if err != nil {
		return fmt.Errorf("loa show: %w", err)
	}
	fmt.Printf("%s%s%s\n\n%s\n", cli.Bold, entry.Title, cli.Reset, entry.Extract)
	return nil
}

func loaQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <id>",
		Short: "Print just the extract text of a loa entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return userError(fmt.Sprintf("Invalid id %q", args[0]), "Pass a numeric loa id")
			}
			return runLoAQuote(id)
		},
	}
}

func runLoAQuote(id int64) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	extract, err := eng.LoAQuote(id)
	if err != nil {
		return fmt.Errorf("loa quote: %w", err)
	}
	fmt.Println(extract)
	return nil
}

func loaListCmd() *cobra.Command {
	var (
		project string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent loa entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoAList(project, limit)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Restrict to a project")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum entries")
	return cmd
}

func runLoAList(project string, limit int) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := eng.LoAList(project, limit)
	if err != nil {
		return fmt.Errorf("loa list: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("%s(no entries)%s\n", cli.Dim, cli.Reset)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s#%d%s [%s] %s\n", cli.Cyan, e.ID, cli.Reset, formatTs(e.CreatedAt), e.Title)
	}
	return nil
}
