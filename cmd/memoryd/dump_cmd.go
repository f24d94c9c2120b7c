package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/engine"
	"github.com/sgx-labs/loa/internal/ingest"
)

func dumpCmd() *cobra.Command {
	var (
		title     string
		continues int64
		tags      string
	)
	cmd := &cobra.Command{
		Use:   "dump <transcript-file>",
		Short: "Re-ingest a transcript file and extract a fresh loa entry from it",
		Long: `Parses the given transcript file, replacing any previously imported
messages for its session, then runs the extraction pipeline over the
full transcript and records the result as a new loa entry.

Unlike "import", which skips sessions already present, dump always
re-ingests — useful when a transcript has grown since the last import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], title, continues, tags)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title for the resulting loa entry (default: derived from the session id)")
	cmd.Flags().Int64Var(&continues, "continues", 0, "Parent loa entry id, if this one continues it")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	return cmd
}

func runDump(path, title string, continues int64, tags string) error {
	tr, err := ingest.Parse(path)
	if err != nil {
		return fmt.Errorf("parse transcript: %w", err)
	}
	if title == "" {
		title = fmt.Sprintf("Session %s", tr.SessionID)
	}

	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := eng.Dump(tr.SessionID, tr.Project, title, tr.Messages, engine.LoAWriteOptions{
		Continues: continues,
		Tags:      tags,
	})
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	fmt.Printf("%s✓%s Recorded loa #%d from %d messages\n", cli.Green, cli.Reset, entry.ID, entry.MessageCount)
	return nil
}
