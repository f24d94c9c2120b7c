// Package main is the entrypoint for the memoryd CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "memoryd",
		Short: "A conversational memory engine for AI coding agents",
		Long: `memoryd persists and searches an AI coding agent's conversational memory:
decisions, learnings, breadcrumbs, and session summaries, kept across
restarts and searchable by keyword, by meaning, or both.

Quick start:
  memoryd init            Set up the memory store (run this first)
  memoryd add decision "use sqlite for storage"
  memoryd "what did we decide about storage"   Hybrid search (default verb)
  memoryd stats           See what's tracked

A bare query with no matching subcommand runs a hybrid search.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runHybrid(strings.Join(args, " "), nil, 0)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(initCmd())
	root.AddCommand(addCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(semanticCmd())
	root.AddCommand(hybridCmd())
	root.AddCommand(recentCmd())
	root.AddCommand(showCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(importCmd())
	root.AddCommand(loaCmd())
	root.AddCommand(dumpCmd())
	root.AddCommand(embedCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the memoryd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("memoryd %s\n", Version)
			return nil
		},
	}
}
