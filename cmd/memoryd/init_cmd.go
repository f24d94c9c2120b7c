package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/store"
)

func initCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up the memory store (start here)",
		Long: `Creates the memory database and its schema at $BASE (default
~/.memory, override with BASE_DIR).

Run this once before using any other command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip the banner")
	return cmd
}

func runInit(quiet bool) error {
	db, created, err := store.Init()
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer db.Close()

	if !quiet {
		cli.Banner(Version)
	}

	if created {
		fmt.Printf("  %s✓%s Memory store created at %s\n", cli.Green, cli.Reset, cli.ShortenHome(config.DBPath()))
	} else {
		fmt.Printf("  %s✓%s Memory store already initialized at %s\n", cli.Green, cli.Reset, cli.ShortenHome(config.DBPath()))
	}
	return nil
}
