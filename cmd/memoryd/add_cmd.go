package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/loa/internal/cli"
	"github.com/sgx-labs/loa/internal/store"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a breadcrumb, decision, or learning",
	}
	cmd.AddCommand(addBreadcrumbCmd(), addDecisionCmd(), addLearningCmd())
	return cmd
}

func addBreadcrumbCmd() *cobra.Command {
	var (
		project    string
		category   string
		importance int
	)
	cmd := &cobra.Command{
		Use:   "breadcrumb <text>",
		Short: "Record a short, importance-weighted note for quick recall",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddBreadcrumb(strings.Join(args, " "), project, category, importance)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().IntVar(&importance, "importance", 5, "Importance 1-10")
	return cmd
}

func runAddBreadcrumb(content, project, category string, importance int) error {
	if strings.TrimSpace(content) == "" {
		return userError("Empty breadcrumb text", `Provide text: memoryd add breadcrumb "remember this"`)
	}
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := eng.AddBreadcrumb(store.Breadcrumb{
		CreatedAt:  time.Now().Unix(),
		Content:    content,
		Project:    project,
		Category:   category,
		Importance: importance,
	})
	if err != nil {
		return fmt.Errorf("add breadcrumb: %w", err)
	}
	fmt.Printf("%s✓%s Breadcrumb recorded (id %d)\n", cli.Green, cli.Reset, id)
	return nil
}

func addDecisionCmd() *cobra.Command {
	var (
		project      string
		category     string
		reasoning    string
		alternatives string
	)
	cmd := &cobra.Command{
		Use:   "decision <text>",
		Short: "Record an architectural or implementation decision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddDecision(strings.Join(args, " "), project, category, reasoning, alternatives)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&reasoning, "reasoning", "", "Why this was decided")
	cmd.Flags().StringVar(&alternatives, "alternatives", "", "What else was considered")
	return cmd
}

func runAddDecision(decision, project, category, reasoning, alternatives string) error {
	if strings.TrimSpace(decision) == "" {
		return userError("Empty decision text", `Provide text: memoryd add decision "use sqlite for storage"`)
	}
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := eng.AddDecision(store.Decision{
		CreatedAt:    time.Now().Unix(),
		Decision:     decision,
		Project:      project,
		Category:     category,
		Reasoning:    reasoning,
		Alternatives: alternatives,
	})
	if err != nil {
		return fmt.Errorf("add decision: %w", err)
	}
	fmt.Printf("%s✓%s Decision recorded (id %d)\n", cli.Green, cli.Reset, id)
	return nil
}

func addLearningCmd() *cobra.Command {
	var (
		project    string
		category   string
		solution   string
		prevention string
		tags       string
	)
	cmd := &cobra.Command{
		Use:   "learning <problem>",
		Short: "Record a problem/solution pair distilled from a session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddLearning(strings.Join(args, " "), project, category, solution, prevention, tags)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&solution, "solution", "", "How it was fixed")
	cmd.Flags().StringVar(&prevention, "prevention", "", "How to avoid it next time")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	return cmd
}

func runAddLearning(problem, project, category, solution, prevention, tags string) error {
	if strings.TrimSpace(problem) == "" {
		return userError("Empty learning text", `Provide text: memoryd add learning "flaky test under load"`)
	}
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := eng.AddLearning(store.Learning{
		CreatedAt:  time.Now().Unix(),
		Problem:    problem,
		Project:    project,
		Category:   category,
		Solution:   solution,
		Prevention: prevention,
		Tags:       tags,
	})
	if err != nil {
		return fmt.Errorf("add learning: %w", err)
	}
	fmt.Printf("%s✓%s Learning recorded (id %d)\n", cli.Green, cli.Reset, id)
	return nil
}
