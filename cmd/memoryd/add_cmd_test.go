package main

import (
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestRunAddBreadcrumbAndRecent(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	db.Close()

	if err := runAddBreadcrumb("remember the deploy window", "loa", "ops", 8); err != nil {
		t.Fatalf("runAddBreadcrumb: %v", err)
	}

	db, err = store.Open()
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	rows, err := db.RecentBreadcrumbs("loa", 10)
	if err != nil {
		t.Fatalf("RecentBreadcrumbs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 breadcrumb, got %d", len(rows))
	}
	if rows[0].Content != "remember the deploy window" || rows[0].Importance != 8 {
		t.Fatalf("unexpected breadcrumb row: %+v", rows[0])
	}
}

func TestRunAddBreadcrumb_RejectsEmpty(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	if err := runAddBreadcrumb("   ", "loa", "", 5); err == nil {
		t.Fatal("expected error for empty breadcrumb text")
	}
}

func TestRunAddDecisionAndLearning(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	db.Close()

	if err := runAddDecision("use sqlite for storage", "loa", "storage", "simplicity", "postgres"); err != nil {
		t.Fatalf("runAddDecision: %v", err)
	}
	if err := runAddLearning("flaky test under load", "loa", "testing", "added retries", "add backoff", "flaky,ci"); err != nil {
		t.Fatalf("runAddLearning: %v", err)
	}

	db, err = store.Open()
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	decisions, err := db.RecentDecisions("loa", 10)
	if err != nil || len(decisions) != 1 {
		t.Fatalf("RecentDecisions: %v, %d rows", err, len(decisions))
	}
	learnings, err := db.RecentLearnings("loa", 10)
	if err != nil || len(learnings) != 1 {
		t.Fatalf("RecentLearnings: %v, %d rows", err, len(learnings))
	}
}
