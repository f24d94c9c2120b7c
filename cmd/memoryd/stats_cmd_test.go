package main

import (
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestRunStats(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	if _, err := db.AddBreadcrumb(store.Breadcrumb{CreatedAt: 1, Content: "note", Importance: 3}); err != nil {
		t.Fatalf("AddBreadcrumb: %v", err)
	}
	db.Close()

	if err := runStats(); err != nil {
		t.Fatalf("runStats: %v", err)
	}
}
