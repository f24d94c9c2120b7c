package main

import (
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestRunRecentLoA(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	if _, err := db.WriteLoA(store.LoAEntry{CreatedAt: 1, Title: "session recap", Extract: "did some work"}); err != nil {
		t.Fatalf("WriteLoA: %v", err)
	}
	db.Close()

	if err := runRecent("loa", "", 10); err != nil {
		t.Fatalf("runRecent: %v", err)
	}
}

func TestRunRecent_UnknownKind(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	db.Close()

	if err := runRecent("nonsense", "", 10); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
