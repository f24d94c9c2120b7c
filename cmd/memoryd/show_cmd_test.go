package main

import (
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestRunShowDecision(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	id, err := db.AddDecision(store.Decision{CreatedAt: 1, Decision: "ship it"})
	if err != nil {
		t.Fatalf("AddDecision: %v", err)
	}
	db.Close()

	if err := runShow("decision", id); err != nil {
		t.Fatalf("runShow: %v", err)
	}
}

func TestRunShow_UnknownKind(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	db.Close()

	if err := runShow("nonsense", 1); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
