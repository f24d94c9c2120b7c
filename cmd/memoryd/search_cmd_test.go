package main

import (
	"reflect"
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestSplitKinds(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"decision", []string{"decision"}},
		{"decision, learning ,breadcrumb", []string{"decision", "learning", "breadcrumb"}},
	}
	for _, c := range cases {
		got := splitKinds(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitKinds(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRunSearchAndHybrid(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	if _, err := db.AddDecision(store.Decision{CreatedAt: 1, Decision: "use sqlite for the memory store", Project: "loa"}); err != nil {
		t.Fatalf("AddDecision: %v", err)
	}
	db.Close()

	if err := runSearch("sqlite", nil, 10); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
	if err := runHybrid("sqlite", nil, 10); err != nil {
		t.Fatalf("runHybrid: %v", err)
	}
}

func TestRunSemantic_DegradesWithoutEmbedder(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	db, _, err := store.Init()
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	db.Close()

	if err := runSemantic("anything", nil, 10); err != nil {
		t.Fatalf("runSemantic: %v", err)
	}
}
