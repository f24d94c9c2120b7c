package search

import (
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLexicalFindsDecisionByKeyword(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.AddDecision(store.Decision{
		CreatedAt: 1, Project: "loa", Decision: "adopt reciprocal rank fusion for hybrid search",
	}); err != nil {
		t.Fatalf("AddDecision() error = %v", err)
	}

	eng := New(db, nil)
	results, err := eng.Lexical("reciprocal rank fusion", []string{"decision"}, 10)
	if err != nil {
		t.Fatalf("Lexical() error = %v", err)
	}
	if len(results) != 1 || results[0].Kind != "decision" {
		t.Fatalf("Lexical() = %+v, want one decision match", results)
	}
}

func TestHybridDegradesWithoutEmbedder(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.AddBreadcrumb(store.Breadcrumb{CreatedAt: 1, Content: "remember the RRF constant is 60"}); err != nil {
		t.Fatalf("AddBreadcrumb() error = %v", err)
	}

	eng := New(db, nil)
	res, err := eng.Hybrid("RRF constant", []string{"breadcrumb"}, 10)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if !res.Degraded {
		t.Error("Hybrid() without embedder Degraded = false, want true")
	}
	if len(res.Results) != 1 {
		t.Errorf("Hybrid() = %d results, want 1 from lexical leg alone", len(res.Results))
	}
}

func TestFTSOperatorsANDORNOT(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.AddBreadcrumb(store.Breadcrumb{CreatedAt: 1, Content: "alpha beta"}); err != nil {
		t.Fatalf("AddBreadcrumb() error = %v", err)
	}
	if _, err := db.AddBreadcrumb(store.Breadcrumb{CreatedAt: 2, Content: "alpha gamma"}); err != nil {
		t.Fatalf("AddBreadcrumb() error = %v", err)
	}

	matches, err := db.LexicalSearch(`alpha AND beta`, []string{"breadcrumb"}, 10)
	if err != nil {
		t.Fatalf("LexicalSearch(AND) error = %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("LexicalSearch(alpha AND beta) = %d matches, want 1", len(matches))
	}

	matches, err = db.LexicalSearch(`alpha OR beta`, []string{"breadcrumb"}, 10)
	if err != nil {
		t.Fatalf("LexicalSearch(OR) error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("LexicalSearch(alpha OR beta) = %d matches, want 2", len(matches))
	}

	matches, err = db.LexicalSearch(`alpha NOT beta`, []string{"breadcrumb"}, 10)
	if err != nil {
		t.Fatalf("LexicalSearch(NOT) error = %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("LexicalSearch(alpha NOT beta) = %d matches, want 1", len(matches))
	}
}
