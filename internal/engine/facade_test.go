package engine

import (
	"errors"
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

func TestAddBreadcrumbAndRecent(t *testing.T) {
	db := newTestDB(t)
	e, err := New(db, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := e.AddBreadcrumb(store.Breadcrumb{Content: "remember WAL mode", Project: "loa"}); err != nil {
		t.Fatalf("AddBreadcrumb() error = %v", err)
	}

	got, err := e.Recent("breadcrumb", "loa", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	crumbs, ok := got.([]store.Breadcrumb)
	if !ok || len(crumbs) != 1 {
		t.Fatalf("Recent() = %#v, want one breadcrumb", got)
	}
}

func TestRecentUnknownKind(t *testing.T) {
	db := newTestDB(t)
	e, _ := New(db, nil, nil)

	if _, err := e.Recent("bogus", "", 10); err != ErrUnknownKind {
		t.Errorf("Recent() error = %v, want ErrUnknownKind", err)
	}
}

func TestShowMessageByID(t *testing.T) {
	db := newTestDB(t)
	e, _ := New(db, nil, nil)

	if _, err := db.CreateSession(store.Session{ExternalID: "s1", StartedAt: 1}); err != nil {
		t.Fatal(err)
	}
	ids, err := db.AddMessagesBatch([]store.Message{{SessionID: "s1", Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.Show("message", ids[0])
	if err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	msg, ok := got.(*store.Message)
	if !ok || msg.Content != "hello" {
		t.Fatalf("Show() = %#v, want message with content %q", got, "hello")
	}
}

func TestStatsReportsRowCounts(t *testing.T) {
	db := newTestDB(t)
	e, _ := New(db, nil, nil)

	if _, err := e.AddDecision(store.Decision{Decision: "use sqlite"}); err != nil {
		t.Fatal(err)
	}

	stats, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.RowCounts["decisions"] != 1 {
		t.Errorf("Stats().RowCounts[decisions] = %d, want 1", stats.RowCounts["decisions"])
	}
}

func TestLoAWriteWithoutLLMClientIsServiceUnavailable(t *testing.T) {
	db := newTestDB(t)
	e, _ := New(db, nil, nil)

	if _, err := e.LoAWrite("s1", "title", LoAWriteOptions{}); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("LoAWrite() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestEmbedBackfillWithoutEmbedderIsServiceUnavailable(t *testing.T) {
	db := newTestDB(t)
	e, _ := New(db, nil, nil)

	if _, err := e.EmbedBackfill(EmbedBackfillOptions{Kind: "decision"}); err != ErrServiceUnavailable {
		t.Errorf("EmbedBackfill() error = %v, want ErrServiceUnavailable", err)
	}
}
