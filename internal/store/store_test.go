package store

import (
	"database/sql"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitReportsCreatedOnce(t *testing.T) {
	db := newTestDB(t)
	created, err := db.Init()
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !created {
		t.Error("Init() created = false on first call, want true")
	}
	created, err = db.Init()
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if created {
		t.Error("Init() created = true on second call, want false")
	}
}

func TestSchemaVersionRecorded(t *testing.T) {
	db := newTestDB(t)
	if v := db.SchemaVersion(); v != schemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", v, schemaVersion)
	}
}

func TestEmptyStoreStats(t *testing.T) {
	db := newTestDB(t)
	n, err := db.EmbeddingCount("")
	if err != nil {
		t.Fatalf("EmbeddingCount() error = %v", err)
	}
	if n != 0 {
		t.Errorf("EmbeddingCount() = %d on empty store, want 0", n)
	}
	decisions, err := db.RecentDecisions("", 10)
	if err != nil {
		t.Fatalf("RecentDecisions() error = %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("RecentDecisions() = %d entries on empty store, want 0", len(decisions))
	}
}

func TestAddDecisionAndRecall(t *testing.T) {
	db := newTestDB(t)
	id, err := db.AddDecision(Decision{
		CreatedAt: 1000,
		Project:   "loa",
		Decision:  "use RRF for hybrid search",
		Reasoning: "exact formula specified",
	})
	if err != nil {
		t.Fatalf("AddDecision() error = %v", err)
	}
	if id == 0 {
		t.Fatal("AddDecision() returned id 0")
	}

	got, err := db.RecentDecisions("loa", 10)
	if err != nil {
		t.Fatalf("RecentDecisions() error = %v", err)
	}
	if len(got) != 1 || got[0].Decision != "use RRF for hybrid search" {
		t.Errorf("RecentDecisions() = %+v, want one matching decision", got)
	}
	if got[0].Status != "active" {
		t.Errorf("Decision.Status = %q, want active default", got[0].Status)
	}
}

func TestAddDecisionRejectsEmptyContent(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.AddDecision(Decision{CreatedAt: 1}); err != ErrInvalidInput {
		t.Errorf("AddDecision() error = %v, want ErrInvalidInput", err)
	}
}

func TestSessionCreateDuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateSession(Session{ExternalID: "s1", StartedAt: 1}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := db.CreateSession(Session{ExternalID: "s1", StartedAt: 2}); err != ErrDuplicate {
		t.Errorf("CreateSession() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestDeleteSessionCascadeOrphanFree(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateSession(Session{ExternalID: "s1", StartedAt: 1}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	var msgIDs []int64
	ids, err := db.AddMessagesBatch([]Message{
		{SessionID: "s1", Ts: 1, Role: "user", Content: "hello"},
		{SessionID: "s1", Ts: 2, Role: "assistant", Content: "hi there"},
		{SessionID: "s1", Ts: 3, Role: "user", Content: "bye"},
		{SessionID: "s1", Ts: 4, Role: "assistant", Content: "goodbye"},
	})
	if err != nil {
		t.Fatalf("AddMessagesBatch() error = %v", err)
	}
	msgIDs = ids

	loaID, err := db.WriteLoA(LoAEntry{
		CreatedAt:  5,
		Title:      "capture 1",
		Extract:    "summary of hello/hi",
		RangeStart: nullInt(msgIDs[0]),
		RangeEnd:   nullInt(msgIDs[1]),
		SessionID:  "s1",
	})
	if err != nil {
		t.Fatalf("WriteLoA() error = %v", err)
	}

	removed, err := db.DeleteSessionCascade("s1")
	if err != nil {
		t.Fatalf("DeleteSessionCascade() error = %v", err)
	}
	if removed == 0 {
		t.Error("DeleteSessionCascade() removed 0 rows, want > 0")
	}

	if _, err := db.GetLoA(loaID); err != ErrNotFound {
		t.Errorf("GetLoA() after cascade delete error = %v, want ErrNotFound", err)
	}
	msgs, err := db.MessagesInRange(msgIDs[0], msgIDs[len(msgIDs)-1])
	if err != nil {
		t.Fatalf("MessagesInRange() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("MessagesInRange() after cascade delete = %d messages, want 0", len(msgs))
	}
	if _, err := db.GetSessionByExternalID("s1"); err != ErrNotFound {
		t.Errorf("GetSessionByExternalID() after cascade delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSessionCascadeDeletesDescendantsChildrenFirst(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateSession(Session{ExternalID: "s1", StartedAt: 1}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	ids, err := db.AddMessagesBatch([]Message{
		{SessionID: "s1", Ts: 1, Role: "user", Content: "a"},
		{SessionID: "s1", Ts: 2, Role: "assistant", Content: "b"},
	})
	if err != nil {
		t.Fatalf("AddMessagesBatch() error = %v", err)
	}

	parentID, err := db.WriteLoA(LoAEntry{
		CreatedAt: 3, Title: "parent", Extract: "p",
		RangeStart: nullInt(ids[0]), RangeEnd: nullInt(ids[1]), SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("WriteLoA(parent) error = %v", err)
	}
	childID, err := db.WriteLoA(LoAEntry{
		CreatedAt: 4, Title: "child", Extract: "c",
		RangeStart: nullInt(ids[0]), RangeEnd: nullInt(ids[1]), SessionID: "s1",
		Parent: nullInt(parentID),
	})
	if err != nil {
		t.Fatalf("WriteLoA(child) error = %v", err)
	}

	if _, err := db.DeleteSessionCascade("s1"); err != nil {
		t.Fatalf("DeleteSessionCascade() error = %v", err)
	}
	if _, err := db.GetLoA(childID); err != ErrNotFound {
		t.Errorf("GetLoA(child) after cascade = %v, want ErrNotFound", err)
	}
	if _, err := db.GetLoA(parentID); err != ErrNotFound {
		t.Errorf("GetLoA(parent) after cascade = %v, want ErrNotFound", err)
	}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
