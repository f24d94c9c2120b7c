package store

import "testing"

func TestTelosAncestorsWalksChain(t *testing.T) {
	db := newTestDB(t)
	mustUpsertTelos(t, db, "G1", "goal", "", "Top goal", "", 1)
	mustUpsertTelos(t, db, "C1", "constraint", "G1", "Child constraint", "", 2)
	mustUpsertTelos(t, db, "C2", "constraint", "C1", "Grandchild constraint", "", 3)

	ancestors, err := db.TelosAncestors("C2")
	if err != nil {
		t.Fatalf("TelosAncestors() error = %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("TelosAncestors() = %d entries, want 2", len(ancestors))
	}
	if ancestors[0].Code != "C1" || ancestors[1].Code != "G1" {
		t.Errorf("TelosAncestors() = %v, want [C1, G1] nearest-first", ancestors)
	}
}

func TestTelosChildrenDirectOnly(t *testing.T) {
	db := newTestDB(t)
	mustUpsertTelos(t, db, "G1", "goal", "", "Top goal", "", 1)
	mustUpsertTelos(t, db, "C1", "constraint", "G1", "Child", "", 2)
	mustUpsertTelos(t, db, "C2", "constraint", "C1", "Grandchild", "", 3)

	children, err := db.TelosChildren("G1")
	if err != nil {
		t.Fatalf("TelosChildren() error = %v", err)
	}
	if len(children) != 1 || children[0].Code != "C1" {
		t.Errorf("TelosChildren(G1) = %v, want only [C1]", children)
	}
}

func mustUpsertTelos(t *testing.T, db *DB, code, typ, parent, title string, sourceFile string, ts int64) {
	t.Helper()
	e := TelosEntry{Code: code, Type: typ, Title: title, SourceFile: sourceFile, CreatedAt: ts, UpdatedAt: ts}
	if parent != "" {
		e.ParentCode.String = parent
		e.ParentCode.Valid = true
	}
	if _, err := db.UpsertTelos(e); err != nil {
		t.Fatalf("UpsertTelos(%s) error = %v", code, err)
	}
}
