package store

import "database/sql"

// TelosEntry is a coded, typed knowledge-graph-lite node (goal, constraint,
// principle, ...) that can chain to a parent entry by code, forming an
// ancestry the engine can walk without a full graph store.
type TelosEntry struct {
	ID         int64
	Code       string
	Type       string
	Category   string
	Title      string
	Content    string
	ParentCode sql.NullString
	SourceFile string
	CreatedAt  int64
	UpdatedAt  int64
}

// UpsertTelos inserts or updates a TELOS entry keyed on its unique code.
func (db *DB) UpsertTelos(e TelosEntry) (int64, error) {
	if e.Code == "" || e.Title == "" {
		return 0, ErrInvalidInput
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO telos_entries (code, type, category, title, content, parent_code, source_file, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET
			   type = excluded.type, category = excluded.category, title = excluded.title,
			   content = excluded.content, parent_code = excluded.parent_code,
			   source_file = excluded.source_file, updated_at = excluded.updated_at`,
			e.Code, e.Type, e.Category, e.Title, e.Content, e.ParentCode, e.SourceFile, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if id == 0 {
			return tx.QueryRow(`SELECT id FROM telos_entries WHERE code = ?`, e.Code).Scan(&id)
		}
		return nil
	})
	return id, err
}

// GetTelosByID fetches a TELOS entry by its numeric row id.
func (db *DB) GetTelosByID(id int64) (*TelosEntry, error) {
	var e TelosEntry
	err := db.conn.QueryRow(
		`SELECT id, code, type, category, title, content, parent_code, source_file, created_at, updated_at
		 FROM telos_entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.Code, &e.Type, &e.Category, &e.Title, &e.Content, &e.ParentCode, &e.SourceFile, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetTelosByCode fetches a TELOS entry by its code.
func (db *DB) GetTelosByCode(code string) (*TelosEntry, error) {
	var e TelosEntry
	err := db.conn.QueryRow(
		`SELECT id, code, type, category, title, content, parent_code, source_file, created_at, updated_at
		 FROM telos_entries WHERE code = ?`, code,
	).Scan(&e.ID, &e.Code, &e.Type, &e.Category, &e.Title, &e.Content, &e.ParentCode, &e.SourceFile, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// TelosChildren returns the entries whose parent_code directly matches code.
func (db *DB) TelosChildren(code string) ([]TelosEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, code, type, category, title, content, parent_code, source_file, created_at, updated_at
		 FROM telos_entries WHERE parent_code = ? ORDER BY code ASC`, code,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTelosRows(rows)
}

// TelosAncestors walks parent_code links from code up to the root, returning
// them nearest-ancestor first. A cycle (malformed data) is broken once a
// code is seen twice, rather than looping forever.
func (db *DB) TelosAncestors(code string) ([]TelosEntry, error) {
	var out []TelosEntry
	seen := map[string]bool{code: true}
	current := code
	for {
		e, err := db.GetTelosByCode(current)
		if err == ErrNotFound {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if !e.ParentCode.Valid || e.ParentCode.String == "" {
			return out, nil
		}
		if seen[e.ParentCode.String] {
			return out, nil
		}
		parent, err := db.GetTelosByCode(e.ParentCode.String)
		if err == ErrNotFound {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, *parent)
		seen[parent.Code] = true
		current = parent.Code
	}
}

func scanTelosRows(rows *sql.Rows) ([]TelosEntry, error) {
	var out []TelosEntry
	for rows.Next() {
		var e TelosEntry
		if err := rows.Scan(&e.ID, &e.Code, &e.Type, &e.Category, &e.Title, &e.Content, &e.ParentCode, &e.SourceFile, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
