package store

import "database/sql"

// LoAEntry ("Library of Alexandria" capture) bundles a contiguous run of messages
// into a titled, searchable summary. Entries can nest via Parent, forming a
// capture hierarchy (a meta-capture over several prior captures).
type LoAEntry struct {
	ID           int64
	CreatedAt    int64
	Title        string
	Description  string
	Extract      string
	RangeStart   sql.NullInt64
	RangeEnd     sql.NullInt64
	Parent       sql.NullInt64
	SessionID    string
	Project      string
	Tags         string
	MessageCount int
}

// WriteLoA inserts a new LoA entry. Title and extract are required; when
// RangeStart/RangeEnd are both set they must describe a same-session range
// (range_start <= range_end), enforced by the caller assembling the range
// from MessagesSinceLastLoA.
func (db *DB) WriteLoA(e LoAEntry) (int64, error) {
	if e.Title == "" || e.Extract == "" {
		return 0, ErrInvalidInput
	}
	if e.RangeStart.Valid && e.RangeEnd.Valid && e.RangeStart.Int64 > e.RangeEnd.Int64 {
		return 0, ErrInvalidInput
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO loa_entries
			   (created_at, title, description, extract, range_start, range_end, parent, session_ref, project, tags, message_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.CreatedAt, e.Title, e.Description, e.Extract, e.RangeStart, e.RangeEnd,
			e.Parent, e.SessionID, e.Project, e.Tags, e.MessageCount,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetLoA fetches a single LoA entry by id.
func (db *DB) GetLoA(id int64) (*LoAEntry, error) {
	var e LoAEntry
	err := db.conn.QueryRow(
		`SELECT id, created_at, title, description, extract, range_start, range_end, parent, session_ref, project, tags, message_count
		 FROM loa_entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.CreatedAt, &e.Title, &e.Description, &e.Extract, &e.RangeStart, &e.RangeEnd,
		&e.Parent, &e.SessionID, &e.Project, &e.Tags, &e.MessageCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListLoA returns LoA entries newest first, optionally filtered by project.
func (db *DB) ListLoA(project string, limit int) ([]LoAEntry, error) {
	query := `SELECT id, created_at, title, description, extract, range_start, range_end, parent, session_ref, project, tags, message_count
	          FROM loa_entries`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoAEntry
	for rows.Next() {
		var e LoAEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Title, &e.Description, &e.Extract, &e.RangeStart, &e.RangeEnd,
			&e.Parent, &e.SessionID, &e.Project, &e.Tags, &e.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoAMessages returns the messages underlying a LoA entry's range.
func (db *DB) LoAMessages(loaID int64) ([]Message, error) {
	e, err := db.GetLoA(loaID)
	if err != nil {
		return nil, err
	}
	if !e.RangeStart.Valid || !e.RangeEnd.Valid {
		return nil, nil
	}
	return db.MessagesInRange(e.RangeStart.Int64, e.RangeEnd.Int64)
}
