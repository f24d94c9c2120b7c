package store

import "database/sql"

// Breadcrumb is a short, importance-weighted note meant for quick recall
// (e.g. hot-recall surfacing at the start of a new session).
type Breadcrumb struct {
	ID         int64
	CreatedAt  int64
	SessionID  string
	Content    string
	Category   string
	Project    string
	Importance int // 1-10
	ExpiresAt  sql.NullInt64
}

// AddBreadcrumb inserts a breadcrumb. Content is required; importance
// defaults to 5 when zero.
func (db *DB) AddBreadcrumb(b Breadcrumb) (int64, error) {
	if b.Content == "" {
		return 0, ErrInvalidInput
	}
	if b.Importance == 0 {
		b.Importance = 5
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO breadcrumbs (created_at, session_ref, content, category, project, importance, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.CreatedAt, b.SessionID, b.Content, b.Category, b.Project, b.Importance, b.ExpiresAt,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetBreadcrumbByID fetches a single breadcrumb by id.
func (db *DB) GetBreadcrumbByID(id int64) (*Breadcrumb, error) {
	var b Breadcrumb
	err := db.conn.QueryRow(
		`SELECT id, created_at, session_ref, content, category, project, importance, expires_at
		 FROM breadcrumbs WHERE id = ?`, id,
	).Scan(&b.ID, &b.CreatedAt, &b.SessionID, &b.Content, &b.Category, &b.Project, &b.Importance, &b.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RecentBreadcrumbs returns the most recently created breadcrumbs,
// optionally filtered by project, newest first.
func (db *DB) RecentBreadcrumbs(project string, limit int) ([]Breadcrumb, error) {
	query := `SELECT id, created_at, session_ref, content, category, project, importance, expires_at
	          FROM breadcrumbs`
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

	var out []Breadcrumb
	for rows.Next() {
		var b Breadcrumb
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.SessionID, &b.Content, &b.Category,
			&b.Project, &b.Importance, &b.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HotRecall returns the highest-importance, unexpired breadcrumbs, newest
// first among ties, capped at config.HotRecallCap-style limits by the
// caller.
func (db *DB) HotRecall(project string, now int64, limit int) ([]Breadcrumb, error) {
	query := `SELECT id, created_at, session_ref, content, category, project, importance, expires_at
	          FROM breadcrumbs WHERE (expires_at IS NULL OR expires_at > ?)`
	args := []any{now}
	if project != "" {
		query += ` AND project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY importance DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Breadcrumb
	for rows.Next() {
		var b Breadcrumb
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.SessionID, &b.Content, &b.Category,
			&b.Project, &b.Importance, &b.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
