package store

import "database/sql"

// Decision is a recorded architectural/implementation choice.
type Decision struct {
	ID           int64
	CreatedAt    int64
	SessionID    string
	Category     string
	Project      string
	Decision     string
	Reasoning    string
	Alternatives string
	Status       string // active, superseded, reverted
}

// AddDecision inserts a decision record. Content is required.
func (db *DB) AddDecision(d Decision) (int64, error) {
	if d.Decision == "" {
		return 0, ErrInvalidInput
	}
	if d.Status == "" {
		d.Status = "active"
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO decisions (created_at, session_ref, category, project, decision, reasoning, alternatives, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.CreatedAt, d.SessionID, d.Category, d.Project, d.Decision, d.Reasoning, d.Alternatives, d.Status,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetDecisionByID fetches a single decision by id.
func (db *DB) GetDecisionByID(id int64) (*Decision, error) {
	var d Decision
	err := db.conn.QueryRow(
		`SELECT id, created_at, session_ref, category, project, decision, reasoning, alternatives, status
		 FROM decisions WHERE id = ?`, id,
	).Scan(&d.ID, &d.CreatedAt, &d.SessionID, &d.Category, &d.Project, &d.Decision, &d.Reasoning, &d.Alternatives, &d.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RecentDecisions returns the most recent decisions, optionally filtered by
// project, newest first.
func (db *DB) RecentDecisions(project string, limit int) ([]Decision, error) {
	query := `SELECT id, created_at, session_ref, category, project, decision, reasoning, alternatives, status
	          FROM decisions`
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

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.SessionID, &d.Category, &d.Project,
			&d.Decision, &d.Reasoning, &d.Alternatives, &d.Status); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
