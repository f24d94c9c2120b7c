package store

import "database/sql"

// Learning is a recorded problem/solution pair distilled from a session.
type Learning struct {
	ID         int64
	CreatedAt  int64
	SessionID  string
	Category   string
	Project    string
	Problem    string
	Solution   string
	Prevention string
	Tags       string
}

// AddLearning inserts a learning record. Problem text is required.
func (db *DB) AddLearning(l Learning) (int64, error) {
	if l.Problem == "" {
		return 0, ErrInvalidInput
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO learnings (created_at, session_ref, category, project, problem, solution, prevention, tags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.CreatedAt, l.SessionID, l.Category, l.Project, l.Problem, l.Solution, l.Prevention, l.Tags,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// GetLearningByID fetches a single learning by id.
func (db *DB) GetLearningByID(id int64) (*Learning, error) {
	var l Learning
	err := db.conn.QueryRow(
		`SELECT id, created_at, session_ref, category, project, problem, solution, prevention, tags
		 FROM learnings WHERE id = ?`, id,
	).Scan(&l.ID, &l.CreatedAt, &l.SessionID, &l.Category, &l.Project, &l.Problem, &l.Solution, &l.Prevention, &l.Tags)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// RecentLearnings returns the most recent learnings, optionally filtered by
// project, newest first.
func (db *DB) RecentLearnings(project string, limit int) ([]Learning, error) {
	query := `SELECT id, created_at, session_ref, category, project, problem, solution, prevention, tags
	          FROM learnings`
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

	var out []Learning
	for rows.Next() {
		var l Learning
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.SessionID, &l.Category, &l.Project,
			&l.Problem, &l.Solution, &l.Prevention, &l.Tags); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
