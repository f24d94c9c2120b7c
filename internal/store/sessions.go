package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Session is a single conversational session with an assistant.
type Session struct {
	ID         int64
	ExternalID string
	StartedAt  int64
	EndedAt    sql.NullInt64
	Summary    string
	Project    string
	Cwd        string
	Branch     string
	Model      string
}

// CreateSession inserts a new session, erroring with ErrDuplicate if the
// external_id already exists.
func (db *DB) CreateSession(s Session) (int64, error) {
	if s.ExternalID == "" {
		return 0, fmt.Errorf("%w: external_id required", ErrInvalidInput)
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO sessions (external_id, started_at, ended_at, summary, project, cwd, branch, model)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ExternalID, s.StartedAt, s.EndedAt, s.Summary, s.Project, s.Cwd, s.Branch, s.Model,
		)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return ErrDuplicate
			}
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// SessionExists reports whether a session with the given external_id exists.
func (db *DB) SessionExists(externalID string) (bool, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(1) FROM sessions WHERE external_id = ?`, externalID).Scan(&count)
	return count > 0, err
}

// GetSessionByExternalID fetches a session by its external identifier.
func (db *DB) GetSessionByExternalID(externalID string) (*Session, error) {
	var s Session
	err := db.conn.QueryRow(
		`SELECT id, external_id, started_at, ended_at, summary, project, cwd, branch, model
		 FROM sessions WHERE external_id = ?`, externalID,
	).Scan(&s.ID, &s.ExternalID, &s.StartedAt, &s.EndedAt, &s.Summary, &s.Project, &s.Cwd, &s.Branch, &s.Model)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession records the session's end timestamp and summary.
func (db *DB) EndSession(externalID string, endedAt int64, summary string) error {
	return db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE sessions SET ended_at = ?, summary = ? WHERE external_id = ?`,
			endedAt, summary, externalID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteSessionCascade deletes a session, its messages, and any LoA entries
// fully contained within the session's message-id range, descendants first.
// Returns the total number of rows removed across all three tables.
func (db *DB) DeleteSessionCascade(externalID string) (int, error) {
	var removed int
	err := db.Transaction(func(tx *sql.Tx) error {
		var sessionRowID int64
		err := tx.QueryRow(`SELECT id FROM sessions WHERE external_id = ?`, externalID).Scan(&sessionRowID)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		// Step 1: compute min/max message id for this session.
		var minID, maxID sql.NullInt64
		err = tx.QueryRow(
			`SELECT MIN(id), MAX(id) FROM messages WHERE session_ref = ?`, externalID,
		).Scan(&minID, &maxID)
		if err != nil {
			return err
		}

		if minID.Valid {
			// Step 2: find LoA entries fully inside [minID, maxID].
			rows, err := tx.Query(
				`SELECT id FROM loa_entries
				 WHERE range_start IS NOT NULL AND range_end IS NOT NULL
				   AND range_start >= ? AND range_end <= ?`,
				minID.Int64, maxID.Int64,
			)
			if err != nil {
				return err
			}
			var loaIDs []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return err
				}
				loaIDs = append(loaIDs, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}

			// Step 3: recursively delete LoA descendants, children first.
			n, err := deleteLoATreeChildrenFirst(tx, loaIDs)
			if err != nil {
				return err
			}
			removed += n
		}

		// Step 4: delete messages.
		res, err := tx.Exec(`DELETE FROM messages WHERE session_ref = ?`, externalID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed += int(n)

		// Step 5: delete the session row.
		if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionRowID); err != nil {
			return err
		}
		removed++

		return nil
	})
	return removed, err
}

// deleteLoATreeChildrenFirst deletes the given LoA entries and all of their
// descendants (by `parent`), deepest first, so no row is ever orphaned
// mid-deletion.
func deleteLoATreeChildrenFirst(tx *sql.Tx, roots []int64) (int, error) {
	if len(roots) == 0 {
		return 0, nil
	}

	// Collect the full descendant set breadth-first, then delete in
	// reverse discovery order (children necessarily discovered after
	// their parents, so reversing gives children-first deletion).
	var ordered []int64
	frontier := append([]int64{}, roots...)
	for len(frontier) > 0 {
		ordered = append(ordered, frontier...)
		var next []int64
		for _, id := range frontier {
			rows, err := tx.Query(`SELECT id FROM loa_entries WHERE parent = ?`, id)
			if err != nil {
				return 0, err
			}
			for rows.Next() {
				var childID int64
				if err := rows.Scan(&childID); err != nil {
					rows.Close()
					return 0, err
				}
				next = append(next, childID)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return 0, err
			}
		}
		frontier = next
	}

	count := 0
	for i := len(ordered) - 1; i >= 0; i-- {
		if _, err := tx.Exec(`DELETE FROM loa_entries WHERE id = ?`, ordered[i]); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
