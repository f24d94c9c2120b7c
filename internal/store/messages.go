package store

import (
	"database/sql"
	"fmt"
)

// Message is one transcript turn, attributed to a session by its external id
// (not a foreign key, since messages can be ingested before a session row
// exists).
type Message struct {
	ID        int64
	SessionID string
	Ts        int64
	Role      string
	Content   string
	Project   string
}

// AddMessagesBatch inserts a batch of messages for a single session in one
// transaction, returning their assigned row ids in input order.
func (db *DB) AddMessagesBatch(msgs []Message) ([]int64, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(msgs))
	err := db.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO messages (session_ref, ts, role, content, project) VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, m := range msgs {
			if m.Role != "user" && m.Role != "assistant" && m.Role != "system" {
				return fmt.Errorf("%w: unrecognized role %q", ErrInvalidInput, m.Role)
			}
			res, err := stmt.Exec(m.SessionID, m.Ts, m.Role, m.Content, m.Project)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	return ids, err
}

// GetMessageByID fetches a single message by id.
func (db *DB) GetMessageByID(id int64) (*Message, error) {
	var m Message
	err := db.conn.QueryRow(
		`SELECT id, session_ref, ts, role, content, project FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.SessionID, &m.Ts, &m.Role, &m.Content, &m.Project)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MessagesSinceLastLoA returns messages for a session that occur after the
// highest range_end of any existing LoA entry for that session (or all
// messages if none exists yet), oldest first, capped at limit (0 = no cap).
func (db *DB) MessagesSinceLastLoA(sessionID string, limit int) ([]Message, error) {
	var lastEnd sql.NullInt64
	err := db.conn.QueryRow(
		`SELECT MAX(range_end) FROM loa_entries WHERE session_ref = ?`, sessionID,
	).Scan(&lastEnd)
	if err != nil {
		return nil, err
	}

	cutoff := int64(0)
	if lastEnd.Valid {
		cutoff = lastEnd.Int64
	}

	query := `SELECT id, session_ref, ts, role, content, project FROM messages
	          WHERE session_ref = ? AND id > ? ORDER BY id ASC`
	args := []any{sessionID, cutoff}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Ts, &m.Role, &m.Content, &m.Project); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessagesInRange returns the messages with id in [startID, endID], used to
// materialize a LoA entry's underlying transcript slice.
func (db *DB) MessagesInRange(startID, endID int64) ([]Message, error) {
	rows, err := db.conn.Query(
		`SELECT id, session_ref, ts, role, content, project FROM messages
		 WHERE id >= ? AND id <= ? ORDER BY id ASC`,
		startID, endID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Ts, &m.Role, &m.Content, &m.Project); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
