package store

import (
	"database/sql"
	"strings"

	"github.com/adrg/frontmatter"
)

// Document is an imported reference file (e.g. a markdown design doc),
// optionally carrying YAML frontmatter that contributes to its title/type.
type Document struct {
	ID             int64
	Path           string
	Title          string
	Type           string
	Content        string
	Summary        string
	SizeBytes      int64
	FileModifiedAt int64
	CreatedAt      int64
	UpdatedAt      int64
}

// documentFrontmatter holds the optional YAML frontmatter fields a document
// may declare at the top of its content.
type documentFrontmatter struct {
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
}

// ParseDocumentFrontmatter splits optional YAML frontmatter from a raw
// document body, falling back to treating the whole input as body when no
// frontmatter is present or it fails to parse.
func ParseDocumentFrontmatter(raw string) (title, docType, body string) {
	var meta documentFrontmatter
	parsedBody, err := frontmatter.Parse(strings.NewReader(raw), &meta)
	if err != nil {
		return "", "", raw
	}
	return meta.Title, meta.Type, string(parsedBody)
}

// UpsertDocument inserts or replaces a document keyed on its unique path.
func (db *DB) UpsertDocument(d Document) (int64, error) {
	if d.Path == "" || d.Content == "" {
		return 0, ErrInvalidInput
	}
	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO documents (path, title, type, content, summary, size_bytes, file_modified_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET
			   title = excluded.title, type = excluded.type, content = excluded.content,
			   summary = excluded.summary, size_bytes = excluded.size_bytes,
			   file_modified_at = excluded.file_modified_at, updated_at = excluded.updated_at`,
			d.Path, d.Title, d.Type, d.Content, d.Summary, d.SizeBytes, d.FileModifiedAt, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if id == 0 {
			return tx.QueryRow(`SELECT id FROM documents WHERE path = ?`, d.Path).Scan(&id)
		}
		return nil
	})
	return id, err
}

// GetDocumentByPath fetches a document by its stored path.
func (db *DB) GetDocumentByPath(path string) (*Document, error) {
	var d Document
	err := db.conn.QueryRow(
		`SELECT id, path, title, type, content, summary, size_bytes, file_modified_at, created_at, updated_at
		 FROM documents WHERE path = ?`, path,
	).Scan(&d.ID, &d.Path, &d.Title, &d.Type, &d.Content, &d.Summary, &d.SizeBytes, &d.FileModifiedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DocumentByID fetches a document by its row id.
func (db *DB) DocumentByID(id int64) (*Document, error) {
	var d Document
	err := db.conn.QueryRow(
		`SELECT id, path, title, type, content, summary, size_bytes, file_modified_at, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Path, &d.Title, &d.Type, &d.Content, &d.Summary, &d.SizeBytes, &d.FileModifiedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
