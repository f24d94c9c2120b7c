package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Embedding is a stored vector for one (source_kind, source_id) pair, e.g.
// the embedding of a message's content or a decision's text.
type Embedding struct {
	ID         int64
	SourceKind string
	SourceID   int64
	Model      string
	Dimensions int
	Vector     []float32
	CreatedAt  int64
}

// EncodeVector serializes a float32 vector to its little-endian byte blob
// representation, 4 bytes per dimension.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes a byte blob back to a float32 vector, failing
// with ErrCorruptVector if the blob length isn't a multiple of 4 bytes or
// doesn't match the expected dimensionality.
func DecodeVector(blob []byte, expectedDim int) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: blob length %d not a multiple of 4", ErrCorruptVector, len(blob))
	}
	n := len(blob) / 4
	if expectedDim > 0 && n != expectedDim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrCorruptVector, n, expectedDim)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors of
// equal length, via inner product over the product of L2 norms.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// UpsertEmbedding stores (or replaces) the embedding for one source entity,
// keeping the embeddings and embeddings_vec tables in sync.
func (db *DB) UpsertEmbedding(e Embedding) (int64, error) {
	if e.SourceKind == "" || len(e.Vector) == 0 {
		return 0, ErrInvalidInput
	}
	blob := EncodeVector(e.Vector)

	var id int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO embeddings (source_kind, source_id, model, dimensions, vector, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(source_kind, source_id) DO UPDATE SET
			   model = excluded.model, dimensions = excluded.dimensions,
			   vector = excluded.vector, created_at = excluded.created_at`,
			e.SourceKind, e.SourceID, e.Model, len(e.Vector), blob, e.CreatedAt,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if id == 0 {
			if err := tx.QueryRow(
				`SELECT id FROM embeddings WHERE source_kind = ? AND source_id = ?`,
				e.SourceKind, e.SourceID,
			).Scan(&id); err != nil {
				return err
			}
		}

		serialized, err := sqlite_vec.SerializeFloat32(e.Vector)
		if err != nil {
			return fmt.Errorf("serialize vector: %w", err)
		}
		_, err = tx.Exec(`DELETE FROM embeddings_vec WHERE embedding_id = ?`, id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO embeddings_vec (embedding_id, embedding) VALUES (?, ?)`,
			id, serialized,
		)
		return err
	})
	return id, err
}

// GetEmbedding fetches the stored embedding for one source entity.
func (db *DB) GetEmbedding(sourceKind string, sourceID int64) (*Embedding, error) {
	var e Embedding
	var blob []byte
	err := db.conn.QueryRow(
		`SELECT id, source_kind, source_id, model, dimensions, vector, created_at
		 FROM embeddings WHERE source_kind = ? AND source_id = ?`,
		sourceKind, sourceID,
	).Scan(&e.ID, &e.SourceKind, &e.SourceID, &e.Model, &e.Dimensions, &blob, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	vec, err := DecodeVector(blob, e.Dimensions)
	if err != nil {
		return nil, err
	}
	e.Vector = vec
	return &e, nil
}

// VectorMatch is one result from a k-nearest-neighbor vector search.
type VectorMatch struct {
	SourceKind string
	SourceID   int64
	Distance   float64
}

// VectorSearch performs a k-nearest-neighbor search over the embeddings_vec
// virtual table, optionally filtered by source kind, and returns matches
// ordered nearest-first (ascending cosine distance). Because vec0 can't
// filter on a join column inside the MATCH clause itself, kind filtering
// over-fetches k per candidate kind and re-trims after the join.
func (db *DB) VectorSearch(query []float32, kinds []string, k int) ([]VectorMatch, error) {
	serialized, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	fetchK := k
	if len(kinds) > 0 {
		fetchK = k * (len(kinds) + 1)
	}

	rows, err := db.conn.Query(
		`SELECT e.source_kind, e.source_id, v.distance
		 FROM embeddings_vec v
		 JOIN embeddings e ON e.id = v.embedding_id
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance ASC`,
		serialized, fetchK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	var out []VectorMatch
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.SourceKind, &m.SourceID, &m.Distance); err != nil {
			return nil, err
		}
		if len(allowed) > 0 && !allowed[m.SourceKind] {
			continue
		}
		out = append(out, m)
		if k > 0 && len(out) >= k {
			break
		}
	}
	return out, rows.Err()
}

// CosineScore recomputes the exact cosine similarity between a query vector
// and the stored embedding for (sourceKind, sourceID). vec0's cosine
// distance is sufficient to rank candidates, but callers that need the
// precise similarity value for display (rather than an ANN-internal
// distance) get it from the decoded vectors directly.
func (db *DB) CosineScore(query []float32, sourceKind string, sourceID int64) (float64, error) {
	e, err := db.GetEmbedding(sourceKind, sourceID)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(query, e.Vector), nil
}

// EmbeddingCount returns the total number of stored embeddings, optionally
// filtered by source kind.
func (db *DB) EmbeddingCount(sourceKind string) (int, error) {
	var count int
	var err error
	if sourceKind == "" {
		err = db.conn.QueryRow(`SELECT COUNT(1) FROM embeddings`).Scan(&count)
	} else {
		err = db.conn.QueryRow(`SELECT COUNT(1) FROM embeddings WHERE source_kind = ?`, sourceKind).Scan(&count)
	}
	return count, err
}

// embeddableSource names the base table and text column embedded for each
// entity kind that participates in semantic search.
var embeddableSource = map[string]struct{ table, column string }{
	"message":    {"messages", "content"},
	"decision":   {"decisions", "decision"},
	"learning":   {"learnings", "problem"},
	"breadcrumb": {"breadcrumbs", "content"},
	"loa":        {"loa_entries", "extract"},
	"telos":      {"telos_entries", "content"},
	"document":   {"documents", "content"},
}

// EmbeddableRow is one base-table row eligible for embedding.
type EmbeddableRow struct {
	ID   int64
	Text string
}

// RowsNeedingEmbedding returns up to limit rows of the given kind that have
// no embedding yet (or all matching rows, if force is true), ordered by id.
func (db *DB) RowsNeedingEmbedding(kind string, limit int, force bool) ([]EmbeddableRow, error) {
	src, ok := embeddableSource[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown embeddable kind %q", ErrInvalidInput, kind)
	}

	query := fmt.Sprintf(`SELECT b.id, b.%s FROM %s b`, src.column, src.table)
	if !force {
		query += ` LEFT JOIN embeddings e ON e.source_kind = ? AND e.source_id = b.id WHERE e.id IS NULL`
	}
	query += ` ORDER BY b.id ASC`

	var args []any
	if !force {
		args = append(args, kind)
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmbeddableRow
	for rows.Next() {
		var r EmbeddableRow
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
