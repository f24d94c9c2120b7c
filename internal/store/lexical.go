package store

import (
	"fmt"
	"os"
	"sort"
)

// ftsSpec describes one entity kind's FTS5 shadow table: the FTS table's
// name, the base table it mirrors, and the columns it indexes.
type ftsSpec struct {
	ftsTable  string
	baseTable string
	columns   []string // indexed columns, in order
}

// lexicalSpecs lists every entity kind carrying a full-text index, with the
// column set named per entity in the lexical-index contract.
var lexicalSpecs = []ftsSpec{
	{"messages_fts", "messages", []string{"content", "project"}},
	{"decisions_fts", "decisions", []string{"decision", "reasoning", "project"}},
	{"learnings_fts", "learnings", []string{"problem", "solution", "tags", "project"}},
	{"breadcrumbs_fts", "breadcrumbs", []string{"content", "category", "project"}},
	{"loa_entries_fts", "loa_entries", []string{"title", "description", "extract", "tags", "project"}},
	{"telos_entries_fts", "telos_entries", []string{"code", "type", "title", "content", "category"}},
	{"documents_fts", "documents", []string{"title", "type", "content", "summary", "path"}},
}

// migrateV1Lexical creates the FTS5 virtual tables and the triggers that
// keep each one 1:1 with its base table. FTS5 unavailability is non-fatal:
// the store falls back to running without lexical search rather than
// refusing to open.
func (db *DB) migrateV1Lexical() error {
	if !db.probeFTS5() {
		fmt.Fprintln(os.Stderr, "memoryd: WARNING: FTS5 unavailable, lexical search disabled")
		db.ftsAvailable = false
		return nil
	}
	db.ftsAvailable = true

	for _, spec := range lexicalSpecs {
		if err := db.createFTSTable(spec); err != nil {
			return fmt.Errorf("%s: %w", spec.ftsTable, err)
		}
	}
	return nil
}

func (db *DB) probeFTS5() bool {
	_, err := db.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_probe USING fts5(x)`)
	if err != nil {
		return false
	}
	db.conn.Exec(`DROP TABLE IF EXISTS _fts5_probe`)
	return true
}

func (db *DB) createFTSTable(spec ftsSpec) error {
	colList := joinColumns(spec.columns)

	createSQL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, content='%s', content_rowid='id')`,
		spec.ftsTable, colList, spec.baseTable,
	)
	if _, err := db.conn.Exec(createSQL); err != nil {
		return err
	}

	insertCols := joinColumns(append([]string{"rowid"}, spec.columns...))
	newCols := prefixColumns("new", spec.columns)

	aiSQL := fmt.Sprintf(
		`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN
			INSERT INTO %s(rowid, %s) VALUES (new.id, %s);
		END`,
		spec.baseTable, spec.baseTable, spec.ftsTable, colList, newCols,
	)
	if _, err := db.conn.Exec(aiSQL); err != nil {
		return err
	}
	_ = insertCols

	adSQL := fmt.Sprintf(
		`CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.id, %s);
		END`,
		spec.baseTable, spec.baseTable, spec.ftsTable, spec.ftsTable, colList, prefixColumns("old", spec.columns),
	)
	if _, err := db.conn.Exec(adSQL); err != nil {
		return err
	}

	auSQL := fmt.Sprintf(
		`CREATE TRIGGER IF NOT EXISTS %s_au AFTER UPDATE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.id, %s);
			INSERT INTO %s(rowid, %s) VALUES (new.id, %s);
		END`,
		spec.baseTable, spec.baseTable,
		spec.ftsTable, spec.ftsTable, colList, prefixColumns("old", spec.columns),
		spec.ftsTable, colList, newCols,
	)
	if _, err := db.conn.Exec(auSQL); err != nil {
		return err
	}

	return nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func prefixColumns(prefix string, cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + "." + c
	}
	return out
}

// LexicalMatch is one ranked hit from a full-text search against a single
// entity kind's FTS5 table. Rank is FTS5's bm25-derived score, where lower
// is better; it orders the merged cross-kind result set.
type LexicalMatch struct {
	Kind string
	ID   int64
	Rank float64
}

// kindToFTSTable maps a search-facing entity kind name to its FTS5 table.
var kindToFTSTable = map[string]string{
	"message":    "messages_fts",
	"decision":   "decisions_fts",
	"learning":   "learnings_fts",
	"breadcrumb": "breadcrumbs_fts",
	"loa":        "loa_entries_fts",
	"telos":      "telos_entries_fts",
	"document":   "documents_fts",
}

// searchableKinds lists every entity kind carrying a lexical index, in a
// fixed order so multi-kind search results are deterministic.
var searchableKinds = []string{"message", "decision", "learning", "breadcrumb", "loa", "telos", "document"}

// LexicalSearch runs an FTS5 MATCH query (already built, e.g. via
// search.BuildMatchExpression) against every entity kind's FTS table (or
// just `kinds` if non-empty). For each kind it takes the top 2*limit rows
// by rank, then merges all kinds' candidates into a single list ordered by
// rank (lower is better) and truncates to limit — so a strong match in one
// kind isn't crowded out by a weaker match in a kind that happens to sort
// earlier.
func (db *DB) LexicalSearch(matchExpr string, kinds []string, limit int) ([]LexicalMatch, error) {
	if !db.ftsAvailable || matchExpr == "" {
		return nil, nil
	}
	if len(kinds) == 0 {
		kinds = searchableKinds
	}

	perKind := limit * 2
	if perKind <= 0 {
		perKind = limit
	}

	var merged []LexicalMatch
	for _, kind := range kinds {
		ftsTable, ok := kindToFTSTable[kind]
		if !ok {
			continue
		}
		query := fmt.Sprintf(`SELECT rowid, rank FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ?`, ftsTable, ftsTable)
		rows, err := db.conn.Query(query, matchExpr, perKind)
		if err != nil {
			return nil, fmt.Errorf("lexical search %s: %w", kind, err)
		}
		for rows.Next() {
			var id int64
			var rank float64
			if err := rows.Scan(&id, &rank); err != nil {
				rows.Close()
				return nil, err
			}
			merged = append(merged, LexicalMatch{Kind: kind, ID: id, Rank: rank})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Rank < merged[j].Rank })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// RebuildFTS rebuilds every FTS5 index from its base table's current
// contents, for recovery after a detected desync.
func (db *DB) RebuildFTS() error {
	if !db.ftsAvailable {
		return nil
	}
	for _, spec := range lexicalSpecs {
		rebuildSQL := fmt.Sprintf(`INSERT INTO %s(%s) VALUES ('rebuild')`, spec.ftsTable, spec.ftsTable)
		if _, err := db.conn.Exec(rebuildSQL); err != nil {
			return fmt.Errorf("rebuild %s: %w", spec.ftsTable, err)
		}
	}
	return nil
}
