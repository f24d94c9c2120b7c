// Package store provides the embedded SQLite + sqlite-vec storage layer:
// schema, migrations, transactions, and typed CRUD for every entity kind.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sgx-labs/loa/internal/config"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Error taxonomy, per the store-level and entity-level error classes.
var (
	ErrNotInitialized = errors.New("store: not initialized")
	ErrSchemaTooNew   = errors.New("store: schema version is newer than this binary supports")
	ErrIntegrity      = errors.New("store: integrity check failed")
	ErrInvalidInput   = errors.New("store: invalid input")
	ErrNotFound       = errors.New("store: not found")
	ErrDuplicate      = errors.New("store: duplicate")
	ErrCorruptVector  = errors.New("store: corrupt embedding blob")
)

// schemaVersion is the highest schema version this binary understands.
// migrate is a forward-only migration: opening a database whose recorded
// version is higher than this fails with ErrSchemaTooNew.
const schemaVersion = 1

// DB wraps a SQLite connection configured for the memory engine schema.
type DB struct {
	conn         *sql.DB
	mu           sync.Mutex // serializes writers; readers proceed concurrently under WAL
	ftsAvailable bool
}

// Open opens the database at the configured path. It never creates
// anything — callers must run Init first (see cmd/memoryd's init command);
// Open returns ErrNotInitialized if the file doesn't exist yet.
func Open() (*DB, error) {
	return OpenPath(config.DBPath())
}

// OpenPath opens the existing database at the given path, enabling WAL
// mode and enforcing 0600 permissions on the data file. It returns
// ErrNotInitialized rather than creating path — use Init/InitPath for that.
func OpenPath(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("stat db: %w", err)
	}
	return openConn(path)
}

// Init creates (or, if already present, migrates) the database at the
// configured path, reporting whether this was the first run.
func Init() (*DB, bool, error) {
	return InitPath(config.DBPath())
}

// InitPath creates the parent directory and database file at path if they
// don't exist, then opens and migrates it, reporting whether the schema was
// freshly created.
func InitPath(path string) (*DB, bool, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create data dir: %w", err)
	}

	db, err := openConn(path)
	if err != nil {
		return nil, false, err
	}
	created, err := db.Init()
	if err != nil {
		db.Close()
		return nil, false, err
	}
	return db, created, nil
}

// openConn opens (creating the file if necessary) a SQLite connection at
// path, enabling WAL mode and enforcing 0600 permissions on the data file.
// It does not create the parent directory — callers that need a fresh
// store (InitPath) create it first; callers opening an existing store
// (OpenPath) have already confirmed it exists.
func openConn(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var vecVersion string
	if err := conn.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := enforceFilePermissions(path); err != nil {
		// Non-fatal: some filesystems (e.g. during tests on :memory:-adjacent
		// tmpfs) don't support chmod semantics we rely on elsewhere.
		fmt.Fprintf(os.Stderr, "memoryd: WARNING: could not set file permissions on %s: %v\n", path, err)
	}

	return db, nil
}

// OpenMemory opens an in-memory database, for tests.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func enforceFilePermissions(path string) error {
	if err := os.Chmod(path, 0o600); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		sidecar := path + suffix
		if _, err := os.Stat(sidecar); err == nil {
			os.Chmod(sidecar, 0o600)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB for callers needing direct access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Transaction runs fn inside a single exclusive write transaction. Any
// error returned by fn rolls the transaction back; nil commits.
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Init creates or upgrades the schema idempotently and reports whether the
// database was newly created: the first Init on a database records an
// "initialized" row in schema_meta and reports true; later calls report
// false.
func (db *DB) Init() (created bool, err error) {
	if err := db.migrate(); err != nil {
		return false, err
	}
	if _, done := db.GetMeta("initialized"); done {
		return false, nil
	}
	if err := db.SetMeta("initialized", "1"); err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("schema_meta: %w", err)
	}

	current := db.SchemaVersion()
	if current > schemaVersion {
		return ErrSchemaTooNew
	}

	baseSchema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			summary TEXT,
			project TEXT,
			cwd TEXT,
			branch TEXT,
			model TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_ref TEXT NOT NULL,
			ts INTEGER NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user','assistant','system')),
			content TEXT NOT NULL,
			project TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON messages(session_ref, ts, id)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			session_ref TEXT,
			category TEXT,
			project TEXT,
			decision TEXT NOT NULL,
			reasoning TEXT,
			alternatives TEXT,
			status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','superseded','reverted'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_project ON decisions(project)`,

		`CREATE TABLE IF NOT EXISTS learnings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			session_ref TEXT,
			category TEXT,
			project TEXT,
			problem TEXT NOT NULL,
			solution TEXT,
			prevention TEXT,
			tags TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_learnings_project ON learnings(project)`,

		`CREATE TABLE IF NOT EXISTS breadcrumbs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			session_ref TEXT,
			content TEXT NOT NULL,
			category TEXT,
			project TEXT,
			importance INTEGER NOT NULL DEFAULT 5 CHECK(importance BETWEEN 1 AND 10),
			expires_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_breadcrumbs_project ON breadcrumbs(project)`,

		`CREATE TABLE IF NOT EXISTS loa_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			extract TEXT NOT NULL,
			range_start INTEGER,
			range_end INTEGER,
			parent INTEGER REFERENCES loa_entries(id),
			session_ref TEXT,
			project TEXT,
			tags TEXT,
			message_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loa_parent ON loa_entries(parent)`,
		`CREATE INDEX IF NOT EXISTS idx_loa_range ON loa_entries(range_start, range_end)`,

		`CREATE TABLE IF NOT EXISTS telos_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			category TEXT,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			parent_code TEXT,
			source_file TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telos_parent ON telos_entries(parent_code)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT,
			size_bytes INTEGER NOT NULL,
			file_modified_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS embeddings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_kind TEXT NOT NULL,
			source_id INTEGER NOT NULL,
			model TEXT NOT NULL,
			dimensions INTEGER NOT NULL,
			vector BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(source_kind, source_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_kind ON embeddings(source_kind)`,

		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS embeddings_vec USING vec0(
			embedding_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)`, config.EmbeddingDim()),
	}

	for _, stmt := range baseSchema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}

	versioned := []struct {
		version int
		fn      func() error
	}{
		{1, db.migrateV1Lexical},
	}
	for _, m := range versioned {
		if current < m.version {
			if err := m.fn(); err != nil {
				return fmt.Errorf("migration v%d: %w", m.version, err)
			}
			if err := db.SetMeta("schema_version", strconv.Itoa(m.version)); err != nil {
				return fmt.Errorf("record migration v%d: %w", m.version, err)
			}
			current = m.version
		}
	}

	return nil
}

// SchemaVersion returns the current recorded schema version (0 if unset).
func (db *DB) SchemaVersion() int {
	v, ok := db.GetMeta("schema_version")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// GetMeta reads a value from schema_meta. Returns ("", false) if absent.
func (db *DB) GetMeta(key string) (string, bool) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM schema_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetMeta upserts a key-value pair in schema_meta.
func (db *DB) SetMeta(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO schema_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// FTSAvailable reports whether FTS5 virtual tables were created successfully.
func (db *DB) FTSAvailable() bool {
	return db.ftsAvailable
}

// IntegrityCheck runs PRAGMA integrity_check and fails loudly on corruption.
func (db *DB) IntegrityCheck() error {
	var result string
	if err := db.conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrIntegrity, result)
	}
	return nil
}

// FileSizeBytes returns the on-disk size of the database file, or 0 for
// in-memory databases.
func (db *DB) FileSizeBytes(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// statTables lists every base table a row-count stat is reported for, in
// the order they should be displayed.
var statTables = []string{
	"sessions", "messages", "decisions", "learnings", "breadcrumbs",
	"loa_entries", "telos_entries", "documents", "embeddings",
}

// RowCounts returns the row count of every entity table, keyed by table
// name, for the facade's stats operation.
func (db *DB) RowCounts() (map[string]int, error) {
	out := make(map[string]int, len(statTables))
	for _, table := range statTables {
		var n int
		if err := db.conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}
