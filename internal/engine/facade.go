package engine

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/embedding"
	"github.com/sgx-labs/loa/internal/extraction"
	"github.com/sgx-labs/loa/internal/ingest"
	"github.com/sgx-labs/loa/internal/llm"
	"github.com/sgx-labs/loa/internal/scanner"
	"github.com/sgx-labs/loa/internal/search"
	"github.com/sgx-labs/loa/internal/store"
)

// Engine is the facade every CLI command and MCP tool calls into. It owns
// no state beyond its collaborators: the store, the search engine, and an
// extraction pipeline that New builds when an LLM client is supplied.
type Engine struct {
	db       *store.DB
	search   *search.Engine
	embedder embedding.Provider
	pipeline *extraction.Pipeline
}

// New builds a facade over an already-open store. embedder may be nil,
// which degrades semantic and hybrid search to lexical-only; llmClient may
// also be nil, which disables extraction operations (loa_write, dump).
func New(db *store.DB, embedder embedding.Provider, llmClient llm.Client) (*Engine, error) {
	e := &Engine{
		db:       db,
		search:   search.New(db, embedder),
		embedder: embedder,
	}
	if llmClient != nil {
		pipeline, err := extraction.NewPipeline(db, llmClient)
		if err != nil {
			return nil, fmt.Errorf("build extraction pipeline: %w", err)
		}
		e.pipeline = pipeline
	}
	return e, nil
}

// Init initializes the store's schema, reporting whether this was the
// first run.
func (e *Engine) Init() (created bool, err error) {
	return e.db.Init()
}

// AddBreadcrumb validates and records a breadcrumb.
func (e *Engine) AddBreadcrumb(b store.Breadcrumb) (int64, error) {
	return e.db.AddBreadcrumb(b)
}

// AddDecision validates and records a decision.
func (e *Engine) AddDecision(d store.Decision) (int64, error) {
	return e.db.AddDecision(d)
}

// AddLearning validates and records a learning.
func (e *Engine) AddLearning(l store.Learning) (int64, error) {
	return e.db.AddLearning(l)
}

// Search runs a lexical-only search across the given kinds (all kinds if
// empty). Results are not filtered by project.
func (e *Engine) Search(query string, kinds []string, limit int) ([]search.Result, error) {
	return e.search.Lexical(query, kinds, limit)
}

// Semantic runs a vector-only search across the given kinds (all kinds if
// empty). Results carries the boolean degraded flag the caller should
// surface when no embedder is configured or reachable.
func (e *Engine) Semantic(query string, kinds []string, limit int) (search.SemanticResult, error) {
	return e.search.Semantic(query, kinds, limit)
}

// Hybrid runs the fused lexical+semantic search.
func (e *Engine) Hybrid(query string, kinds []string, limit int) (search.HybridResult, error) {
	return e.search.Hybrid(query, kinds, limit)
}

// Recent lists the most recently created rows of a single kind, optionally
// filtered by project.
func (e *Engine) Recent(kind, project string, limit int) (any, error) {
	switch kind {
	case "decision":
		return e.db.RecentDecisions(project, limit)
	case "learning":
		return e.db.RecentLearnings(project, limit)
	case "breadcrumb":
		return e.db.RecentBreadcrumbs(project, limit)
	case "loa":
		return e.db.ListLoA(project, limit)
	default:
		return nil, ErrUnknownKind
	}
}

// Show fetches a single record by kind and id.
func (e *Engine) Show(kind string, id int64) (any, error) {
	switch kind {
	case "message":
		return e.db.GetMessageByID(id)
	case "decision":
		return e.db.GetDecisionByID(id)
	case "learning":
		return e.db.GetLearningByID(id)
	case "breadcrumb":
		return e.db.GetBreadcrumbByID(id)
	case "loa":
		return e.db.GetLoA(id)
	case "telos":
		return e.db.GetTelosByID(id)
	case "document":
		return e.db.DocumentByID(id)
	default:
		return nil, ErrUnknownKind
	}
}

// Stats reports the row count per kind and the on-disk database size.
type Stats struct {
	RowCounts     map[string]int
	DatabaseBytes int64
}

// Stats computes overall store statistics.
func (e *Engine) Stats() (Stats, error) {
	counts, err := e.db.RowCounts()
	if err != nil {
		return Stats{}, err
	}
	return Stats{RowCounts: counts, DatabaseBytes: e.db.FileSizeBytes(config.DBPath())}, nil
}

// EmbedStats reports embedding counts and the approximate byte size of the
// stored vectors.
type EmbedStats struct {
	Count      int
	Dimensions int
	Bytes      int64
}

// EmbedStats computes embedding table statistics.
func (e *Engine) EmbedStats() (EmbedStats, error) {
	count, err := e.db.EmbeddingCount("")
	if err != nil {
		return EmbedStats{}, err
	}
	dims := 0
	if e.embedder != nil {
		dims = e.embedder.Dimensions()
	} else {
		dims = config.EmbeddingDim()
	}
	return EmbedStats{Count: count, Dimensions: dims, Bytes: int64(count * dims * 4)}, nil
}

// ImportResult summarizes one import_sessions run.
type ImportResult struct {
	Scanned  int
	Imported int
	Skipped  int
}

// ImportSessions walks the configured transcript root, parses each
// candidate transcript via the ingest parser, and creates a session +
// message rows for any session not already present.
func (e *Engine) ImportSessions(dryRun bool, limit int) (ImportResult, error) {
	candidates, err := scanner.Scan(config.ScannerSettings().TranscriptRoot, limit)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Scanned: len(candidates)}
	for _, c := range candidates {
		tr, err := ingest.Parse(c.Path)
		if err != nil {
			result.Skipped++
			continue
		}

		exists, err := e.db.SessionExists(tr.SessionID)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}
		if dryRun {
			result.Imported++
			continue
		}

		if err := e.importOne(tr); err != nil {
			result.Skipped++
			continue
		}
		result.Imported++
	}
	return result, nil
}

func (e *Engine) importOne(tr *ingest.Transcript) error {
	now := time.Now().Unix()
	if _, err := e.db.CreateSession(store.Session{
		ExternalID: tr.SessionID,
		StartedAt:  now,
		Project:    tr.Project,
	}); err != nil {
		return err
	}

	msgs := make([]store.Message, len(tr.Messages))
	for i, m := range tr.Messages {
		msgs[i] = store.Message{SessionID: tr.SessionID, Ts: now, Role: m.Role, Content: m.Content, Project: tr.Project}
	}
	_, err := e.db.AddMessagesBatch(msgs)
	return err
}

// LoAWriteOptions configures a loa_write call.
type LoAWriteOptions struct {
	Project   string
	Continues int64 // 0 means no parent
	Tags      string
	Limit     int   // tail N messages instead of everything since the last LoA
}

// LoAWrite fetches messages since the session's last LoA entry (or the
// tail Limit messages), runs the extraction pipeline over them, and
// records a new LoA entry, auto-embedding its extract.
func (e *Engine) LoAWrite(sessionID, title string, opts LoAWriteOptions) (*store.LoAEntry, error) {
	if e.pipeline == nil {
		return nil, fmt.Errorf("%w: no LLM client configured", ErrServiceUnavailable)
	}

	msgs, err := e.db.MessagesSinceLastLoA(sessionID, opts.Limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, store.ErrNotFound
	}

	extractionMsgs := make([]extraction.Message, len(msgs))
	var sizeBytes int64
	for i, m := range msgs {
		extractionMsgs[i] = extraction.Message{Role: m.Role, Content: m.Content}
		sizeBytes += int64(len(m.Content))
	}

	outcome, err := e.pipeline.Run(sessionID, opts.Project, extractionMsgs, sizeBytes)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, fmt.Errorf("session %s: extraction skipped by the extraction tracker", sessionID)
	}

	entry := store.LoAEntry{
		CreatedAt:    time.Now().Unix(),
		Title:        title,
		Extract:      outcome.RawOutput,
		RangeStart:   nullableID(msgs[0].ID),
		RangeEnd:     nullableID(msgs[len(msgs)-1].ID),
		SessionID:    sessionID,
		Project:      opts.Project,
		Tags:         opts.Tags,
		MessageCount: len(msgs),
	}
	if opts.Continues != 0 {
		entry.Parent = nullableID(opts.Continues)
	}

	id, err := e.db.WriteLoA(entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	e.autoEmbed("loa", id, entry.Extract)

	return &entry, nil
}

// Dump re-ingests the currently active session (deleting any prior rows
// for its external id, so a re-run reflects the latest transcript state)
// and then runs LoAWrite.
func (e *Engine) Dump(sessionID, project, title string, messages []extraction.Message, opts LoAWriteOptions) (*store.LoAEntry, error) {
	if _, err := e.db.DeleteSessionCascade(sessionID); err != nil && err != store.ErrNotFound {
		return nil, err
	}

	if _, err := e.db.CreateSession(store.Session{ExternalID: sessionID, StartedAt: time.Now().Unix(), Project: project}); err != nil {
		return nil, err
	}
	msgs := make([]store.Message, len(messages))
	for i, m := range messages {
		msgs[i] = store.Message{SessionID: sessionID, Ts: time.Now().Unix(), Role: m.Role, Content: m.Content, Project: project}
	}
	if _, err := e.db.AddMessagesBatch(msgs); err != nil {
		return nil, err
	}

	opts.Project = project
	return e.LoAWrite(sessionID, title, opts)
}

// EmbedBackfillOptions configures an embed_backfill call.
type EmbedBackfillOptions struct {
	Kind  string
	Limit int
	Force bool
}

// EmbedBackfillResult summarizes one backfill run.
type EmbedBackfillResult struct {
	Embedded int
	Failed   int
}

// EmbedBackfill embeds every row of Kind missing an embedding (or all rows
// if Force), storing each result via the store's embeddings table.
func (e *Engine) EmbedBackfill(opts EmbedBackfillOptions) (EmbedBackfillResult, error) {
	if e.embedder == nil {
		return EmbedBackfillResult{}, ErrServiceUnavailable
	}

	rows, err := e.db.RowsNeedingEmbedding(opts.Kind, opts.Limit, opts.Force)
	if err != nil {
		return EmbedBackfillResult{}, err
	}

	var result EmbedBackfillResult
	for _, r := range rows {
		if e.autoEmbed(opts.Kind, r.ID, r.Text) {
			result.Embedded++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// autoEmbed embeds text and stores it against (kind, id), swallowing
// embedding failures since backfill and loa_write both treat embedding as
// best-effort enrichment, not a hard requirement.
func (e *Engine) autoEmbed(kind string, id int64, text string) bool {
	if e.embedder == nil || text == "" {
		return false
	}
	vec, err := e.embedder.GetDocumentEmbedding(text)
	if err != nil {
		return false
	}
	_, err = e.db.UpsertEmbedding(store.Embedding{
		SourceKind: kind,
		SourceID:   id,
		Model:      e.embedder.Model(),
		Dimensions: e.embedder.Dimensions(),
		Vector:     vec,
		CreatedAt:  time.Now().Unix(),
	})
	return err == nil
}

// LoAQuote returns just the extract text of a LoA entry.
func (e *Engine) LoAQuote(id int64) (string, error) {
	entry, err := e.db.GetLoA(id)
	if err != nil {
		return "", err
	}
	return entry.Extract, nil
}

// LoAShow returns a full LoA entry.
func (e *Engine) LoAShow(id int64) (*store.LoAEntry, error) {
	return e.db.GetLoA(id)
}

// LoAList lists the most recent LoA entries, optionally filtered by
// project.
func (e *Engine) LoAList(project string, limit int) ([]store.LoAEntry, error) {
	return e.db.ListLoA(project, limit)
}

func nullableID(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
