// Package search implements lexical, semantic, and RRF-fused hybrid search
// over the memory store's entity kinds.
package search

import (
	"fmt"

	"github.com/sgx-labs/loa/internal/embedding"
	"github.com/sgx-labs/loa/internal/store"
)

// Result is one projected, ranked search hit.
type Result struct {
	Kind    string
	ID      int64
	Score   float64
	Snippet string
	Source  Source
}

// candidate is an unprojected match carrying enough identity and ranking
// information to build a Result.
type candidate struct {
	Kind   string
	ID     int64
	Score  float64
	Source Source
}

// Engine runs search operations against a store, optionally backed by an
// embedding provider for the semantic leg.
type Engine struct {
	db       *store.DB
	embedder embedding.Provider // nil disables the semantic leg
}

// New constructs a search engine. embedder may be nil, in which case
// Semantic and Hybrid degrade to lexical-only.
func New(db *store.DB, embedder embedding.Provider) *Engine {
	return &Engine{db: db, embedder: embedder}
}

// Lexical runs a full-text search across the given kinds (or all kinds if
// empty) and returns projected, ranked results, each tagged source=fts.
func (e *Engine) Lexical(query string, kinds []string, limit int) ([]Result, error) {
	terms := ExtractSearchTerms(query)
	matchExpr := BuildMatchExpression(terms)
	if matchExpr == "" {
		return nil, nil
	}
	matches, err := e.db.LexicalSearch(matchExpr, kinds, limit)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, len(matches))
	for i, m := range matches {
		cands[i] = candidate{Kind: m.Kind, ID: m.ID, Score: m.Rank, Source: SourceFTS}
	}
	return e.project(cands, limit)
}

// SemanticResult indicates whether the semantic leg actually ran, since a
// caller (e.g. Hybrid) needs to know if it degraded to lexical-only.
type SemanticResult struct {
	Results  []Result
	Degraded bool
}

// Semantic embeds the query and runs a k-NN vector search over the given
// kinds (or all kinds if empty). If no embedder is configured or it's
// unhealthy, Degraded is true and Results is nil.
func (e *Engine) Semantic(query string, kinds []string, limit int) (SemanticResult, error) {
	if e.embedder == nil {
		return SemanticResult{Degraded: true}, nil
	}
	if err := e.embedder.Health(); err != nil {
		return SemanticResult{Degraded: true}, nil
	}

	vec, err := e.embedder.GetQueryEmbedding(query)
	if err != nil {
		return SemanticResult{Degraded: true}, nil
	}

	matches, err := e.db.VectorSearch(vec, kinds, limit)
	if err != nil {
		return SemanticResult{Degraded: true}, nil
	}

	cands := e.vectorCandidates(vec, matches)
	results, err := e.project(cands, limit)
	if err != nil {
		return SemanticResult{}, err
	}
	return SemanticResult{Results: results}, nil
}

// vectorCandidates turns vec0 matches into search candidates, scoring each
// by its exact cosine similarity rather than vec0's internal distance
// value (falling back to 1-distance if the stored vector can't be
// re-read, e.g. a row deleted mid-query).
func (e *Engine) vectorCandidates(query []float32, matches []store.VectorMatch) []candidate {
	cands := make([]candidate, len(matches))
	for i, m := range matches {
		score, err := e.db.CosineScore(query, m.SourceKind, m.SourceID)
		if err != nil {
			score = 1 - m.Distance
		}
		cands[i] = candidate{Kind: m.SourceKind, ID: m.SourceID, Score: score, Source: SourceVec}
	}
	return cands
}

// HybridResult is the fused result of a hybrid search, flagging whether the
// semantic leg degraded so callers can surface that to the user.
type HybridResult struct {
	Results  []Result
	Degraded bool
}

// Hybrid runs lexical and semantic search and fuses their ranked lists with
// reciprocal rank fusion. If the semantic leg is unavailable, Hybrid
// degrades to lexical-only and sets Degraded.
func (e *Engine) Hybrid(query string, kinds []string, limit int) (HybridResult, error) {
	terms := ExtractSearchTerms(query)
	matchExpr := BuildMatchExpression(terms)

	var lexicalMatches []store.LexicalMatch
	var err error
	if matchExpr != "" {
		lexicalMatches, err = e.db.LexicalSearch(matchExpr, kinds, limit)
		if err != nil {
			return HybridResult{}, err
		}
	}
	lexicalRanked := toRanked(lexicalMatches)

	degraded := true
	var semanticRanked []RankedResult
	if e.embedder != nil {
		if err := e.embedder.Health(); err == nil {
			if vec, err := e.embedder.GetQueryEmbedding(query); err == nil {
				if matches, err := e.db.VectorSearch(vec, kinds, limit); err == nil {
					degraded = false
					shaped := make([]store.LexicalMatch, len(matches))
					for i, m := range matches {
						shaped[i] = store.LexicalMatch{Kind: m.SourceKind, ID: m.SourceID}
					}
					semanticRanked = toRanked(shaped)
				}
			}
		}
	}

	fused := ReciprocalRankFusion(lexicalRanked, semanticRanked)
	if degraded {
		// No semantic leg ran at all, so every surviving entry is lexical-only.
		for i := range fused {
			fused[i].Source = SourceFTS
		}
	}
	if len(fused) > limit && limit > 0 {
		fused = fused[:limit]
	}

	cands := make([]candidate, len(fused))
	for i, f := range fused {
		cands[i] = candidate{Kind: f.Kind, ID: f.ID, Score: f.Score, Source: f.Source}
	}
	results, err := e.project(cands, limit)
	if err != nil {
		return HybridResult{}, err
	}

	return HybridResult{Results: results, Degraded: degraded}, nil
}

func toRanked(matches []store.LexicalMatch) []RankedResult {
	out := make([]RankedResult, len(matches))
	for i, m := range matches {
		out[i] = RankedResult{Kind: m.Kind, ID: m.ID}
	}
	return out
}

// project loads each matched entity and builds its display snippet per the
// per-kind projection rules.
func (e *Engine) project(cands []candidate, limit int) ([]Result, error) {
	out := make([]Result, 0, len(cands))
	for _, c := range cands {
		snippet, err := e.snippetFor(c.Kind, c.ID)
		if err != nil {
			continue // a since-deleted or unreadable row shouldn't fail the whole query
		}
		out = append(out, Result{Kind: c.Kind, ID: c.ID, Score: c.Score, Snippet: snippet, Source: c.Source})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

const truncatedSnippetChars = 200

func (e *Engine) snippetFor(kind string, id int64) (string, error) {
	switch kind {
	case "message":
		var content string
		if err := e.db.Conn().QueryRow(`SELECT content FROM messages WHERE id = ?`, id).Scan(&content); err != nil {
			return "", err
		}
		return truncate(content, truncatedSnippetChars), nil

	case "decision":
		d, err := e.decisionByID(id)
		if err != nil {
			return "", err
		}
		return d, nil

	case "learning":
		p, err := e.learningByID(id)
		if err != nil {
			return "", err
		}
		return p, nil

	case "breadcrumb":
		var content string
		if err := e.db.Conn().QueryRow(`SELECT content FROM breadcrumbs WHERE id = ?`, id).Scan(&content); err != nil {
			return "", err
		}
		return content, nil

	case "loa":
		var title, extract string
		if err := e.db.Conn().QueryRow(`SELECT title, extract FROM loa_entries WHERE id = ?`, id).Scan(&title, &extract); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", title, truncate(extract, truncatedSnippetChars)), nil

	case "telos":
		var code, title string
		if err := e.db.Conn().QueryRow(`SELECT code, title FROM telos_entries WHERE id = ?`, id).Scan(&code, &title); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", code, title), nil

	case "document":
		d, err := e.db.DocumentByID(id)
		if err != nil {
			return "", err
		}
		return documentSnippet(d.Summary, d.Content), nil

	default:
		return "", fmt.Errorf("unrecognized search kind %q", kind)
	}
}

func (e *Engine) decisionByID(id int64) (string, error) {
	var decision string
	err := e.db.Conn().QueryRow(`SELECT decision FROM decisions WHERE id = ?`, id).Scan(&decision)
	return decision, err
}

func (e *Engine) learningByID(id int64) (string, error) {
	var problem string
	err := e.db.Conn().QueryRow(`SELECT problem FROM learnings WHERE id = ?`, id).Scan(&problem)
	return problem, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// documentSnippet returns the document's summary, falling back to its
// truncated content when the summary is empty. No match highlighting is
// added.
func documentSnippet(summary, content string) string {
	if summary != "" {
		return summary
	}
	return truncate(content, truncatedSnippetChars)
}
