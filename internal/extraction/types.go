// Package extraction turns raw transcript messages into structured memory:
// normalization, chunking, an LLM-driven extraction pass, a quality gate,
// and persistence to the archive/hot-recall/session-index surfaces.
package extraction

import "errors"

// Message is the minimal transcript shape the pipeline consumes — the same
// {role, content} pair used throughout ingest and normalization.
type Message struct {
	Role    string
	Content string
}

// Sentinel errors for pipeline-level failures.
var (
	ErrQualityGateFailed = errors.New("extraction: output missing required headings")
	ErrInputTooLarge     = errors.New("extraction: transcript exceeds chunking ceiling")
)

// RequiredHeadings are the markdown headings the extraction prompt asks
// for. Only the mandatoryHeadings subset is checked by the quality gate.
var RequiredHeadings = []string{
	"ONE SENTENCE SUMMARY",
	"MAIN IDEAS",
	"INSIGHTS",
	"DECISIONS MADE",
	"THINGS TO REJECT / AVOID",
	"ERRORS FIXED",
	"ACTIONABLE ITEMS",
	"SESSION CONTEXT",
}

// mandatoryHeadings are the subset whose absence fails the gate outright;
// the rest may legitimately be empty sections for a short session.
var mandatoryHeadings = []string{"ONE SENTENCE SUMMARY", "MAIN IDEAS"}
