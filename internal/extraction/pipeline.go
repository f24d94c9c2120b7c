package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/sgx-labs/loa/internal/llm"
	"github.com/sgx-labs/loa/internal/store"
)

// promptTemplate is the instruction given to the LLM extractor. The
// required headings must appear verbatim so QualityGate can find them.
const promptTemplate = `You are summarizing a coding-assistant session transcript. Produce markdown with exactly these headings, in order:

## ONE SENTENCE SUMMARY
## MAIN IDEAS
## INSIGHTS
## DECISIONS MADE
## THINGS TO REJECT / AVOID
## ERRORS FIXED
## ACTIONABLE ITEMS
## SESSION CONTEXT

Leave a section's body empty rather than omitting the heading if nothing applies.

Transcript:
%s`

// metaPromptTemplate asks the extractor to synthesize several chunk
// extractions into one final summary, used when a transcript was chunked.
const metaPromptTemplate = `You are merging several partial session summaries into one, using exactly these headings, in order:

## ONE SENTENCE SUMMARY
## MAIN IDEAS
## INSIGHTS
## DECISIONS MADE
## THINGS TO REJECT / AVOID
## ERRORS FIXED
## ACTIONABLE ITEMS
## SESSION CONTEXT

Partial summaries:
%s`

// Pipeline runs the extraction pass: normalize, optionally screen for
// injected content, chunk if large, call the LLM (chunk-then-meta-extract
// when chunked), gate on required headings, and persist.
type Pipeline struct {
	db      *store.DB
	llm     llm.Client
	model   string
	tracker *Tracker
}

// NewPipeline constructs an extraction pipeline against the given store and
// LLM client, picking a model via the client's own PickBestModel.
func NewPipeline(db *store.DB, client llm.Client) (*Pipeline, error) {
	model, err := client.PickBestModel()
	if err != nil {
		return nil, fmt.Errorf("pick extraction model: %w", err)
	}
	return &Pipeline{db: db, llm: client, model: model, tracker: NewTracker()}, nil
}

// Run extracts and persists one session's transcript, returning the final
// outcome. sizeBytes is the transcript file's current size, used to decide
// whether an already-extracted session has grown enough to warrant
// re-extraction; pass 0 if the size is unknown. When the tracker says the
// session should not be attempted now, Run returns a nil outcome and a nil
// error without calling the extractor. Extraction failures never
// propagate as a fatal error to the caller's enclosing session — Run
// reports the failure via the returned error but the caller is expected to
// log and move on, relying on the tracker's retry window rather than
// failing the session.
func (p *Pipeline) Run(sessionID, project string, messages []Message, sizeBytes int64) (*Outcome, error) {
	now := time.Now()

	records, err := p.tracker.Load()
	if err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}
	if !p.tracker.ShouldAttempt(records, sessionID, sizeBytes, now) {
		return nil, nil
	}

	normalized := Normalize(messages)
	if DetectInjection(normalized) {
		// Screen, don't block: the whole normalized transcript is replaced
		// by a placeholder and the extraction still runs on that.
		normalized = "[content redacted: injection pattern detected]"
	}

	output, err := p.extract(normalized)
	if err != nil {
		p.tracker.RecordFailure(records, sessionID, err, now)
		p.tracker.Save(records)
		return nil, err
	}

	if err := QualityGate(output); err != nil {
		p.tracker.RecordFailure(records, sessionID, err, now)
		p.tracker.Save(records)
		return nil, err
	}

	outcome := &Outcome{
		SessionID:  sessionID,
		Project:    project,
		RawOutput:  output,
		Decisions:  ExtractCandidateDecisionsFromMessages(messages),
		Rejections: splitBulletLines(Section(output, "THINGS TO REJECT / AVOID")),
	}

	if err := Persist(p.db, *outcome, now); err != nil {
		p.tracker.RecordFailure(records, sessionID, err, now)
		p.tracker.Save(records)
		return nil, err
	}

	p.tracker.RecordSuccess(records, sessionID, sizeBytes, now)
	if err := p.tracker.Save(records); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (p *Pipeline) extract(normalized string) (string, error) {
	chunks := Chunk(normalized)
	if len(chunks) == 1 {
		return p.llm.Generate(p.model, fmt.Sprintf(promptTemplate, chunks[0]))
	}

	var partials []string
	for i, c := range chunks {
		out, err := p.llm.Generate(p.model, fmt.Sprintf(promptTemplate, c))
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, out)
	}
	return p.llm.Generate(p.model, fmt.Sprintf(metaPromptTemplate, strings.Join(partials, "\n\n---\n\n")))
}

func splitBulletLines(section string) []string {
	if section == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
