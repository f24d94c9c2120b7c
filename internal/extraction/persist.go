package extraction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/store"
)

// Outcome is one completed extraction pass's structured output, parsed from
// the LLM's markdown response.
type Outcome struct {
	SessionID  string
	Project    string
	RawOutput  string
	Decisions  []CandidateDecision
	Rejections []string
}

// sessionIndexEntry is one row of $BASE/MEMORY/SESSION_INDEX.json.
type sessionIndexEntry struct {
	SessionID string   `json:"sessionId"`
	Project   string   `json:"project"`
	Date      string   `json:"date"`
	Timestamp int64    `json:"timestamp"`
	Topics    []string `json:"topics"`
	Summary   string   `json:"summary"`
	File      string   `json:"file"`
}

// errorPatternEntry is one row of the error-patterns file's `patterns` array.
type errorPatternEntry struct {
	Error string `json:"error"`
	Cause string `json:"cause,omitempty"`
	Fix   string `json:"fix,omitempty"`
	File  string `json:"file,omitempty"`
	Date  string `json:"date"`
}

// errorPatternFile is the full shape of $BASE/MEMORY/ERROR_PATTERNS.json.
type errorPatternFile struct {
	Patterns []errorPatternEntry `json:"patterns"`
	Meta     errorPatternMeta    `json:"meta"`
}

type errorPatternMeta struct {
	Purpose string `json:"purpose"`
	Updated string `json:"updated"`
}

// maxTopicsPerHeading caps how many bullets under any one heading
// contribute topics, and maxTopics caps the total across headings.
const maxTopicsPerHeading = 3
const maxTopics = 5

// Persist runs the seven persistence steps for a completed extraction:
// archive append, hot-recall rotation (which also records a breadcrumb),
// session-index update, decisions/rejections log append, error-patterns
// update, decision rows in the store, and the handoff note.
func Persist(db *store.DB, out Outcome, now time.Time) error {
	if err := os.MkdirAll(config.MemoryDir(), 0o700); err != nil {
		return fmt.Errorf("memory dir: %w", err)
	}

	summary := Section(out.RawOutput, "ONE SENTENCE SUMMARY")
	errorsFixed := Section(out.RawOutput, "ERRORS FIXED")

	if err := appendArchive(out, now); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := rotateHotRecall(db, out, summary, now); err != nil {
		return fmt.Errorf("hot recall: %w", err)
	}
	if err := updateSessionIndex(out, summary, now); err != nil {
		return fmt.Errorf("session index: %w", err)
	}
	if err := appendDecisionRejectionLogs(out, now); err != nil {
		return fmt.Errorf("decision/rejection logs: %w", err)
	}
	if err := updateErrorPatterns(out, errorsFixed, now); err != nil {
		return fmt.Errorf("error patterns: %w", err)
	}
	if err := persistStructuredRecords(db, out, now); err != nil {
		return fmt.Errorf("structured records: %w", err)
	}
	if err := writeHandoff(out, now); err != nil {
		return fmt.Errorf("handoff note: %w", err)
	}
	return nil
}

// handoffRelPath is the path (relative to $BASE) of a session's handoff
// note, used both to write it and to record it as the `file` field of the
// session-index and error-pattern entries it's associated with.
func handoffRelPath(sessionID string) string {
	return fmt.Sprintf("MEMORY/HANDOFF/%s.md", sanitizeSessionID(sessionID))
}

// writeHandoff drops a short human-readable recap of the session under
// MEMORY/HANDOFF/, one file per session, overwritten on every extraction
// pass so it always reflects the latest summary.
func writeHandoff(out Outcome, now time.Time) error {
	relPath := handoffRelPath(out.SessionID)
	path, ok := config.SafeBaseSubpath(relPath)
	if !ok {
		return fmt.Errorf("cannot resolve handoff path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", out.SessionID)
	fmt.Fprintf(&b, "_%s_\n\n", now.Format("2006-01-02 15:04"))
	if summary := Section(out.RawOutput, "ONE SENTENCE SUMMARY"); summary != "" {
		fmt.Fprintf(&b, "%s\n\n", summary)
	}
	for _, heading := range []string{"MAIN IDEAS", "DECISIONS MADE", "ACTIONABLE ITEMS"} {
		if body := Section(out.RawOutput, heading); body != "" {
			fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, body)
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func sanitizeSessionID(id string) string {
	return strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(id)
}

func appendArchive(out Outcome, now time.Time) error {
	path, ok := config.SafeBaseSubpath("MEMORY/DISTILLED.md")
	if !ok {
		return fmt.Errorf("cannot resolve archive path")
	}
	entry := fmt.Sprintf("\n## %s — %s\n\n%s\n", now.Format("2006-01-02 15:04"), out.SessionID, out.RawOutput)
	return appendFile(path, entry)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func rotateHotRecall(db *store.DB, out Outcome, summary string, now time.Time) error {
	if summary == "" {
		return nil
	}
	if _, err := db.AddBreadcrumb(store.Breadcrumb{
		CreatedAt: now.Unix(),
		SessionID: out.SessionID,
		Content:   summary,
		Project:   out.Project,
		Category:  "session-summary",
	}); err != nil {
		return err
	}

	path, ok := config.SafeBaseSubpath("MEMORY/HOT_RECALL.md")
	if !ok {
		return fmt.Errorf("cannot resolve hot recall path")
	}
	entries, err := db.HotRecall(out.Project, now.Unix(), config.HotRecallCap)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("# Hot Recall\n\n")
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("- %s\n", e.Content))
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func updateSessionIndex(out Outcome, summary string, now time.Time) error {
	path, ok := config.SafeBaseSubpath("MEMORY/SESSION_INDEX.json")
	if !ok {
		return fmt.Errorf("cannot resolve session index path")
	}

	var entries []sessionIndexEntry
	if data, err := os.ReadFile(path); err == nil {
		json.Unmarshal(data, &entries)
	}

	entries = append(entries, sessionIndexEntry{
		SessionID: out.SessionID,
		Project:   out.Project,
		Date:      now.Format("2006-01-02"),
		Timestamp: now.Unix(),
		Topics:    deriveTopics(out.RawOutput),
		Summary:   summary,
		File:      handoffRelPath(out.SessionID),
	})

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp > entries[j].Timestamp })

	if len(entries) > config.SessionIndexCap {
		entries = entries[:config.SessionIndexCap]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// deriveTopics pulls up to maxTopicsPerHeading bullets from each of
// DECISIONS MADE, MAIN IDEAS, and INSIGHTS (in that order), capped overall
// at maxTopics, to stand in as a session's topic tags.
func deriveTopics(output string) []string {
	var topics []string
	for _, heading := range []string{"DECISIONS MADE", "MAIN IDEAS", "INSIGHTS"} {
		bullets := splitBulletLines(Section(output, heading))
		for i, b := range bullets {
			if i >= maxTopicsPerHeading {
				break
			}
			topics = append(topics, b)
			if len(topics) >= maxTopics {
				return topics
			}
		}
	}
	return topics
}

func appendDecisionRejectionLogs(out Outcome, now time.Time) error {
	date := now.Format("2006-01-02")

	if len(out.Decisions) > 0 {
		path, ok := config.SafeBaseSubpath("MEMORY/decisions.log")
		if !ok {
			return fmt.Errorf("cannot resolve decisions log path")
		}
		seen, err := existingLogTexts(path)
		if err != nil {
			return err
		}
		var b strings.Builder
		for _, d := range out.Decisions {
			key := normalizeLogText(d.Text)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			b.WriteString(FormatLogLine(date, out.SessionID, d))
		}
		if b.Len() > 0 {
			if err := appendFile(path, b.String()); err != nil {
				return err
			}
		}
	}

	if len(out.Rejections) > 0 {
		path, ok := config.SafeBaseSubpath("MEMORY/rejections.log")
		if !ok {
			return fmt.Errorf("cannot resolve rejections log path")
		}
		seen, err := existingLogTexts(path)
		if err != nil {
			return err
		}
		var b strings.Builder
		for _, r := range out.Rejections {
			key := normalizeLogText(r)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			b.WriteString(fmt.Sprintf("%s|%s|%s\n", date, out.SessionID, r))
		}
		if b.Len() > 0 {
			if err := appendFile(path, b.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

// existingLogTexts reads a pipe-delimited log file (date|sessionLabel|text)
// and returns the set of normalized text values already present, so a
// caller can skip appending a duplicate.
func existingLogTexts(path string) (map[string]bool, error) {
	seen := make(map[string]bool)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return seen, nil
	}
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		seen[normalizeLogText(parts[2])] = true
	}
	return seen, nil
}

// normalizeLogText lowercases, strips surrounding quotes, and collapses
// whitespace, so near-duplicate decisions/rejections/error lines compare
// equal regardless of incidental formatting differences between extraction
// passes.
func normalizeLogText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'`)
	return strings.Join(strings.Fields(s), " ")
}

func updateErrorPatterns(out Outcome, errorsFixed string, now time.Time) error {
	if errorsFixed == "" {
		return nil
	}
	path, ok := config.SafeBaseSubpath("MEMORY/ERROR_PATTERNS.json")
	if !ok {
		return fmt.Errorf("cannot resolve error patterns path")
	}

	var file errorPatternFile
	if data, err := os.ReadFile(path); err == nil {
		json.Unmarshal(data, &file)
	}
	if file.Meta.Purpose == "" {
		file.Meta.Purpose = "recurring error/fix pairs surfaced during extraction"
	}

	byKey := make(map[string]int, len(file.Patterns))
	for i, p := range file.Patterns {
		byKey[normalizeLogText(p.Error)] = i
	}

	date := now.Format("2006-01-02")
	for _, line := range strings.Split(errorsFixed, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			continue
		}
		errText, cause, fix := splitErrorLine(line)
		key := normalizeLogText(errText)
		entry := errorPatternEntry{
			Error: errText,
			Cause: cause,
			Fix:   fix,
			File:  handoffRelPath(out.SessionID),
			Date:  date,
		}
		if idx, ok := byKey[key]; ok {
			file.Patterns[idx] = entry
		} else {
			byKey[key] = len(file.Patterns)
			file.Patterns = append(file.Patterns, entry)
		}
	}
	file.Meta.Updated = now.Format(time.RFC3339)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// splitErrorLine splits a freeform "ERRORS FIXED" bullet on an "->" or "→"
// separator into error/cause/fix parts when the extractor used one of those
// conventions; otherwise the whole line is taken as the error text and
// cause/fix are left blank.
func splitErrorLine(line string) (errText, cause, fix string) {
	for _, sep := range []string{"->", "→"} {
		parts := strings.Split(line, sep)
		if len(parts) < 2 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) == 2 {
			return parts[0], "", parts[1]
		}
		return parts[0], parts[1], strings.Join(parts[2:], " "+sep+" ")
	}
	return line, "", ""
}

func persistStructuredRecords(db *store.DB, out Outcome, now time.Time) error {
	for _, d := range out.Decisions {
		if _, err := db.AddDecision(store.Decision{
			CreatedAt: now.Unix(),
			SessionID: out.SessionID,
			Project:   out.Project,
			Decision:  d.Text,
			Reasoning: d.Context,
			Status:    "active",
		}); err != nil {
			return err
		}
	}
	return nil
}
