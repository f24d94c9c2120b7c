package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTranscript(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "abc123.jsonl")
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFlattensStringContent(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"role":"user","content":"how do I set up the database?"}`,
		`{"role":"assistant","content":"use sqlite with WAL mode enabled"}`,
	})

	tr, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tr.Messages) != 2 {
		t.Fatalf("Parse() = %d messages, want 2", len(tr.Messages))
	}
	if tr.Messages[1].Content != "use sqlite with WAL mode enabled" {
		t.Errorf("Messages[1].Content = %q", tr.Messages[1].Content)
	}
}

func TestParseFlattensContentBlocksSkipsToolUse(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"role":"assistant","content":[{"type":"text","text":"running the migration now"},{"type":"tool_use","id":"t1","name":"bash"},{"type":"thinking","text":"internal reasoning"}]}`,
	})

	tr, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tr.Messages) != 1 {
		t.Fatalf("Parse() = %d messages, want 1", len(tr.Messages))
	}
	if tr.Messages[0].Content != "running the migration now" {
		t.Errorf("Messages[0].Content = %q, want only the text block", tr.Messages[0].Content)
	}
}

func TestParseSkipsToolResultPayload(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"role":"user","content":"[{\"type\":\"tool_result\",\"output\":\"ok\"}]"}`,
		`{"role":"assistant","content":"acknowledged and proceeding with the next step"}`,
	})

	tr, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tr.Messages) != 1 {
		t.Fatalf("Parse() = %d messages, want 1 (tool-result line dropped)", len(tr.Messages))
	}
}

func TestParseUsesEmbeddedSessionID(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"role":"user","session_id":"sess-42","content":"kick off the session please"}`,
	})

	tr, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tr.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", tr.SessionID, "sess-42")
	}
}

func TestParseFallsBackToFilenameStem(t *testing.T) {
	path := writeTranscript(t, []string{
		`{"role":"user","content":"no session id embedded in this line"}`,
	})

	tr, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tr.SessionID != "abc123" {
		t.Errorf("SessionID = %q, want %q (filename stem)", tr.SessionID, "abc123")
	}
}
