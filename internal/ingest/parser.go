// Package ingest parses newline-delimited transcript files directly into
// session and message records, for bulk import without going through the
// extraction pipeline's LLM summarization.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sgx-labs/loa/internal/extraction"
	"github.com/sgx-labs/loa/internal/project"
)

// Transcript is one parsed transcript file, ready for direct import into
// the store.
type Transcript struct {
	SessionID string
	Project   string
	Messages  []extraction.Message
}

// rawLine is one line of the newline-delimited JSON stream. Content may be
// a plain string or a list of content blocks; RawMessage defers the choice
// until flattenContent inspects it.
type rawLine struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	SessionID string          `json:"session_id"`
}

// contentBlock is one element of a list-form content field. Only "text"
// blocks contribute to the flattened message; tool_use, tool_result, and
// thinking blocks are ignored.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parse reads a transcript file end-to-end and returns its session id,
// detected project, and flattened user/assistant messages. If no line
// carries an embedded session id, the filename stem is used instead.
func Parse(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	t := &Transcript{
		Project: project.Detect(filepath.Dir(path)),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			// Non-JSON or malformed line: ignore rather than fail the
			// whole import.
			continue
		}

		if t.SessionID == "" && raw.SessionID != "" {
			t.SessionID = raw.SessionID
		}

		if raw.Role != "user" && raw.Role != "assistant" {
			continue
		}

		content := flattenContent(raw.Content)
		if extraction.IsToolResultPayload(content) {
			continue
		}
		if content == "" {
			continue
		}

		t.Messages = append(t.Messages, extraction.Message{Role: raw.Role, Content: content})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	if t.SessionID == "" {
		t.SessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return t, nil
}

// flattenContent normalizes a message's content field, whether it arrived
// as a bare string or as a list of typed content blocks, into plain text.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var parts []string
	for _, b := range blocks {
		if b.Type != "text" {
			continue
		}
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
