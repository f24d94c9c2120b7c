package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sgx-labs/loa/internal/extraction"
)

func writeTranscriptLine(t *testing.T, path, sessionID string, sidechain bool, padding int) {
	t.Helper()
	line := `{"session_id":"` + sessionID + `","role":"user","content":"hello"`
	if sidechain {
		line = `{"isSidechain":true,"session_id":"` + sessionID + `","role":"user","content":"hello"`
	}
	line += `}`
	body := line + "\n" + strings.Repeat("x", padding) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestScanOrdersMediumBeforeLargeLargestFirstWithinTier(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())
	root := t.TempDir()

	writeTranscriptLine(t, filepath.Join(root, "small-medium.jsonl"), "s1", false, 3_000)
	writeTranscriptLine(t, filepath.Join(root, "big-medium.jsonl"), "s2", false, 400_000)
	writeTranscriptLine(t, filepath.Join(root, "large.jsonl"), "s3", false, 600_000)

	candidates, err := Scan(root, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Scan() = %d candidates, want 3", len(candidates))
	}
	if candidates[0].SessionID != "s2" {
		t.Errorf("candidates[0] = %q, want s2 (largest medium-tier file first)", candidates[0].SessionID)
	}
	if candidates[1].SessionID != "s1" {
		t.Errorf("candidates[1] = %q, want s1 (smaller medium-tier file second)", candidates[1].SessionID)
	}
	if candidates[2].SessionID != "s3" {
		t.Errorf("candidates[2] = %q, want s3 (large-tier file last)", candidates[2].SessionID)
	}
}

func TestScanDropsSideAgentFiles(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())
	root := t.TempDir()

	writeTranscriptLine(t, filepath.Join(root, "primary.jsonl"), "s1", false, 5_000)
	writeTranscriptLine(t, filepath.Join(root, "subagent.jsonl"), "s2", true, 5_000)

	candidates, err := Scan(root, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].SessionID != "s1" {
		t.Fatalf("Scan() = %+v, want only the non-sidechain file", candidates)
	}
}

func TestScanSkipsAlreadyExtractedSessionWithoutEnoughGrowth(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())
	root := t.TempDir()

	path := filepath.Join(root, "session.jsonl")
	writeTranscriptLine(t, path, "s1", false, 5_000)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	tracker := extraction.NewTracker()
	records, err := tracker.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tracker.RecordSuccess(records, "s1", info.Size(), time.Now())
	if err := tracker.Save(records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	candidates, err := Scan(root, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Scan() = %d candidates, want 0 (already extracted, no growth)", len(candidates))
	}
}

func TestScanIncludesExtractedSessionAfterGrowthOver50Percent(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())
	root := t.TempDir()

	path := filepath.Join(root, "session.jsonl")
	writeTranscriptLine(t, path, "s1", false, 5_000)

	tracker := extraction.NewTracker()
	records, err := tracker.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Record success against a much smaller recorded size, so the file
	// written above counts as having grown well past the 50% threshold.
	tracker.RecordSuccess(records, "s1", 100, time.Now())
	if err := tracker.Save(records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	candidates, err := Scan(root, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].SessionID != "s1" {
		t.Fatalf("Scan() = %+v, want the grown session re-included", candidates)
	}
}

func TestScanDropsFilesBelowMinSize(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "tiny.jsonl"), []byte(`{"role":"user","content":"hi"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	candidates, err := Scan(root, 10)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Scan() = %d candidates, want 0 (below min size floor)", len(candidates))
	}
}
