package extraction

import (
	"strings"
	"testing"
	"time"
)

func TestQualityGatePassesWithMandatoryHeadings(t *testing.T) {
	output := "## ONE SENTENCE SUMMARY\nDid a thing.\n\n## MAIN IDEAS\n- idea one\n"
	if err := QualityGate(output); err != nil {
		t.Errorf("QualityGate() error = %v, want nil", err)
	}
}

func TestQualityGateFailsMissingHeading(t *testing.T) {
	output := "## MAIN IDEAS\n- idea one\n"
	if err := QualityGate(output); err != ErrQualityGateFailed {
		t.Errorf("QualityGate() error = %v, want ErrQualityGateFailed", err)
	}
}

func TestSectionExtractsBodyUpToNextHeading(t *testing.T) {
	output := "## ONE SENTENCE SUMMARY\nSummary text here.\n\n## MAIN IDEAS\n- idea\n"
	got := Section(output, "ONE SENTENCE SUMMARY")
	if got != "Summary text here." {
		t.Errorf("Section() = %q, want %q", got, "Summary text here.")
	}
}

func TestChunkBelowThresholdReturnsOneChunk(t *testing.T) {
	chunks := Chunk("short transcript")
	if len(chunks) != 1 {
		t.Errorf("Chunk() = %d chunks, want 1", len(chunks))
	}
}

func TestChunkExactlyThreeChunks(t *testing.T) {
	// 200,000 chars crosses the 120k threshold and splits into two 80k
	// chunks and a 40k remainder per the chunk-size rule.
	text := strings.Repeat("a", 200_000)
	chunks := Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("Chunk() = %d chunks, want 3", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != len(text) {
		t.Errorf("Chunk() total length = %d, want %d (no data lost)", total, len(text))
	}
}

func TestTrackerShouldAttemptFreshSession(t *testing.T) {
	tr := &Tracker{}
	records := map[string]*ExtractionRecord{}
	if !tr.ShouldAttempt(records, "s1", 1000, time.Now()) {
		t.Error("ShouldAttempt() for unseen session = false, want true")
	}
}

func TestTrackerRetryWindow(t *testing.T) {
	tr := &Tracker{}
	records := map[string]*ExtractionRecord{}
	now := time.Now()
	tr.RecordFailure(records, "s1", nil, now)

	if tr.ShouldAttempt(records, "s1", 1000, now.Add(time.Hour)) {
		t.Error("ShouldAttempt() within retry window = true, want false")
	}
	if !tr.ShouldAttempt(records, "s1", 1000, now.Add(25*time.Hour)) {
		t.Error("ShouldAttempt() after retry window = false, want true")
	}
}

func TestTrackerSuccessStopsRetries(t *testing.T) {
	tr := &Tracker{}
	records := map[string]*ExtractionRecord{}
	now := time.Now()
	tr.RecordSuccess(records, "s1", 1000, now)

	if tr.ShouldAttempt(records, "s1", 1100, now.Add(48*time.Hour)) {
		t.Error("ShouldAttempt() for already-extracted session with <=50% growth = true, want false")
	}
}

func TestTrackerSuccessReextractsOnGrowthOver50Percent(t *testing.T) {
	tr := &Tracker{}
	records := map[string]*ExtractionRecord{}
	now := time.Now()
	tr.RecordSuccess(records, "s1", 1000, now)

	if !tr.ShouldAttempt(records, "s1", 1600, now.Add(time.Hour)) {
		t.Error("ShouldAttempt() for 60% size growth = false, want true (re-extract)")
	}
}

func TestTrackerSuccessUnknownSizeNeverReextracts(t *testing.T) {
	tr := &Tracker{}
	records := map[string]*ExtractionRecord{}
	now := time.Now()
	tr.RecordSuccess(records, "s1", 1000, now)

	if tr.ShouldAttempt(records, "s1", 0, now.Add(time.Hour)) {
		t.Error("ShouldAttempt() with unknown current size = true, want false")
	}
}

func TestExtractCandidateDecisionsOnlyFromAssistant(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "Decision: use Postgres because it's faster for our workload"},
		{Role: "assistant", Content: "Decision: use SQLite because embedded storage simplifies deployment"},
	}
	got := ExtractCandidateDecisionsFromMessages(messages)
	if len(got) != 1 {
		t.Fatalf("ExtractCandidateDecisionsFromMessages() = %d, want 1 (assistant only)", len(got))
	}
	if !strings.Contains(got[0].Text, "SQLite") {
		t.Errorf("ExtractCandidateDecisionsFromMessages()[0].Text = %q, want to mention SQLite", got[0].Text)
	}
}

func TestDetectInjectionEmptyTextSafe(t *testing.T) {
	if DetectInjection("") {
		t.Error("DetectInjection(\"\") = true, want false")
	}
}
