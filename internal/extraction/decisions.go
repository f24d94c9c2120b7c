package extraction

import (
	"fmt"
	"regexp"
	"strings"
)

// CandidateDecision is a decision-like statement found in assistant output,
// before it becomes a store.Decision record.
type CandidateDecision struct {
	Text       string
	Confidence string // "high" or "medium"
	Context    string
}

// decisionPatterns are ordered most-specific first; the first two are
// explicit markers that bypass the rationale requirement below.
var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*\*Decision:?\*\*\s*(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?im)(?:^|\n)\s*Decision:\s*(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)(?:chose|picked|selected)\s+(.+?)\s+over\s+(.+?)\s+(?:because|since|due to)\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:I |we |I've |we've )?decided\s+(?:to|on|that)\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:I |we )?went\s+with\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)let'?s\s+(?:go with|use|adopt|stick with)\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:I |we )?(?:chose|picked)\s+(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:I'm |we're |I am |we are )?going\s+(?:to use|with)\s+(.+?)(?:\.|$)`),
}

const explicitMarkerCount = 2

var rationaleIndicators = regexp.MustCompile(
	`(?i)(?:because|since|due to|reason|rationale|trade-?off|instead of|over|` +
		`better|simpler|easier|faster|prefer|advantage|benefit)`,
)

var falsePositivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:if|when|would|could|should|might)\s+(?:we|I|you)\s+(?:decide|chose)`),
	regexp.MustCompile(`(?i)(?:haven't|hasn't|didn't)\s+(?:decided|chose)`),
	regexp.MustCompile(`(?i)(?:need to|want to)\s+decide`),
}

// ExtractCandidateDecisions scans one block of text for decision-like
// statements, requiring nearby rationale language unless the match is an
// explicit "Decision:" marker.
func ExtractCandidateDecisions(text string) []CandidateDecision {
	var out []CandidateDecision
	seen := make(map[string]bool)

	for patIdx, pattern := range decisionPatterns {
		explicit := patIdx < explicitMarkerCount

		for _, match := range pattern.FindAllStringIndex(text, -1) {
			decisionText := strings.TrimSpace(text[match[0]:match[1]])

			lookStart := match[0] - 20
			if lookStart < 0 {
				lookStart = 0
			}
			if matchesAny(falsePositivePatterns, text[lookStart:match[1]]) {
				continue
			}

			normalized := strings.ToLower(decisionText)
			if seen[normalized] {
				continue
			}
			seen[normalized] = true

			end := match[1] + 200
			if end > len(text) {
				end = len(text)
			}
			hasRationale := rationaleIndicators.MatchString(text[match[0]:end])
			if !hasRationale && !explicit {
				continue
			}

			ctxStart := match[0] - 100
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := match[1] + 100
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}

			confidence := "medium"
			if hasRationale {
				confidence = "high"
			}

			out = append(out, CandidateDecision{
				Text:       decisionText,
				Confidence: confidence,
				Context:    strings.TrimSpace(text[ctxStart:ctxEnd]),
			})
		}
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ExtractCandidateDecisionsFromMessages extracts candidate decisions from
// assistant/tool turns only — user messages are never scanned, since a
// crafted user message could otherwise inject a fake decision record into
// the log.
func ExtractCandidateDecisionsFromMessages(messages []Message) []CandidateDecision {
	var all []CandidateDecision
	for _, m := range messages {
		if m.Role == "user" || len(m.Content) < 20 {
			continue
		}
		all = append(all, ExtractCandidateDecisions(m.Content)...)
	}
	return all
}

// FormatLogLine renders a candidate decision as one pipe-delimited log line:
// YYYY-MM-DD|sessionLabel|text.
func FormatLogLine(date, sessionLabel string, d CandidateDecision) string {
	return fmt.Sprintf("%s|%s|%s\n", date, sessionLabel, d.Text)
}
