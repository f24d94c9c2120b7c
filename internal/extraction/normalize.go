package extraction

import (
	"strings"

	"github.com/sgx-labs/loa/internal/config"
)

// Normalize flattens transcript messages into one role-prefixed text block
// suitable for an LLM extraction prompt, applying the truncation and
// drop rules: each message is truncated to
// config.MaxTranscriptMessageChars, and messages shorter than
// config.MinMessageChars, or that look like a raw tool-result payload,
// are dropped as noise.
func Normalize(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if len(content) < config.MinMessageChars {
			continue
		}
		if IsToolResultPayload(content) {
			continue
		}
		if len(content) > config.MaxTranscriptMessageChars {
			content = content[:config.MaxTranscriptMessageChars]
		}
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// IsToolResultPayload reports whether content looks like a raw tool-result
// payload rather than conversational text (a JSON content-block array or a
// bare tool_use_id object), rather than genuine transcript content.
func IsToolResultPayload(content string) bool {
	return strings.HasPrefix(content, "[{") || strings.HasPrefix(content, `{"tool_use_id"`)
}
