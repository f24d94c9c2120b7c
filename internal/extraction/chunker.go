package extraction

import "github.com/sgx-labs/loa/internal/config"

// Chunk splits normalized transcript text into chunks for the LLM extractor
// when it exceeds config.ChunkThresholdChars, each chunk no larger than
// config.ChunkSizeChars. Text under the threshold is returned as a single
// chunk. Splits prefer a blank-line boundary near the target size so a
// message is never split mid-turn when one exists nearby.
func Chunk(text string) []string {
	if len(text) <= config.ChunkThresholdChars {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > config.ChunkSizeChars {
		cut := config.ChunkSizeChars
		if boundary := lastBlankLineBefore(remaining, cut); boundary > cut/2 {
			cut = boundary
		}
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	if len(remaining) > 0 {
		chunks = append(chunks, remaining)
	}
	return chunks
}

func lastBlankLineBefore(s string, limit int) int {
	if limit > len(s) {
		limit = len(s)
	}
	for i := limit - 2; i > 0; i-- {
		if s[i] == '\n' && s[i-1] == '\n' {
			return i + 1
		}
	}
	return limit
}
