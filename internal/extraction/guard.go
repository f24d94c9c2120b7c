package extraction

import (
	"context"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// promptGuard screens normalized transcript text before it reaches the LLM
// extraction prompt. Initialized once at import time with all
// pattern-matching and statistical detectors enabled, no LLM judge, so
// screening stays sub-millisecond.
var promptGuard = detector.New(
	detector.WithThreshold(0.6),
	detector.WithAllDetectors(),
	detector.WithMaxInputLength(1000),
)

// DetectInjection runs the multi-detector prompt-injection screen against a
// text snippet. Returns true if an injection attempt is detected.
func DetectInjection(text string) bool {
	if len(text) == 0 {
		return false
	}
	result := promptGuard.Detect(context.Background(), text)
	return !result.Safe
}
