// Package scanner walks the configured transcript root, selecting files for
// extraction in size-tiered order under a rate limit.
package scanner

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/extraction"
)

// Candidate is one transcript file eligible for extraction.
type Candidate struct {
	Path      string
	SizeKB    int64
	ModTime   time.Time
	SessionID string
}

// skipDirs are directory names never descended into while scanning.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".cache": true, "vendor": true,
}

// mediumTierMaxBytes is the upper bound of the "medium" size tier; files
// larger than this fall into the "large" tier.
const mediumTierMaxBytes = 500_000

// Scan walks the transcript root for files at least config.MinScanFileBytes
// in size, excluding side-agent (sub-session) transcripts, and orders them
// with medium-sized files (2KB..500KB) first and larger files after,
// largest-first within each tier — empirically the sweet spot for
// extraction quality, avoiding both trivial and oversize outliers. Files
// already extracted (and not grown enough to warrant re-extraction) or
// still within their failure cooldown are dropped via the extraction
// tracker before the size limit is applied.
func Scan(root string, limit int) ([]Candidate, error) {
	tracker := extraction.NewTracker()
	records, err := tracker.Load()
	if err != nil {
		return nil, err
	}

	var candidates []Candidate

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() < config.MinScanFileBytes {
			return nil
		}
		if isSideAgentFile(path) {
			return nil
		}

		sessionID := peekSessionID(path)
		if !tracker.ShouldAttempt(records, sessionID, info.Size(), time.Now()) {
			return nil
		}

		candidates = append(candidates, Candidate{
			Path:      path,
			SizeKB:    info.Size() / 1024,
			ModTime:   info.ModTime(),
			SessionID: sessionID,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(candidates, func(i, j int) bool { return candidateLess(candidates[i], candidates[j]) })

	if limit <= 0 {
		limit = config.ScannerSettings().DefaultLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// candidateLess orders medium-tier candidates (<= mediumTierMaxBytes) ahead
// of large-tier ones, and within a tier orders largest-first.
func candidateLess(a, b Candidate) bool {
	aMedium := a.SizeKB*1024 <= mediumTierMaxBytes
	bMedium := b.SizeKB*1024 <= mediumTierMaxBytes
	if aMedium != bMedium {
		return aMedium
	}
	return a.SizeKB > b.SizeKB
}

// sideAgentProbeLine is the shape of a transcript's leading line, enough to
// tell whether the whole file belongs to a sub-agent (sidechain) session
// rather than the primary conversation.
type sideAgentProbeLine struct {
	IsSidechain bool   `json:"isSidechain"`
	SessionID   string `json:"session_id"`
}

// isSideAgentFile reports whether path's first transcript line is flagged
// isSidechain, meaning the whole file is a sub-agent transcript that
// shouldn't be scheduled for extraction alongside primary sessions.
func isSideAgentFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var probe sideAgentProbeLine
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			return false
		}
		return probe.IsSidechain
	}
	return false
}

// peekSessionID reads just enough of path to recover its embedded session
// id, falling back to the filename stem when none is present — the same
// fallback ingest.Parse uses, so tracker lookups agree with extraction.
func peekSessionID(path string) string {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			var probe sideAgentProbeLine
			if json.Unmarshal([]byte(line), &probe) == nil && probe.SessionID != "" {
				return probe.SessionID
			}
			break
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// RateLimiter enforces the minimum spacing between successive extraction
// attempts, so a batch scan doesn't hammer the LLM endpoint.
type RateLimiter struct {
	interval time.Duration
	last     time.Time
}

// NewRateLimiter builds a limiter using the configured rate-limit interval.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{interval: time.Duration(config.ScannerSettings().RateLimitSecs) * time.Second}
}

// Wait blocks until the interval since the last call has elapsed.
func (r *RateLimiter) Wait() {
	if r.last.IsZero() {
		r.last = time.Now()
		return
	}
	elapsed := time.Since(r.last)
	if elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.last = time.Now()
}

// ReadFile reads a candidate transcript's contents.
func ReadFile(c Candidate) ([]byte, error) {
	return os.ReadFile(c.Path)
}
