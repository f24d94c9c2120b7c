package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/extraction"
	"github.com/sgx-labs/loa/internal/ingest"
)

// debounceDelay is how long Watch waits after the last change to a file
// before extracting it, so a burst of writes from an active session
// collapses into a single extraction.
const debounceDelay = 2 * time.Second

// Watch monitors root for transcript file changes and runs the extraction
// pipeline against each one once its writes go quiet. It blocks until the
// watcher's event channel closes or an unrecoverable error occurs.
func Watch(root string, pipeline *extraction.Pipeline) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dirs := walkDirs(root)
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			fmt.Fprintf(os.Stderr, "  [WARN] could not watch %s: %v\n", d, err)
		}
	}
	fmt.Fprintf(os.Stderr, "Watching %d directories under %s\n", len(dirs), root)

	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range paths {
			extractFile(pipeline, p)
		}
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !skipDirs[filepath.Base(event.Name)] {
						w.Add(event.Name)
					}
					continue
				}
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				mu.Lock()
				pending[event.Name] = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDelay, flush)
				mu.Unlock()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "  [WARN] watch error: %v\n", watchErr)
		}
	}
}

func extractFile(pipeline *extraction.Pipeline, path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() < config.MinScanFileBytes {
		return
	}

	tr, err := ingest.Parse(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  [ERROR] parsing %s: %v\n", path, err)
		return
	}

	if _, err := pipeline.Run(tr.SessionID, tr.Project, tr.Messages, info.Size()); err != nil {
		fmt.Fprintf(os.Stderr, "  [ERROR] extracting %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(os.Stderr, "  Extracted: %s\n", path)
}

func walkDirs(root string) []string {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}
