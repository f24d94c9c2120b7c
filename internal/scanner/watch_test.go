package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWalkDirsSkipsSkipDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}

	dirs := walkDirs(root)

	var sawSub, sawSkipped bool
	for _, d := range dirs {
		if filepath.Base(d) == "sub" {
			sawSub = true
		}
		if filepath.Base(d) == "pkg" {
			sawSkipped = true
		}
	}
	if !sawSub {
		t.Error("walkDirs() did not include ordinary subdirectory")
	}
	if sawSkipped {
		t.Error("walkDirs() descended into node_modules, want skipped")
	}
}
