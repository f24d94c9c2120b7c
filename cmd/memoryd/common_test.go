package main

import (
	"fmt"
	"testing"

	"github.com/sgx-labs/loa/internal/store"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"user error", userError("bad input", "fix it"), 1},
		{"wrapped integrity", fmt.Errorf("open: %w", store.ErrIntegrity), 2},
		{"wrapped schema too new", fmt.Errorf("open: %w", store.ErrSchemaTooNew), 2},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%s) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestUserErrorFormatsHint(t *testing.T) {
	err := userError("something broke", "try again")
	want := "something broke\n  Hint: try again"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
