package main

import "testing"

func TestRunInit_CreatesThenReports(t *testing.T) {
	t.Setenv("BASE_DIR", t.TempDir())

	if err := runInit(true); err != nil {
		t.Fatalf("runInit (create): %v", err)
	}
	if err := runInit(true); err != nil {
		t.Fatalf("runInit (already initialized): %v", err)
	}
}
