package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgx-labs/loa/internal/engine"
	"github.com/sgx-labs/loa/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	e, err := engine.New(db, nil, nil)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return e
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("result content is not text: %#v", res.Content[0])
	}
	return tc.Text
}

func TestHandleSearchMemoryRejectsEmptyQuery(t *testing.T) {
	eng = newTestEngine(t)

	res, _, err := handleSearchMemory(context.Background(), nil, searchInput{Query: "  "})
	if err != nil {
		t.Fatalf("handleSearchMemory() error = %v", err)
	}
	if !strings.Contains(textOf(t, res), "required") {
		t.Errorf("expected required-query error, got %q", textOf(t, res))
	}
}

func TestHandleAddBreadcrumbAndRecent(t *testing.T) {
	eng = newTestEngine(t)

	res, _, err := handleAddBreadcrumb(context.Background(), nil, addBreadcrumbInput{Content: "remember this", Project: "loa"})
	if err != nil {
		t.Fatalf("handleAddBreadcrumb() error = %v", err)
	}
	if !strings.Contains(textOf(t, res), "recorded") {
		t.Fatalf("expected confirmation, got %q", textOf(t, res))
	}

	recent, _, err := handleRecentMemory(context.Background(), nil, recentInput{Kind: "breadcrumb", Project: "loa", Limit: 5})
	if err != nil {
		t.Fatalf("handleRecentMemory() error = %v", err)
	}
	if !strings.Contains(textOf(t, recent), "remember this") {
		t.Errorf("expected recent listing to include the new breadcrumb, got %q", textOf(t, recent))
	}
}

func TestHandleAddBreadcrumbRejectsEmptyContent(t *testing.T) {
	eng = newTestEngine(t)

	res, _, err := handleAddBreadcrumb(context.Background(), nil, addBreadcrumbInput{Content: ""})
	if err != nil {
		t.Fatalf("handleAddBreadcrumb() error = %v", err)
	}
	if !strings.Contains(textOf(t, res), "required") {
		t.Errorf("expected required-content error, got %q", textOf(t, res))
	}
}

func TestHandleGetMemoryUnknownKind(t *testing.T) {
	eng = newTestEngine(t)

	res, _, err := handleGetMemory(context.Background(), nil, getInput{Kind: "bogus", ID: 1})
	if err != nil {
		t.Fatalf("handleGetMemory() error = %v", err)
	}
	if !strings.Contains(textOf(t, res), "Error") {
		t.Errorf("expected an error message, got %q", textOf(t, res))
	}
}

func TestClampLimit(t *testing.T) {
	if got := clampLimit(0, 10); got != 10 {
		t.Errorf("clampLimit(0, 10) = %d, want 10", got)
	}
	if got := clampLimit(500, 10); got != 100 {
		t.Errorf("clampLimit(500, 10) = %d, want 100", got)
	}
	if got := clampLimit(5, 10); got != 5 {
		t.Errorf("clampLimit(5, 10) = %d, want 5", got)
	}
}

func TestWriteRateLimit(t *testing.T) {
	writeMu.Lock()
	writeTimes = nil
	writeMu.Unlock()

	for i := 0; i < writeRateLimit; i++ {
		if !checkWriteRateLimit() {
			t.Fatalf("checkWriteRateLimit() false before hitting the limit (iteration %d)", i)
		}
	}
	if checkWriteRateLimit() {
		t.Error("checkWriteRateLimit() true after exceeding the per-minute limit")
	}
}
