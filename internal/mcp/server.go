// Package mcp implements the MCP server exposing the memory engine to AI
// coding agents (Claude Code, Cursor, etc.) over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/embedding"
	"github.com/sgx-labs/loa/internal/engine"
	"github.com/sgx-labs/loa/internal/llm"
	"github.com/sgx-labs/loa/internal/store"
)

const maxQueryLen = 10_000 // max chars accepted for a search query
const maxTextLen = 20_000  // max chars accepted for a breadcrumb/decision/learning body

var eng *engine.Engine

// Version is set by the caller (main) before calling Serve.
var Version = "dev"

const writeRateLimit = 30                // max write operations per minute
const writeRateWindow = 60 * time.Second // rate limit window

// Write rate limiter — prevents rapid write abuse via prompt injection
// surfaced through tool output an agent might act on uncritically.
var (
	writeTimes []time.Time
	writeMu    sync.Mutex
)

func checkWriteRateLimit() bool {
	writeMu.Lock()
	defer writeMu.Unlock()
	now := time.Now()
	cutoff := now.Add(-writeRateWindow)
	valid := writeTimes[:0]
	for _, t := range writeTimes {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	writeTimes = valid
	if len(writeTimes) >= writeRateLimit {
		return false
	}
	writeTimes = append(writeTimes, now)
	return true
}

// Serve starts the MCP server on stdio.
func Serve() error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	embedder := newEmbedProvider()
	llmClient, _ := llm.NewClientWithOptions(llm.Options{LocalOnly: true})
	// embedder/llmClient may be nil — the facade degrades semantic search
	// and extraction-dependent operations gracefully rather than failing.

	eng, err = engine.New(db, embedder, llmClient)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "loa",
		Version: Version,
	}, nil)

	registerTools(server)

	return server.Run(context.Background(), &mcp.StdioTransport{})
}

func newEmbedProvider() embedding.Provider {
	ec := config.EmbeddingProviderConfig()
	cfg := embedding.ProviderConfig{
		Provider:   ec.Provider,
		Model:      ec.Model,
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Dimensions: ec.Dimensions,
	}
	if (cfg.Provider == "ollama" || cfg.Provider == "") && cfg.BaseURL == "" {
		if url, err := config.OllamaURL(); err == nil {
			cfg.BaseURL = url
		}
	}
	provider, err := embedding.NewProvider(cfg)
	if err != nil {
		return nil
	}
	return provider
}

func registerTools(server *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}
	boolPtr := func(b bool) *bool { return &b }
	writeNonDestructive := &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), IdempotentHint: true}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: "Search the project's conversational memory (decisions, learnings, breadcrumbs, prior session summaries). Fuses keyword and semantic search. Use this before re-deciding something already settled, or to recall prior context.\n\nArgs:\n  query: natural language search query\n  kinds: optional comma-separated kinds to restrict to (message, decision, learning, breadcrumb, loa, telos, document)\n  limit: max results (default 10)\n\nReturns ranked results with kind, id, score, and a text snippet.",
		Annotations: readOnly,
	}, handleSearchMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_memory",
		Description: "Fetch a single memory record by kind and id, as returned by search_memory or recent_memory.\n\nArgs:\n  kind: message, decision, learning, breadcrumb, loa, telos, or document\n  id: numeric row id\n\nReturns the full record as JSON.",
		Annotations: readOnly,
	}, handleGetMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_memory",
		Description: "List the most recently recorded entries of one kind, optionally scoped to a project. Use this to orient at the start of a session.\n\nArgs:\n  kind: decision, learning, breadcrumb, or loa\n  project: optional project filter\n  limit: max results (default 10)\n\nReturns a JSON list, newest first.",
		Annotations: readOnly,
	}, handleRecentMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_breadcrumb",
		Description: "Record a short, importance-weighted note for quick recall in future sessions (e.g. a preference or a gotcha worth remembering).\n\nArgs:\n  content: the note text\n  project: optional project name\n  importance: 1-10, defaults to 5\n\nReturns the new breadcrumb id.",
		Annotations: writeNonDestructive,
	}, handleAddBreadcrumb)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_decision",
		Description: "Record an architectural or implementation decision so it isn't re-litigated next session.\n\nArgs:\n  decision: what was decided\n  reasoning: optional why\n  alternatives: optional what else was considered\n  project: optional project name\n\nReturns the new decision id.",
		Annotations: writeNonDestructive,
	}, handleAddDecision)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_learning",
		Description: "Record a problem/solution pair distilled from this session, so the same mistake isn't repeated.\n\nArgs:\n  problem: what went wrong\n  solution: optional how it was fixed\n  prevention: optional how to avoid it next time\n  project: optional project name\n\nReturns the new learning id.",
		Annotations: writeNonDestructive,
	}, handleAddLearning)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Report row counts per entity kind and the on-disk database size. Use this to check whether memory is populated before relying on search results.\n\nReturns a JSON object with RowCounts (rows per table) and DatabaseBytes.",
		Annotations: readOnly,
	}, handleGetStats)
}

type searchInput struct {
	Query string `json:"query" jsonschema:"Natural language search query"`
	Kinds string `json:"kinds,omitempty" jsonschema:"Comma-separated kinds to restrict to"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 10)"`
}

type getInput struct {
	Kind string `json:"kind" jsonschema:"message, decision, learning, breadcrumb, loa, telos, or document"`
	ID   int64  `json:"id" jsonschema:"Numeric row id"`
}

type recentInput struct {
	Kind    string `json:"kind" jsonschema:"decision, learning, breadcrumb, or loa"`
	Project string `json:"project,omitempty" jsonschema:"Optional project filter"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Max results (default 10)"`
}

type addBreadcrumbInput struct {
	Content    string `json:"content" jsonschema:"The note text"`
	Project    string `json:"project,omitempty" jsonschema:"Optional project name"`
	Importance int    `json:"importance,omitempty" jsonschema:"1-10, defaults to 5"`
}

type addDecisionInput struct {
	Decision     string `json:"decision" jsonschema:"What was decided"`
	Reasoning    string `json:"reasoning,omitempty" jsonschema:"Why"`
	Alternatives string `json:"alternatives,omitempty" jsonschema:"What else was considered"`
	Project      string `json:"project,omitempty" jsonschema:"Optional project name"`
}

type addLearningInput struct {
	Problem    string `json:"problem" jsonschema:"What went wrong"`
	Solution   string `json:"solution,omitempty" jsonschema:"How it was fixed"`
	Prevention string `json:"prevention,omitempty" jsonschema:"How to avoid it next time"`
	Project    string `json:"project,omitempty" jsonschema:"Optional project name"`
}

type emptyInput struct{}

func handleSearchMemory(ctx context.Context, req *mcp.CallToolRequest, input searchInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return textResult("Error: query is required."), nil, nil
	}
	if len(input.Query) > maxQueryLen {
		return textResult("Error: query too long (max 10,000 characters)."), nil, nil
	}
	limit := clampLimit(input.Limit, 10)

	var kinds []string
	if input.Kinds != "" {
		for _, k := range strings.Split(input.Kinds, ",") {
			k = strings.TrimSpace(k)
			if k != "" {
				kinds = append(kinds, k)
			}
		}
	}

	result, err := eng.Hybrid(input.Query, kinds, limit)
	if err != nil {
		return textResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}
	if len(result.Results) == 0 {
		return textResult("No results found."), nil, nil
	}

	data, _ := json.MarshalIndent(result.Results, "", "  ")
	if result.Degraded {
		return textResult(fmt.Sprintf("(keyword-only — semantic search unavailable)\n%s", data)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

func handleGetMemory(ctx context.Context, req *mcp.CallToolRequest, input getInput) (*mcp.CallToolResult, any, error) {
	record, err := eng.Show(input.Kind, input.ID)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	data, _ := json.MarshalIndent(record, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleRecentMemory(ctx context.Context, req *mcp.CallToolRequest, input recentInput) (*mcp.CallToolResult, any, error) {
	limit := clampLimit(input.Limit, 10)
	records, err := eng.Recent(input.Kind, input.Project, limit)
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	data, _ := json.MarshalIndent(records, "", "  ")
	return textResult(string(data)), nil, nil
}

func handleAddBreadcrumb(ctx context.Context, req *mcp.CallToolRequest, input addBreadcrumbInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Content) == "" {
		return textResult("Error: content is required."), nil, nil
	}
	if len(input.Content) > maxTextLen {
		return textResult(fmt.Sprintf("Error: content too large (max %d characters).", maxTextLen)), nil, nil
	}
	if !checkWriteRateLimit() {
		return textResult("Error: too many write operations. Try again in a minute."), nil, nil
	}
	id, err := eng.AddBreadcrumb(store.Breadcrumb{
		CreatedAt:  time.Now().Unix(),
		Content:    input.Content,
		Project:    input.Project,
		Importance: input.Importance,
	})
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Breadcrumb recorded (id %d).", id)), nil, nil
}

func handleAddDecision(ctx context.Context, req *mcp.CallToolRequest, input addDecisionInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Decision) == "" {
		return textResult("Error: decision is required."), nil, nil
	}
	if len(input.Decision)+len(input.Reasoning)+len(input.Alternatives) > maxTextLen {
		return textResult(fmt.Sprintf("Error: decision content too large (max %d characters).", maxTextLen)), nil, nil
	}
	if !checkWriteRateLimit() {
		return textResult("Error: too many write operations. Try again in a minute."), nil, nil
	}
	id, err := eng.AddDecision(store.Decision{
		CreatedAt:    time.Now().Unix(),
		Decision:     input.Decision,
		Reasoning:    input.Reasoning,
		Alternatives: input.Alternatives,
		Project:      input.Project,
	})
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Decision recorded (id %d).", id)), nil, nil
}

func handleAddLearning(ctx context.Context, req *mcp.CallToolRequest, input addLearningInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Problem) == "" {
		return textResult("Error: problem is required."), nil, nil
	}
	if len(input.Problem)+len(input.Solution)+len(input.Prevention) > maxTextLen {
		return textResult(fmt.Sprintf("Error: learning content too large (max %d characters).", maxTextLen)), nil, nil
	}
	if !checkWriteRateLimit() {
		return textResult("Error: too many write operations. Try again in a minute."), nil, nil
	}
	id, err := eng.AddLearning(store.Learning{
		CreatedAt:  time.Now().Unix(),
		Problem:    input.Problem,
		Solution:   input.Solution,
		Prevention: input.Prevention,
		Project:    input.Project,
	})
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Learning recorded (id %d).", id)), nil, nil
}

func handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	stats, err := eng.Stats()
	if err != nil {
		return textResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	data, _ := json.MarshalIndent(stats, "", "  ")
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func clampLimit(limit, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > 100 {
		return 100
	}
	return limit
}
