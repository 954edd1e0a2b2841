package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func definitionNames(r *Registry, mode Mode) []string {
	var names []string
	for _, d := range r.Definitions(mode) {
		names = append(names, d.Name)
	}
	return names
}

func TestRegistry_DefinitionsByMode(t *testing.T) {
	r := NewRegistry(Options{WorkDir: t.TempDir()})

	builder := definitionNames(r, ModeBuilder)
	if len(builder) != 10 {
		t.Fatalf("builder mode should expose 10 tools, got %v", builder)
	}

	plan := definitionNames(r, ModePlan)
	want := []string{ReadFileToolName, GlobToolName, GrepToolName, ListDirectoryToolName, WebSearchToolName, AskUserToolName, TodoWriteToolName}
	if strings.Join(plan, ",") != strings.Join(want, ",") {
		t.Errorf("plan tools = %v, want %v", plan, want)
	}
}

func TestRegistry_PlanModeRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(Options{WorkDir: dir})
	args := json.RawMessage(`{"path":"x.txt","content":"hi"}`)

	out := r.Execute(context.Background(), WriteFileToolName, args, ModePlan)
	want := `Error: Tool "write_file" is not available in PLAN mode. Switch to BUILDER mode to use it.`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.txt")); !os.IsNotExist(err) {
		t.Error("file should not have been written in plan mode")
	}

	out = r.Execute(context.Background(), WriteFileToolName, args, ModeBuilder)
	if out != "File created successfully: x.txt" {
		t.Errorf("builder write = %q", out)
	}
}

func TestRegistry_ErrorsAreText(t *testing.T) {
	r := NewRegistry(Options{WorkDir: t.TempDir()})
	ctx := context.Background()

	if out := r.Execute(ctx, "nope", nil, ModeBuilder); out != `Error: Unknown tool "nope"` {
		t.Errorf("unknown tool = %q", out)
	}
	if out := r.Execute(ctx, ReadFileToolName, json.RawMessage(`{}`), ModeBuilder); out != "Error: No path provided" {
		t.Errorf("missing path = %q", out)
	}
	if out := r.Execute(ctx, ReadFileToolName, json.RawMessage(`not json`), ModeBuilder); !strings.HasPrefix(out, "Error: invalid arguments") {
		t.Errorf("bad json = %q", out)
	}
}

func TestParseModeAndToggle(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeBuilder {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("plan"); err != nil || m != ModePlan {
		t.Errorf("ParseMode(plan) = %v, %v", m, err)
	}
	if _, err := ParseMode("yolo"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if ModePlan.Toggle() != ModeBuilder || ModeBuilder.Toggle() != ModePlan {
		t.Error("Toggle should flip the mode")
	}
}

func TestParseTodos(t *testing.T) {
	todos, err := ParseTodos(json.RawMessage(`{"todos":[
		{"content":"write code","status":"completed"},
		{"content":"test it","status":"in_progress"},
		{"content":"ship","status":"later"},
		{"content":"","status":"pending"}
	]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(todos))
	}
	if todos[2].Status != TodoPending {
		t.Errorf("unknown status should become pending, got %q", todos[2].Status)
	}
	want := "Todo list updated: 3 tasks (1 completed, 1 in progress, 1 pending)"
	if got := SummarizeTodos(todos); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestWebSearchTool(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coding_plan/search" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Q string `json:"q"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Q
		w.Write([]byte(`{
			"organic_results": [
				{"title": "Go", "url": "https://go.dev", "snippet": "The Go language"},
				{"url": "https://example.com", "content": "no title here"}
			],
			"related_searches": ["golang", {"query": "go modules"}]
		}`))
	}))
	defer srv.Close()

	tool := NewWebSearchTool("k", srv.URL, srv.Client())
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"golang"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer k" || gotQuery != "golang" {
		t.Errorf("auth = %q, query = %q", gotAuth, gotQuery)
	}
	want := "1. **Go**\n   https://go.dev\n   The Go language\n\n" +
		"2. **Untitled**\n   https://example.com\n   no title here\n\n" +
		"Related searches: golang, go modules"
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}
}

func TestWebSearchTool_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Authorization"), "empty") {
			w.Write([]byte(`{"results": []}`))
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := NewWebSearchTool("k", srv.URL, srv.Client()).Execute(ctx, json.RawMessage(`{"query":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "Search API returned 429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("unexpected error %v", err)
	}

	out, err := NewWebSearchTool("empty", srv.URL, srv.Client()).Execute(ctx, json.RawMessage(`{"query":"x"}`))
	if err != nil || out != `No results found for "x".` {
		t.Errorf("out = %q, err = %v", out, err)
	}

	_, err = NewWebSearchTool("", srv.URL, srv.Client()).Execute(ctx, json.RawMessage(`{"query":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "No API key") {
		t.Errorf("expected missing key error, got %v", err)
	}
}
