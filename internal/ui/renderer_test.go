package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/samsaffron/minmax-code/internal/agent"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/tools"
)

func render(markdown bool, events ...agent.Event) string {
	var buf bytes.Buffer
	r := NewRenderer(&buf, NewStyles(&buf, nil), markdown, 80)
	for _, ev := range events {
		r.Handle(ev)
	}
	return buf.String()
}

func TestRenderer_StreamsPlainContent(t *testing.T) {
	out := render(false,
		agent.StreamStart{},
		agent.ContentChunk{Text: "Hello "},
		agent.ContentChunk{Text: "world"},
		agent.StreamEnd{Content: "Hello world"},
	)
	if out != "Hello world\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRenderer_HidesInlineToolMarkup(t *testing.T) {
	out := render(false,
		agent.StreamStart{},
		agent.ContentChunk{Text: "Checking.<minimax:tool"},
		agent.ContentChunk{Text: `_call><invoke name="glob"></invoke></minimax:tool_call>`},
		agent.StreamEnd{Content: "Checking."},
	)
	if strings.Contains(out, "minimax") {
		t.Errorf("markup leaked: %q", out)
	}
	if !strings.Contains(out, "Checking.") {
		t.Errorf("output = %q", out)
	}
}

func TestRenderer_NoticeReplacesStreamedText(t *testing.T) {
	notice := "[Empty response from API: the model returned nothing]"
	out := render(false, agent.StreamStart{}, agent.StreamEnd{Content: notice})
	if out != notice+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRenderer_ReasoningThenContent(t *testing.T) {
	out := render(false,
		agent.StreamStart{},
		agent.ReasoningChunk{Text: "thinking"},
		agent.ContentChunk{Text: "answer"},
		agent.StreamEnd{Content: "answer"},
	)
	if out != "thinking\nanswer\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRenderer_ToolLines(t *testing.T) {
	out := render(false,
		agent.ToolExecutionStart{ID: "1", Name: "read_file", Args: `{"path":"main.go","start_line":3}`},
		agent.ToolExecutionDone{ID: "1", Name: "read_file", Result: "1\ta\n2\tb\n3\tc\n4\td\n5\te"},
		agent.ToolExecutionDone{ID: "2", Name: "bash", Result: "Error: Command timed out after 30 seconds"},
	)
	for _, want := range []string{
		ToolIcon + " read_file(path=main.go, start_line=3)",
		ResultIcon + " 1\ta",
		"… +2 lines",
		"Error: Command timed out after 30 seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderer_EditDiff(t *testing.T) {
	result := "File edited successfully: a.go\n\n--- a.go\n+++ a.go\n@@ -1 +1 @@\n-old\n+new\n"
	out := render(false, agent.ToolExecutionDone{Name: tools.EditFileToolName, Result: result})
	if !strings.Contains(out, "File edited successfully: a.go\n--- a.go") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "-old\n+new") {
		t.Errorf("diff missing: %q", out)
	}
}

func TestRenderer_TodosAndTurnSummary(t *testing.T) {
	out := render(false,
		agent.TodoUpdate{Todos: []tools.TodoItem{
			{Content: "write tests", Status: tools.TodoCompleted},
			{Content: "fix bug", Status: tools.TodoInProgress},
			{Content: "ship", Status: tools.TodoPending},
		}},
		agent.TokenUsage{Total: llm.Usage{TotalTokens: 1500}},
		agent.TurnComplete{Cancelled: true},
	)
	for _, want := range []string{"[x] write tests", "[~] fix bug", "[ ] ship", "(cancelled)", "1.5k tokens"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSummarizeArgs(t *testing.T) {
	if got := summarizeArgs(`{"command":"ls -la\necho hi"}`); got != "(command=ls -la)" {
		t.Errorf("got %q", got)
	}
	if got := summarizeArgs(`not json`); got != "" {
		t.Errorf("got %q", got)
	}
	long := summarizeArgs(`{"content":"` + strings.Repeat("a", 200) + `"}`)
	if len([]rune(long)) != maxArgSummary+2 {
		t.Errorf("long summary = %d runes", len([]rune(long)))
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int]string{950: "950", 1000: "1k", 1200: "1.2k", 3400000: "3.4M", 2000000: "2M"}
	for n, want := range tests {
		if got := FormatCount(n); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 8); got != "héllo..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
}
