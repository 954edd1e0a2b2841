package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/ui"
)

func TestPrintSessionList(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	printSessionList(&buf, []session.Summary{{
		Session: session.Session{
			ID:        "0123456789abcdef",
			Name:      "Refactor the parser",
			Model:     "MiniMax-M2.5",
			Mode:      "plan",
			UpdatedAt: now.Add(-2 * time.Hour),
		},
		MessageCount: 12,
	}}, now)

	out := buf.String()
	for _, want := range []string{"01234567", "Refactor the parser", "12", "plan", "MiniMax-M2.5", "2h ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	printSessionList(&buf, nil, now)
	if buf.String() != "No sessions found.\n" {
		t.Errorf("empty list output = %q", buf.String())
	}
}

func TestPrintTranscript(t *testing.T) {
	var buf bytes.Buffer
	printTranscript(&buf, []session.StoredMessage{
		{Role: llm.RoleUser, Content: "list files"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "glob", Arguments: `{"pattern":"*.go"}`}}},
		{Role: llm.RoleTool, ToolCallID: "c1", Content: "a.go\nb.go\nc.go"},
		{Role: llm.RoleAssistant, Content: "Three files."},
	})

	out := buf.String()
	for _, want := range []string{
		"> list files",
		ui.ToolIcon + ` glob {"pattern":"*.go"}`,
		ui.ResultIcon + " a.go",
		"… +2 lines",
		"Three files.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSessionLabel(t *testing.T) {
	if got := sessionLabel(session.Session{}); got != session.DefaultName {
		t.Errorf("sessionLabel = %q", got)
	}
}
