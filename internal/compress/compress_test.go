package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/samsaffron/minmax-code/internal/llm"
)

type fakeSummarizer struct {
	summary string
	err     error
	prompts []string
}

func (f *fakeSummarizer) Complete(ctx context.Context, model string, messages []llm.Message) (string, error) {
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	return f.summary, f.err
}

func bigHistory(n, size int) []llm.Message {
	history := make([]llm.Message, n)
	for i := range history {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		history[i] = llm.Message{Role: role, Content: fmt.Sprintf("msg-%02d ", i) + strings.Repeat("x", size)}
	}
	return history
}

func TestEstimateTokens(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: strings.Repeat("a", 400)},
		{Role: llm.RoleAssistant, Content: "", ToolCalls: []llm.ToolCall{{ID: "1", Name: "bash", Arguments: "{}"}}},
	}
	got := EstimateTokens(history)
	if got <= 100 {
		t.Errorf("expected tool calls to count, got %d", got)
	}
	if EstimateTokens(nil) != 0 {
		t.Error("empty history should be zero tokens")
	}
}

func TestMaybeCompress_BelowThresholdIsNoop(t *testing.T) {
	s := &fakeSummarizer{summary: "unused"}
	c := &Compressor{Summarizer: s, Threshold: DefaultThreshold}
	history := bigHistory(20, 100)

	got, res, err := c.MaybeCompress(context.Background(), history)
	if err != nil {
		t.Fatalf("MaybeCompress: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if len(got) != len(history) || &got[0] != &history[0] {
		t.Error("history should be returned unchanged")
	}
	if len(s.prompts) != 0 {
		t.Error("summarizer should not be called")
	}
}

func TestMaybeCompress_AboveThreshold(t *testing.T) {
	s := &fakeSummarizer{summary: "  the summary  "}
	c := &Compressor{Summarizer: s, Model: "m", Threshold: 1000, KeepRecent: 10}
	history := bigHistory(30, 1000)

	got, res, err := c.MaybeCompress(context.Background(), history)
	if err != nil {
		t.Fatalf("MaybeCompress: %v", err)
	}
	if len(got) != 2+10 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	if got[0].Role != llm.RoleUser || !strings.Contains(got[0].Content, "the summary") {
		t.Errorf("first message = %+v", got[0])
	}
	if got[1].Role != llm.RoleAssistant {
		t.Errorf("second message role = %s", got[1].Role)
	}
	for i, m := range got[2:] {
		if m.Content != history[20+i].Content {
			t.Errorf("recent message %d changed", i)
		}
	}
	for _, m := range got {
		if strings.HasPrefix(m.Content, "msg-00 ") || strings.HasPrefix(m.Content, "msg-19 ") {
			t.Errorf("older message survived: %.10s", m.Content)
		}
	}
	if res == nil || res.Summarized != 20 || res.AfterTokens >= res.BeforeTokens {
		t.Errorf("result = %+v", res)
	}

	prompt := s.prompts[0]
	if !strings.Contains(prompt, "[user]: msg-00") || !strings.Contains(prompt, "[assistant]: msg-19") {
		t.Error("transcript missing older messages")
	}
	if strings.Contains(prompt, "msg-20") {
		t.Error("transcript should not include recent messages")
	}
	if strings.Contains(prompt, strings.Repeat("x", 600)) {
		t.Error("transcript content should be capped")
	}
}

// Histories that fit in the recent window have nothing older to summarize.
// One message past the window is enough to compress.
func TestMaybeCompress_RecentWindowBoundary(t *testing.T) {
	s := &fakeSummarizer{summary: "s"}
	c := &Compressor{Summarizer: s, Threshold: 10, KeepRecent: 10}

	history := bigHistory(10, 1000)
	got, res, err := c.MaybeCompress(context.Background(), history)
	if err != nil || res != nil || len(got) != 10 {
		t.Errorf("len=10: expected no-op, got len=%d res=%+v err=%v", len(got), res, err)
	}
	if len(s.prompts) != 0 {
		t.Errorf("summarizer called %d times for a history inside the window", len(s.prompts))
	}

	history = bigHistory(11, 1000)
	got, res, err = c.MaybeCompress(context.Background(), history)
	if err != nil || res == nil {
		t.Fatalf("len=11: res=%+v err=%v", res, err)
	}
	if len(got) != 2+10 {
		t.Errorf("len=11: compressed length = %d, want 12", len(got))
	}
	if res.Summarized != 1 {
		t.Errorf("summarized = %d, want 1", res.Summarized)
	}
	if got[2].Content != history[1].Content {
		t.Error("recent window should start at the second message")
	}
}

func TestMaybeCompress_SummarizerFailureKeepsHistory(t *testing.T) {
	c := &Compressor{Summarizer: &fakeSummarizer{err: errors.New("down")}, Threshold: 10}
	history := bigHistory(30, 100)
	got, res, err := c.MaybeCompress(context.Background(), history)
	if err == nil {
		t.Fatal("expected error")
	}
	if res != nil || len(got) != len(history) {
		t.Error("history should be untouched on failure")
	}
}
