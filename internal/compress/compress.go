// Package compress keeps the conversation inside the model's context budget.
package compress

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const (
	// DefaultThreshold is the estimated token count above which older
	// messages are summarised.
	DefaultThreshold = 100000
	// DefaultKeepRecent is how many trailing messages survive verbatim.
	DefaultKeepRecent = 10

	transcriptContentCap = 500
)

const summaryInstructions = `You are compacting a coding session so it can continue in a fresh context.
Write a concise summary of the conversation below. Preserve:
- decisions made and the reasons given by the user
- files that were read, created or modified (with paths)
- the current state of the task and what remains to be done
- bugs found, errors hit, and patterns or conventions discovered
Do not add commentary. Output only the summary.

Conversation:
`

const summaryAck = "Understood. I have the context from the summary and will continue from there."

// Summarizer produces a non-streaming completion.
type Summarizer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// Compressor replaces old history with a model-written summary once the
// history grows past Threshold estimated tokens.
type Compressor struct {
	Summarizer Summarizer
	Model      string
	Threshold  int
	KeepRecent int
}

// Result describes a compression that happened.
type Result struct {
	BeforeTokens int
	AfterTokens  int
	Summarized   int // number of messages folded into the summary
}

// EstimateTokens approximates the token count of history as a quarter of
// its character count, including reasoning and tool calls.
func EstimateTokens(history []llm.Message) int {
	total := 0
	for _, m := range history {
		total += messageChars(m) / 4
	}
	return total
}

func messageChars(m llm.Message) int {
	n := len(m.Content)
	if len(m.Reasoning) > 0 {
		if data, err := json.Marshal(m.Reasoning); err == nil {
			n += len(data)
		}
	}
	if len(m.ToolCalls) > 0 {
		if data, err := json.Marshal(m.ToolCalls); err == nil {
			n += len(data)
		}
	}
	return n
}

// MaybeCompress returns history unchanged (and a nil Result) while it is
// under the threshold or no longer than KeepRecent, since then there is no
// older message to summarize. Otherwise it returns a new slice holding a summary
// exchange followed by the most recent KeepRecent messages.
func (c *Compressor) MaybeCompress(ctx context.Context, history []llm.Message) ([]llm.Message, *Result, error) {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	keep := c.KeepRecent
	if keep <= 0 {
		keep = DefaultKeepRecent
	}

	before := EstimateTokens(history)
	if before < threshold || len(history) <= keep {
		return history, nil, nil
	}
	if c.Summarizer == nil {
		return history, nil, fmt.Errorf("context compression: no summarizer configured")
	}

	split := len(history) - keep
	older, recent := history[:split], history[split:]

	prompt := summaryInstructions + transcript(older)
	summary, err := c.Summarizer.Complete(ctx, c.Model, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return history, nil, fmt.Errorf("context compression: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return history, nil, fmt.Errorf("context compression: empty summary")
	}

	compressed := make([]llm.Message, 0, len(recent)+2)
	compressed = append(compressed,
		llm.Message{Role: llm.RoleUser, Content: "[Summary of earlier conversation]\n" + summary},
		llm.Message{Role: llm.RoleAssistant, Content: summaryAck},
	)
	compressed = append(compressed, recent...)

	return compressed, &Result{
		BeforeTokens: before,
		AfterTokens:  EstimateTokens(compressed),
		Summarized:   len(older),
	}, nil
}

// transcript renders messages as "[role]: content" lines with each content
// capped for the summary prompt.
func transcript(messages []llm.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		content := m.Content
		if len(content) > transcriptContentCap {
			content = truncateUTF8(content, transcriptContentCap) + "..."
		}
		if content == "" && len(m.ToolCalls) > 0 {
			names := make([]string, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				names[i] = tc.Name
			}
			content = "(called " + strings.Join(names, ", ") + ")"
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", m.Role, content)
	}
	return sb.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
