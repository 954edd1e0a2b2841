package session

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// DefaultName is used until a session is named from its first prompt.
const DefaultName = "New Session"

// Session is a persisted conversation.
type Session struct {
	ID        string
	Name      string
	Model     string
	Mode      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a Session plus its message count, for listings.
type Summary struct {
	Session
	MessageCount int
}

// StoredMessage is one row of the message log.
type StoredMessage struct {
	ID         int64
	SessionID  string
	Role       llm.Role
	Content    string
	Reasoning  []string
	ToolCalls  []llm.ToolCall
	ToolCallID string
	Name       string
	CreatedAt  time.Time
}

// NewID returns a new random session id.
func NewID() string {
	return uuid.NewString()
}

// ToLLMMessage converts a stored row back into conversation history.
func (m StoredMessage) ToLLMMessage() llm.Message {
	return llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		Reasoning:  m.Reasoning,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
}

// History converts stored rows to llm messages, dropping system prompts
// (those are rebuilt per request).
func History(rows []StoredMessage) []llm.Message {
	out := make([]llm.Message, 0, len(rows))
	for _, r := range rows {
		if r.Role == llm.RoleSystem {
			continue
		}
		out = append(out, r.ToLLMMessage())
	}
	return out
}

// encodeToolCalls serializes tool calls with arguments forced to valid JSON.
func encodeToolCalls(calls []llm.ToolCall) (string, error) {
	if len(calls) == 0 {
		return "", nil
	}
	clean := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		clean[i] = llm.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.SanitizedArguments()}
	}
	b, err := json.Marshal(clean)
	return string(b), err
}

func decodeToolCalls(data string) ([]llm.ToolCall, error) {
	if data == "" {
		return nil, nil
	}
	var calls []llm.ToolCall
	err := json.Unmarshal([]byte(data), &calls)
	return calls, err
}

func encodeReasoning(parts []string) (string, error) {
	if len(parts) == 0 {
		return "", nil
	}
	b, err := json.Marshal(parts)
	return string(b), err
}

func decodeReasoning(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var parts []string
	err := json.Unmarshal([]byte(data), &parts)
	return parts, err
}

// NameFromPrompt derives a session name from the first user prompt: its
// first line, cut to 50 characters.
func NameFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if idx := strings.IndexByte(prompt, '\n'); idx != -1 {
		prompt = strings.TrimSpace(prompt[:idx])
	}
	if prompt == "" {
		return DefaultName
	}
	if utf8.RuneCountInString(prompt) > 50 {
		r := []rune(prompt)
		prompt = string(r[:47]) + "..."
	}
	return prompt
}
