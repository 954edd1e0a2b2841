package llm

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation sent to the model.
type Message struct {
	Role      Role
	Content   string
	Reasoning []string // reasoning fragments, sent back as reasoning_details
	ToolCalls []ToolCall
	// ToolCallID links a tool result to the assistant tool call it answers.
	ToolCallID string
	Name       string
}

// ToolCall is a function call requested by the model. Arguments is the JSON
// text exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// SanitizedArguments returns Arguments if it is valid JSON, otherwise "{}".
func (c ToolCall) SanitizedArguments() string {
	if c.Arguments != "" && json.Valid([]byte(c.Arguments)) {
		return c.Arguments
	}
	return "{}"
}

// ToolDefinition describes a callable function exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token counts for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Request is a streaming chat completion request.
type Request struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
}

// StreamResult is the aggregate of a completed (or cancelled) stream.
type StreamResult struct {
	Content      string
	Reasoning    []string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
	// Chunks counts decoded data payloads.
	Chunks int
}

// StreamEvent is emitted while a response streams in. The concrete types are
// ReasoningDelta, ContentDelta, ToolCallsDelta, StreamDone and StreamError.
type StreamEvent interface {
	isStreamEvent()
}

// ReasoningDelta carries a new reasoning fragment.
type ReasoningDelta struct{ Text string }

// ContentDelta carries new visible text.
type ContentDelta struct{ Text string }

// ToolCallsDelta carries the full accumulated tool call list, ordered by index.
type ToolCallsDelta struct{ Calls []ToolCall }

// StreamDone is sent once the stream has ended normally.
type StreamDone struct{ Usage Usage }

// StreamError reports a problem inside an otherwise successful response.
type StreamError struct{ Message string }

func (ReasoningDelta) isStreamEvent() {}
func (ContentDelta) isStreamEvent()   {}
func (ToolCallsDelta) isStreamEvent() {}
func (StreamDone) isStreamEvent()     {}
func (StreamError) isStreamEvent()    {}
