package agent

import (
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/tools"
)

// Event is emitted by the agent loop while a turn runs. The set of
// implementations is closed; consumers switch over the concrete types.
type Event interface {
	isEvent()
}

// StreamStart marks the beginning of a model request.
type StreamStart struct{}

// ReasoningChunk is a streamed fragment of model reasoning.
type ReasoningChunk struct {
	Text string
}

// ContentChunk is a streamed fragment of visible content.
type ContentChunk struct {
	Text string
}

// ToolCallsUpdate is the full, index-ordered snapshot of tool calls
// accumulated so far in the current response.
type ToolCallsUpdate struct {
	Calls []llm.ToolCall
}

// StreamEnd carries the final, parsed form of one model response.
type StreamEnd struct {
	Content   string
	Reasoning string
	ToolCalls []llm.ToolCall
}

// ToolExecutionStart is emitted before a tool runs.
type ToolExecutionStart struct {
	ID   string
	Name string
	Args string
}

// ToolExecutionDone is emitted as soon as a tool finishes.
type ToolExecutionDone struct {
	ID     string
	Name   string
	Result string
}

// AskUser asks the UI to collect answers. The loop blocks until Reply is
// answered or cancelled, or the turn is cancelled.
type AskUser struct {
	ID        string
	Questions QuestionBatch
	Reply     *Reply
}

// TodoUpdate carries the full replacement task list.
type TodoUpdate struct {
	Todos []tools.TodoItem
}

// TokenUsage reports the usage of one request and the running total.
type TokenUsage struct {
	Request llm.Usage
	Total   llm.Usage
}

// ContextCompressed reports that older history was replaced by a summary.
type ContextCompressed struct {
	BeforeTokens int
	AfterTokens  int
	Summarized   int
}

// Warning is a non-fatal problem the user should see.
type Warning struct {
	Message string
}

// ErrorEvent reports a failure. Stream failures end the turn.
type ErrorEvent struct {
	Message string
}

// TurnComplete is the last event of every turn.
type TurnComplete struct {
	Cancelled bool
}

func (StreamStart) isEvent()        {}
func (ReasoningChunk) isEvent()     {}
func (ContentChunk) isEvent()       {}
func (ToolCallsUpdate) isEvent()    {}
func (StreamEnd) isEvent()          {}
func (ToolExecutionStart) isEvent() {}
func (ToolExecutionDone) isEvent()  {}
func (AskUser) isEvent()            {}
func (TodoUpdate) isEvent()         {}
func (TokenUsage) isEvent()         {}
func (ContextCompressed) isEvent()  {}
func (Warning) isEvent()            {}
func (ErrorEvent) isEvent()         {}
func (TurnComplete) isEvent()       {}
