// Package agent runs the conversation loop: it streams model responses,
// dispatches the tool calls they request and feeds the results back until
// the model stops asking for tools.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samsaffron/minmax-code/internal/compress"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/mcp"
	"github.com/samsaffron/minmax-code/internal/parser"
	"github.com/samsaffron/minmax-code/internal/tools"
)

// ErrBusy is returned by Send while another turn is running.
var ErrBusy = errors.New("a turn is already in progress")

const truncatedExcerpt = 500

// Streamer sends a chat request and streams the response.
type Streamer interface {
	Stream(ctx context.Context, req llm.Request, onEvent func(llm.StreamEvent)) (*llm.StreamResult, error)
}

// ToolExecutor runs local tools.
type ToolExecutor interface {
	Definitions(mode tools.Mode) []llm.ToolDefinition
	Execute(ctx context.Context, name string, args json.RawMessage, mode tools.Mode) string
}

// MCPDispatcher exposes tools discovered from MCP servers.
type MCPDispatcher interface {
	ToolDefinitions() []llm.ToolDefinition
	Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// MessageSaver persists conversation messages.
type MessageSaver interface {
	SaveMessage(ctx context.Context, sessionID string, msg llm.Message) error
}

// Compressor shrinks history that has grown too large.
type Compressor interface {
	MaybeCompress(ctx context.Context, history []llm.Message) ([]llm.Message, *compress.Result, error)
}

// Options configures an Agent. Client and Tools are required.
type Options struct {
	Client     Streamer
	Tools      ToolExecutor
	MCP        MCPDispatcher
	Store      MessageSaver
	SessionID  string
	Compressor Compressor
	Model      string
	Mode       tools.Mode
	WorkDir    string
	// Now is used for fallback tool call ids. Defaults to time.Now.
	Now func() time.Time
}

// Agent owns one conversation. Turns are serialized; Send returns ErrBusy
// if called while a turn is running.
type Agent struct {
	client     Streamer
	tools      ToolExecutor
	mcp        MCPDispatcher
	store      MessageSaver
	compressor Compressor
	workDir    string
	now        func() time.Time

	mu        sync.Mutex
	sessionID string
	model     string
	mode      tools.Mode
	history   []llm.Message
	usage     llm.Usage
	cancel    context.CancelFunc
	running   bool
}

// New creates an Agent.
func New(opts Options) *Agent {
	a := &Agent{
		client:     opts.Client,
		tools:      opts.Tools,
		mcp:        opts.MCP,
		store:      opts.Store,
		compressor: opts.Compressor,
		workDir:    opts.WorkDir,
		now:        opts.Now,
		sessionID:  opts.SessionID,
		model:      opts.Model,
		mode:       opts.Mode,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.model == "" {
		a.model = llm.DefaultModel
	}
	if a.mode == "" {
		a.mode = tools.ModeBuilder
	}
	return a
}

// SetMode changes the tool mode used by subsequent requests.
func (a *Agent) SetMode(mode tools.Mode) {
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()
}

// Mode returns the current tool mode.
func (a *Agent) Mode() tools.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetModel changes the model used by subsequent requests.
func (a *Agent) SetModel(model string) {
	a.mu.Lock()
	a.model = model
	a.mu.Unlock()
}

// Model returns the current model.
func (a *Agent) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// SetSession switches persistence to another session id.
func (a *Agent) SetSession(id string) {
	a.mu.Lock()
	a.sessionID = id
	a.mu.Unlock()
}

// LoadHistory replaces the conversation, typically with a resumed session.
func (a *Agent) LoadHistory(history []llm.Message) {
	a.mu.Lock()
	a.history = append([]llm.Message(nil), history...)
	a.mu.Unlock()
}

// History returns a copy of the conversation.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Message(nil), a.history...)
}

// Usage returns the cumulative token usage.
func (a *Agent) Usage() llm.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// Clear drops the conversation and resets usage.
func (a *Agent) Clear() {
	a.mu.Lock()
	a.history = nil
	a.usage = llm.Usage{}
	a.mu.Unlock()
}

// Cancel stops the running turn, if any.
func (a *Agent) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send runs one user turn. Events are written to events, which the caller
// must drain until Send returns; Send does not close it. fileContext, when
// non-empty, is sent ahead of the input but not persisted.
func (a *Agent) Send(ctx context.Context, input, fileContext string, events chan<- Event) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		cancel()
		a.mu.Lock()
		a.running = false
		a.cancel = nil
		a.mu.Unlock()
	}()

	t := &turn{agent: a, ctx: ctx, events: events}
	t.run(input, fileContext)
	events <- TurnComplete{Cancelled: ctx.Err() != nil}
	return nil
}

// turn holds the state of one Send call.
type turn struct {
	agent  *Agent
	ctx    context.Context
	events chan<- Event
}

func (t *turn) emit(ev Event) {
	t.events <- ev
}

func (t *turn) run(input, fileContext string) {
	a := t.agent

	content := input
	if fileContext != "" {
		content = fileContext + "\n\nUser request: " + input
	}
	t.appendHistory(llm.Message{Role: llm.RoleUser, Content: content})
	t.persist(llm.Message{Role: llm.RoleUser, Content: input})

	for {
		if t.ctx.Err() != nil {
			return
		}

		t.compressHistory()

		t.emit(StreamStart{})

		a.mu.Lock()
		mode, model := a.mode, a.model
		history := a.history
		a.mu.Unlock()

		defs := a.tools.Definitions(mode)
		if a.mcp != nil {
			defs = append(defs, a.mcp.ToolDefinitions()...)
		}
		messages := make([]llm.Message, 0, len(history)+1)
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: SystemPrompt(mode, a.workDir, a.localToolNames(tools.ModePlan)),
		})
		messages = append(messages, compress.TrimForRequest(history)...)

		result, err := a.client.Stream(t.ctx, llm.Request{Model: model, Messages: messages, Tools: defs}, t.forward)
		if err != nil {
			if t.ctx.Err() == nil {
				t.emit(ErrorEvent{Message: fmt.Sprintf("Stream error: %v", err)})
			}
			return
		}
		if result == nil {
			return
		}
		if t.ctx.Err() != nil && result.Content == "" && len(result.ToolCalls) == 0 {
			return
		}

		calls := t.finishResponse(result)
		if len(calls) == 0 {
			return
		}
		if t.ctx.Err() != nil {
			return
		}

		t.runTools(calls, mode)

		if t.ctx.Err() != nil {
			return
		}
	}
}

// forward translates stream events into agent events.
func (t *turn) forward(ev llm.StreamEvent) {
	switch e := ev.(type) {
	case llm.ReasoningDelta:
		t.emit(ReasoningChunk{Text: e.Text})
	case llm.ContentDelta:
		t.emit(ContentChunk{Text: e.Text})
	case llm.ToolCallsDelta:
		t.emit(ToolCallsUpdate{Calls: e.Calls})
	case llm.StreamDone:
		a := t.agent
		a.mu.Lock()
		a.usage.Add(e.Usage)
		total := a.usage
		a.mu.Unlock()
		t.emit(TokenUsage{Request: e.Usage, Total: total})
	case llm.StreamError:
		t.emit(ErrorEvent{Message: e.Message})
	}
}

func (t *turn) compressHistory() {
	a := t.agent
	if a.compressor == nil {
		return
	}
	a.mu.Lock()
	history := a.history
	a.mu.Unlock()

	compressed, res, err := a.compressor.MaybeCompress(t.ctx, history)
	if err != nil {
		if t.ctx.Err() == nil {
			slog.Warn("context compression failed", "error", err)
			t.emit(Warning{Message: err.Error()})
		}
		return
	}
	if res == nil {
		return
	}
	a.mu.Lock()
	a.history = compressed
	a.mu.Unlock()
	t.emit(ContextCompressed{
		BeforeTokens: res.BeforeTokens,
		AfterTokens:  res.AfterTokens,
		Summarized:   res.Summarized,
	})
}

// finishResponse merges structured and inline tool calls, emits StreamEnd,
// records the assistant message and returns the calls to run.
func (t *turn) finishResponse(result *llm.StreamResult) []llm.ToolCall {
	parsed := parser.Parse(result.Content)

	var reasoning []string
	if r := strings.Join(result.Reasoning, ""); r != "" {
		reasoning = append(reasoning, r)
	}
	if parsed.Reasoning != "" {
		reasoning = append(reasoning, parsed.Reasoning)
	}

	calls := result.ToolCalls
	if len(calls) == 0 && len(parsed.ToolCalls) > 0 {
		calls = t.agent.fallbackCalls(parsed.ToolCalls)
	}

	content := parsed.Content
	if content == "" && len(calls) == 0 {
		if result.Content != "" {
			content = "[Response truncated: the model's output was cut off mid-tool-call]\n\n" +
				excerpt(result.Content, truncatedExcerpt)
		} else {
			content = "[Empty response from API: the model returned nothing"
			if result.FinishReason != "" {
				content += " (finish_reason: " + result.FinishReason + ")"
			}
			content += "]"
		}
	}

	t.emit(StreamEnd{
		Content:   content,
		Reasoning: strings.Join(reasoning, "\n"),
		ToolCalls: calls,
	})

	sanitized := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		c.Arguments = c.SanitizedArguments()
		sanitized[i] = c
	}
	t.appendHistory(llm.Message{
		Role:      llm.RoleAssistant,
		Content:   result.Content,
		Reasoning: result.Reasoning,
		ToolCalls: sanitized,
	})
	t.persist(llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content,
		Reasoning: reasoning,
		ToolCalls: sanitized,
	})
	return sanitized
}

func (a *Agent) fallbackCalls(parsed []parser.ToolCall) []llm.ToolCall {
	stamp := a.now().UnixMilli()
	calls := make([]llm.ToolCall, len(parsed))
	for i, pc := range parsed {
		calls[i] = llm.ToolCall{
			ID:        fmt.Sprintf("xml_tc_%d_%d", stamp, i),
			Name:      pc.Name,
			Arguments: string(parser.CoerceArgs(pc.Args)),
		}
	}
	return calls
}

func (a *Agent) localToolNames(mode tools.Mode) []string {
	defs := a.tools.Definitions(mode)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// runTools resolves calls and commits their results in call order.
// Every ask_user call is answered first, then todo_write calls are applied,
// and only then do the remaining calls start concurrently, so nothing runs
// before the user has answered.
func (t *turn) runTools(calls []llm.ToolCall, mode tools.Mode) {
	results := make([]*string, len(calls))

	for i, call := range calls {
		if call.Name == tools.AskUserToolName {
			r := t.askUser(call)
			results[i] = &r
		}
	}
	for i, call := range calls {
		if call.Name == tools.TodoWriteToolName {
			r := t.writeTodos(call)
			results[i] = &r
		}
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		if results[i] != nil {
			continue
		}
		t.emit(ToolExecutionStart{ID: call.ID, Name: call.Name, Args: call.Arguments})
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			r := t.execute(call, mode)
			results[i] = &r
			t.emit(ToolExecutionDone{ID: call.ID, Name: call.Name, Result: r})
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		content := "Error: tool result missing"
		if results[i] != nil {
			content = *results[i]
		}
		msg := llm.Message{
			Role:       llm.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		}
		t.appendHistory(msg)
		t.persist(msg)
	}
}

func (t *turn) execute(call llm.ToolCall, mode tools.Mode) string {
	if t.ctx.Err() != nil {
		return "Cancelled"
	}
	args := json.RawMessage(call.Arguments)
	if !mcp.IsMCPTool(call.Name) {
		return t.agent.tools.Execute(t.ctx, call.Name, args, mode)
	}
	if t.agent.mcp == nil {
		return fmt.Sprintf("Error: MCP tool %q called but no MCP manager available", call.Name)
	}
	out, err := t.agent.mcp.Dispatch(t.ctx, call.Name, args)
	if err != nil {
		return fmt.Sprintf("Error: MCP tool failed: %v", err)
	}
	return out
}

func (t *turn) askUser(call llm.ToolCall) string {
	batch := questionsFromArgs(tools.ParseAskUser(json.RawMessage(call.Arguments)))
	reply := NewReply()

	t.emit(ToolExecutionStart{ID: call.ID, Name: call.Name, Args: call.Arguments})
	t.emit(AskUser{ID: call.ID, Questions: batch, Reply: reply})

	var answer string
	select {
	case answers, ok := <-reply.ch:
		if ok {
			answer = batch.formatAnswers(answers)
		} else {
			answer = answerNoResponse
		}
	case <-t.ctx.Done():
		reply.Cancel()
		answer = answerCancelled
	}

	t.emit(ToolExecutionDone{ID: call.ID, Name: call.Name, Result: answer})
	return "User responded: " + answer
}

func (t *turn) writeTodos(call llm.ToolCall) string {
	t.emit(ToolExecutionStart{ID: call.ID, Name: call.Name, Args: call.Arguments})
	todos, err := tools.ParseTodos(json.RawMessage(call.Arguments))
	var result string
	if err != nil {
		result = tools.FormatError(err)
	} else {
		t.emit(TodoUpdate{Todos: todos})
		result = tools.SummarizeTodos(todos)
	}
	t.emit(ToolExecutionDone{ID: call.ID, Name: call.Name, Result: result})
	return result
}

func (t *turn) appendHistory(msg llm.Message) {
	a := t.agent
	a.mu.Lock()
	a.history = append(a.history, msg)
	a.mu.Unlock()
}

func (t *turn) persist(msg llm.Message) {
	a := t.agent
	if a.store == nil {
		return
	}
	a.mu.Lock()
	id := a.sessionID
	a.mu.Unlock()
	if id == "" {
		return
	}
	// Persistence outlives cancellation so a cancelled turn keeps what it
	// already produced.
	if err := a.store.SaveMessage(context.WithoutCancel(t.ctx), id, msg); err != nil {
		slog.Warn("failed to save message", "session", id, "role", msg.Role, "error", err)
	}
}

// excerpt returns at most n bytes of s without splitting a rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
