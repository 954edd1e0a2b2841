package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// AskUserTool describes ask_user. The agent loop answers it by prompting the
// user, so Execute is only reached when no loop intercepts the call.
type AskUserTool struct{}

// AskUserArgs are the arguments for ask_user. Questions, when present,
// batches several prompts into one call.
type AskUserArgs struct {
	Header      string            `json:"header,omitempty"`
	Question    string            `json:"question"`
	Options     []string          `json:"options"`
	AllowCustom *bool             `json:"allow_custom,omitempty"`
	Questions   []AskUserQuestion `json:"questions,omitempty"`
}

// AskUserQuestion is one entry of a batched ask_user call.
type AskUserQuestion struct {
	Header      string   `json:"header,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AllowCustom *bool    `json:"allow_custom,omitempty"`
}

// ParseAskUser decodes ask_user arguments leniently. Malformed input yields
// the zero value so the caller can fall back to defaults.
func ParseAskUser(args json.RawMessage) AskUserArgs {
	var a AskUserArgs
	if len(args) == 0 {
		return a
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return AskUserArgs{}
	}
	return a
}

func (AskUserTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        AskUserToolName,
		Description: "Ask the user a question with selectable options. Use this when you need clarification, confirmation, or the user's preference before proceeding. The user sees your question and options to choose from, plus an optional free-text input.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"header": map[string]any{
					"type":        "string",
					"description": "Optional short label shown above the question",
				},
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask the user",
				},
				"options": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "List of selectable options for the user to choose from",
				},
				"allow_custom": map[string]any{
					"type":        "boolean",
					"description": "Whether to allow the user to type a custom response instead of selecting a predefined option. Defaults to true.",
				},
				"questions": map[string]any{
					"type":        "array",
					"description": "Ask several questions at once. Each item takes header, question, options and allow_custom.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"header":       map[string]any{"type": "string"},
							"question":     map[string]any{"type": "string"},
							"options":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"allow_custom": map[string]any{"type": "boolean"},
						},
						"required": []string{"question"},
					},
				},
			},
			"required": []string{"question"},
		},
	}
}

func (AskUserTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return "", NewToolError(ErrExecutionFailed, "ask_user requires an interactive session")
}

// TodoStatus is the progress state of a todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry in the task list.
type TodoItem struct {
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// TodoWriteArgs are the arguments for todo_write.
type TodoWriteArgs struct {
	Todos []TodoItem `json:"todos"`
}

// TodoWriteTool describes todo_write. The agent loop owns the list, so
// Execute only validates and summarises.
type TodoWriteTool struct{}

func (TodoWriteTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        TodoWriteToolName,
		Description: "Create or update a task list to track progress on multi-step work. Use this to show the user what tasks need to be done and mark them as completed as you work through them. Each call replaces the entire task list.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"content": map[string]any{
								"type":        "string",
								"description": "Description of the task",
							},
							"status": map[string]any{
								"type":        "string",
								"enum":        []string{string(TodoPending), string(TodoInProgress), string(TodoCompleted)},
								"description": "Current status of the task",
							},
						},
						"required": []string{"content", "status"},
					},
					"description": "The complete list of tasks with their current status",
				},
			},
			"required": []string{"todos"},
		},
	}
}

func (TodoWriteTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	todos, err := ParseTodos(args)
	if err != nil {
		return "", err
	}
	return SummarizeTodos(todos), nil
}

// ParseTodos decodes todo_write arguments. Unknown statuses become pending
// and items without content are dropped.
func ParseTodos(args json.RawMessage) ([]TodoItem, error) {
	var a TodoWriteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	todos := make([]TodoItem, 0, len(a.Todos))
	for _, t := range a.Todos {
		if t.Content == "" {
			continue
		}
		switch t.Status {
		case TodoPending, TodoInProgress, TodoCompleted:
		default:
			t.Status = TodoPending
		}
		todos = append(todos, t)
	}
	return todos, nil
}

// SummarizeTodos is the tool result returned to the model after an update.
func SummarizeTodos(todos []TodoItem) string {
	var done, active int
	for _, t := range todos {
		switch t.Status {
		case TodoCompleted:
			done++
		case TodoInProgress:
			active++
		}
	}
	return fmt.Sprintf("Todo list updated: %d tasks (%d completed, %d in progress, %d pending)",
		len(todos), done, active, len(todos)-done-active)
}
