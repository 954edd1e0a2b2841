// Package tools implements the local tools the agent can call.
package tools

import "fmt"

// Mode selects which tools the model may use.
type Mode string

const (
	// ModeBuilder allows every tool.
	ModeBuilder Mode = "builder"
	// ModePlan allows only tools that do not change the workspace.
	ModePlan Mode = "plan"
)

// ParseMode converts a config or flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBuilder, "":
		return ModeBuilder, nil
	case ModePlan:
		return ModePlan, nil
	}
	return "", fmt.Errorf("unknown mode %q (want builder or plan)", s)
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModePlan {
		return ModeBuilder
	}
	return ModePlan
}

// Tool names
const (
	BashToolName          = "bash"
	ReadFileToolName      = "read_file"
	WriteFileToolName     = "write_file"
	EditFileToolName      = "edit_file"
	GlobToolName          = "glob"
	GrepToolName          = "grep"
	ListDirectoryToolName = "list_directory"
	WebSearchToolName     = "web_search"
	AskUserToolName       = "ask_user"
	TodoWriteToolName     = "todo_write"
)

// readOnlyTools are available in plan mode.
var readOnlyTools = map[string]bool{
	ReadFileToolName:      true,
	GlobToolName:          true,
	GrepToolName:          true,
	ListDirectoryToolName: true,
	WebSearchToolName:     true,
	AskUserToolName:       true,
	TodoWriteToolName:     true,
}

// IsReadOnly reports whether name may run in plan mode.
func IsReadOnly(name string) bool {
	return readOnlyTools[name]
}

// ToolErrorType classifies tool failures.
type ToolErrorType string

const (
	ErrFileNotFound     ToolErrorType = "FILE_NOT_FOUND"
	ErrInvalidParams    ToolErrorType = "INVALID_PARAMS"
	ErrExecutionFailed  ToolErrorType = "EXECUTION_FAILED"
	ErrPermissionDenied ToolErrorType = "PERMISSION_DENIED"
	ErrBinaryFile       ToolErrorType = "BINARY_FILE"
	ErrTimeout          ToolErrorType = "TIMEOUT"
	ErrNotFound         ToolErrorType = "NOT_FOUND"
)

// ToolError is a failure reported back to the model as text.
type ToolError struct {
	Type    ToolErrorType
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...any) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// FormatError renders err the way tool failures are shown to the model.
func FormatError(err error) string {
	return "Error: " + err.Error()
}
