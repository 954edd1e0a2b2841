package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const (
	defaultBashTimeout = 30 * time.Second
	maxBashTimeout     = 300 * time.Second
	maxBashOutput      = 10_000
)

// BashTool runs a shell command in the workspace.
type BashTool struct {
	ws *workspace
}

// BashArgs are the arguments for bash.
type BashArgs struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout,omitempty"`
}

func (t *BashTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        BashToolName,
		Description: "Execute a bash command. Use for: running scripts, git operations, installing packages, or any terminal task. Timeout: 30s. Output truncated at 10KB. Prefer other tools over bash when possible (e.g., use read_file instead of cat, glob instead of find).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The bash command to execute",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds (default: 30, max: 300)",
				},
			},
			"required": []string{"command"},
		},
	}
}

func (t *BashTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a BashArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Command) == "" {
		return "", NewToolError(ErrInvalidParams, "No command provided")
	}

	timeout := defaultBashTimeout
	if a.TimeoutSeconds > 0 {
		timeout = min(time.Duration(a.TimeoutSeconds)*time.Second, maxBashTimeout)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, detectShell(), "-c", a.Command)
	cmd.Dir = t.ws.dir
	// Background children can hold the pipes open after the shell exits.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return "", NewToolErrorf(ErrTimeout, "Command timed out after %d seconds", int(timeout/time.Second))
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", NewToolErrorf(ErrExecutionFailed, "Error executing command: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return formatBashOutput(stdout.String(), stderr.String(), exitCode), nil
}

// formatBashOutput renders stdout, then stderr, then a non-zero exit code.
func formatBashOutput(stdout, stderr string, exitCode int) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, capOutput(stdout))
	}
	if stderr != "" {
		parts = append(parts, "stderr: "+capOutput(stderr))
	}
	if exitCode != 0 {
		parts = append(parts, fmt.Sprintf("Exit code: %d", exitCode))
	}
	if len(parts) == 0 {
		return "(no output)"
	}
	return strings.Join(parts, "\n")
}

func capOutput(s string) string {
	if len(s) <= maxBashOutput {
		return s
	}
	return truncateBytes(s, maxBashOutput) + "...(truncated)"
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// detectShell prefers bash and falls back to sh.
func detectShell() string {
	if path, err := exec.LookPath("bash"); err == nil {
		return path
	}
	return "sh"
}
