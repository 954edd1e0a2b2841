package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	diff "github.com/shogoki/gotextdiff"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// maxDiffBytes bounds the diff appended to an edit result.
const maxDiffBytes = 4000

// EditFileTool implements the edit_file tool.
type EditFileTool struct {
	ws *workspace
	mu sync.Mutex
}

// EditFileArgs are the arguments for edit_file.
type EditFileArgs struct {
	Path       string `json:"path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

func (t *EditFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        EditFileToolName,
		Description: "Replace an exact string in a file. old_string must match exactly once (including whitespace/indentation) unless replace_all is set. If it appears 0 or more than 1 times, the edit fails; add surrounding context to make it unique. Preferred over write_file for modifying existing files. Returns a unified diff.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to edit",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "The exact string to find and replace. Must be unique in the file.",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "The replacement string",
				},
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence instead of requiring a unique match",
				},
			},
			"required": []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a EditFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Path == "" {
		return "", NewToolError(ErrInvalidParams, "No path provided")
	}
	if a.OldString == "" {
		return "", NewToolError(ErrInvalidParams, "old_string must not be empty")
	}

	// Parallel tool calls may target the same file.
	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.ws.resolve(a.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewToolErrorf(ErrFileNotFound, "File not found: %s", a.Path)
		}
		return "", NewToolErrorf(ErrExecutionFailed, "Error reading file: %v", err)
	}
	content := string(data)

	count := strings.Count(content, a.OldString)
	switch {
	case count == 0:
		return "", NewToolErrorf(ErrNotFound, "old_string not found in %s", a.Path)
	case count > 1 && !a.ReplaceAll:
		return "", NewToolErrorf(ErrInvalidParams,
			"old_string found %d times in %s. It must be unique. Add more context to make it unique, or set replace_all.", count, a.Path)
	}

	var updated string
	if a.ReplaceAll {
		updated = strings.ReplaceAll(content, a.OldString, a.NewString)
	} else {
		updated = strings.Replace(content, a.OldString, a.NewString, 1)
	}
	if err := writeFileAtomic(path, []byte(updated)); err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "Error writing file: %v", err)
	}

	var sb strings.Builder
	if a.ReplaceAll && count > 1 {
		fmt.Fprintf(&sb, "File edited successfully: %s (%d replacements)", a.Path, count)
	} else {
		fmt.Fprintf(&sb, "File edited successfully: %s", a.Path)
	}
	if d := unifiedDiff(a.Path, content, updated); d != "" {
		sb.WriteString("\n\n")
		sb.WriteString(d)
	}
	return sb.String(), nil
}

// unifiedDiff renders a unified diff of the change, cut at maxDiffBytes.
func unifiedDiff(path, before, after string) string {
	out := string(diff.Diff(path, []byte(before), path, []byte(after)))
	if len(out) > maxDiffBytes {
		out = truncateBytes(out, maxDiffBytes) + "\n...(diff truncated)"
	}
	return strings.TrimRight(out, "\n")
}
