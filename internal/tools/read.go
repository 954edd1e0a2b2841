package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const defaultReadLines = 2000

// ReadFileTool implements the read_file tool.
type ReadFileTool struct {
	ws *workspace
}

// ReadFileArgs are the arguments for read_file. StartLine and EndLine are
// 1-indexed and inclusive.
type ReadFileArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

func (t *ReadFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ReadFileToolName,
		Description: "Read a file's contents with line numbers. Returns numbered lines (format: '1\\tline content'). Files over 2000 lines are automatically truncated. Use start_line/end_line for large files.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Absolute or relative path to the file",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "Starting line number (1-based). Optional.",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "Ending line number (1-based, inclusive). Optional.",
				},
			},
			"required": []string{"path"},
		},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a ReadFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Path == "" {
		return "", NewToolError(ErrInvalidParams, "No path provided")
	}

	data, err := os.ReadFile(t.ws.resolve(a.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewToolErrorf(ErrFileNotFound, "File not found: %s", a.Path)
		}
		return "", NewToolErrorf(ErrExecutionFailed, "Error reading file: %v", err)
	}
	if isBinaryContent(data) {
		return "", NewToolErrorf(ErrBinaryFile, "%s appears to be a binary file", a.Path)
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	if a.StartLine > 0 || a.EndLine > 0 {
		start := max(a.StartLine, 1) - 1
		end := total
		if a.EndLine > 0 && a.EndLine < total {
			end = a.EndLine
		}
		if start >= end {
			return "No content in requested range.", nil
		}
		return numberLines(lines[start:end], start), nil
	}

	if total > defaultReadLines {
		return fmt.Sprintf("%s\n...(file has %d lines, showing first %d)",
			numberLines(lines[:defaultReadLines], 0), total, defaultReadLines), nil
	}
	return numberLines(lines, 0), nil
}

func numberLines(lines []string, offset int) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d\t%s", offset+i+1, line)
	}
	return sb.String()
}

// isBinaryContent detects if content is binary using http.DetectContentType.
func isBinaryContent(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}

	contentType := http.DetectContentType(sample)
	if strings.HasPrefix(contentType, "text/") {
		return false
	}
	if strings.Contains(contentType, "json") || strings.Contains(contentType, "xml") {
		return false
	}

	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
