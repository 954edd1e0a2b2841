package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const (
	maxListDepth   = 5
	maxListEntries = 1000
)

// ListDirectoryTool implements the list_directory tool.
type ListDirectoryTool struct {
	ws *workspace
}

// ListDirectoryArgs are the arguments for list_directory.
type ListDirectoryArgs struct {
	Path     string `json:"path,omitempty"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

func (t *ListDirectoryTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ListDirectoryToolName,
		Description: "List directory contents with file sizes. Directories end with '/'. Default max_depth=1 (non-recursive). Set max_depth=2 or 3 to see nested structure.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path to list. Defaults to the working directory.",
				},
				"max_depth": map[string]any{
					"type":        "integer",
					"description": "Maximum depth to recurse. Default 1 (non-recursive).",
				},
			},
		},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a ListDirectoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	depth := a.MaxDepth
	if depth <= 0 {
		depth = 1
	}
	depth = min(depth, maxListDepth)

	dir := t.ws.resolve(a.Path)
	info, err := os.Stat(dir)
	if err != nil {
		return "", NewToolErrorf(ErrFileNotFound, "Directory not found: %s", a.Path)
	}
	if !info.IsDir() {
		return "", NewToolErrorf(ErrInvalidParams, "Not a directory: %s", a.Path)
	}

	var lines []string
	listRecursive(dir, depth, 0, &lines)
	if len(lines) == 0 {
		return "Directory is empty.", nil
	}
	if len(lines) > maxListEntries {
		lines = append(lines[:maxListEntries], fmt.Sprintf("...(truncated at %d entries)", maxListEntries))
	}
	return strings.Join(lines, "\n"), nil
}

// listRecursive appends one indented line per entry. depth counts levels
// below dir that are still listed.
func listRecursive(dir string, maxDepth, depth int, out *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		*out = append(*out, fmt.Sprintf("Error reading %s: %v", dir, err))
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && depth == 0 {
			continue
		}
		if e.IsDir() {
			*out = append(*out, indent+name+"/")
			if depth+1 < maxDepth && !skipDir(name) {
				listRecursive(filepath.Join(dir, name), maxDepth, depth+1, out)
			}
			continue
		}
		size := ""
		if info, err := e.Info(); err == nil {
			size = formatSize(info.Size())
		}
		*out = append(*out, fmt.Sprintf("%s%s (%s)", indent, name, size))
	}
}

// formatSize formats a byte count as human-readable.
func formatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%dB", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
	}
}
