package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const maxGlobResults = 200

// skippedDirs are never descended into by glob, grep or list_directory.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"vendor":       true,
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skippedDirs[name]
}

// GlobTool implements the glob tool.
type GlobTool struct {
	ws *workspace
}

// GlobArgs are the arguments for glob.
type GlobArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

type globEntry struct {
	rel     string
	modTime time.Time
}

func (t *GlobTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        GlobToolName,
		Description: "Find files by glob pattern. Returns one path per line, newest first. Max 200 results. Ignores dotfiles, node_modules and build output. Examples: '**/*.go' for all Go files, 'cmd/**/*_test.go' for tests under cmd.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern to match (e.g., \"**/*.go\", \"internal/**/*.yaml\")",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search in. Defaults to the working directory.",
				},
			},
			"required": []string{"pattern"},
		},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	warning := unknownParamsWarning(args, "pattern", "path")

	var a GlobArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Pattern == "" {
		return "", NewToolError(ErrInvalidParams, "No pattern provided")
	}
	if !doublestar.ValidatePattern(a.Pattern) {
		return "", NewToolErrorf(ErrInvalidParams, "Invalid glob pattern: %s", a.Pattern)
	}

	base := t.ws.resolve(a.Path)
	var entries []globEntry
	truncated := false

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != base && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(a.Pattern, rel); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if len(entries) >= maxGlobResults {
			truncated = true
			return filepath.SkipAll
		}
		entries = append(entries, globEntry{rel: rel, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "walk error: %v", err)
	}

	if len(entries) == 0 {
		return warning + "No files matched the pattern.", nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].modTime.After(entries[j].modTime)
	})

	var sb strings.Builder
	sb.WriteString(warning)
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.rel)
	}
	if truncated {
		fmt.Fprintf(&sb, "\n...(truncated at %d results)", maxGlobResults)
	}
	return sb.String(), nil
}
