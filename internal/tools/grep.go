package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const (
	maxGrepMatches = 200
	maxGrepOutput  = 10_000
)

// GrepTool implements the grep tool.
type GrepTool struct {
	ws *workspace
}

// GrepArgs are the arguments for grep.
type GrepArgs struct {
	Pattern      string `json:"pattern"`
	Path         string `json:"path,omitempty"`
	Include      string `json:"include,omitempty"`
	ContextLines int    `json:"context_lines,omitempty"`
}

// grepMatch is a single matching line.
type grepMatch struct {
	file    string
	line    int
	text    string
	context string
}

func (t *GrepTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        GrepToolName,
		Description: "Search file contents by regex. Returns 'path:line: content' per match. Max 200 matches. Skips node_modules and dotfiles. Use 'include' to filter file names, e.g. include='*.go'. Use context_lines for surrounding context.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regex pattern to search for (RE2 syntax)",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "File or directory to search in. Defaults to the working directory.",
				},
				"include": map[string]any{
					"type":        "string",
					"description": "File name glob filter (e.g., \"*.go\", \"*.{ts,tsx}\")",
				},
				"context_lines": map[string]any{
					"type":        "integer",
					"description": "Number of context lines before and after each match. Default 0.",
				},
			},
			"required": []string{"pattern"},
		},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var a GrepArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Pattern == "" {
		return "", NewToolError(ErrInvalidParams, "No pattern provided")
	}
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return "", NewToolErrorf(ErrInvalidParams, "Invalid regex pattern: %v", err)
	}

	searchPath := t.ws.resolve(a.Path)
	files, err := collectFiles(searchPath, a.Include)
	if err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "failed to collect files: %v", err)
	}
	sortFilesByMtime(files)

	var matches []grepMatch
	for _, file := range files {
		if ctx.Err() != nil {
			return "grep timed out after 1 minute; try a more specific pattern or path", nil
		}
		if len(matches) >= maxGrepMatches {
			break
		}
		found, err := searchFile(file, re, maxGrepMatches-len(matches), a.ContextLines)
		if err != nil {
			continue
		}
		for i := range found {
			found[i].file = t.ws.display(found[i].file)
		}
		matches = append(matches, found...)
	}

	if len(matches) == 0 {
		return "No matches found.", nil
	}
	return formatGrepResults(matches, len(matches) >= maxGrepMatches), nil
}

// collectFiles lists the files under searchPath whose base name matches include.
func collectFiles(searchPath, include string) ([]string, error) {
	info, err := os.Stat(searchPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{searchPath}, nil
	}

	var files []string
	err = filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != searchPath && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if include != "" {
			if ok, err := doublestar.Match(include, d.Name()); err != nil || !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// sortFilesByMtime sorts files by modification time (newest first).
func sortFilesByMtime(files []string) {
	mtimes := make(map[string]int64, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			mtimes[f] = info.ModTime().UnixNano()
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return mtimes[files[i]] > mtimes[files[j]]
	})
}

// searchFile returns up to maxMatches matching lines from a text file.
func searchFile(path string, re *regexp.Regexp, maxMatches, contextLines int) ([]grepMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isBinaryContent(data) {
		return nil, fmt.Errorf("binary file")
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var matches []grepMatch
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		m := grepMatch{file: path, line: i + 1, text: strings.TrimRight(line, " \t\r")}
		if contextLines > 0 {
			m.context = buildContext(lines, i, contextLines)
		}
		matches = append(matches, m)
		if len(matches) >= maxMatches {
			break
		}
	}
	return matches, nil
}

// buildContext builds context lines around a match.
func buildContext(lines []string, matchIdx, contextLines int) string {
	start := max(matchIdx-contextLines, 0)
	end := min(matchIdx+contextLines+1, len(lines))

	var sb strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i == matchIdx {
			prefix = "> "
		}
		fmt.Fprintf(&sb, "%s%d: %s\n", prefix, i+1, lines[i])
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// formatGrepResults formats grep results for the model.
func formatGrepResults(matches []grepMatch, truncated bool) string {
	var sb strings.Builder
	for i, m := range matches {
		if m.context != "" {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "--- %s ---\n%s", m.file, m.context)
			continue
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s:%d: %s", m.file, m.line, m.text)
	}
	if truncated {
		fmt.Fprintf(&sb, "\n...(truncated at %d matches)", maxGrepMatches)
	}

	out := sb.String()
	if len(out) > maxGrepOutput {
		out = truncateBytes(out, maxGrepOutput) + "...(truncated)"
	}
	return out
}
