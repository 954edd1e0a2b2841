// Package input gathers file context to send alongside a prompt: --file
// specs, @path references typed in the prompt and piped stdin.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/term"
)

// MaxFileSize caps how much of one file is inlined.
const MaxFileSize = 50 * 1024

const truncatedNote = "\n... [file truncated at 50KB]"

var referenceRe = regexp.MustCompile(`@(\S+)`)

// FileContent represents content read from a file or stdin
type FileContent struct {
	Path    string
	Content string
}

// ReadFiles reads content from the given specs, relative to dir.
//   - Glob patterns (e.g., "**/*.go"): expands and reads all matching files
//   - Regular paths: reads file content directly
//   - Line ranges (e.g., "main.go:11-22"): reads only specified lines
func ReadFiles(dir string, specs []string) ([]FileContent, error) {
	var result []FileContent

	for _, raw := range specs {
		spec, err := ParseFileSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid file spec %q: %w", raw, err)
		}

		path := resolvePath(dir, expandPath(spec.Path))

		var matches []string
		if containsGlobChars(spec.Path) {
			matches, err = doublestar.FilepathGlob(path)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", spec.Path, err)
			}
		} else {
			matches = []string{path}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %q: %w", match, err)
			}
			if info.IsDir() {
				continue
			}

			data, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read %q: %w", match, err)
			}

			content := string(data)
			display := match
			if spec.HasRegion {
				content = ExtractLines(content, spec.StartLine, spec.EndLine)
				display = FileSpec{Path: match, StartLine: spec.StartLine, EndLine: spec.EndLine, HasRegion: true}.FormatSpecPath()
			}

			result = append(result, FileContent{Path: display, Content: capSize(content)})
		}
	}

	return result, nil
}

// ResolveReferences strips @path references from text and returns the
// cleaned text with the contents of every readable referenced file.
// Unreadable references are left in the text untouched.
func ResolveReferences(dir, text string) (string, []FileContent) {
	var files []FileContent
	clean := referenceRe.ReplaceAllStringFunc(text, func(ref string) string {
		path := resolvePath(dir, expandPath(strings.TrimPrefix(ref, "@")))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return ref
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ref
		}
		files = append(files, FileContent{Path: path, Content: capSize(string(data))})
		return ""
	})
	if len(files) == 0 {
		return text, nil
	}
	return strings.Join(strings.Fields(clean), " "), files
}

// HasStdin returns true if stdin has data available (not a TTY)
func HasStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode()&os.ModeCharDevice) == 0 || fi.Size() > 0
}

// ReadStdin reads all content from stdin
// Returns empty string if stdin is a TTY or has no data
func ReadStdin() (string, error) {
	if !HasStdin() {
		return "", nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// FormatContext renders files and stdin as the context block sent ahead
// of the user's request.
func FormatContext(files []FileContent, stdin string) string {
	parts := make([]string, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, fmt.Sprintf("<file path=%q>\n%s\n</file>", f.Path, strings.TrimSuffix(f.Content, "\n")))
	}
	if stdin != "" {
		parts = append(parts, "<stdin>\n"+strings.TrimSuffix(stdin, "\n")+"\n</stdin>")
	}
	return strings.Join(parts, "\n\n")
}

func capSize(content string) string {
	if len(content) <= MaxFileSize {
		return content
	}
	return strings.ToValidUTF8(content[:MaxFileSize], "") + truncatedNote
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// containsGlobChars returns true if the path contains glob metacharacters
func containsGlobChars(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
