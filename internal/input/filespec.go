package input

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// fileSpecRe splits "path[:start-end]". Either bound may be empty.
var fileSpecRe = regexp.MustCompile(`^(.+?)(?::(\d*)-(\d*))?$`)

// FileSpec is a --file argument: a path with an optional line range.
type FileSpec struct {
	Path      string
	StartLine int // 1-based; 0 means the first line
	EndLine   int // 1-based, inclusive; 0 means the last line
	HasRegion bool
}

// ParseFileSpec parses "main.go", "main.go:11-22", "main.go:11-" or
// "main.go:-22". A colon not followed by a range stays part of the path.
func ParseFileSpec(spec string) (FileSpec, error) {
	m := fileSpecRe.FindStringSubmatch(spec)
	if m == nil {
		return FileSpec{}, fmt.Errorf("invalid file spec: %s", spec)
	}
	fs := FileSpec{Path: m[1]}
	fs.HasRegion = m[2] != "" || m[3] != "" || strings.HasSuffix(spec, ":-")
	if !fs.HasRegion {
		return fs, nil
	}

	var err error
	if fs.StartLine, err = lineBound(m[2]); err != nil {
		return FileSpec{}, fmt.Errorf("invalid start line: %s", m[2])
	}
	if fs.EndLine, err = lineBound(m[3]); err != nil {
		return FileSpec{}, fmt.Errorf("invalid end line: %s", m[3])
	}
	return fs, nil
}

func lineBound(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// ExtractLines returns lines startLine through endLine of content, using
// the same bound conventions as FileSpec. Out-of-range bounds are clamped;
// an empty range yields "".
func ExtractLines(content string, startLine, endLine int) string {
	lines := strings.Split(content, "\n")

	from := max(startLine-1, 0)
	to := len(lines)
	if endLine > 0 {
		to = min(endLine, len(lines))
	}
	if from >= to {
		return ""
	}
	return strings.Join(lines[from:to], "\n")
}

// FormatSpecPath renders the spec for display, e.g. "main.go:11-22".
func (fs FileSpec) FormatSpecPath() string {
	if !fs.HasRegion {
		return fs.Path
	}
	return fmt.Sprintf("%s:%d-%d", fs.Path, fs.StartLine, fs.EndLine)
}
