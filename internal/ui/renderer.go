package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samsaffron/minmax-code/internal/agent"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/parser"
	"github.com/samsaffron/minmax-code/internal/tools"
)

const (
	maxArgSummary    = 60
	maxResultPreview = 3
)

// Renderer prints agent events as a scrolling transcript. With Markdown
// set, content is rendered through glamour once a response completes;
// otherwise it streams as plain text.
type Renderer struct {
	out      io.Writer
	styles   *Styles
	markdown bool
	width    int

	raw         strings.Builder
	printed     string
	inReasoning bool
	lineOpen    bool
	usage       llm.Usage
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer, styles *Styles, markdown bool, width int) *Renderer {
	if styles == nil {
		styles = NewStyles(out, nil)
	}
	if width <= 0 {
		width = 80
	}
	return &Renderer{out: out, styles: styles, markdown: markdown, width: width}
}

// Handle renders one event. AskUser is left to the caller.
func (r *Renderer) Handle(ev agent.Event) {
	switch e := ev.(type) {
	case agent.StreamStart:
		r.raw.Reset()
		r.printed = ""
		r.inReasoning = false
	case agent.ReasoningChunk:
		if !r.inReasoning {
			r.endLine()
			r.inReasoning = true
		}
		r.write(renderInline(r.styles.Reasoning, e.Text))
	case agent.ContentChunk:
		r.raw.WriteString(e.Text)
		if r.markdown {
			return
		}
		r.streamContent(parser.Parse(r.raw.String()).Content)
	case agent.ToolCallsUpdate:
	case agent.StreamEnd:
		r.finishContent(e.Content)
	case agent.ToolExecutionStart:
		if e.Name == tools.AskUserToolName || e.Name == tools.TodoWriteToolName {
			return
		}
		r.endLine()
		line := r.styles.Tool.Render(ToolIcon+" "+e.Name) + r.styles.Muted.Render(summarizeArgs(e.Args))
		fmt.Fprintln(r.out, line)
	case agent.ToolExecutionDone:
		if e.Name == tools.TodoWriteToolName {
			return
		}
		r.endLine()
		r.printResult(e.Name, e.Result)
	case agent.TodoUpdate:
		r.endLine()
		r.printTodos(e.Todos)
	case agent.TokenUsage:
		r.usage = e.Total
	case agent.ContextCompressed:
		r.endLine()
		fmt.Fprintln(r.out, r.styles.Muted.Render(fmt.Sprintf(
			"Context compressed: ~%d → ~%d tokens (%d messages summarized)",
			e.BeforeTokens, e.AfterTokens, e.Summarized)))
	case agent.Warning:
		r.endLine()
		fmt.Fprintln(r.out, r.styles.Warning.Render("warning: "+e.Message))
	case agent.ErrorEvent:
		r.endLine()
		fmt.Fprintln(r.out, r.styles.Error.Render("error: "+e.Message))
	case agent.TurnComplete:
		r.endLine()
		if e.Cancelled {
			fmt.Fprintln(r.out, r.styles.Warning.Render("(cancelled)"))
		}
		if r.usage.TotalTokens > 0 {
			fmt.Fprintln(r.out, r.styles.Muted.Render(fmt.Sprintf("%s tokens", FormatCount(r.usage.TotalTokens))))
		}
	case agent.AskUser:
	}
}

// streamContent prints the part of the parsed content not yet shown. Text
// that later turns out to be markup is held back by the parser.
func (r *Renderer) streamContent(content string) {
	if !strings.HasPrefix(content, r.printed) {
		return
	}
	delta := content[len(r.printed):]
	if delta == "" {
		return
	}
	if r.inReasoning {
		r.endLine()
		r.inReasoning = false
	}
	r.write(delta)
	r.printed = content
}

func (r *Renderer) finishContent(content string) {
	if r.inReasoning {
		r.endLine()
		r.inReasoning = false
	}
	if content == "" {
		return
	}
	if r.markdown {
		r.endLine()
		fmt.Fprintln(r.out, RenderMarkdown(content, r.width))
		return
	}
	if strings.HasPrefix(content, r.printed) {
		r.write(content[len(r.printed):])
	} else {
		r.endLine()
		r.write(content)
	}
	r.printed = content
	r.endLine()
}

func (r *Renderer) printResult(name, result string) {
	prefix := "  " + r.styles.Muted.Render(ResultIcon) + " "
	if strings.HasPrefix(result, "Error:") {
		fmt.Fprintln(r.out, prefix+r.styles.Error.Render(firstLine(result)))
		return
	}
	if name == tools.EditFileToolName {
		head, diff, found := strings.Cut(result, "\n")
		fmt.Fprintln(r.out, prefix+head)
		if diff = strings.TrimLeft(diff, "\n"); found && diff != "" {
			fmt.Fprintln(r.out, ColorizeDiff(r.styles, diff))
		}
		return
	}
	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	shown := lines
	if len(shown) > maxResultPreview {
		shown = shown[:maxResultPreview]
	}
	for i, l := range shown {
		if i == 0 {
			fmt.Fprintln(r.out, prefix+Truncate(l, r.width-4))
		} else {
			fmt.Fprintln(r.out, "    "+Truncate(l, r.width-4))
		}
	}
	if extra := len(lines) - len(shown); extra > 0 {
		fmt.Fprintln(r.out, r.styles.Muted.Render(fmt.Sprintf("    … +%d lines", extra)))
	}
}

func (r *Renderer) printTodos(todos []tools.TodoItem) {
	fmt.Fprintln(r.out, r.styles.Title.Render("Tasks"))
	for _, t := range todos {
		switch t.Status {
		case tools.TodoCompleted:
			fmt.Fprintln(r.out, r.styles.Success.Render("  [x] ")+r.styles.Muted.Render(t.Content))
		case tools.TodoInProgress:
			fmt.Fprintln(r.out, r.styles.Warning.Render("  [~] ")+r.styles.Bold.Render(t.Content))
		default:
			fmt.Fprintln(r.out, "  [ ] "+t.Content)
		}
	}
}

func (r *Renderer) write(s string) {
	if s == "" {
		return
	}
	io.WriteString(r.out, s)
	r.lineOpen = !strings.HasSuffix(s, "\n")
}

func (r *Renderer) endLine() {
	if r.lineOpen {
		io.WriteString(r.out, "\n")
		r.lineOpen = false
	}
}

// renderInline styles each line of text separately so partial lines are not
// padded to a common width.
func renderInline(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

// summarizeArgs renders tool arguments as a short "(key=value, ...)" list.
func summarizeArgs(args string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(args), &m); err != nil || len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := m[k].(type) {
		case string:
			v = val
		default:
			b, _ := json.Marshal(val)
			v = string(b)
		}
		parts = append(parts, k+"="+firstLine(v))
	}
	return "(" + Truncate(strings.Join(parts, ", "), maxArgSummary) + ")"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// FormatCount formats a number in compact form (e.g., 950, 1.2k, 3.4M)
func FormatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		val := float64(n) / 1000
		if val == float64(int(val)) {
			return fmt.Sprintf("%dk", int(val))
		}
		return fmt.Sprintf("%.1fk", val)
	}
	val := float64(n) / 1000000
	if val == float64(int(val)) {
		return fmt.Sprintf("%dM", int(val))
	}
	return fmt.Sprintf("%.1fM", val)
}
