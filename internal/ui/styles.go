// Package ui renders agent output in the terminal.
package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the UI
type Theme struct {
	Primary   lipgloss.Color // tool names, highlights
	Secondary lipgloss.Color // headers
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Muted     lipgloss.Color // reasoning, hints
	Text      lipgloss.Color
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#b8bb26"),
		Secondary: lipgloss.Color("#83a598"),
		Success:   lipgloss.Color("#b8bb26"),
		Error:     lipgloss.Color("#fb4934"),
		Warning:   lipgloss.Color("#fabd2f"),
		Muted:     lipgloss.Color("#928374"),
		Text:      lipgloss.Color("#ebdbb2"),
	}
}

// Status indicators
const (
	ToolIcon    = "●"
	ResultIcon  = "⎿"
	SuccessIcon = "✓"
	FailIcon    = "✗"
)

// Styles holds lipgloss styles bound to one output.
type Styles struct {
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Bold      lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Tool      lipgloss.Style
	Prompt    lipgloss.Style
	DiffAdd   lipgloss.Style
	DiffDel   lipgloss.Style
	DiffHunk  lipgloss.Style
	Reasoning lipgloss.Style
}

// NewStyles creates styles for w. Color output follows the terminal
// capabilities lipgloss detects for w.
func NewStyles(w io.Writer, theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	r := lipgloss.NewRenderer(w)
	return &Styles{
		Title:     r.NewStyle().Bold(true).Foreground(theme.Secondary),
		Muted:     r.NewStyle().Foreground(theme.Muted),
		Bold:      r.NewStyle().Bold(true),
		Success:   r.NewStyle().Foreground(theme.Success),
		Error:     r.NewStyle().Foreground(theme.Error),
		Warning:   r.NewStyle().Foreground(theme.Warning),
		Tool:      r.NewStyle().Bold(true).Foreground(theme.Primary),
		Prompt:    r.NewStyle().Bold(true).Foreground(theme.Secondary),
		DiffAdd:   r.NewStyle().Foreground(theme.Success),
		DiffDel:   r.NewStyle().Foreground(theme.Error),
		DiffHunk:  r.NewStyle().Foreground(theme.Secondary),
		Reasoning: r.NewStyle().Italic(true).Foreground(theme.Muted),
	}
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens a string to maxLen runes with ellipsis
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
