// Package parser extracts reasoning, visible content and fallback tool calls
// from raw model text. MiniMax models sometimes emit tool invocations inline
// as XML instead of using the structured tool channel; Parse recovers them.
package parser

import (
	"regexp"
	"strings"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
	toolOpen   = "<minimax:tool_call>"
	toolClose  = "</minimax:tool_call>"
)

// knownTags is the whitelist used when deciding whether trailing text is a
// partially streamed tag. Anything else ending in "<..." is ordinary text.
var knownTags = []string{thinkOpen, thinkClose, toolOpen, toolClose}

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	toolBlockRe  = regexp.MustCompile(`(?s)<minimax:tool_call>(.*?)</minimax:tool_call>`)
	invokeRe     = regexp.MustCompile(`(?s)<invoke\s+name=["']?([^"'>\s]+)["']?\s*>(.*?)</invoke>`)
	paramRe      = regexp.MustCompile(`(?s)<parameter\s+name=["']?([^"'>\s]+)["']?\s*>(.*?)</parameter>`)
	partialTagRe = regexp.MustCompile(`</?[a-zA-Z][^<>]*$`)
)

// ToolCall is a tool invocation recovered from inline markup. Invoke and
// parameter names may be double-quoted, single-quoted or bare. Args hold the
// raw parameter text; use CoerceArgs to turn them into a JSON object.
type ToolCall struct {
	Name string
	Args map[string]string
}

// Output is the parsed form of a (possibly partial) model response.
type Output struct {
	Reasoning string
	Content   string
	ToolCalls []ToolCall
	// Pending is set when the text ends inside a recognized tag that has not
	// been closed yet. Content is not final until more text arrives.
	Pending bool
}

// Parse splits raw model output. It holds no state, so callers can re-run it
// on a growing prefix while a response streams in.
func Parse(raw string) Output {
	var out Output
	var reasoning []string

	text := raw
	for _, m := range thinkBlockRe.FindAllStringSubmatch(text, -1) {
		if r := strings.TrimSpace(m[1]); r != "" {
			reasoning = append(reasoning, r)
		}
	}
	text = thinkBlockRe.ReplaceAllString(text, "")

	// A close marker with no opener: the model began its answer already
	// inside the reasoning block.
	if i := strings.Index(text, thinkClose); i >= 0 && !strings.Contains(text[:i], thinkOpen) {
		if r := strings.TrimSpace(text[:i]); r != "" {
			reasoning = append(reasoning, r)
		}
		text = text[i+len(thinkClose):]
	}

	if i := strings.Index(text, thinkOpen); i >= 0 {
		if r := strings.TrimSpace(text[i+len(thinkOpen):]); r != "" {
			reasoning = append(reasoning, r)
		}
		text = text[:i]
		out.Pending = true
	}

	for _, m := range toolBlockRe.FindAllStringSubmatch(text, -1) {
		out.ToolCalls = append(out.ToolCalls, parseInvokes(m[1])...)
	}
	text = toolBlockRe.ReplaceAllString(text, "")

	if i := strings.Index(text, toolOpen); i >= 0 {
		text = text[:i]
		out.Pending = true
	}

	if trimmed, ok := stripPartialTag(text); ok {
		text = trimmed
		out.Pending = true
	}

	out.Reasoning = strings.Join(reasoning, "\n")
	out.Content = strings.TrimSpace(text)
	return out
}

func parseInvokes(block string) []ToolCall {
	var calls []ToolCall
	for _, inv := range invokeRe.FindAllStringSubmatch(block, -1) {
		name := strings.TrimSpace(inv[1])
		if name == "" {
			continue
		}
		args := make(map[string]string)
		for _, p := range paramRe.FindAllStringSubmatch(inv[2], -1) {
			args[strings.TrimSpace(p[1])] = strings.TrimSpace(p[2])
		}
		calls = append(calls, ToolCall{Name: name, Args: args})
	}
	return calls
}

// stripPartialTag removes a trailing fragment that is the beginning of one of
// the known tags, e.g. "Done.<th" or "</minimax:too". Case is ignored.
func stripPartialTag(text string) (string, bool) {
	loc := partialTagRe.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	frag := strings.ToLower(text[loc[0]:])
	for _, tag := range knownTags {
		if len(frag) < len(tag) && strings.HasPrefix(tag, frag) {
			return text[:loc[0]], true
		}
	}
	return text, false
}
