package compress

import "github.com/samsaffron/minmax-code/internal/llm"

const (
	// RecentWindow is the number of trailing messages (about three turns)
	// sent to the model untouched.
	RecentWindow = 6

	toolResultLimit = 2000
	toolResultKeep  = 500
	truncatedMarker = "\n...[truncated]"
)

// TrimForRequest returns a copy of history prepared for sending. Messages
// before the recent window lose their reasoning and long tool results are
// cut down. Tool results without a matching call and calls without a result
// are dropped so the request stays well-formed. history is not modified.
func TrimForRequest(history []llm.Message) []llm.Message {
	out := make([]llm.Message, len(history))
	copy(out, history)

	cutoff := len(out) - RecentWindow
	for i := 0; i < cutoff; i++ {
		m := &out[i]
		m.Reasoning = nil
		if m.Role == llm.RoleTool && len(m.Content) > toolResultLimit {
			m.Content = truncateUTF8(m.Content, toolResultKeep) + truncatedMarker
		}
	}
	return pairToolMessages(out)
}

// pairToolMessages removes orphan tool results and tool calls that never got
// a result.
func pairToolMessages(messages []llm.Message) []llm.Message {
	answered := make(map[string]bool)
	called := make(map[string]bool)
	for _, m := range messages {
		switch m.Role {
		case llm.RoleAssistant:
			for _, tc := range m.ToolCalls {
				called[tc.ID] = true
			}
		case llm.RoleTool:
			if called[m.ToolCallID] {
				answered[m.ToolCallID] = true
			}
		}
	}

	out := messages[:0]
	for _, m := range messages {
		switch m.Role {
		case llm.RoleTool:
			if !answered[m.ToolCallID] {
				continue
			}
		case llm.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				kept := make([]llm.ToolCall, 0, len(m.ToolCalls))
				for _, tc := range m.ToolCalls {
					if answered[tc.ID] {
						kept = append(kept, tc)
					}
				}
				m.ToolCalls = kept
				if len(kept) == 0 && m.Content == "" {
					continue
				}
			}
		}
		out = append(out, m)
	}
	return out
}
