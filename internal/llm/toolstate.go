package llm

import (
	"sort"
	"strings"
)

// toolCallAccumulator assembles tool calls from streamed deltas. Argument
// fragments are appended; id and name keep their first non-empty value.
type toolCallAccumulator struct {
	byIndex map[int]*toolCallState
	order   []int
}

type toolCallState struct {
	id   string
	name string
	args strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*toolCallState)}
}

func (s *toolCallAccumulator) Add(calls []oaiToolCall) {
	for _, call := range calls {
		idx := call.Index
		state, ok := s.byIndex[idx]
		if !ok {
			state = &toolCallState{}
			s.byIndex[idx] = state
			s.order = append(s.order, idx)
		}
		if state.id == "" && call.ID != "" {
			state.id = call.ID
		}
		if state.name == "" && call.Function.Name != "" {
			state.name = call.Function.Name
		}
		if call.Function.Arguments != "" {
			state.args.WriteString(call.Function.Arguments)
		}
	}
}

func (s *toolCallAccumulator) Len() int {
	return len(s.order)
}

// Calls returns a snapshot of all calls ordered by index.
func (s *toolCallAccumulator) Calls() []ToolCall {
	if len(s.order) == 0 {
		return nil
	}
	sort.Ints(s.order)
	calls := make([]ToolCall, 0, len(s.order))
	for _, idx := range s.order {
		state := s.byIndex[idx]
		calls = append(calls, ToolCall{
			ID:        state.id,
			Name:      state.name,
			Arguments: state.args.String(),
		})
	}
	return calls
}
