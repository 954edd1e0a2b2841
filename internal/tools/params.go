package tools

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// decodeArgs unmarshals args into v. Empty args decode as an empty object.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return NewToolErrorf(ErrInvalidParams, "invalid arguments: %v", err)
	}
	return nil
}

// unknownParamsWarning lists keys in args that the tool does not accept, one
// line each, so the model learns it passed something that was ignored.
func unknownParamsWarning(args json.RawMessage, known ...string) string {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return ""
	}
	for _, k := range known {
		delete(m, k)
	}
	if len(m) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&sb, "Unknown parameter '%s' was ignored\n", k)
	}
	return sb.String()
}
