package parser

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceArg converts a raw parameter string into the JSON value it most
// likely represents.
func CoerceArg(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// CoerceArgs builds a JSON object from raw parameters, coercing each value.
func CoerceArgs(args map[string]string) json.RawMessage {
	obj := make(map[string]any, len(args))
	for k, v := range args {
		obj[k] = CoerceArg(v)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
