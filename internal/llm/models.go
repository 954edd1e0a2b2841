package llm

import "slices"

// DefaultModel is used when no model is configured.
const DefaultModel = "MiniMax-M2.5"

// Models lists the chat models offered by the coding plan.
var Models = []string{
	"MiniMax-M2.5",
	"MiniMax-M2.5-highspeed",
	"MiniMax-M2.1",
	"MiniMax-M2.1-highspeed",
}

// IsKnownModel reports whether name is in Models.
func IsKnownModel(name string) bool {
	return slices.Contains(Models, name)
}
