package mcp

import (
	"fmt"
	"os"
	"sort"
)

// ServerConfig describes how to launch a stdio MCP server.
type ServerConfig struct {
	Command string            `mapstructure:"command" yaml:"command" json:"command"`
	Args    []string          `mapstructure:"args" yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `mapstructure:"env" yaml:"env,omitempty" json:"env,omitempty"`
}

// Validate checks that the server configuration is usable.
func (c ServerConfig) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

// environ returns the parent environment with the configured overrides
// appended, in a stable order.
func (c ServerConfig) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+os.ExpandEnv(c.Env[k]))
	}
	return env
}

// SortedNames returns the server names of servers in sorted order.
func SortedNames(servers map[string]ServerConfig) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
