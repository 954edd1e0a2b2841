package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// Tool is a locally executed capability.
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Options configures the built-in tools.
type Options struct {
	// WorkDir is where relative paths resolve and commands run. Defaults to
	// the process working directory.
	WorkDir string
	// APIKey and BaseURL are used by web_search.
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Registry holds the local tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry returns a registry with every built-in tool registered.
func NewRegistry(opts Options) *Registry {
	ws := newWorkspace(opts.WorkDir)
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(&BashTool{ws: ws})
	r.Register(&ReadFileTool{ws: ws})
	r.Register(&WriteFileTool{ws: ws})
	r.Register(&EditFileTool{ws: ws})
	r.Register(&GlobTool{ws: ws})
	r.Register(&GrepTool{ws: ws})
	r.Register(&ListDirectoryTool{ws: ws})
	r.Register(NewWebSearchTool(opts.APIKey, opts.BaseURL, opts.HTTPClient))
	r.Register(AskUserTool{})
	r.Register(TodoWriteTool{})
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the definitions available in mode.
func (r *Registry) Definitions(mode Mode) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if mode == ModePlan && !IsReadOnly(name) {
			continue
		}
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. Failures come back as "Error: ..." text.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, mode Mode) string {
	if mode == ModePlan && !IsReadOnly(name) {
		return fmt.Sprintf("Error: Tool %q is not available in PLAN mode. Switch to BUILDER mode to use it.", name)
	}
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Error: Unknown tool %q", name)
	}
	out, err := t.Execute(ctx, args)
	if err != nil {
		slog.Debug("tool failed", "tool", name, "error", err)
		return FormatError(err)
	}
	return out
}

// workspace resolves tool paths against a base directory.
type workspace struct {
	dir string
}

func newWorkspace(dir string) *workspace {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	return &workspace{dir: dir}
}

func (w *workspace) resolve(path string) string {
	if path == "" {
		return w.dir
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.dir, path)
}

// display returns path relative to the workspace when it lies inside it.
func (w *workspace) display(path string) string {
	if rel, err := filepath.Rel(w.dir, path); err == nil && !filepath.IsAbs(rel) && !startsWithDotDot(rel) {
		return rel
	}
	return path
}

func startsWithDotDot(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
