package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// ToolPrefix starts the name of every tool served over MCP.
const ToolPrefix = "mcp__"

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultCallTimeout      = 30 * time.Second
)

// PrefixedName returns the model-facing name for a server's tool.
func PrefixedName(server, tool string) string {
	return ToolPrefix + server + "__" + tool
}

// IsMCPTool reports whether name belongs to an MCP server.
func IsMCPTool(name string) bool {
	return strings.HasPrefix(name, ToolPrefix)
}

// ToolInfo is a tool discovered on a server.
type ToolInfo struct {
	Server      string
	Tool        string
	Description string
	InputSchema map[string]any
}

// ServerStatus represents the current state of an MCP server.
type ServerStatus string

const (
	StatusReady  ServerStatus = "ready"
	StatusFailed ServerStatus = "failed"
)

// ServerState is the outcome of connecting to one server.
type ServerState struct {
	Name   string
	Status ServerStatus
	Tools  int
	Error  error
}

// Manager owns the MCP server processes and routes tool calls to them.
type Manager struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	tools    map[string]ToolInfo
	statuses map[string]ServerState

	handshakeTimeout time.Duration
	callTimeout      time.Duration
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		clients:          make(map[string]*Client),
		tools:            make(map[string]ToolInfo),
		statuses:         make(map[string]ServerState),
		handshakeTimeout: defaultHandshakeTimeout,
		callTimeout:      defaultCallTimeout,
	}
}

// ConnectAll connects every configured server. Failures are logged and
// recorded in Statuses; the names of all discovered tools are returned.
func (m *Manager) ConnectAll(ctx context.Context, servers map[string]ServerConfig) []string {
	var all []string
	for _, name := range SortedNames(servers) {
		names, err := m.Connect(ctx, name, servers[name])
		if err != nil {
			slog.Warn("failed to connect MCP server", "server", name, "error", err)
			continue
		}
		all = append(all, names...)
	}
	return all
}

// Connect launches one server, performs the handshake and registers its
// tools. It returns the prefixed tool names.
func (m *Manager) Connect(ctx context.Context, name string, cfg ServerConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		m.setStatus(ServerState{Name: name, Status: StatusFailed, Error: err})
		return nil, fmt.Errorf("server %s: %w", name, err)
	}
	client, err := startClient(name, cfg)
	if err != nil {
		m.setStatus(ServerState{Name: name, Status: StatusFailed, Error: err})
		return nil, fmt.Errorf("server %s: %w", name, err)
	}
	return m.attach(ctx, client)
}

func (m *Manager) attach(ctx context.Context, client *Client) ([]string, error) {
	name := client.Name()
	if err := client.initialize(ctx, m.handshakeTimeout); err != nil {
		client.terminate()
		m.setStatus(ServerState{Name: name, Status: StatusFailed, Error: err})
		return nil, fmt.Errorf("server %s: %w", name, err)
	}

	m.mu.Lock()
	if old := m.clients[name]; old != nil {
		m.removeToolsLocked(name)
		go old.Close()
	}
	m.clients[name] = client

	var names []string
	for _, t := range client.tools {
		if t == nil || t.Name == "" {
			continue
		}
		prefixed := PrefixedName(name, t.Name)
		if existing, ok := m.tools[prefixed]; ok && existing.Server != name {
			slog.Warn("duplicate MCP tool name, keeping first", "tool", prefixed, "server", name)
			continue
		}
		schema, _ := t.InputSchema.(map[string]any)
		m.tools[prefixed] = ToolInfo{
			Server:      name,
			Tool:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
		names = append(names, prefixed)
	}
	m.statuses[name] = ServerState{Name: name, Status: StatusReady, Tools: len(names)}
	m.mu.Unlock()

	slog.Debug("MCP server connected", "server", name, "tools", len(names))
	return names, nil
}

func (m *Manager) removeToolsLocked(server string) {
	for k, info := range m.tools {
		if info.Server == server {
			delete(m.tools, k)
		}
	}
}

func (m *Manager) setStatus(s ServerState) {
	m.mu.Lock()
	m.statuses[s.Name] = s
	m.mu.Unlock()
}

// Statuses returns the connection outcome of every server, sorted by name.
func (m *Manager) Statuses() []ServerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServerState, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tools returns every registered tool keyed by prefixed name.
func (m *Manager) Tools() map[string]ToolInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ToolInfo, len(m.tools))
	for k, v := range m.tools {
		out[k] = v
	}
	return out
}

// ToolDefinitions returns function definitions for every discovered tool,
// sorted by name. Descriptions are tagged with the server name.
func (m *Manager) ToolDefinitions() []llm.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tools))
	for k := range m.tools {
		names = append(names, k)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, k := range names {
		info := m.tools[k]
		defs = append(defs, llm.ToolDefinition{
			Name:        k,
			Description: fmt.Sprintf("[MCP:%s] %s", info.Server, info.Description),
			Parameters:  info.InputSchema,
		})
	}
	return defs
}

// Dispatch calls the tool registered under the prefixed name. Calls to the
// same server are serialised; different servers run independently.
func (m *Manager) Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	m.mu.RLock()
	info, ok := m.tools[name]
	var client *Client
	if ok {
		client = m.clients[info.Server]
	}
	timeout := m.callTimeout
	m.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("unknown MCP tool: %s", name)
	}
	if client == nil {
		return "", fmt.Errorf("MCP server %q not connected", info.Server)
	}
	return client.CallTool(ctx, info.Tool, args, timeout)
}

// Shutdown stops every server.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.tools = make(map[string]ToolInfo)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()
}
