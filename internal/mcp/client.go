package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProtocolVersion is the MCP revision sent in initialize.
const ProtocolVersion = "2024-11-05"

// ClientVersion is reported to servers in clientInfo.
var ClientVersion = "0.1.0"

const shutdownTimeout = 2 * time.Second

// Client is a connection to one stdio MCP server.
type Client struct {
	name  string
	conn  *rpcConn
	stdin io.Closer
	cmd   *exec.Cmd

	// callMu serialises requests to this server.
	callMu sync.Mutex
	tools  []*mcp.Tool
}

// startClient launches the server process and wires its pipes.
func startClient(name string, cfg ServerConfig) (*Client, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = cfg.environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	c := newClient(name, stdout, stdin)
	c.cmd = cmd
	return c, nil
}

// newClient builds a client over an existing stream pair.
func newClient(name string, r io.Reader, w io.WriteCloser) *Client {
	return &Client{
		name:  name,
		conn:  newRPCConn(r, w),
		stdin: w,
	}
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.name
}

// initialize performs the handshake and fetches the tool list.
func (c *Client) initialize(ctx context.Context, timeout time.Duration) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	params := &mcp.InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    &mcp.ClientCapabilities{},
		ClientInfo:      &mcp.Implementation{Name: "minmax-code", Version: ClientVersion},
	}
	var initResult json.RawMessage
	if err := c.conn.call(ctx, "initialize", params, timeout, &initResult); err != nil {
		return err
	}
	if err := c.conn.notify("notifications/initialized", struct{}{}); err != nil {
		return err
	}

	var listed struct {
		Tools []*mcp.Tool `json:"tools"`
	}
	if err := c.conn.call(ctx, "tools/list", nil, timeout, &listed); err != nil {
		return err
	}
	c.tools = listed.Tools
	return nil
}

type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// CallTool invokes tool and returns its text content joined by newlines. When
// the result has no text content the whole result is returned as JSON.
func (c *Client) CallTool(ctx context.Context, tool string, args json.RawMessage, timeout time.Duration) (string, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	var arguments any = map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	var raw json.RawMessage
	params := &mcp.CallToolParams{Name: tool, Arguments: arguments}
	if err := c.conn.call(ctx, "tools/call", params, timeout, &raw); err != nil {
		return "", err
	}

	var res callResult
	if err := json.Unmarshal(raw, &res); err == nil {
		var texts []string
		for _, block := range res.Content {
			if block.Type == "text" {
				texts = append(texts, block.Text)
			}
		}
		if len(texts) > 0 {
			text := strings.Join(texts, "\n")
			if res.IsError {
				return "Error: " + text, nil
			}
			return text, nil
		}
	}

	pretty, err := json.MarshalIndent(json.RawMessage(raw), "", "  ")
	if err != nil {
		return string(raw), nil
	}
	return string(pretty), nil
}

// Close asks the server to shut down, then terminates the process.
func (c *Client) Close() {
	if c.callMu.TryLock() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = c.conn.call(ctx, "shutdown", nil, shutdownTimeout, nil)
		cancel()
		c.callMu.Unlock()
	}
	c.terminate()
}

// terminate closes the pipes and kills the process without a shutdown request.
func (c *Client) terminate() {
	_ = c.stdin.Close()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
}
