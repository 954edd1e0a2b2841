package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the MiniMax international API endpoint.
const DefaultBaseURL = "https://api.minimax.io/v1"

// httpClientTimeout bounds a whole request, including a long stream.
const httpClientTimeout = 10 * time.Minute

var defaultHTTPClient = &http.Client{
	Timeout: httpClientTimeout,
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	// QuotaEndpoints are tried in order by FetchQuota. Empty means
	// DefaultQuotaEndpoints(BaseURL).
	QuotaEndpoints []string
	HTTPClient     *http.Client
}

// Client talks to the MiniMax OpenAI-compatible API.
type Client struct {
	apiKey         string
	baseURL        string
	temperature    float64
	quotaEndpoints []string
	http           *http.Client

	mu           sync.Mutex
	lastQuotaHit string
}

// NewClient returns a Client for cfg, filling in defaults.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 1.0
	}
	endpoints := cfg.QuotaEndpoints
	if len(endpoints) == 0 {
		endpoints = DefaultQuotaEndpoints(baseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		temperature:    temp,
		quotaEndpoints: endpoints,
		http:           httpClient,
	}
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Wire structures for /chat/completions.
type oaiChatRequest struct {
	Model         string            `json:"model"`
	Messages      []oaiMessage      `json:"messages"`
	Stream        bool              `json:"stream"`
	StreamOptions *oaiStreamOptions `json:"stream_options,omitempty"`
	Temperature   float64           `json:"temperature"`
	Tools         []oaiTool         `json:"tools,omitempty"`
	ToolChoice    string            `json:"tool_choice,omitempty"`
}

type oaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type oaiMessage struct {
	Role             string               `json:"role"`
	Content          string               `json:"content"`
	ReasoningDetails []oaiReasoningDetail `json:"reasoning_details,omitempty"`
	ToolCalls        []oaiToolCall        `json:"tool_calls,omitempty"`
	ToolCallID       string               `json:"tool_call_id,omitempty"`
	Name             string               `json:"name,omitempty"`
}

type oaiReasoningDetail struct {
	Text string `json:"text"`
}

type oaiTool struct {
	Type     string      `json:"type"`
	Function oaiFunction `json:"function"`
}

type oaiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type oaiToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// oaiStreamChoice is choices[0] of a "data:" payload. Usage and error
// envelopes are read with gjson so a mistyped vendor field there cannot
// discard the delta.
type oaiStreamChoice struct {
	FinishReason string `json:"finish_reason"`
	Delta        *struct {
		Content          string               `json:"content"`
		ReasoningContent string               `json:"reasoning_content"`
		ReasoningDetails []oaiReasoningDetail `json:"reasoning_details"`
		ToolCalls        []oaiToolCall        `json:"tool_calls"`
	} `json:"delta"`
}

func buildMessages(messages []Message) []oaiMessage {
	out := make([]oaiMessage, 0, len(messages))
	for _, m := range messages {
		msg := oaiMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, r := range m.Reasoning {
			msg.ReasoningDetails = append(msg.ReasoningDetails, oaiReasoningDetail{Text: r})
		}
		for i, call := range m.ToolCalls {
			tc := oaiToolCall{Index: i, ID: call.ID, Type: "function"}
			tc.Function.Name = call.Name
			tc.Function.Arguments = call.SanitizedArguments()
			msg.ToolCalls = append(msg.ToolCalls, tc)
		}
		out = append(out, msg)
	}
	return out
}

func buildTools(defs []ToolDefinition) []oaiTool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]oaiTool, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, oaiTool{
			Type: "function",
			Function: oaiFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

func (c *Client) makeRequest(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("X-Reasoning-Split", "true")

	return c.http.Do(httpReq)
}
