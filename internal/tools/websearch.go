package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/samsaffron/minmax-code/internal/llm"
)

const (
	maxSearchResults  = 8
	maxRelatedQueries = 5
)

// WebSearchTool queries the coding plan search endpoint.
type WebSearchTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWebSearchTool creates a WebSearchTool. An empty baseURL uses the
// default API host.
func NewWebSearchTool(apiKey, baseURL string, client *http.Client) *WebSearchTool {
	if baseURL == "" {
		baseURL = llm.DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebSearchTool{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// WebSearchArgs are the arguments for web_search.
type WebSearchArgs struct {
	Query string `json:"query"`
}

func (t *WebSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        WebSearchToolName,
		Description: "Search the web for current information. Use when you need up-to-date data, documentation, or answers not available in local files. Returns top results with titles, URLs, and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a WebSearchArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Query) == "" {
		return "", NewToolError(ErrInvalidParams, "No query provided")
	}
	if t.apiKey == "" {
		return "", NewToolError(ErrPermissionDenied, "No API key configured. Run `minmax-code config set api_key <key>` to set it.")
	}

	body, err := json.Marshal(map[string]string{"q": a.Query})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/coding_plan/search", bytes.NewReader(body))
	if err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return "", NewToolError(ErrExecutionFailed, "No internet connection.")
		}
		return "", NewToolErrorf(ErrExecutionFailed, "search request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", NewToolErrorf(ErrExecutionFailed, "read search response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := strings.TrimSpace(truncateBytes(string(data), 200))
		if preview == "" {
			return "", NewToolErrorf(ErrExecutionFailed, "Search API returned %s", resp.Status)
		}
		return "", NewToolErrorf(ErrExecutionFailed, "Search API returned %s: %s", resp.Status, preview)
	}
	if !gjson.ValidBytes(data) {
		return "", NewToolError(ErrExecutionFailed, "Error parsing response: invalid JSON")
	}
	return formatSearchResults(a.Query, gjson.ParseBytes(data)), nil
}

// formatSearchResults renders a numbered result list. The API has used both
// organic_results and results for the list field.
func formatSearchResults(query string, doc gjson.Result) string {
	results := doc.Get("organic_results")
	if !results.IsArray() {
		results = doc.Get("results")
	}

	var items []string
	results.ForEach(func(_, r gjson.Result) bool {
		title := r.Get("title").String()
		if title == "" {
			title = "Untitled"
		}
		snippet := r.Get("snippet").String()
		if snippet == "" {
			snippet = r.Get("content").String()
		}
		items = append(items, fmt.Sprintf("%d. **%s**\n   %s\n   %s", len(items)+1, title, r.Get("url").String(), snippet))
		return len(items) < maxSearchResults
	})
	if len(items) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	out := strings.Join(items, "\n\n")

	var related []string
	doc.Get("related_searches").ForEach(func(_, v gjson.Result) bool {
		q := v.String()
		if v.IsObject() {
			q = v.Get("query").String()
		}
		if q != "" {
			related = append(related, q)
		}
		return len(related) < maxRelatedQueries
	})
	if len(related) > 0 {
		out += "\n\nRelated searches: " + strings.Join(related, ", ")
	}
	return out
}
