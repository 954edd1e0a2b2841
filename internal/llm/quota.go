package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Quota is the coding plan allowance for the current rate-limit interval.
type Quota struct {
	Model        string
	Total        int64
	Used         int64
	Remaining    int64
	ResetMinutes int64
	Endpoint     string // endpoint that answered
}

// remainsTimeMillisThreshold separates millisecond from second values of
// remains_time.
const remainsTimeMillisThreshold = 100000

// DefaultQuotaEndpoints returns the candidate quota URLs for baseURL, in the
// order they are tried.
func DefaultQuotaEndpoints(baseURL string) []string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	candidates := []string{
		baseURL + "/coding_plan/remains",
		baseURL + "/api/openplatform/coding_plan/remains",
		"https://www.minimax.io/v1/api/openplatform/coding_plan/remains",
	}
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// FetchQuota tries every quota endpoint in order and returns the first
// well-formed answer. The endpoint that succeeded last time is tried first.
// When all fail, the error lists every endpoint's failure.
func (c *Client) FetchQuota(ctx context.Context) (*Quota, error) {
	var failures []string
	for _, endpoint := range c.quotaOrder() {
		q, err := c.fetchQuotaFrom(ctx, endpoint)
		if err == nil {
			c.mu.Lock()
			c.lastQuotaHit = endpoint
			c.mu.Unlock()
			q.Endpoint = endpoint
			return q, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		failures = append(failures, fmt.Sprintf("%s: %v", endpoint, err))
	}
	return nil, fmt.Errorf("quota lookup failed: %s", strings.Join(failures, "; "))
}

func (c *Client) quotaOrder() []string {
	c.mu.Lock()
	last := c.lastQuotaHit
	c.mu.Unlock()

	order := make([]string, 0, len(c.quotaEndpoints))
	if last != "" {
		order = append(order, last)
	}
	for _, e := range c.quotaEndpoints {
		if e != last {
			order = append(order, e)
		}
	}
	return order
}

func (c *Client) fetchQuotaFrom(ctx context.Context, endpoint string) (*Quota, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpError(resp.StatusCode, body)
	}
	if apiErr, ok := parseErrorEnvelope(body); ok {
		return nil, apiErr
	}
	return parseQuota(body)
}

// parseQuota reads the first model_remains entry, at the top level or under
// "data". Numbers may arrive as JSON numbers or numeric strings.
func parseQuota(body []byte) (*Quota, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON in quota response")
	}
	root := gjson.ParseBytes(body)
	remains := root.Get("model_remains")
	if !remains.Exists() {
		remains = root.Get("data.model_remains")
	}
	if !remains.Exists() {
		return nil, fmt.Errorf("no quota data in response")
	}

	entry := remains
	if remains.IsArray() {
		items := remains.Array()
		if len(items) == 0 {
			return nil, fmt.Errorf("no quota data in response")
		}
		entry = items[0]
	}
	if !entry.IsObject() {
		return nil, fmt.Errorf("unexpected quota entry shape")
	}

	total, ok := numField(entry, "current_interval_total_count", "total_count")
	if !ok {
		return nil, fmt.Errorf("quota entry missing total count")
	}
	used, hasUsed := numField(entry, "current_interval_usage_count", "used_count")
	remaining, hasRemaining := numField(entry, "current_interval_remaining_count", "remaining_count")
	switch {
	case hasUsed && !hasRemaining:
		remaining = max(total-used, 0)
	case hasRemaining && !hasUsed:
		used = max(total-remaining, 0)
	case !hasUsed && !hasRemaining:
		return nil, fmt.Errorf("quota entry missing usage counts")
	}

	q := &Quota{
		Model:     entry.Get("model_name").String(),
		Total:     total,
		Used:      used,
		Remaining: remaining,
	}
	if rt, ok := numField(entry, "remains_time"); ok {
		q.ResetMinutes = resetMinutes(rt)
	}
	return q, nil
}

// resetMinutes interprets v as milliseconds when large, seconds otherwise, and
// rounds up to whole minutes.
func resetMinutes(v int64) int64 {
	if v <= 0 {
		return 0
	}
	if v > remainsTimeMillisThreshold {
		return (v + 59999) / 60000
	}
	return (v + 59) / 60
}

func numField(obj gjson.Result, names ...string) (int64, bool) {
	for _, name := range names {
		v := obj.Get(name)
		switch v.Type {
		case gjson.Number:
			return v.Int(), true
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err == nil {
				return int64(f), true
			}
		}
	}
	return 0, false
}
