package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type readResult struct {
	data []byte
	err  error
}

// Stream sends req and decodes the event-stream response, calling onEvent for
// every delta as it arrives. Cancelling ctx stops reading without an error;
// whatever was accumulated so far is returned.
func (c *Client) Stream(ctx context.Context, req Request, onEvent func(StreamEvent)) (*StreamResult, error) {
	if onEvent == nil {
		onEvent = func(StreamEvent) {}
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	chatReq := oaiChatRequest{
		Model:         req.Model,
		Messages:      buildMessages(req.Messages),
		Stream:        true,
		StreamOptions: &oaiStreamOptions{IncludeUsage: true},
		Temperature:   c.temperature,
		Tools:         buildTools(req.Tools),
	}
	if len(chatReq.Tools) > 0 {
		chatReq.ToolChoice = "auto"
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	slog.Debug("chat request", "model", req.Model, "messages", len(chatReq.Messages), "tools", len(chatReq.Tools))

	result := &StreamResult{}
	resp, err := c.makeRequest(ctx, http.MethodPost, c.baseURL+"/chat/completions", body)
	if err != nil {
		if ctx.Err() != nil {
			return result, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return nil, httpError(resp.StatusCode, data)
	}

	chunks := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := resp.Body.Read(buf)
			var data []byte
			if n > 0 {
				data = append([]byte(nil), buf[:n]...)
			}
			select {
			case chunks <- readResult{data: data, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	dec := &streamDecoder{result: result, tools: newToolCallAccumulator(), emit: onEvent}
	var lines lineBuffer

read:
	for {
		select {
		case <-ctx.Done():
			return dec.finish(), nil
		case r := <-chunks:
			for _, line := range lines.Feed(r.data) {
				dec.handleLine(line)
			}
			if r.err == nil {
				continue
			}
			if errors.Is(r.err, io.EOF) {
				dec.handleLine(lines.Flush())
				break read
			}
			if ctx.Err() != nil {
				return dec.finish(), nil
			}
			return nil, fmt.Errorf("stream error: %w", r.err)
		}
	}

	res := dec.finish()
	if res.Chunks == 0 && res.Content == "" && len(res.ToolCalls) == 0 {
		onEvent(StreamError{Message: ErrNoChunks.Error()})
	}
	onEvent(StreamDone{Usage: res.Usage})
	return res, nil
}

type streamDecoder struct {
	result  *StreamResult
	content strings.Builder
	tools   *toolCallAccumulator
	emit    func(StreamEvent)
}

func (d *streamDecoder) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return
	}
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return
	}
	payload = strings.TrimSpace(payload)
	if payload == "[DONE]" {
		return
	}

	if !gjson.Valid(payload) {
		slog.Debug("skipping malformed stream payload", "payload", truncatePayload(payload))
		return
	}
	d.result.Chunks++
	res := gjson.Parse(payload)

	if u := res.Get("usage"); u.IsObject() {
		d.result.Usage = Usage{
			PromptTokens:     int(u.Get("prompt_tokens").Int()),
			CompletionTokens: int(u.Get("completion_tokens").Int()),
			TotalTokens:      int(u.Get("total_tokens").Int()),
		}
	}
	if apiErr, ok := parseErrorEnvelope([]byte(payload)); ok {
		d.emit(StreamError{Message: apiErr.Error()})
		return
	}

	raw := res.Get("choices.0")
	if !raw.IsObject() {
		return
	}
	var choice oaiStreamChoice
	if err := json.Unmarshal([]byte(raw.Raw), &choice); err != nil {
		slog.Debug("skipping undecodable stream choice", "error", err)
		return
	}
	if choice.FinishReason != "" {
		d.result.FinishReason = choice.FinishReason
	}
	delta := choice.Delta
	if delta == nil {
		return
	}
	for _, rd := range delta.ReasoningDetails {
		if rd.Text == "" {
			continue
		}
		d.result.Reasoning = append(d.result.Reasoning, rd.Text)
		d.emit(ReasoningDelta{Text: rd.Text})
	}
	if delta.ReasoningContent != "" {
		d.result.Reasoning = append(d.result.Reasoning, delta.ReasoningContent)
		d.emit(ReasoningDelta{Text: delta.ReasoningContent})
	}
	if delta.Content != "" {
		d.content.WriteString(delta.Content)
		d.emit(ContentDelta{Text: delta.Content})
	}
	if len(delta.ToolCalls) > 0 {
		d.tools.Add(delta.ToolCalls)
		d.emit(ToolCallsDelta{Calls: d.tools.Calls()})
	}
}

func (d *streamDecoder) finish() *StreamResult {
	d.result.Content = d.content.String()
	d.result.ToolCalls = d.tools.Calls()
	return d.result
}

func truncatePayload(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
