package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
}

func writeChunks(w http.ResponseWriter, parts ...string) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	for _, p := range parts {
		io.WriteString(w, p)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func collect(events *[]StreamEvent) func(StreamEvent) {
	return func(ev StreamEvent) { *events = append(*events, ev) }
}

func userRequest() Request {
	return Request{Model: "MiniMax-M2.5", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
}

func TestStream_ContentReasoningAndUsage(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotBody)
		writeChunks(w,
			`data: {"choices":[{"delta":{"reasoning_details":[{"text":"think"}]}}]}`+"\n\n",
			// split a line across two writes
			`data: {"choices":[{"delta":{"content":"Hel`,
			`lo"}}]}`+"\n\n",
			`data: {"choices":[{"delta":{"content":" world"},"finish_reason":"stop"}]}`+"\n\n",
			`data: not json`+"\n\n",
			`data: {"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`+"\n\n",
			"data: [DONE]\n\n",
		)
	})

	var events []StreamEvent
	res, err := client.Stream(context.Background(), userRequest(), collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Content != "Hello world" {
		t.Errorf("content = %q", res.Content)
	}
	if len(res.Reasoning) != 1 || res.Reasoning[0] != "think" {
		t.Errorf("reasoning = %v", res.Reasoning)
	}
	if res.FinishReason != "stop" {
		t.Errorf("finish reason = %q", res.FinishReason)
	}
	if res.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", res.Usage)
	}
	if gotHeader.Get("Authorization") != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("X-Reasoning-Split") != "true" {
		t.Errorf("missing X-Reasoning-Split header")
	}
	if gotBody["stream"] != true {
		t.Errorf("stream flag not set: %v", gotBody)
	}
	if _, ok := gotBody["tools"]; ok {
		t.Errorf("tools should be omitted when none are given")
	}

	var content strings.Builder
	var sawDone bool
	for _, ev := range events {
		switch e := ev.(type) {
		case ContentDelta:
			content.WriteString(e.Text)
		case StreamDone:
			sawDone = true
			if e.Usage.TotalTokens != 15 {
				t.Errorf("done usage = %+v", e.Usage)
			}
		case StreamError:
			t.Errorf("unexpected stream error: %s", e.Message)
		}
	}
	if content.String() != "Hello world" {
		t.Errorf("content events = %q", content.String())
	}
	if !sawDone {
		t.Error("expected StreamDone event")
	}
}

func TestStream_ToolCallAccumulation(t *testing.T) {
	var gotBody map[string]any
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		writeChunks(w,
			`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"glob","arguments":"{\"pat"}}]}}]}`+"\n",
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"read_file","arguments":""}}]}}]}`+"\n",
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":"}}]}}]}`+"\n",
			`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"id":"ignored","function":{"arguments":"tern\":\"*\"}"}}]}}]}`+"\n",
			`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"a.go\"}"}}]},"finish_reason":"tool_calls"}]}`+"\n",
			"data: [DONE]\n",
		)
	})

	req := userRequest()
	req.Tools = []ToolDefinition{{Name: "read_file", Description: "read"}}
	var events []StreamEvent
	res, err := client.Stream(context.Background(), req, collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if gotBody["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", gotBody["tool_choice"])
	}
	if len(res.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(res.ToolCalls))
	}
	want := []ToolCall{
		{ID: "call_a", Name: "read_file", Arguments: `{"path":"a.go"}`},
		{ID: "call_b", Name: "glob", Arguments: `{"pattern":"*"}`},
	}
	for i, w := range want {
		if res.ToolCalls[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, res.ToolCalls[i], w)
		}
	}

	var snapshots int
	for _, ev := range events {
		if d, ok := ev.(ToolCallsDelta); ok {
			snapshots++
			for i := 1; i < len(d.Calls); i++ {
				if d.Calls[i-1].ID == "call_b" {
					t.Errorf("snapshot not ordered by index: %+v", d.Calls)
				}
			}
		}
	}
	if snapshots != 5 {
		t.Errorf("expected 5 tool call snapshots, got %d", snapshots)
	}
}

func TestStream_ZeroChunks(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, "data: [DONE]\n\n")
	})

	var events []StreamEvent
	res, err := client.Stream(context.Background(), userRequest(), collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("chunks = %d", res.Chunks)
	}
	var found bool
	for _, ev := range events {
		if e, ok := ev.(StreamError); ok && e.Message == ErrNoChunks.Error() {
			found = true
		}
	}
	if !found {
		t.Error("expected zero-chunk error event")
	}
}

func TestStream_HTTPErrorTranslated(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"base_resp":{"status_code":1004,"status_msg":"login fail"}}`)
	})

	_, err := client.Stream(context.Background(), userRequest(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != 1004 || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "Check that your API key") {
		t.Errorf("missing guidance in %q", err.Error())
	}
}

func TestStream_InStreamErrorIsEvent(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w,
			`data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n",
			`data: {"error":{"code":"1002","message":"rate limited"}}`+"\n",
			"data: [DONE]\n",
		)
	})

	var events []StreamEvent
	res, err := client.Stream(context.Background(), userRequest(), collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Content != "partial" {
		t.Errorf("content = %q", res.Content)
	}
	var msg string
	for _, ev := range events {
		if e, ok := ev.(StreamError); ok {
			msg = e.Message
		}
	}
	if !strings.Contains(msg, "1002") || !strings.Contains(msg, "rate limited") {
		t.Errorf("stream error = %q", msg)
	}
}

func TestStream_StringTypedVendorFields(t *testing.T) {
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w,
			`data: {"choices":[{"delta":{"content":"kept"}}],"base_resp":{"status_code":"0","status_msg":"success"}}`+"\n",
			`data: {"choices":[],"usage":{"prompt_tokens":"3","completion_tokens":2,"total_tokens":"5"}}`+"\n",
			`data: {"base_resp":{"status_code":"1004","status_msg":"login fail"}}`+"\n",
			"data: [DONE]\n",
		)
	})

	var events []StreamEvent
	res, err := client.Stream(context.Background(), userRequest(), collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Content != "kept" {
		t.Errorf("content = %q, want %q", res.Content, "kept")
	}
	if res.Usage.PromptTokens != 3 || res.Usage.TotalTokens != 5 {
		t.Errorf("usage = %+v", res.Usage)
	}
	var msgs []string
	for _, ev := range events {
		if e, ok := ev.(StreamError); ok {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "1004") || !strings.Contains(msgs[0], "login fail") {
		t.Errorf("stream errors = %v", msgs)
	}
}

func TestStream_CancelReturnsAccumulated(t *testing.T) {
	release := make(chan struct{})
	client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, `data: {"choices":[{"delta":{"content":"before cancel"}}]}`+"\n")
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	var events []StreamEvent
	onEvent := func(ev StreamEvent) {
		events = append(events, ev)
		if _, ok := ev.(ContentDelta); ok {
			cancel()
		}
	}

	done := make(chan struct{})
	var res *StreamResult
	var err error
	go func() {
		res, err = client.Stream(ctx, userRequest(), onEvent)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stream did not return after cancellation")
	}
	if err != nil {
		t.Fatalf("cancellation should not be an error, got %v", err)
	}
	if res.Content != "before cancel" {
		t.Errorf("content = %q", res.Content)
	}
	for _, ev := range events {
		if _, ok := ev.(StreamDone); ok {
			t.Error("cancelled stream should not emit StreamDone")
		}
	}
}

func TestBuildMessages_SanitizesArguments(t *testing.T) {
	msgs := buildMessages([]Message{{
		Role:      RoleAssistant,
		Content:   "x",
		Reasoning: []string{"r1", "r2"},
		ToolCalls: []ToolCall{{ID: "1", Name: "bash", Arguments: "{broken"}},
	}})
	if len(msgs[0].ReasoningDetails) != 2 {
		t.Errorf("reasoning details = %+v", msgs[0].ReasoningDetails)
	}
	if got := msgs[0].ToolCalls[0].Function.Arguments; got != "{}" {
		t.Errorf("arguments = %q, want {}", got)
	}
}

func TestLineBuffer(t *testing.T) {
	var b lineBuffer
	if lines := b.Feed([]byte("data: a")); len(lines) != 0 {
		t.Fatalf("unexpected lines %v", lines)
	}
	lines := b.Feed([]byte("bc\r\ndata: d\nda"))
	if fmt.Sprint(lines) != "[data: abc data: d]" {
		t.Errorf("lines = %q", lines)
	}
	if rest := b.Flush(); rest != "da" {
		t.Errorf("flush = %q", rest)
	}
}

func TestToolCallAccumulator_Concatenates(t *testing.T) {
	acc := newToolCallAccumulator()
	deltas := []struct {
		index    int
		id, name string
		args     string
	}{
		{2, "c", "third", "x"},
		{0, "a", "first", "1"},
		{0, "a2", "renamed", "2"},
		{2, "", "", "y"},
		{0, "", "", "3"},
	}
	for _, d := range deltas {
		tc := oaiToolCall{Index: d.index, ID: d.id}
		tc.Function.Name = d.name
		tc.Function.Arguments = d.args
		acc.Add([]oaiToolCall{tc})
	}
	calls := acc.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0] != (ToolCall{ID: "a", Name: "first", Arguments: "123"}) {
		t.Errorf("call 0 = %+v", calls[0])
	}
	if calls[1] != (ToolCall{ID: "c", Name: "third", Arguments: "xy"}) {
		t.Errorf("call 1 = %+v", calls[1])
	}
}
