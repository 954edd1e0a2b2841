package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcConn multiplexes JSON-RPC requests over one framed stream. A single
// reader goroutine routes responses to the waiting caller by id, so a caller
// that gives up on a timeout never desynchronises the stream.
type rpcConn struct {
	writeMu sync.Mutex
	w       io.Writer
	reader  *frameReader

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan *rpcMessage

	done    chan struct{}
	readErr error // valid once done is closed
}

func newRPCConn(r io.Reader, w io.Writer) *rpcConn {
	c := &rpcConn{
		w:       w,
		reader:  newFrameReader(r),
		pending: make(map[int64]chan *rpcMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *rpcConn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.w, data)
}

// call sends method and waits up to timeout for the response, decoding its
// result into result when non-nil.
func (c *rpcConn) call(ctx context.Context, method string, params any, timeout time.Duration, result any) error {
	id := c.nextID.Add(1)
	ch := make(chan *rpcMessage, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(&rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		return &TransportError{Method: method, Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return &ProtocolError{Method: method, Code: msg.Error.Code, Message: msg.Error.Message}
		}
		if result != nil {
			if len(msg.Result) == 0 {
				return &ProtocolError{Method: method, Message: "empty result"}
			}
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return &ProtocolError{Method: method, Message: "invalid result: " + err.Error()}
			}
		}
		return nil
	case <-timer.C:
		return &TimeoutError{Method: method, After: timeout}
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		err := c.readErr
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &TransportError{Method: method, Err: err}
	}
}

// notify sends a notification; no response is expected.
func (c *rpcConn) notify(method string, params any) error {
	if err := c.send(&rpcRequest{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		return &TransportError{Method: method, Err: err}
	}
	return nil
}

func (c *rpcConn) readLoop() {
	defer close(c.done)
	for {
		data, err := c.reader.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("mcp: skipping undecodable message", "error", err)
			continue
		}
		c.dispatch(&msg)
	}
}

func (c *rpcConn) dispatch(msg *rpcMessage) {
	if msg.Method != "" {
		if len(msg.ID) > 0 {
			c.replyToServer(msg)
		}
		return
	}
	id, ok := parseID(msg.ID)
	if !ok {
		return
	}
	c.mu.Lock()
	ch := c.pending[id]
	c.mu.Unlock()
	if ch == nil {
		slog.Debug("mcp: response for unknown request", "id", id)
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

// replyToServer answers requests the server sends us. Only ping is supported.
func (c *rpcConn) replyToServer(msg *rpcMessage) {
	reply := rpcReply{JSONRPC: "2.0", ID: msg.ID}
	if msg.Method == "ping" {
		reply.Result = struct{}{}
	} else {
		reply.Error = &rpcError{Code: -32601, Message: "method not found: " + msg.Method}
	}
	if err := c.send(reply); err != nil {
		slog.Debug("mcp: reply failed", "method", msg.Method, "error", err)
	}
}

func parseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
