package mcp

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches any TimeoutError via errors.Is.
var ErrTimeout = errors.New("mcp timeout")

// TimeoutError means a request got no response in time.
type TimeoutError struct {
	Method string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mcp timeout: %s did not respond within %s", e.Method, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ProtocolError is a JSON-RPC error response or an undecodable message.
type ProtocolError struct {
	Method  string
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mcp protocol error: %s: %s (code %d)", e.Method, e.Message, e.Code)
	}
	return fmt.Sprintf("mcp protocol error: %s: %s", e.Method, e.Message)
}

// TransportError means the pipe to the server failed or closed.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mcp transport error: %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
