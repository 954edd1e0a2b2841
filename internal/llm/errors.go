package llm

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrNoChunks means the HTTP exchange succeeded but the stream carried no data.
var ErrNoChunks = errors.New("no response received from API (0 chunks)")

// vendorGuidance maps MiniMax status codes to something a user can act on.
var vendorGuidance = map[int64]string{
	1000: "Unknown server error. Try again shortly.",
	1001: "Request timed out on the server. Try again.",
	1002: "Rate limit reached. Wait a moment before sending more requests.",
	1004: "Authentication failed. Check that your API key is correct.",
	1008: "Insufficient balance. Top up your MiniMax account.",
	1013: "Internal service error. Try again shortly.",
	1026: "Input was flagged by content moderation. Rephrase the request.",
	1027: "Output was flagged by content moderation.",
	1039: "Token limit exceeded. Start a new session or shorten the context.",
	2013: "Invalid request parameters. Check the model name and message format.",
	2049: "Invalid API key. Keys from api.minimax.io and api.minimaxi.com are not interchangeable.",
}

// Guidance returns actionable text for a vendor status code, or "".
func Guidance(code int64) string {
	return vendorGuidance[code]
}

// APIError is a failure reported by the API, either through the HTTP status
// or through a vendor error envelope.
type APIError struct {
	StatusCode int    // HTTP status, 0 when the envelope came inside a 200
	Code       int64  // vendor status code, 0 when unknown
	CodeText   string // non-numeric error code, e.g. "invalid_api_key"
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	var s string
	switch {
	case e.Code != 0:
		s = fmt.Sprintf("MiniMax API error %d: %s", e.Code, msg)
	case e.CodeText != "":
		s = fmt.Sprintf("MiniMax API error %s: %s", e.CodeText, msg)
	default:
		s = fmt.Sprintf("MiniMax API error: %s", msg)
	}
	if e.StatusCode != 0 {
		s = fmt.Sprintf("%s (status %d)", s, e.StatusCode)
	}
	if g := Guidance(e.Code); g != "" {
		s += ". " + g
	}
	return s
}

// parseErrorEnvelope recognises the two error shapes MiniMax returns:
// base_resp.status_code/status_msg and error.code/message.
func parseErrorEnvelope(body []byte) (*APIError, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	res := gjson.ParseBytes(body)

	if code := res.Get("base_resp.status_code"); code.Exists() && code.Int() != 0 {
		return &APIError{Code: code.Int(), Message: res.Get("base_resp.status_msg").String()}, true
	}

	errVal := res.Get("error")
	if !errVal.Exists() || errVal.Type == gjson.Null {
		return nil, false
	}
	if errVal.Type == gjson.String {
		return &APIError{Message: errVal.String()}, true
	}
	apiErr := &APIError{Message: errVal.Get("message").String()}
	code := errVal.Get("code")
	switch code.Type {
	case gjson.Number:
		apiErr.Code = code.Int()
	case gjson.String:
		if n := gjson.Parse(code.String()); n.Type == gjson.Number {
			apiErr.Code = n.Int()
		} else {
			apiErr.CodeText = code.String()
		}
	}
	return apiErr, true
}

// httpError builds an error for a non-success HTTP response body.
func httpError(status int, body []byte) error {
	if apiErr, ok := parseErrorEnvelope(body); ok {
		apiErr.StatusCode = status
		return apiErr
	}
	text := string(body)
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	return &APIError{StatusCode: status, Message: text}
}
