package mcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	contentLengthHeader = "content-length:"
	maxFrameSize        = 64 * 1024 * 1024
)

// writeFrame writes payload with a Content-Length header.
func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 0, len(payload)+32)
	frame = fmt.Appendf(frame, "Content-Length: %d\r\n\r\n", len(payload))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

// frameReader reads Content-Length framed messages. Servers that write bare
// newline-delimited JSON are accepted too; any other stray line is skipped.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (f *frameReader) ReadMessage() ([]byte, error) {
	for {
		line, err := f.r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)

		if len(trimmed) >= len(contentLengthHeader) && strings.EqualFold(trimmed[:len(contentLengthHeader)], contentLengthHeader) {
			n, convErr := strconv.Atoi(strings.TrimSpace(trimmed[len(contentLengthHeader):]))
			if convErr != nil || n < 0 || n > maxFrameSize {
				return nil, fmt.Errorf("invalid %s", trimmed)
			}
			if err := f.skipHeaders(); err != nil {
				return nil, err
			}
			body := make([]byte, n)
			if _, err := io.ReadFull(f.r, body); err != nil {
				return nil, fmt.Errorf("short frame body: %w", err)
			}
			return body, nil
		}

		if strings.HasPrefix(trimmed, "{") {
			return []byte(trimmed), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// skipHeaders consumes any further header lines up to the blank separator.
func (f *frameReader) skipHeaders() error {
	for {
		line, err := f.r.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			return nil
		}
	}
}
