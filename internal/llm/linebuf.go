package llm

import "bytes"

// lineBuffer reassembles newline-terminated lines from arbitrary read chunks.
type lineBuffer struct {
	buf bytes.Buffer
}

// Feed appends data and returns every complete line, without the trailing
// "\n" or "\r\n".
func (b *lineBuffer) Feed(data []byte) []string {
	b.buf.Write(data)
	var lines []string
	for {
		idx := bytes.IndexByte(b.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := b.buf.Next(idx + 1)
		lines = append(lines, string(bytes.TrimRight(line, "\r\n")))
	}
	return lines
}

// Flush returns any unterminated remainder.
func (b *lineBuffer) Flush() string {
	rest := string(bytes.TrimRight(b.buf.Bytes(), "\r\n"))
	b.buf.Reset()
	return rest
}
