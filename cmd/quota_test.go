package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/ui"
)

func TestFormatQuota(t *testing.T) {
	q := &llm.Quota{Model: "MiniMax-M2.5", Total: 300, Used: 75, Remaining: 225, ResetMinutes: 135}
	got := strings.Join(formatQuota(q), "\n")
	want := "Model:     MiniMax-M2.5\nUsed:      75 / 300 (25%)\nRemaining: 225\nResets in: 2h 15m"
	if got != want {
		t.Errorf("formatQuota =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatQuotaWithoutTotal(t *testing.T) {
	lines := formatQuota(&llm.Quota{Used: 3})
	if lines[0] != "Used:      3 / 0" {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int64]string{0: "now", -5: "now", 45: "45m", 60: "1h", 61: "1h 1m", 300: "5h"}
	for m, want := range tests {
		if got := formatMinutes(m); got != want {
			t.Errorf("formatMinutes(%d) = %q, want %q", m, got, want)
		}
	}
}

func TestPrintQuotaShowsEndpoint(t *testing.T) {
	var buf bytes.Buffer
	printQuota(&buf, ui.NewStyles(&buf, nil), &llm.Quota{Total: 10, Endpoint: "https://example.test/quota"})
	if !strings.Contains(buf.String(), "via https://example.test/quota") {
		t.Errorf("output = %q", buf.String())
	}
}
