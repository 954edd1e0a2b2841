package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/minmax-code/internal/config"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/tools"
)

func TestResolveSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := resolveSession(ctx, store, "last"); err == nil {
		t.Fatal("expected error for empty store")
	}

	older := &session.Session{ID: "aaaa1111-0000", Name: "older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &session.Session{ID: "aaaa2222-0000", Name: "newer"}
	for _, s := range []*session.Session{older, newer} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		ref     string
		want    string
		wantErr string
	}{
		{ref: "last", want: newer.ID},
		{ref: "", want: newer.ID},
		{ref: older.ID, want: older.ID},
		{ref: "aaaa1", want: older.ID},
		{ref: "aaaa", wantErr: "ambiguous"},
		{ref: "zzzz", wantErr: "not found"},
	}
	for _, tt := range tests {
		got, err := resolveSession(ctx, store, tt.ref)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolveSession(%q) error = %v, want %q", tt.ref, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveSession(%q) error = %v", tt.ref, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("resolveSession(%q) = %s, want %s", tt.ref, got.ID, tt.want)
		}
	}
}

func TestRequireAPIKey(t *testing.T) {
	if err := requireAPIKey(&config.Config{APIKey: "k"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := requireAPIKey(&config.Config{})
	if err == nil || !strings.Contains(err.Error(), config.APIKeyEnv) {
		t.Errorf("error = %v, want mention of %s", err, config.APIKeyEnv)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}

func TestEnsureSessionCreatesOnce(t *testing.T) {
	a, _ := newTestApp(t, &stubStreamer{reply: "ok"})
	ctx := context.Background()

	if err := a.ensureSession(ctx, "fix the flaky test\nmore detail"); err != nil {
		t.Fatal(err)
	}
	first := a.session
	if first == nil || first.Name != "fix the flaky test" {
		t.Fatalf("session = %+v", first)
	}
	if err := a.ensureSession(ctx, "another prompt"); err != nil {
		t.Fatal(err)
	}
	if a.session != first {
		t.Error("ensureSession created a second session")
	}
}

func TestResumeLoadsHistoryAndSettings(t *testing.T) {
	a, out := newTestApp(t, &stubStreamer{reply: "ok"})
	ctx := context.Background()

	sess := &session.Session{Name: "earlier", Model: "MiniMax-M2.1", Mode: "plan"}
	if err := a.store.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}
	for _, m := range []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hi there"},
	} {
		if err := a.store.SaveMessage(ctx, sess.ID, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.resume(ctx, "last"); err != nil {
		t.Fatal(err)
	}
	if got := len(a.agent.History()); got != 2 {
		t.Errorf("history = %d messages, want 2", got)
	}
	if a.agent.Model() != "MiniMax-M2.1" || a.compressor.Model != "MiniMax-M2.1" {
		t.Errorf("model = %s / %s", a.agent.Model(), a.compressor.Model)
	}
	if a.agent.Mode() != tools.ModePlan {
		t.Errorf("mode = %s", a.agent.Mode())
	}
	if !strings.Contains(out.String(), `Resumed "earlier"`) {
		t.Errorf("output = %q", out.String())
	}
}
