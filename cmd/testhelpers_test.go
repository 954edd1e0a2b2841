package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/samsaffron/minmax-code/internal/agent"
	"github.com/samsaffron/minmax-code/internal/compress"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/mcp"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/tools"
	"github.com/samsaffron/minmax-code/internal/ui"
)

// stubStreamer replies with a fixed response or error.
type stubStreamer struct {
	reply string
	err   error
}

func (s *stubStreamer) Stream(ctx context.Context, req llm.Request, onEvent func(llm.StreamEvent)) (*llm.StreamResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	onEvent(llm.ContentDelta{Text: s.reply})
	onEvent(llm.StreamDone{Usage: llm.Usage{TotalTokens: 7}})
	return &llm.StreamResult{Content: s.reply, Usage: llm.Usage{TotalTokens: 7}, Chunks: 1}, nil
}

func newTestStore(t *testing.T) *session.SQLiteStore {
	t.Helper()
	store, err := session.NewSQLiteStore(session.Config{Enabled: true, Path: filepath.Join(t.TempDir(), "sessions.db")})
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestApp builds an app around streamer without touching the network,
// the user's config or MCP processes.
func newTestApp(t *testing.T, streamer agent.Streamer) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	store := newTestStore(t)
	dir := t.TempDir()
	compressor := &compress.Compressor{Model: llm.DefaultModel}
	a := &app{
		store:      store,
		mcp:        mcp.NewManager(),
		compressor: compressor,
		workDir:    dir,
		out:        &out,
		styles:     ui.NewStyles(&out, nil),
	}
	a.agent = agent.New(agent.Options{
		Client:  streamer,
		Tools:   tools.NewRegistry(tools.Options{WorkDir: dir}),
		Store:   store,
		Model:   llm.DefaultModel,
		Mode:    tools.ModeBuilder,
		WorkDir: dir,
	})
	return a, &out
}
