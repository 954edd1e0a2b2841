package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samsaffron/minmax-code/internal/agent"
	"github.com/samsaffron/minmax-code/internal/compress"
	"github.com/samsaffron/minmax-code/internal/config"
	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/mcp"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/tools"
	"github.com/samsaffron/minmax-code/internal/ui"
)

// prefixSearchLimit bounds how many recent sessions a short id is matched
// against.
const prefixSearchLimit = 200

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func requireAPIKey(cfg *config.Config) error {
	if cfg.APIKey != "" {
		return nil
	}
	return fmt.Errorf("no API key configured: run `minmax-code config set api_key <key>` or set %s", config.APIKeyEnv)
}

// openStore opens the session store and applies the retention rules.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	store, err := session.NewStore(cfg.Sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	if err := store.Cleanup(ctx, cfg.Sessions.MaxAgeDays, cfg.Sessions.MaxCount); err != nil {
		slog.Warn("session cleanup failed", "error", err)
	}
	return store, nil
}

func getSessionStore() (session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Sessions.Enabled {
		return nil, fmt.Errorf("session storage is disabled in config")
	}
	return session.NewStore(cfg.Sessions)
}

// resolveSession finds a session by full id, unique id prefix, or "last".
func resolveSession(ctx context.Context, store session.Store, ref string) (*session.Session, error) {
	if ref == "" || ref == "last" {
		list, err := store.List(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(list) == 0 {
			return nil, errors.New("no sessions to resume")
		}
		sess := list[0].Session
		return &sess, nil
	}

	sess, err := store.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}

	list, err := store.List(ctx, prefixSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var match *session.Session
	for i := range list {
		if !strings.HasPrefix(list[i].ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session id %q is ambiguous", ref)
		}
		s := list[i].Session
		match = &s
	}
	if match == nil {
		return nil, fmt.Errorf("session '%s' not found", ref)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// app wires the agent to its collaborators for one chat process.
type app struct {
	cfg        *config.Config
	client     *llm.Client
	store      session.Store
	mcp        *mcp.Manager
	compressor *compress.Compressor
	agent      *agent.Agent
	workDir    string

	// session is nil until the first prompt creates it.
	session *session.Session

	out         io.Writer
	styles      *ui.Styles
	interactive bool
}

type appOptions struct {
	Model string
	Mode  string
	Out   io.Writer
	// Interactive enables terminal prompts for ask_user.
	Interactive bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if err := requireAPIKey(cfg); err != nil {
		return nil, err
	}
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	modeName := cfg.Mode
	if opts.Mode != "" {
		modeName = opts.Mode
	}
	mode, err := tools.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if opts.Model != "" {
		model = opts.Model
		if !llm.IsKnownModel(model) {
			slog.Warn("unknown model, sending as-is", "model", model)
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(cfg.ClientConfig())
	registry := tools.NewRegistry(tools.Options{
		WorkDir: workDir,
		APIKey:  cfg.APIKey,
		BaseURL: client.BaseURL(),
	})
	compressor := &compress.Compressor{
		Summarizer: client,
		Model:      model,
		Threshold:  cfg.Context.CompressThreshold,
		KeepRecent: cfg.Context.KeepRecent,
	}

	a := &app{
		cfg:         cfg,
		client:      client,
		store:       store,
		mcp:         mcp.NewManager(),
		compressor:  compressor,
		workDir:     workDir,
		out:         opts.Out,
		styles:      ui.NewStyles(opts.Out, nil),
		interactive: opts.Interactive,
	}

	agentOpts := agent.Options{
		Client:     client,
		Tools:      registry,
		Store:      session.NewLoggingStore(store, nil),
		Compressor: compressor,
		Model:      model,
		Mode:       mode,
		WorkDir:    workDir,
	}
	if len(cfg.MCPServers) > 0 {
		a.mcp.ConnectAll(ctx, cfg.MCPServers)
		a.reportMCPFailures()
		agentOpts.MCP = a.mcp
	}
	a.agent = agent.New(agentOpts)
	return a, nil
}

func (a *app) reportMCPFailures() {
	for _, st := range a.mcp.Statuses() {
		if st.Status == mcp.StatusFailed {
			fmt.Fprintln(a.out, a.styles.Warning.Render(fmt.Sprintf("MCP server %s failed: %v", st.Name, st.Error)))
		}
	}
}

func (a *app) Close() {
	a.mcp.Shutdown()
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close session store", "error", err)
	}
}

// ensureSession creates the session on the first prompt, named after it.
func (a *app) ensureSession(ctx context.Context, prompt string) error {
	if a.session != nil {
		return nil
	}
	sess := &session.Session{
		Name:  session.NameFromPrompt(prompt),
		Model: a.agent.Model(),
		Mode:  string(a.agent.Mode()),
	}
	if err := a.store.Create(ctx, sess); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	a.session = sess
	a.agent.SetSession(sess.ID)
	slog.Debug("session created", "id", sess.ID, "name", sess.Name)
	return nil
}

// resume loads a stored session's history and adopts its model and mode.
func (a *app) resume(ctx context.Context, ref string) error {
	sess, err := resolveSession(ctx, a.store, ref)
	if err != nil {
		return err
	}
	rows, err := a.store.Messages(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}
	a.agent.LoadHistory(session.History(rows))
	a.session = sess
	a.agent.SetSession(sess.ID)
	if sess.Model != "" {
		a.setModel(sess.Model)
	}
	if mode, err := tools.ParseMode(sess.Mode); err == nil {
		a.agent.SetMode(mode)
	}
	fmt.Fprintln(a.out, a.styles.Muted.Render(fmt.Sprintf("Resumed %q (%s, %d messages)", sess.Name, shortID(sess.ID), len(rows))))
	return nil
}

// newSession drops the conversation; the next prompt starts a new session.
func (a *app) newSession() {
	a.agent.Clear()
	a.agent.SetSession("")
	a.session = nil
}

func (a *app) setModel(model string) {
	a.agent.SetModel(model)
	a.compressor.Model = model
}

func (a *app) setMode(ctx context.Context, mode tools.Mode) {
	a.agent.SetMode(mode)
	if a.session == nil {
		return
	}
	a.session.Mode = string(mode)
	if err := a.store.SetMode(ctx, a.session.ID, string(mode)); err != nil {
		slog.Warn("failed to save session mode", "session", a.session.ID, "error", err)
	}
}
