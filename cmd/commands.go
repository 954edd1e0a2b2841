package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/tools"
	"github.com/samsaffron/minmax-code/internal/ui"
)

const recentSessions = 10

type slashCommand struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Run     func(a *app, ctx context.Context, args []string) (quit bool, err error)
}

var slashCommands []slashCommand

func init() {
	slashCommands = []slashCommand{
		{Name: "help", Aliases: []string{"?"}, Help: "Show commands", Run: cmdHelp},
		{Name: "new", Help: "Start a new session", Run: cmdNew},
		{Name: "clear", Help: "Clear the screen", Run: cmdClear},
		{Name: "mode", Usage: "[plan|builder]", Help: "Show or switch the tool mode", Run: cmdMode},
		{Name: "model", Usage: "[name]", Help: "Show or change the model", Run: cmdModel},
		{Name: "sessions", Help: "List recent sessions", Run: cmdSessions},
		{Name: "resume", Usage: "<id|last>", Help: "Resume a saved session", Run: cmdResume},
		{Name: "rename", Usage: "<name>", Help: "Rename the current session", Run: cmdRename},
		{Name: "quota", Help: "Show coding plan usage", Run: cmdQuota},
		{Name: "mcp", Help: "Show MCP servers and tools", Run: cmdMCP},
		{Name: "usage", Help: "Show token usage for this conversation", Run: cmdUsage},
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Exit", Run: cmdQuit},
	}
}

func findCommand(name string) (slashCommand, bool) {
	for _, c := range slashCommands {
		if c.Name == name || slices.Contains(c.Aliases, name) {
			return c, true
		}
	}
	return slashCommand{}, false
}

// parseSlash splits "/name arg ..." into its name and arguments.
func parseSlash(line string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func (a *app) runCommand(ctx context.Context, line string) (bool, error) {
	name, args := parseSlash(line)
	c, ok := findCommand(name)
	if !ok {
		return false, fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return c.Run(a, ctx, args)
}

func cmdHelp(a *app, ctx context.Context, args []string) (bool, error) {
	for _, c := range slashCommands {
		usage := "/" + c.Name
		if c.Usage != "" {
			usage += " " + c.Usage
		}
		fmt.Fprintf(a.out, "  %-22s %s\n", usage, a.styles.Muted.Render(c.Help))
	}
	fmt.Fprintln(a.out, a.styles.Muted.Render("  @path in a prompt attaches that file."))
	return false, nil
}

func cmdNew(a *app, ctx context.Context, args []string) (bool, error) {
	a.newSession()
	fmt.Fprintln(a.out, a.styles.Muted.Render("Started a new session."))
	return false, nil
}

func cmdClear(a *app, ctx context.Context, args []string) (bool, error) {
	fmt.Fprint(a.out, "\033[H\033[2J")
	return false, nil
}

func cmdMode(a *app, ctx context.Context, args []string) (bool, error) {
	mode := a.agent.Mode().Toggle()
	if len(args) > 0 {
		m, err := tools.ParseMode(args[0])
		if err != nil {
			return false, err
		}
		mode = m
	}
	a.setMode(ctx, mode)
	fmt.Fprintln(a.out, a.styles.Muted.Render("Mode: "+string(mode)))
	return false, nil
}

func cmdModel(a *app, ctx context.Context, args []string) (bool, error) {
	if len(args) == 0 {
		current := a.agent.Model()
		for _, m := range llm.Models {
			marker := "  "
			if m == current {
				marker = a.styles.Success.Render(ui.SuccessIcon) + " "
			}
			fmt.Fprintln(a.out, marker+m)
		}
		if !llm.IsKnownModel(current) {
			fmt.Fprintln(a.out, a.styles.Success.Render(ui.SuccessIcon)+" "+current+a.styles.Muted.Render(" (custom)"))
		}
		return false, nil
	}
	model := args[0]
	if !llm.IsKnownModel(model) {
		fmt.Fprintln(a.out, a.styles.Warning.Render("warning: unknown model, sending as-is"))
	}
	a.setModel(model)
	fmt.Fprintln(a.out, a.styles.Muted.Render("Model: "+model))
	return false, nil
}

func cmdSessions(a *app, ctx context.Context, args []string) (bool, error) {
	list, err := a.store.List(ctx, recentSessions)
	if err != nil {
		return false, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No sessions found.")
		return false, nil
	}
	current := ""
	if a.session != nil {
		current = a.session.ID
	}
	for _, s := range list {
		marker := "  "
		if s.ID == current {
			marker = "* "
		}
		fmt.Fprintf(a.out, "%s%s  %-40s %s\n", marker, shortID(s.ID), ui.Truncate(sessionLabel(s.Session), 40),
			a.styles.Muted.Render(fmt.Sprintf("%d msgs, %s", s.MessageCount, formatRelativeTime(s.UpdatedAt, time.Now()))))
	}
	return false, nil
}

func cmdResume(a *app, ctx context.Context, args []string) (bool, error) {
	ref := "last"
	if len(args) > 0 {
		ref = args[0]
	}
	return false, a.resume(ctx, ref)
}

func cmdRename(a *app, ctx context.Context, args []string) (bool, error) {
	if a.session == nil {
		return false, fmt.Errorf("no active session yet")
	}
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return false, fmt.Errorf("usage: /rename <name>")
	}
	if err := a.store.Rename(ctx, a.session.ID, name); err != nil {
		return false, fmt.Errorf("failed to rename session: %w", err)
	}
	a.session.Name = name
	fmt.Fprintln(a.out, a.styles.Muted.Render("Renamed to "+name))
	return false, nil
}

func cmdQuota(a *app, ctx context.Context, args []string) (bool, error) {
	q, err := a.client.FetchQuota(ctx)
	if err != nil {
		return false, err
	}
	printQuota(a.out, a.styles, q)
	return false, nil
}

func cmdMCP(a *app, ctx context.Context, args []string) (bool, error) {
	printMCPStatus(a.out, a.styles, a.mcp)
	return false, nil
}

func cmdUsage(a *app, ctx context.Context, args []string) (bool, error) {
	u := a.agent.Usage()
	fmt.Fprintf(a.out, "prompt %s · completion %s · total %s\n",
		ui.FormatCount(u.PromptTokens), ui.FormatCount(u.CompletionTokens), ui.FormatCount(u.TotalTokens))
	return false, nil
}

func cmdQuit(a *app, ctx context.Context, args []string) (bool, error) {
	return true, nil
}

// formatRelativeTime renders t relative to now for listings.
func formatRelativeTime(t, now time.Time) string {
	dur := now.Sub(t)
	switch {
	case dur < time.Minute:
		return "just now"
	case dur < time.Hour:
		return fmt.Sprintf("%dm ago", int(dur.Minutes()))
	case dur < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(dur.Hours()))
	case dur < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(dur.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// sessionLabel is the display name of a session.
func sessionLabel(s session.Session) string {
	if s.Name == "" {
		return session.DefaultName
	}
	return s.Name
}
