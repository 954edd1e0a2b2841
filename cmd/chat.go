package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/samsaffron/minmax-code/internal/agent"
	"github.com/samsaffron/minmax-code/internal/input"
	"github.com/samsaffron/minmax-code/internal/signal"
	"github.com/samsaffron/minmax-code/internal/tools"
	"github.com/samsaffron/minmax-code/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const exitWindow = 2 * time.Second

var errTurnFailed = errors.New("turn ended with an error")

var (
	chatModel  string
	chatMode   string
	chatResume string
	chatFiles  []string
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Start an interactive session",
	Long: `Start an interactive session with the agent. This is also what runs when
minmax-code is invoked without a subcommand.

Examples:
  minmax-code chat
  minmax-code chat --mode plan
  minmax-code chat --resume last
  minmax-code chat -f 'internal/**/*.go' "find dead code"

Reference files inline with @path, e.g. "explain @internal/llm/stream.go".

Keys:
  Ctrl+C       - Cancel the running turn; twice on an empty prompt exits

Slash commands:
  /help        - Show help
  /new         - Start a new session
  /mode        - Switch between builder and plan
  /model       - Show or change the model
  /sessions    - List recent sessions
  /resume      - Resume a session
  /quota       - Show coding plan usage
  /mcp         - Show MCP servers
  /quit        - Exit`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model to use (see 'minmax-code models')")
	cmd.Flags().StringVar(&chatMode, "mode", "", "Tool mode: builder or plan")
	cmd.Flags().StringVarP(&chatResume, "resume", "r", "", "Resume a session by id, id prefix, or 'last'")
	cmd.Flags().StringArrayVarP(&chatFiles, "file", "f", nil, "File(s) to include as context (globs and path:start-end supported)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))

	prompt := strings.TrimSpace(strings.Join(args, " "))
	var stdin string
	if !stdinTTY {
		if stdin, err = input.ReadStdin(); err != nil {
			return err
		}
		// Piped input with no prompt is the prompt itself.
		if prompt == "" {
			prompt, stdin = strings.TrimSpace(stdin), ""
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{
		Model:       chatModel,
		Mode:        chatMode,
		Out:         os.Stdout,
		Interactive: stdinTTY && stdoutTTY,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if chatResume != "" {
		if err := a.resume(ctx, chatResume); err != nil {
			return err
		}
		if chatModel != "" {
			a.setModel(chatModel)
		}
		if chatMode != "" {
			mode, _ := tools.ParseMode(chatMode)
			a.setMode(ctx, mode)
		}
	}

	files, err := input.ReadFiles(a.workDir, chatFiles)
	if err != nil {
		return err
	}
	fileContext := input.FormatContext(files, stdin)

	renderer := ui.NewRenderer(os.Stdout, a.styles, stdoutTTY, terminalWidth())

	if prompt != "" {
		ctx, stop := signal.NotifyContext()
		defer stop()
		return a.oneShot(ctx, renderer, prompt, fileContext)
	}
	if !stdinTTY {
		return errors.New("no prompt given")
	}
	return a.repl(ctx, renderer, fileContext)
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func (a *app) oneShot(ctx context.Context, r *ui.Renderer, prompt, fileContext string) error {
	ok, err := a.runTurn(ctx, r, prompt, fileContext, nil)
	if err != nil {
		return err
	}
	if !ok && ctx.Err() == nil {
		return errTurnFailed
	}
	return nil
}

// runTurn sends one prompt and renders its events until the turn completes.
// A signal on interrupts cancels the turn. It reports false when the turn
// produced an error event.
func (a *app) runTurn(ctx context.Context, r *ui.Renderer, prompt, fileContext string, interrupts <-chan os.Signal) (bool, error) {
	text, refs := input.ResolveReferences(a.workDir, prompt)
	if len(refs) > 0 {
		extra := input.FormatContext(refs, "")
		if fileContext == "" {
			fileContext = extra
		} else {
			fileContext += "\n\n" + extra
		}
	}
	if err := a.ensureSession(ctx, text); err != nil {
		slog.Warn("continuing without a saved session", "error", err)
	}

	events := make(chan agent.Event, 64)
	done := make(chan error, 1)
	go func() {
		done <- a.agent.Send(ctx, text, fileContext, events)
		close(events)
	}()

	ok := true
	for {
		select {
		case ev, open := <-events:
			if !open {
				return ok, <-done
			}
			switch e := ev.(type) {
			case agent.AskUser:
				a.answer(ctx, e)
				continue
			case agent.ErrorEvent:
				ok = false
			}
			r.Handle(ev)
		case <-interrupts:
			a.agent.Cancel()
		}
	}
}

// answer prompts for an ask_user batch, or declines it when there is no
// terminal to ask on.
func (a *app) answer(ctx context.Context, ev agent.AskUser) {
	if !a.interactive {
		ev.Reply.Cancel()
		return
	}
	answers, err := ui.AskQuestions(ctx, ev.Questions)
	if err != nil {
		if !errors.Is(err, ui.ErrAborted) {
			slog.Warn("ask_user prompt failed", "error", err)
		}
		ev.Reply.Cancel()
		return
	}
	ev.Reply.Answer(answers...)
}

func (a *app) repl(ctx context.Context, r *ui.Renderer, fileContext string) error {
	fmt.Fprintln(a.out, a.styles.Title.Render("minmax-code")+" "+a.styles.Muted.Render(a.statusLine()))
	fmt.Fprintln(a.out, a.styles.Muted.Render("Type /help for commands. Ctrl+C twice to exit."))

	interrupts, stop := signal.Interrupts()
	defer stop()

	lines := newLineReader(os.Stdin)
	press := signal.DoublePress{Window: exitWindow}
	for {
		fmt.Fprint(a.out, a.promptString())
		select {
		case res := <-lines.Next():
			lines.Done()
			press.Reset()
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					fmt.Fprintln(a.out)
					return nil
				}
				return res.err
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				quit, err := a.runCommand(ctx, line)
				if err != nil {
					fmt.Fprintln(a.out, a.styles.Error.Render("error: "+err.Error()))
				}
				if quit {
					return nil
				}
				continue
			}
			if _, err := a.runTurn(ctx, r, line, fileContext, interrupts); err != nil {
				fmt.Fprintln(a.out, a.styles.Error.Render("error: "+err.Error()))
			}
			fileContext = ""
		case <-interrupts:
			fmt.Fprintln(a.out)
			if press.Press(time.Now()) {
				return nil
			}
			fmt.Fprintln(a.out, a.styles.Muted.Render("(press Ctrl+C again to exit)"))
		}
	}
}

func (a *app) promptString() string {
	return a.styles.Prompt.Render(string(a.agent.Mode())+" > ")
}

func (a *app) statusLine() string {
	return fmt.Sprintf("%s · %s · %s", a.agent.Model(), a.agent.Mode(), a.workDir)
}

type lineResult struct {
	line string
	err  error
}

// lineReader reads one line per request so stdin is left alone while a
// turn runs and ask_user prompts own the terminal.
type lineReader struct {
	req     chan struct{}
	results chan lineResult
	pending bool
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		req:     make(chan struct{}),
		results: make(chan lineResult, 1),
	}
	go func() {
		br := bufio.NewReader(r)
		for range lr.req {
			line, err := br.ReadString('\n')
			if err != nil && line != "" && errors.Is(err, io.EOF) {
				err = nil
			}
			lr.results <- lineResult{line: strings.TrimRight(line, "\r\n"), err: err}
		}
	}()
	return lr
}

// Next requests a line unless one is already outstanding and returns the
// channel it will arrive on. Call Done after receiving from it.
func (lr *lineReader) Next() <-chan lineResult {
	if !lr.pending {
		lr.req <- struct{}{}
		lr.pending = true
	}
	return lr.results
}

// Done marks the outstanding line as consumed.
func (lr *lineReader) Done() {
	lr.pending = false
}
