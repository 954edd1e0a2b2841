package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/session"
	"github.com/samsaffron/minmax-code/internal/ui"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
	Long: `List, show, rename, and delete saved sessions.

Sessions can be referred to by full id or any unique prefix.

Examples:
  minmax-code sessions                       # List recent sessions
  minmax-code sessions show 3f2a
  minmax-code sessions rename 3f2a "Auth refactor"
  minmax-code sessions delete 3f2a
  minmax-code --resume 3f2a                  # continue it`,
	RunE: runSessionsList, // Default to list
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSessionsRename,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

// Flags
var (
	sessionsLimit int
	sessionsJSON  bool
)

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list")
	sessionsShowCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(context.Background(), sessionsLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	printSessionList(cmd.OutOrStdout(), summaries, time.Now())
	return nil
}

func printSessionList(w io.Writer, summaries []session.Summary, now time.Time) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-40s %4s  %-7s  %-22s %s\n", "ID", "NAME", "MSGS", "MODE", "MODEL", "UPDATED")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, s := range summaries {
		fmt.Fprintf(w, "%-8s  %-40s %4d  %-7s  %-22s %s\n",
			shortID(s.ID), ui.Truncate(sessionLabel(s.Session), 40), s.MessageCount,
			s.Mode, s.Model, formatRelativeTime(s.UpdatedAt, now))
	}
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sess, err := resolveSession(ctx, store, args[0])
	if err != nil {
		return err
	}
	messages, err := store.Messages(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}

	if sessionsJSON {
		data := struct {
			Session  *session.Session       `json:"session"`
			Messages []session.StoredMessage `json:"messages"`
		}{
			Session:  sess,
			Messages: messages,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", sess.ID)
	fmt.Fprintf(out, "Name: %s\n", sessionLabel(*sess))
	fmt.Fprintf(out, "Model: %s\n", sess.Model)
	fmt.Fprintf(out, "Mode: %s\n", sess.Mode)
	fmt.Fprintf(out, "Created: %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Updated: %s\n", sess.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Messages: %d\n\n", len(messages))
	printTranscript(out, messages)
	return nil
}

// printTranscript writes messages as a readable log. Tool results are cut
// to their first lines.
func printTranscript(w io.Writer, messages []session.StoredMessage) {
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			fmt.Fprintf(w, "> %s\n\n", m.Content)
		case llm.RoleAssistant:
			if m.Content != "" {
				fmt.Fprintf(w, "%s\n\n", m.Content)
			}
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(w, "%s %s %s\n", ui.ToolIcon, tc.Name, ui.Truncate(tc.Arguments, 80))
			}
		case llm.RoleTool:
			lines := strings.Split(strings.TrimRight(m.Content, "\n"), "\n")
			fmt.Fprintf(w, "  %s %s\n", ui.ResultIcon, ui.Truncate(lines[0], 80))
			if len(lines) > 1 {
				fmt.Fprintf(w, "    … +%d lines\n", len(lines)-1)
			}
			fmt.Fprintln(w)
		}
	}
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sess, err := resolveSession(ctx, store, args[0])
	if err != nil {
		return err
	}
	name := strings.Join(args[1:], " ")
	if err := store.Rename(ctx, sess.ID, name); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(sess.ID), name)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := getSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sess, err := resolveSession(ctx, store, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s (%s)\n", shortID(sess.ID), sessionLabel(*sess))
	return nil
}
