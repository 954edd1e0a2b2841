package cmd

import (
	"fmt"
	"io"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/samsaffron/minmax-code/internal/signal"
	"github.com/samsaffron/minmax-code/internal/ui"
	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show coding plan usage",
	Long: `Show how much of the coding plan allowance is used in the current
rate-limit window, and when it resets.

The endpoints tried can be overridden with quota.endpoints in the config.`,
	Args: cobra.NoArgs,
	RunE: runQuota,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}

func runQuota(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext()
	defer stop()

	q, err := llm.NewClient(cfg.ClientConfig()).FetchQuota(ctx)
	if err != nil {
		return err
	}
	printQuota(cmd.OutOrStdout(), ui.NewStyles(cmd.OutOrStdout(), nil), q)
	return nil
}

func printQuota(w io.Writer, styles *ui.Styles, q *llm.Quota) {
	for _, line := range formatQuota(q) {
		fmt.Fprintln(w, line)
	}
	if q.Endpoint != "" {
		fmt.Fprintln(w, styles.Muted.Render("via "+q.Endpoint))
	}
}

func formatQuota(q *llm.Quota) []string {
	var lines []string
	if q.Model != "" {
		lines = append(lines, "Model:     "+q.Model)
	}
	used := fmt.Sprintf("Used:      %d / %d", q.Used, q.Total)
	if q.Total > 0 {
		used += fmt.Sprintf(" (%d%%)", q.Used*100/q.Total)
	}
	lines = append(lines,
		used,
		fmt.Sprintf("Remaining: %d", q.Remaining),
		"Resets in: "+formatMinutes(q.ResetMinutes),
	)
	return lines
}

func formatMinutes(m int64) string {
	if m <= 0 {
		return "now"
	}
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
