package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	configPath string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "minmax-code [prompt]",
	Short: "Coding agent for the MiniMax API",
	Long: `minmax-code is a terminal coding agent for MiniMax models.

Run without arguments for an interactive session, or pass a prompt to run a
single turn and exit.

Examples:
  minmax-code                              # interactive session
  minmax-code "explain internal/llm"       # one-shot
  minmax-code --mode plan                  # read-only tools
  minmax-code --resume last                # continue the last session
  minmax-code -f main.go "review this"     # attach a file
  git diff | minmax-code "write a commit message"

  minmax-code config set api_key sk-...    # configure
  minmax-code quota                        # coding plan usage`,
	Args:              cobra.ArbitraryArgs,
	RunE:              runChat,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(debugLog)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/minmax-code/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write debug logs to $XDG_DATA_HOME/minmax-code/debug.log")
	addChatFlags(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
