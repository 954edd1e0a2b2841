package cmd

import (
	"fmt"

	"github.com/samsaffron/minmax-code/internal/llm"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List the MiniMax models the coding plan offers. The configured default is
marked with *.

Examples:
  minmax-code models
  minmax-code config set model MiniMax-M2.5-highspeed`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range llm.Models {
		marker := " "
		if m == cfg.Model {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, m)
	}
	if !llm.IsKnownModel(cfg.Model) {
		fmt.Fprintf(out, "* %s (custom)\n", cfg.Model)
	}
	return nil
}
