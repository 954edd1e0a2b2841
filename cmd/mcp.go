package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samsaffron/minmax-code/internal/mcp"
	"github.com/samsaffron/minmax-code/internal/signal"
	"github.com/samsaffron/minmax-code/internal/ui"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Inspect MCP servers",
	Long: `Inspect the MCP servers configured under mcp_servers.

Servers are stdio processes started with the chat session. Their tools are
offered to the model as mcp__<server>__<tool>.

Example config:
  mcp_servers:
    fs:
      command: npx
      args: ["-y", "@modelcontextprotocol/server-filesystem", "."]
      env:
        DEBUG: "0"`,
	RunE: runMCPList,
}

var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers",
	Args:  cobra.NoArgs,
	RunE:  runMCPList,
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools [server...]",
	Short: "Start servers and list their tools",
	RunE:  runMCPTools,
}

func init() {
	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpToolsCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(cfg.MCPServers) == 0 {
		fmt.Fprintf(out, "No MCP servers configured. Add them under mcp_servers in %s\n", cfg.Path())
		return nil
	}
	for _, name := range mcp.SortedNames(cfg.MCPServers) {
		srv := cfg.MCPServers[name]
		fmt.Fprintf(out, "%-16s %s\n", name, strings.Join(append([]string{srv.Command}, srv.Args...), " "))
	}
	return nil
}

func runMCPTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	servers := cfg.MCPServers
	if len(args) > 0 {
		servers = make(map[string]mcp.ServerConfig, len(args))
		for _, name := range args {
			srv, ok := cfg.MCPServers[name]
			if !ok {
				return fmt.Errorf("MCP server %q is not configured", name)
			}
			servers[name] = srv
		}
	}
	if len(servers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No MCP servers configured.")
		return nil
	}

	ctx, stop := signal.NotifyContext()
	defer stop()

	manager := mcp.NewManager()
	defer manager.Shutdown()
	manager.ConnectAll(ctx, servers)

	out := cmd.OutOrStdout()
	printMCPStatus(out, ui.NewStyles(out, nil), manager)
	return nil
}

// printMCPStatus lists each server's connection outcome and its tools.
func printMCPStatus(w io.Writer, styles *ui.Styles, manager *mcp.Manager) {
	statuses := manager.Statuses()
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No MCP servers connected.")
		return
	}

	byServer := make(map[string][]mcp.ToolInfo)
	for _, info := range manager.Tools() {
		byServer[info.Server] = append(byServer[info.Server], info)
	}

	for _, st := range statuses {
		if st.Status == mcp.StatusFailed {
			fmt.Fprintf(w, "%s %s %s\n", styles.Error.Render(ui.FailIcon), st.Name, styles.Muted.Render(fmt.Sprintf("%v", st.Error)))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", styles.Success.Render(ui.SuccessIcon), st.Name, styles.Muted.Render(fmt.Sprintf("(%d tools)", st.Tools)))
		tools := byServer[st.Name]
		sort.Slice(tools, func(i, j int) bool { return tools[i].Tool < tools[j].Tool })
		for _, t := range tools {
			line := "    " + mcp.PrefixedName(t.Server, t.Tool)
			if t.Description != "" {
				line += styles.Muted.Render("  " + ui.Truncate(firstLine(t.Description), 60))
			}
			fmt.Fprintln(w, line)
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
