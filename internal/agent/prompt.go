package agent

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samsaffron/minmax-code/internal/tools"
)

// AgentFile is read from the working directory and appended to the system
// prompt when present.
const AgentFile = "agent.md"

const planPrompt = `You are a coding assistant in a terminal (READ-ONLY mode).
Working directory: %s

Available tools: %s.
You CANNOT write, edit, or run commands. Tell the user to switch to BUILDER mode (/mode) for modifications.
Focus on: analysis, planning, explaining code, suggesting strategies.
Use ask_user to ask the user clarifying questions when you need more information to proceed.`

const builderPrompt = `You are a coding assistant in a terminal.
Working directory: %s

TOOL USAGE:
- Read before editing: always use read_file before edit_file to see current content
- Use edit_file for modifications to existing files, write_file only for new files
- Use glob/grep to find files before reading them
- Use bash for git, npm, and other CLI operations
- Use web_search for current information, docs, or answers not in local files
- Use ask_user when you need user clarification, confirmation, or to let the user choose between alternatives
- Use todo_write to track multi-step work
- Execute one logical step at a time, verify results, then proceed

Be concise. Show relevant code, skip obvious explanations.`

// SystemPrompt builds the system message for mode. toolNames lists the
// local tools available in plan mode.
func SystemPrompt(mode tools.Mode, workDir string, toolNames []string) string {
	var base string
	if mode == tools.ModePlan {
		base = fmt.Sprintf(planPrompt, workDir, strings.Join(toolNames, ", "))
	} else {
		base = fmt.Sprintf(builderPrompt, workDir)
	}

	data, err := os.ReadFile(filepath.Join(workDir, AgentFile))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read agent file", "path", AgentFile, "error", err)
		}
		return base
	}
	return base + "\n\n--- agent.md ---\n" + string(data)
}
