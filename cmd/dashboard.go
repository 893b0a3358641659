package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/insajin/mcp-workflow/internal/tui"
	"github.com/spf13/cobra"
)

// dashboardCmd opens the interactive TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open TUI dashboard for monitoring",
	Long: `Opens an interactive TUI dashboard showing server and workflow status.

Panels:
  - Servers: running state, PID, uptime, exits
  - Workflows: readiness of each workflow
  - Supervisor: start/stop counters

Keyboard shortcuts:
  q          quit dashboard
  r          manual refresh
  d          toggle server detail
  s / x      start / stop the selected server
  tab        switch between panels
  up/down    move selection`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

// runDashboard initializes and runs the Bubble Tea TUI program.
// Servers started from the dashboard are detached so they survive quitting.
func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, ws, err := openWorkspace()
	if err != nil {
		return err
	}
	manager := newManager(cfg, ws, true)
	health := mcp.NewHealthMonitor(manager, cfg.Supervisor.HealthInterval)

	model := tui.NewModel(tui.NewManagerProvider(manager, health))

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
