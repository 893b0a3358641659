// Package tui provides a Bubble Tea dashboard for the MCP workflow manager.
// styles.go defines lipgloss styles for the dashboard panels and status indicators.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/mcp-workflow/internal/branding"
)

// Panel border and title styles.
var (
	// panelStyle defines the base panel with a rounded border.
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(branding.ColorBorderGray)).
			Padding(0, 1)

	// activePanelStyle highlights the currently focused panel.
	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(branding.ColorPrimary)).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			Background(lipgloss.Color(branding.ColorDeepBlue)).
			Padding(0, 1)
)

// Server state styles.
var (
	stateRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorTeal)).
			Bold(true)

	stateStopped = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMutedGray))

	stateError = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorCoral)).
			Bold(true)

	stateDisabled = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorBorderGray)).
			Italic(true)
)

// Workflow readiness styles.
var (
	workflowReady = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorTeal))

	workflowIncomplete = lipgloss.NewStyle().
				Foreground(lipgloss.Color(branding.ColorAmber))
)

// Table formatting styles.
var (
	// headerStyle formats table column headers.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(branding.ColorRichBlue))

	// selectedRowStyle highlights the currently selected table row.
	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color(branding.ColorDeepBlue)).
				Foreground(lipgloss.Color(branding.ColorWhite))

	normalRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLightGray))
)

// Label and value styles for key-value pairs.
var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLightGray)).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorWhite))
)

// Footer and help styles.
var (
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMutedGray))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorTeal)).
			Bold(true)
)
