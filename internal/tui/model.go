// model.go implements the main Bubble Tea model with three panels:
// servers, workflows, and supervisor counters.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/mcp-workflow/internal/branding"
	"github.com/insajin/mcp-workflow/internal/mcp"
)

// Panel represents which dashboard panel is currently focused.
type Panel int

const (
	// PanelServers is the server table (top).
	PanelServers Panel = iota
	// PanelWorkflows is the workflow readiness table (middle).
	PanelWorkflows
	// PanelSupervisor shows supervisor counters (bottom).
	PanelSupervisor

	panelCount = 3
)

const (
	maxVisibleRows  = 8
	refreshInterval = 2 * time.Second
	actionTimeout   = 30 * time.Second
)

// tickMsg signals a periodic data refresh.
type tickMsg time.Time

// actionResultMsg carries the outcome of a start/stop action.
type actionResultMsg struct {
	text string
	err  error
}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	data     DashboardData
	provider DataProvider
	// controller is nil when the provider is read-only.
	controller ServerController

	activePanel    Panel
	selectedServer int
	serverOffset   int
	selectedFlow   int
	flowOffset     int
	showDetail     bool

	// status is the last action message shown above the footer.
	status    string
	statusErr bool
	busy      bool

	width    int
	height   int
	quitting bool
}

// NewModel creates a new dashboard Model with the given DataProvider.
func NewModel(provider DataProvider) Model {
	m := Model{
		data:        provider.FetchData(),
		provider:    provider,
		activePanel: PanelServers,
	}
	if c, ok := provider.(ServerController); ok {
		m.controller = c
	}
	return m
}

// Init implements tea.Model. It starts the auto-refresh ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It processes messages and updates state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case actionResultMsg:
		m.busy = false
		m.statusErr = msg.err != nil
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.text, msg.err)
		} else {
			m.status = msg.text
		}
		m.refresh()
		return m, nil
	}

	return m, nil
}

// refresh fetches a new snapshot and keeps selections in range.
func (m *Model) refresh() {
	m.data = m.provider.FetchData()
	m.selectedServer = clamp(m.selectedServer, len(m.serverNames()))
	m.selectedFlow = clamp(m.selectedFlow, len(m.workflowIDs()))
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m Model) serverNames() []string {
	return m.data.Report.ServerNames()
}

func (m Model) workflowIDs() []string {
	return m.data.Report.WorkflowIDs()
}

// SelectedServer returns the name of the highlighted server, or "" if none.
func (m Model) SelectedServer() string {
	names := m.serverNames()
	if len(names) == 0 {
		return ""
	}
	return names[clamp(m.selectedServer, len(names))]
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "r":
		m.refresh()
		return m, nil

	case "d":
		m.showDetail = !m.showDetail
		return m, nil

	case "tab":
		m.activePanel = (m.activePanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
		return m, nil

	case "up", "k":
		m.moveSelection(-1)
		return m, nil

	case "down", "j":
		m.moveSelection(1)
		return m, nil

	case "s":
		return m.serverAction(true)

	case "x":
		return m.serverAction(false)
	}

	return m, nil
}

func (m *Model) moveSelection(delta int) {
	switch m.activePanel {
	case PanelServers:
		m.selectedServer, m.serverOffset = scroll(m.selectedServer, m.serverOffset, delta, len(m.serverNames()))
	case PanelWorkflows:
		m.selectedFlow, m.flowOffset = scroll(m.selectedFlow, m.flowOffset, delta, len(m.workflowIDs()))
	}
}

// scroll moves the selection and adjusts the offset so it stays visible.
func scroll(selected, offset, delta, n int) (int, int) {
	if n == 0 {
		return 0, 0
	}
	selected = clamp(selected+delta, n)
	if selected < offset {
		offset = selected
	}
	if selected >= offset+maxVisibleRows {
		offset = selected - maxVisibleRows + 1
	}
	return selected, offset
}

// serverAction starts or stops the selected server in the background.
func (m Model) serverAction(start bool) (tea.Model, tea.Cmd) {
	if m.activePanel != PanelServers || m.busy {
		return m, nil
	}
	if m.controller == nil {
		m.status = "read-only dashboard"
		m.statusErr = true
		return m, nil
	}
	name := m.SelectedServer()
	if name == "" {
		return m, nil
	}

	verb := "stop"
	if start {
		verb = "start"
	}
	m.busy = true
	m.status = fmt.Sprintf("%sing %s...", verb, name)
	m.statusErr = false

	ctrl := m.controller
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		var err error
		if start {
			err = ctrl.StartServer(ctx, name)
		} else {
			err = ctrl.StopServer(ctx, name)
		}
		return actionResultMsg{text: fmt.Sprintf("%s %s", verb, name), err: err}
	}
}

// View implements tea.Model. It renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return branding.AppName + " dashboard closed.\n"
	}

	w := m.width
	if w == 0 {
		w = 80
	}
	contentWidth := w - 2
	if contentWidth < 60 {
		contentWidth = 60
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(contentWidth),
		m.renderServerPanel(contentWidth),
		m.renderWorkflowPanel(contentWidth),
		m.renderSupervisorPanel(contentWidth),
		m.renderStatusLine(),
		m.renderFooter(contentWidth),
	)
}

func (m Model) renderHeader(width int) string {
	r := m.data.Report
	text := fmt.Sprintf("%s  %s  [%d/%d running]", branding.AppName, r.WorkflowRoot, r.RunningServerCount, r.TotalServerCount)
	return titleStyle.Width(width).Render(text)
}

func (m Model) renderFooter(width int) string {
	keys := []struct {
		key  string
		desc string
	}{
		{"q", "quit"},
		{"r", "refresh"},
		{"tab", "switch panel"},
		{"up/down", "select"},
		{"s/x", "start/stop"},
		{"d", "detail"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpStyle.Render(k.desc))
	}
	help := strings.Join(parts, helpStyle.Render("  |  "))
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(help)
}

func (m Model) renderStatusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return stateError.Render("  " + m.status)
	}
	return helpStyle.Render("  " + m.status)
}

func (m Model) renderServerPanel(width int) string {
	const (
		colName     = 22
		colState    = 10
		colPID      = 8
		colUptime   = 12
		colRestarts = 9
		colPriority = 8
	)

	rows := []string{headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s",
		colName, "Server",
		colState, "State",
		colPID, "PID",
		colUptime, "Uptime",
		colRestarts, "Restarts",
		colPriority, "Priority",
	))}

	names := m.serverNames()
	if len(names) == 0 {
		rows = append(rows, normalRowStyle.Render("  No servers configured"))
	}

	end := min(m.serverOffset+maxVisibleRows, len(names))
	for i := m.serverOffset; i < end; i++ {
		name := names[i]
		st := m.data.Report.Servers[name]
		health, hasHealth := m.data.Health[name]

		pid, uptime, restarts := "--", "--", "--"
		if st.PID != nil {
			pid = fmt.Sprintf("%d", *st.PID)
		}
		if st.Uptime != "" {
			uptime = st.Uptime
		}
		if hasHealth {
			restarts = fmt.Sprintf("%d", health.Restarts)
		}

		state := m.serverState(st, health, hasHealth)
		row := fmt.Sprintf("%-*s %s %-*s %-*s %-*s %-*d",
			colName, truncate(name, colName),
			state+strings.Repeat(" ", max(0, colState-lipgloss.Width(state))),
			colPID, pid,
			colUptime, uptime,
			colRestarts, restarts,
			colPriority, st.Priority,
		)

		if i == m.selectedServer && m.activePanel == PanelServers {
			rows = append(rows, selectedRowStyle.Render(row))
		} else {
			rows = append(rows, normalRowStyle.Render(row))
		}
	}

	if len(names) > maxVisibleRows {
		rows = append(rows, helpStyle.Render(fmt.Sprintf("  [%d/%d servers]", m.selectedServer+1, len(names))))
	}

	if m.showDetail && len(names) > 0 {
		name := m.SelectedServer()
		st := m.data.Report.Servers[name]
		detail := fmt.Sprintf("\n  %s: %s", name, st.Description)
		if st.LogFile != "" {
			detail += "\n  log: " + st.LogFile
		}
		if h, ok := m.data.Health[name]; ok && h.LastError != nil {
			detail += "\n  last error: " + *h.LastError
		}
		rows = append(rows, helpStyle.Render(detail))
	}

	return titleStyle.Render(" Servers ") + "\n" + m.getPanelStyle(PanelServers, width).Render(strings.Join(rows, "\n"))
}

// serverState returns a color-coded state label.
func (m Model) serverState(st mcp.ServerStatus, health mcp.ServerHealth, hasHealth bool) string {
	switch {
	case st.Running:
		return stateRunning.Render("running")
	case hasHealth && health.Status == "error":
		return stateError.Render("error")
	case !st.Enabled:
		return stateDisabled.Render("disabled")
	default:
		return stateStopped.Render("stopped")
	}
}

func (m Model) renderWorkflowPanel(width int) string {
	const (
		colID      = 16
		colName    = 24
		colReady   = 12
		colServers = 10
	)

	rows := []string{headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %-*s",
		colID, "Workflow",
		colName, "Name",
		colReady, "Ready",
		colServers, "Servers",
	))}

	ids := m.workflowIDs()
	if len(ids) == 0 {
		rows = append(rows, normalRowStyle.Render("  No workflows configured"))
	}

	end := min(m.flowOffset+maxVisibleRows, len(ids))
	for i := m.flowOffset; i < end; i++ {
		wf := m.data.Report.Workflows[ids[i]]
		ready := workflowIncomplete.Render("incomplete")
		if wf.Ready {
			ready = workflowReady.Render("ready")
		}
		row := fmt.Sprintf("%-*s %-*s %s %d/%d",
			colID, truncate(ids[i], colID),
			colName, truncate(wf.Name, colName),
			ready+strings.Repeat(" ", max(0, colReady-lipgloss.Width(ready))),
			wf.RunningServers, wf.TotalServers,
		)
		if i == m.selectedFlow && m.activePanel == PanelWorkflows {
			rows = append(rows, selectedRowStyle.Render(row))
		} else {
			rows = append(rows, normalRowStyle.Render(row))
		}
	}

	if m.showDetail && len(ids) > 0 && m.activePanel == PanelWorkflows {
		wf := m.data.Report.Workflows[ids[clamp(m.selectedFlow, len(ids))]]
		rows = append(rows, helpStyle.Render("\n  requires: "+strings.Join(wf.RequiredServers, ", ")))
	}

	return titleStyle.Render(" Workflows ") + "\n" + m.getPanelStyle(PanelWorkflows, width).Render(strings.Join(rows, "\n"))
}

func (m Model) renderSupervisorPanel(width int) string {
	s := m.data.Report.Supervisor
	kv := func(label, value string) string {
		return labelStyle.Render(label) + " " + valueStyle.Render(value)
	}

	lines := []string{
		kv("Starts:", fmt.Sprintf("%d (failed %d)", s.ServerStarts, s.StartFailures)),
		kv("Stops:", fmt.Sprintf("%d (forced %d)", s.ServerStops, s.ForcedKills)),
		kv("Unexpected exits:", fmt.Sprintf("%d", s.UnexpectedExits)),
		kv("Avg startup:", fmt.Sprintf("%.0f ms", s.AvgStartupMs)),
		kv("Supervisor up:", valueOr(s.Uptime, "--")),
	}
	if !m.data.FetchedAt.IsZero() {
		lines = append(lines, kv("Refreshed:", m.data.FetchedAt.Format("15:04:05")))
	}

	return titleStyle.Render(" Supervisor ") + "\n" + m.getPanelStyle(PanelSupervisor, width).Render(strings.Join(lines, "\n"))
}

// getPanelStyle returns the appropriate panel style based on focus state.
func (m Model) getPanelStyle(panel Panel, width int) lipgloss.Style {
	if m.activePanel == panel {
		return activePanelStyle.Width(width - 2)
	}
	return panelStyle.Width(width - 2)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// truncate shortens a string to maxLen, adding an ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
