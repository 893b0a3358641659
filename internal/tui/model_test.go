package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/insajin/mcp-workflow/internal/mcp"
)

// staticDataProvider returns fixed data for deterministic tests.
type staticDataProvider struct {
	data    DashboardData
	fetches int
}

func (s *staticDataProvider) FetchData() DashboardData {
	s.fetches++
	return s.data
}

// controllingProvider also implements ServerController.
type controllingProvider struct {
	staticDataProvider
	started []string
	stopped []string
	err     error
}

func (c *controllingProvider) StartServer(_ context.Context, name string) error {
	c.started = append(c.started, name)
	return c.err
}

func (c *controllingProvider) StopServer(_ context.Context, name string) error {
	c.stopped = append(c.stopped, name)
	return c.err
}

func intPtr(i int) *int { return &i }

func testData() DashboardData {
	lastErr := "exit code 1"
	return DashboardData{
		Report: mcp.StatusReport{
			WorkflowRoot: "/home/u/MCP-Workflow",
			Servers: map[string]mcp.ServerStatus{
				"filesystem": {Running: true, Enabled: true, Priority: 100, PID: intPtr(4242), Uptime: "1m 3s"},
				"github":     {Enabled: true, Priority: 60, Description: "GitHub integration"},
				"memory":     {Enabled: true, Priority: 90},
				"puppeteer":  {Enabled: false, Priority: 30},
			},
			Workflows: map[string]mcp.WorkflowStatus{
				"development": {Name: "Development", RequiredServers: []string{"filesystem", "github"}, RunningServers: 1, TotalServers: 2},
				"research":    {Name: "Research", RequiredServers: []string{"filesystem"}, RunningServers: 1, TotalServers: 1, Ready: true},
			},
			RunningServerCount: 1,
			TotalServerCount:   4,
		},
		Health: map[string]mcp.ServerHealth{
			"memory": {Name: "memory", Status: "error", Restarts: 2, LastError: &lastErr},
		},
		FetchedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestProvider() *staticDataProvider {
	return &staticDataProvider{data: testData()}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(key(k))
		m = updated.(Model)
	}
	return m, cmd
}

func TestNewModel_InitialState(t *testing.T) {
	m := NewModel(newTestProvider())

	if m.activePanel != PanelServers {
		t.Errorf("expected initial panel to be PanelServers, got %d", m.activePanel)
	}
	if m.SelectedServer() != "filesystem" {
		t.Errorf("SelectedServer() = %q, want filesystem (sorted first)", m.SelectedServer())
	}
	if m.controller != nil {
		t.Error("read-only provider must not be used as controller")
	}
}

func TestKeyBinding_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m, cmd := press(t, NewModel(newTestProvider()), k)
		if !m.quitting {
			t.Errorf("%s: expected quitting", k)
		}
		if cmd == nil {
			t.Errorf("%s: expected tea.Quit command", k)
		}
		if !strings.Contains(m.View(), "closed") {
			t.Errorf("%s: unexpected quit view %q", k, m.View())
		}
	}
}

func TestKeyBinding_TabCycles(t *testing.T) {
	m := NewModel(newTestProvider())
	m, _ = press(t, m, "tab")
	if m.activePanel != PanelWorkflows {
		t.Errorf("after tab: %d, want PanelWorkflows", m.activePanel)
	}
	m, _ = press(t, m, "tab", "tab")
	if m.activePanel != PanelServers {
		t.Errorf("after 3 tabs: %d, want PanelServers", m.activePanel)
	}
	m, _ = press(t, m, "shift+tab")
	if m.activePanel != PanelSupervisor {
		t.Errorf("after shift+tab: %d, want PanelSupervisor", m.activePanel)
	}
}

func TestKeyBinding_SelectionBounds(t *testing.T) {
	m := NewModel(newTestProvider())

	m, _ = press(t, m, "up")
	if m.selectedServer != 0 {
		t.Errorf("selection must not go below 0, got %d", m.selectedServer)
	}
	m, _ = press(t, m, "down", "j", "down", "down", "down")
	if m.SelectedServer() != "puppeteer" {
		t.Errorf("SelectedServer() = %q, want last server", m.SelectedServer())
	}

	// workflow panel keeps its own selection
	m, _ = press(t, m, "tab", "down")
	if m.selectedFlow != 1 || m.SelectedServer() != "puppeteer" {
		t.Errorf("selectedFlow = %d, server = %q", m.selectedFlow, m.SelectedServer())
	}
}

func TestKeyBinding_Refresh(t *testing.T) {
	p := newTestProvider()
	m := NewModel(p)
	press(t, m, "r")
	if p.fetches != 2 {
		t.Errorf("fetches = %d, want 2", p.fetches)
	}
}

func TestTick_RefreshesAndReschedules(t *testing.T) {
	p := newTestProvider()
	m := NewModel(p)
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick must schedule the next tick")
	}
	if p.fetches != 2 {
		t.Errorf("fetches = %d, want 2", p.fetches)
	}
}

func TestRefresh_ClampsSelection(t *testing.T) {
	p := newTestProvider()
	m := NewModel(p)
	m, _ = press(t, m, "down", "down", "down")

	p.data.Report.Servers = map[string]mcp.ServerStatus{"only": {}}
	m, _ = press(t, m, "r")
	if m.SelectedServer() != "only" || m.selectedServer != 0 {
		t.Errorf("selection = %d (%q), want 0", m.selectedServer, m.SelectedServer())
	}
}

func TestServerAction_ReadOnly(t *testing.T) {
	m, cmd := press(t, NewModel(newTestProvider()), "s")
	if cmd != nil {
		t.Error("read-only dashboard must not run actions")
	}
	if !m.statusErr {
		t.Error("expected an error status line")
	}
}

func TestServerAction_StartStop(t *testing.T) {
	p := &controllingProvider{staticDataProvider: staticDataProvider{data: testData()}}
	m := NewModel(p)

	m, cmd := press(t, m, "down", "s")
	if cmd == nil || !m.busy {
		t.Fatal("expected a start command")
	}

	// 작업 중에는 중복 실행하지 않음
	if _, dup := press(t, m, "x"); dup != nil {
		t.Error("no second action while busy")
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if len(p.started) != 1 || p.started[0] != "github" {
		t.Errorf("started = %v, want [github]", p.started)
	}
	if m.busy || m.statusErr || m.status != "start github" {
		t.Errorf("status = %q err=%v busy=%v", m.status, m.statusErr, m.busy)
	}

	p.err = errors.New("boom")
	m, cmd = press(t, m, "x")
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if len(p.stopped) != 1 || !m.statusErr || !strings.Contains(m.status, "boom") {
		t.Errorf("stopped = %v status = %q", p.stopped, m.status)
	}
}

func TestServerAction_OnlyInServerPanel(t *testing.T) {
	p := &controllingProvider{staticDataProvider: staticDataProvider{data: testData()}}
	m, cmd := press(t, NewModel(p), "tab", "s")
	if cmd != nil || m.busy {
		t.Error("actions only apply to the server panel")
	}
}

func TestView_RendersPanels(t *testing.T) {
	m := NewModel(newTestProvider())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := updated.(Model).View()

	for _, want := range []string{
		"Servers", "Workflows", "Supervisor",
		"filesystem", "4242", "running", "disabled", "error",
		"development", "incomplete", "ready", "1/2",
		"[1/4 running]",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_Detail(t *testing.T) {
	m := NewModel(newTestProvider())
	m, _ = press(t, m, "down", "down", "d")
	view := m.View()
	if !strings.Contains(view, "last error: exit code 1") {
		t.Error("detail view should show memory's last error")
	}
}

func TestView_Empty(t *testing.T) {
	m := NewModel(&staticDataProvider{})
	view := m.View()
	if !strings.Contains(view, "No servers configured") || !strings.Contains(view, "No workflows configured") {
		t.Error("empty placeholders missing")
	}
	// 빈 목록에서 키 입력이 패닉을 일으키지 않아야 함
	press(t, m, "down", "up", "s", "d")
}

func TestScroll_ManyServers(t *testing.T) {
	data := DashboardData{Report: mcp.StatusReport{Servers: map[string]mcp.ServerStatus{}}}
	for i := 0; i < 12; i++ {
		data.Report.Servers[fmt.Sprintf("srv-%02d", i)] = mcp.ServerStatus{}
	}
	m := NewModel(&staticDataProvider{data: data})
	for i := 0; i < 10; i++ {
		m, _ = press(t, m, "down")
	}
	if m.serverOffset != 10-maxVisibleRows+1 {
		t.Errorf("serverOffset = %d", m.serverOffset)
	}
	if !strings.Contains(m.View(), "[11/12 servers]") {
		t.Error("scroll indicator missing")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
