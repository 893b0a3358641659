package mcp

import (
	"sort"
	"time"

	"github.com/insajin/mcp-workflow/internal/metrics"
)

// ServerStatus는 서버 하나의 상태입니다.
type ServerStatus struct {
	Running     bool       `json:"running"`
	Enabled     bool       `json:"enabled"`
	Autostart   bool       `json:"autostart"`
	Priority    int        `json:"priority"`
	Description string     `json:"description,omitempty"`
	PID         *int       `json:"pid"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Uptime      string     `json:"uptime,omitempty"`
	LogFile     string     `json:"logFile,omitempty"`
	Session     string     `json:"session,omitempty"`
}

// WorkflowStatus는 워크플로 준비 상태입니다.
// RunningServers는 실행 중인 서버 수이고, 이름 목록은 RunningServerNames에 있습니다.
type WorkflowStatus struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	RequiredServers    []string `json:"requiredServers"`
	RunningServers     int      `json:"runningServers"`
	TotalServers       int      `json:"totalServers"`
	Ready              bool     `json:"ready"`
	RunningServerNames []string `json:"runningServerNames"`
}

// StatusReport는 전체 상태 보고서입니다.
type StatusReport struct {
	Timestamp          string                    `json:"timestamp"`
	WorkflowRoot       string                    `json:"workflowRoot"`
	Servers            map[string]ServerStatus   `json:"servers"`
	Workflows          map[string]WorkflowStatus `json:"workflows"`
	RunningServerCount int                       `json:"runningServerCount"`
	TotalServerCount   int                       `json:"totalServerCount"`
	Supervisor         metrics.MetricsSnapshot   `json:"supervisor"`
}

// Status는 설정된 모든 서버와 워크플로의 상태를 수집합니다.
func (m *Manager) Status() StatusReport {
	now := time.Now()
	cfg := m.ws.Config()

	report := StatusReport{
		Timestamp:        now.Format(time.RFC3339),
		WorkflowRoot:     m.ws.Root,
		Servers:          make(map[string]ServerStatus, len(cfg.Servers)),
		Workflows:        make(map[string]WorkflowStatus, len(cfg.Workflows)),
		TotalServerCount: len(cfg.Servers),
		Supervisor:       m.metrics.Snapshot(),
	}

	for name, entry := range cfg.Servers {
		st := ServerStatus{
			Enabled:     entry.Enabled,
			Autostart:   entry.Autostart,
			Priority:    entry.Priority,
			Description: entry.Description,
		}
		if proc, ok := m.GetProcessInfo(name); ok {
			pid := proc.PID
			started := proc.StartedAt
			st.Running = true
			st.PID = &pid
			st.LogFile = proc.LogFile
			st.Session = proc.Session
			if !started.IsZero() {
				st.StartedAt = &started
				st.Uptime = now.Sub(started).Round(time.Second).String()
			}
			report.RunningServerCount++
		}
		report.Servers[name] = st
	}

	for id, wf := range cfg.Workflows {
		running := []string{}
		for _, name := range wf.Servers {
			if report.Servers[name].Running {
				running = append(running, name)
			}
		}
		required := append([]string{}, wf.Servers...)
		report.Workflows[id] = WorkflowStatus{
			Name:            wf.Name,
			Description:     wf.Description,
			RequiredServers: required,
			RunningServers:     len(running),
			TotalServers:       len(wf.Servers),
			Ready:              len(running) == len(wf.Servers),
			RunningServerNames: running,
		}
	}

	return report
}

// ServerNames는 보고서의 서버 이름을 정렬하여 반환합니다.
func (r StatusReport) ServerNames() []string {
	names := make([]string, 0, len(r.Servers))
	for name := range r.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkflowIDs는 보고서의 워크플로 ID를 정렬하여 반환합니다.
func (r StatusReport) WorkflowIDs() []string {
	ids := make([]string, 0, len(r.Workflows))
	for id := range r.Workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
