package tui

import (
	"context"
	"time"

	"github.com/insajin/mcp-workflow/internal/mcp"
)

// DashboardData holds all data displayed on the dashboard.
type DashboardData struct {
	Report mcp.StatusReport
	// Health is keyed by server name. Servers without lifecycle events may be missing.
	Health    map[string]mcp.ServerHealth
	FetchedAt time.Time
}

// DataProvider fetches a dashboard snapshot.
type DataProvider interface {
	FetchData() DashboardData
}

// ServerController is optionally implemented by a DataProvider to allow
// starting and stopping the selected server from the dashboard.
type ServerController interface {
	StartServer(ctx context.Context, name string) error
	StopServer(ctx context.Context, name string) error
}

// managerProvider reads status from a Manager and restart counters from a HealthMonitor.
type managerProvider struct {
	manager *mcp.Manager
	health  *mcp.HealthMonitor
}

// NewManagerProvider creates a DataProvider backed by a live Manager.
// health may be nil, in which case restart counters are not shown.
func NewManagerProvider(manager *mcp.Manager, health *mcp.HealthMonitor) DataProvider {
	return &managerProvider{manager: manager, health: health}
}

// FetchData prunes dead adopted processes, then collects status and health.
func (p *managerProvider) FetchData() DashboardData {
	data := DashboardData{FetchedAt: time.Now(), Health: map[string]mcp.ServerHealth{}}
	if p.health != nil {
		for _, sh := range p.health.Sweep().Servers {
			data.Health[sh.Name] = sh
		}
	} else {
		p.manager.Prune()
	}
	data.Report = p.manager.Status()
	return data
}

func (p *managerProvider) StartServer(ctx context.Context, name string) error {
	return p.manager.StartServer(ctx, name)
}

func (p *managerProvider) StopServer(ctx context.Context, name string) error {
	return p.manager.StopServer(ctx, name)
}
