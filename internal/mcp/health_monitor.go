package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ServerStats는 MCP 서버의 라이프사이클 이벤트를 추적합니다.
type ServerStats struct {
	Starts       int
	Stops        int
	Exits        int
	LastExitCode int
	LastSignal   string
	LastExitTime time.Time
}

// ServerHealth는 MCP 서버의 건강 상태 스냅샷입니다.
type ServerHealth struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"` // "running", "stopped", "error"
	PID           int     `json:"pid,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Starts        int     `json:"starts"`
	Restarts      int     `json:"restarts"`
	Exits         int     `json:"exits"`
	LastError     *string `json:"last_error,omitempty"`
}

// HealthReport는 모든 MCP 서버의 건강 상태 보고서입니다.
type HealthReport struct {
	Servers    []ServerHealth `json:"servers"`
	ReportedAt time.Time      `json:"reported_at"`
}

// HealthMonitor는 실행 테이블의 생존 여부를 주기적으로 확인하고 보고합니다.
// Manager의 Observer로 등록되어 시작/종료 이벤트를 집계합니다.
type HealthMonitor struct {
	manager  *Manager
	interval time.Duration

	stats   map[string]*ServerStats
	statsMu sync.RWMutex

	cancel context.CancelFunc
}

// NewHealthMonitor는 새로운 HealthMonitor를 생성하고 Manager에 등록합니다.
func NewHealthMonitor(manager *Manager, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	h := &HealthMonitor{
		manager:  manager,
		interval: interval,
		stats:    make(map[string]*ServerStats),
	}
	manager.SetObserver(h)
	return h
}

// Start는 주기적인 생존 확인 루프를 시작합니다.
// reportFn은 각 틱마다 수집된 HealthReport와 함께 호출됩니다.
// context 취소 또는 Stop() 호출로 종료됩니다.
func (h *HealthMonitor) Start(ctx context.Context, reportFn func(report HealthReport)) {
	monitorCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		log.Info().
			Dur("interval", h.interval).
			Msg("[mcp-health] 헬스 모니터링 시작")

		for {
			select {
			case <-monitorCtx.Done():
				log.Info().Msg("[mcp-health] 헬스 모니터링 종료")
				return
			case <-ticker.C:
				report := h.Sweep()
				if reportFn != nil {
					reportFn(report)
				}
			}
		}
	}()
}

// Stop은 모니터링 루프를 종료합니다.
func (h *HealthMonitor) Stop() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// Sweep은 죽은 항목을 정리한 뒤 건강 상태를 수집합니다.
func (h *HealthMonitor) Sweep() HealthReport {
	for _, name := range h.manager.Prune() {
		log.Warn().Str("name", name).Msg("[mcp-health] 서버가 더 이상 실행 중이 아님")
		h.record(name, func(s *ServerStats) {
			s.Exits++
			s.LastExitTime = time.Now()
		})
	}

	report := h.CollectHealth()
	log.Debug().
		Int("servers", len(report.Servers)).
		Msg("[mcp-health] 헬스 리포트 수집 완료")
	return report
}

// ServerStarted는 Observer 구현입니다.
func (h *HealthMonitor) ServerStarted(name string, pid int) {
	h.record(name, func(s *ServerStats) { s.Starts++ })
}

// ServerStopped는 Observer 구현입니다.
func (h *HealthMonitor) ServerStopped(name string) {
	h.record(name, func(s *ServerStats) { s.Stops++ })
}

// ServerExited는 Observer 구현입니다.
func (h *HealthMonitor) ServerExited(name string, code int, signal string) {
	h.record(name, func(s *ServerStats) {
		s.Exits++
		s.LastExitCode = code
		s.LastSignal = signal
		s.LastExitTime = time.Now()
	})
}

func (h *HealthMonitor) record(name string, fn func(s *ServerStats)) {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	stats, ok := h.stats[name]
	if !ok {
		stats = &ServerStats{}
		h.stats[name] = stats
	}
	fn(stats)
}

// CollectHealth는 실행 중이거나 이벤트 기록이 있는 서버의 건강 상태를 수집합니다.
func (h *HealthMonitor) CollectHealth() HealthReport {
	now := time.Now()
	running := h.manager.RunningNames()

	h.statsMu.RLock()
	defer h.statsMu.RUnlock()

	runningSet := make(map[string]struct{}, len(running))
	var servers []ServerHealth

	// 1. 실행 중인 서버 처리
	for _, name := range running {
		runningSet[name] = struct{}{}
		sh := ServerHealth{Name: name, Status: "running"}
		if proc, ok := h.manager.GetProcessInfo(name); ok {
			sh.PID = proc.PID
			if !proc.StartedAt.IsZero() {
				sh.UptimeSeconds = int64(now.Sub(proc.StartedAt).Seconds())
			}
		}
		if stats, ok := h.stats[name]; ok {
			applyStats(&sh, stats)
		}
		servers = append(servers, sh)
	}

	// 2. 기록은 있지만 실행 중이 아닌 서버
	for name, stats := range h.stats {
		if _, isRunning := runningSet[name]; isRunning {
			continue
		}
		sh := ServerHealth{Name: name, Status: "stopped"}
		applyStats(&sh, stats)
		if stats.LastExitCode != 0 || stats.LastSignal != "" {
			sh.Status = "error"
		}
		servers = append(servers, sh)
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })

	return HealthReport{
		Servers:    servers,
		ReportedAt: now,
	}
}

// applyStats는 이벤트 통계를 스냅샷에 반영합니다.
func applyStats(sh *ServerHealth, stats *ServerStats) {
	sh.Starts = stats.Starts
	sh.Exits = stats.Exits
	if stats.Starts > 1 {
		sh.Restarts = stats.Starts - 1
	}
	if stats.LastExitCode != 0 || stats.LastSignal != "" {
		msg := fmt.Sprintf("exit code %d%s", stats.LastExitCode, signalSuffix(stats.LastSignal))
		sh.LastError = &msg
	}
}
