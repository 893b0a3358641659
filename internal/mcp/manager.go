package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/insajin/mcp-workflow/internal/logger"
	"github.com/insajin/mcp-workflow/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Options는 Manager 동작 설정입니다.
type Options struct {
	// StartupWait는 시작 직후 종료 여부를 판단하는 대기 시간입니다.
	StartupWait time.Duration
	// StopGrace는 SIGTERM 후 SIGKILL까지의 유예 시간입니다.
	StopGrace time.Duration
	// Detach가 true이면 CLI 종료 후에도 서버가 계속 실행됩니다.
	Detach bool
	// Metrics가 nil이면 새로 생성합니다.
	Metrics *metrics.Metrics
}

// Observer는 서버 라이프사이클 이벤트를 받습니다.
type Observer interface {
	ServerStarted(name string, pid int)
	ServerStopped(name string)
	ServerExited(name string, code int, signal string)
}

// Manager는 MCP 서버 프로세스의 라이프사이클을 관리합니다.
type Manager struct {
	ws        *Workspace
	session   string
	opts      Options
	state     *StateStore
	metrics   *metrics.Metrics
	observer  Observer
	processes map[string]*ProcessInfo
	mu        sync.RWMutex

	// opMu는 시작/중지를 직렬화합니다 (MCP 도구 호출이 동시에 들어올 수 있음).
	opMu sync.Mutex
}

// NewManager는 새로운 MCP Manager를 생성합니다.
// 상태 파일에 남아있는 살아있는 프로세스는 PID로 인수합니다.
func NewManager(ws *Workspace, opts Options) *Manager {
	if opts.StartupWait < 0 {
		opts.StartupWait = DefaultStartupWait
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = StopGracePeriod
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}

	m := &Manager{
		ws:        ws,
		session:   uuid.NewString(),
		opts:      opts,
		state:     NewStateStore(ws.StatePath()),
		metrics:   opts.Metrics,
		processes: make(map[string]*ProcessInfo),
	}

	adopted, err := m.state.LoadAlive()
	if err != nil {
		log.Warn().Err(err).Str("path", m.state.Path()).Msg("[mcp] 상태 파일 로드 실패")
	}
	for _, proc := range adopted {
		m.processes[proc.Name] = proc
		log.Debug().Str("name", proc.Name).Int("pid", proc.PID).Msg("[mcp] 실행 중인 서버 인수")
	}

	return m
}

// SetObserver는 라이프사이클 이벤트 수신자를 등록합니다.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// Session은 이 Manager가 띄운 프로세스에 기록되는 세션 ID입니다.
func (m *Manager) Session() string {
	return m.session
}

// Workspace는 관리 중인 워크스페이스를 반환합니다.
func (m *Manager) Workspace() *Workspace {
	return m.ws
}

// Metrics는 감독 카운터를 반환합니다.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// StartServer는 이름으로 MCP 서버를 시작합니다.
// 이미 실행 중이면 새 프로세스를 띄우지 않고 성공합니다.
func (m *Manager) StartServer(ctx context.Context, name string) error {
	entry, ok := m.ws.Server(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrServerNotFound, name)
	}
	if !entry.Enabled {
		return fmt.Errorf("%w: %q", ErrServerDisabled, name)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if proc := m.lookup(name); proc != nil && proc.IsRunning() {
		log.Info().Str("name", name).Int("pid", proc.PID).Msg("[mcp] 서버가 이미 실행 중")
		return nil
	}

	spec, err := m.ws.LoadLaunchSpec(name)
	if err != nil {
		m.metrics.StartFailures.Add(1)
		return fmt.Errorf("MCP 서버 %q 시작 실패: %w", name, err)
	}

	began := time.Now()
	proc, err := startProcess(launchOptions{
		Name:     name,
		Spec:     spec,
		LogDir:   m.ws.LogsDir(),
		Dir:      m.ws.Root,
		Detached: m.opts.Detach,
		Session:  m.session,
		OnExit:   m.handleExit,
	})
	if err != nil {
		m.metrics.StartFailures.Add(1)
		return err
	}

	m.mu.Lock()
	m.processes[name] = proc
	m.mu.Unlock()

	timer := time.NewTimer(m.opts.StartupWait)
	defer timer.Stop()

	select {
	case <-proc.Done():
		return m.startupExited(name, proc)
	case <-ctx.Done():
		m.metrics.StartFailures.Add(1)
		_, _ = proc.Stop(m.opts.StopGrace)
		m.forget(proc)
		return ctx.Err()
	case <-timer.C:
	}

	// 대기 시간과 종료가 겹치면 종료 콜백이 먼저 차지했을 수 있습니다.
	if !proc.markStarted() {
		<-proc.Done()
		return m.startupExited(name, proc)
	}

	m.metrics.ServerStarts.Add(1)
	m.metrics.RecordStartup(time.Since(began))
	m.persist()
	if o := m.getObserver(); o != nil {
		o.ServerStarted(name, proc.PID)
	}

	log.Info().
		Str("name", name).
		Int("pid", proc.PID).
		Str("log", proc.LogFile).
		Str("session", m.session).
		Msg("[mcp] 서버 시작 완료")

	return nil
}

// StopServer는 이름으로 MCP 서버를 중지합니다.
// 실행 중이 아니면 경고만 남기고 성공합니다.
func (m *Manager) StopServer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	proc := m.lookup(name)
	if proc == nil || !proc.IsRunning() {
		if proc != nil {
			m.forget(proc)
			m.persist()
		}
		log.Warn().Str("name", name).Msg("[mcp] 서버가 실행 중이 아님")
		return nil
	}

	forced, err := proc.Stop(m.opts.StopGrace)
	if forced {
		m.metrics.ForcedKills.Add(1)
	}
	if err != nil {
		return fmt.Errorf("MCP 서버 %q 중지 실패: %w", name, err)
	}

	m.forget(proc)
	m.metrics.ServerStops.Add(1)
	m.persist()
	if o := m.getObserver(); o != nil {
		o.ServerStopped(name)
	}

	log.Info().Str("name", name).Bool("forced", forced).Msg("[mcp] 서버 중지 완료")
	return nil
}

// StartWorkflow는 워크플로에 속한 서버를 순서대로 시작합니다.
func (m *Manager) StartWorkflow(ctx context.Context, id string) (*BatchResult, error) {
	wf, ok := m.ws.Workflow(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, id)
	}

	wlog := logger.WithWorkflow(id)
	wlog.Info().Str("name", wf.Name).Msg("[workflow] 워크플로 시작")
	result := m.runBatch(ctx, "start_workflow", id, wf.Servers, m.StartServer)
	if err := result.Err(); err != nil {
		wlog.Error().Strs("failed", result.Failed()).Msg("[workflow] 일부 서버 시작 실패")
		return result, err
	}
	wlog.Info().Msg("[workflow] 워크플로 시작 완료")
	return result, nil
}

// StopWorkflow는 워크플로에 속한 서버를 순서대로 중지합니다.
func (m *Manager) StopWorkflow(ctx context.Context, id string) (*BatchResult, error) {
	wf, ok := m.ws.Workflow(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, id)
	}

	wlog := logger.WithWorkflow(id)
	wlog.Info().Str("name", wf.Name).Msg("[workflow] 워크플로 중지")
	result := m.runBatch(ctx, "stop_workflow", id, wf.Servers, m.StopServer)
	if err := result.Err(); err != nil {
		wlog.Error().Strs("failed", result.Failed()).Msg("[workflow] 일부 서버 중지 실패")
		return result, err
	}
	return result, nil
}

// StartAutostart는 enabled && autostart 서버를 우선순위 내림차순으로 시작합니다.
func (m *Manager) StartAutostart(ctx context.Context) (*BatchResult, error) {
	names := AutostartOrder(m.ws.Config())
	if len(names) == 0 {
		log.Info().Msg("[workflow] 자동 시작할 서버가 없습니다")
		return newBatch("start_autostart", ""), nil
	}

	log.Info().Strs("servers", names).Msg("[workflow] 자동 시작")
	result := m.runBatch(ctx, "start_autostart", "", names, m.StartServer)
	if err := result.Err(); err != nil {
		log.Error().Strs("failed", result.Failed()).Msg("[workflow] 자동 시작 일부 실패")
		return result, err
	}
	return result, nil
}

// StopAll은 실행 중인 모든 서버를 이름순으로 중지합니다.
func (m *Manager) StopAll(ctx context.Context) (*BatchResult, error) {
	names := m.RunningNames()
	log.Info().Int("count", len(names)).Msg("[mcp] 모든 서버 중지 중")

	result := m.runBatch(ctx, "stop_all", "", names, m.StopServer)
	return result, result.Err()
}

// StopOwned는 이 프로세스가 띄운 서버만 이름순으로 중지합니다.
// 다른 CLI 호출이 --detach로 띄운 서버는 건드리지 않습니다.
func (m *Manager) StopOwned(ctx context.Context) (*BatchResult, error) {
	owned := m.ownedRunning()
	names := make([]string, 0, len(owned))
	for _, proc := range owned {
		names = append(names, proc.Name)
	}
	sort.Strings(names)

	result := m.runBatch(ctx, "stop_owned", "", names, m.StopServer)
	return result, result.Err()
}

// Reconcile은 새 마스터 설정을 적용합니다.
// 비활성화되거나 제거된 실행 중 서버는 중지하고, 실행 중이 아닌 자동 시작 서버는 시작합니다.
func (m *Manager) Reconcile(ctx context.Context, cfg *MasterConfig) (*BatchResult, error) {
	m.ws.SetConfig(cfg)
	result := newBatch("reconcile", "")

	for _, name := range m.RunningNames() {
		if entry, ok := cfg.Servers[name]; ok && entry.Enabled {
			continue
		}
		log.Info().Str("name", name).Msg("[watcher] 비활성화된 서버 중지")
		result.add(name, m.StopServer(ctx, name))
	}

	for _, name := range AutostartOrder(cfg) {
		if m.IsRunning(name) {
			continue
		}
		log.Info().Str("name", name).Msg("[watcher] 자동 시작 서버 시작")
		result.add(name, m.StartServer(ctx, name))
	}

	m.metrics.BatchRuns.Add(1)
	if !result.OK() {
		m.metrics.BatchFailures.Add(1)
	}
	return result, result.Err()
}

// Wait는 이 프로세스가 띄운 서버가 모두 종료되거나 ctx가 취소될 때까지 기다립니다.
func (m *Manager) Wait(ctx context.Context) error {
	for {
		owned := m.ownedRunning()
		if len(owned) == 0 {
			return nil
		}
		for _, proc := range owned {
			select {
			case <-proc.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// IsRunning은 서버가 실행 중인지 확인합니다.
func (m *Manager) IsRunning(name string) bool {
	proc := m.lookup(name)
	return proc != nil && proc.IsRunning()
}

// RunningNames는 실행 중인 서버 이름을 정렬하여 반환합니다.
func (m *Manager) RunningNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.processes))
	for name, proc := range m.processes {
		if proc.IsRunning() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetProcessInfo는 실행 중인 MCP 서버의 프로세스 정보를 반환합니다.
func (m *Manager) GetProcessInfo(name string) (*ProcessInfo, bool) {
	proc := m.lookup(name)
	if proc == nil || !proc.IsRunning() {
		return nil, false
	}
	return proc, true
}

// AutostartOrder는 enabled && autostart 서버를 우선순위 내림차순(동률은 이름순)으로 반환합니다.
func AutostartOrder(cfg *MasterConfig) []string {
	var names []string
	for name, entry := range cfg.Servers {
		if entry.Enabled && entry.Autostart {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := cfg.Servers[names[i]].Priority, cfg.Servers[names[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	return names
}

// runBatch는 서버 목록을 순차 처리하고 모든 결과를 모읍니다.
// 실패해도 나머지 서버를 계속 시도합니다.
func (m *Manager) runBatch(ctx context.Context, op, target string, names []string, fn func(context.Context, string) error) *BatchResult {
	result := newBatch(op, target)
	for _, name := range names {
		err := fn(ctx, name)
		if err != nil {
			srvLog := logger.WithServer(name)
			srvLog.Error().Err(err).Str("op", op).Msg("[mcp] 작업 실패")
		}
		result.add(name, err)
	}

	m.metrics.BatchRuns.Add(1)
	if !result.OK() {
		m.metrics.BatchFailures.Add(1)
	}
	return result
}

// handleExit는 프로세스 종료 콜백입니다.
func (m *Manager) handleExit(proc *ProcessInfo) {
	code, sig := proc.ExitStatus()
	intentional := proc.StopRequested()
	pending := proc.claimStartupExit()

	m.forget(proc)

	ev := log.Info()
	if !intentional && !pending && code != 0 {
		ev = log.Error()
	}
	ev.Str("name", proc.Name).
		Int("pid", proc.PID).
		Int("code", code).
		Str("signal", sig).
		Bool("requested", intentional).
		Msg("[mcp] 프로세스 종료됨")

	// 시작 대기 중 종료는 StartServer가 시작 실패로 집계합니다.
	if intentional || pending {
		return
	}
	m.metrics.UnexpectedExits.Add(1)
	m.persist()
	if o := m.getObserver(); o != nil {
		o.ServerExited(proc.Name, code, sig)
	}
}

func (m *Manager) lookup(name string) *ProcessInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processes[name]
}

// forget은 테이블의 항목이 같은 프로세스일 때만 제거합니다.
func (m *Manager) forget(proc *ProcessInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.processes[proc.Name]; ok && cur == proc {
		delete(m.processes, proc.Name)
	}
}

func (m *Manager) ownedRunning() []*ProcessInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []*ProcessInfo
	for _, proc := range m.processes {
		if proc.Owned() && proc.IsRunning() {
			owned = append(owned, proc)
		}
	}
	return owned
}

func (m *Manager) getObserver() Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observer
}

// persist는 실행 테이블을 상태 파일에 기록합니다.
func (m *Manager) persist() {
	m.mu.RLock()
	entries := make([]StateEntry, 0, len(m.processes))
	for _, proc := range m.processes {
		if proc.IsRunning() {
			entries = append(entries, entryFromProcess(proc))
		}
	}
	m.mu.RUnlock()

	if err := m.state.Save(entries); err != nil {
		log.Warn().Err(err).Msg("[mcp] 상태 파일 저장 실패")
	}
}

// startupExited는 시작 대기 중 종료된 서버를 시작 실패로 처리합니다.
func (m *Manager) startupExited(name string, proc *ProcessInfo) error {
	m.metrics.StartFailures.Add(1)
	m.forget(proc)
	code, sig := proc.ExitStatus()
	return fmt.Errorf("MCP 서버 %q 시작 실패: 시작 직후 종료됨 (code %d%s), 로그: %s",
		name, code, signalSuffix(sig), proc.LogFile)
}

func signalSuffix(sig string) string {
	if sig == "" {
		return ""
	}
	return ", signal " + sig
}

// Prune은 더 이상 살아있지 않은 항목을 테이블에서 제거하고 이름을 반환합니다.
// 인수한 프로세스는 종료 콜백이 없으므로 주기적으로 호출해야 합니다.
func (m *Manager) Prune() []string {
	m.mu.Lock()
	var gone []string
	for name, proc := range m.processes {
		if !proc.IsRunning() {
			gone = append(gone, name)
			delete(m.processes, name)
		}
	}
	m.mu.Unlock()

	if len(gone) > 0 {
		sort.Strings(gone)
		m.persist()
	}
	return gone
}
