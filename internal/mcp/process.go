package mcp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/insajin/mcp-workflow/internal/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 기본 감독 시간값
const (
	DefaultStartupWait = 2 * time.Second
	StopGracePeriod    = 5 * time.Second
	pollInterval       = 100 * time.Millisecond
)

// ProcessInfo는 실행 중인 MCP 서버 프로세스 정보를 담고 있습니다.
// 이 프로세스가 직접 띄운 경우(owned)와 상태 파일에서 PID로 인수한 경우(adopted)가 있습니다.
type ProcessInfo struct {
	Name      string
	PID       int
	Command   string
	Args      []string
	LogFile   string
	StartedAt time.Time
	Detached  bool
	// Session은 프로세스를 띄운 CLI 호출(Manager)의 식별자입니다.
	Session string

	process  *os.Process
	done     chan struct{} // owned 프로세스만, 종료 시 닫힘
	exitCode int
	exitSig  string
	onExit   func(p *ProcessInfo)
	mu       sync.Mutex

	stopRequested atomic.Bool
	phase         atomic.Int32
}

// 시작 대기 단계
const (
	phaseNone int32 = iota
	phasePending
	phaseStarted
	phaseExitedPending
)

// Owned는 현재 프로세스가 Wait 중인 자식인지 반환합니다.
func (p *ProcessInfo) Owned() bool {
	return p.done != nil
}

// Done은 owned 프로세스의 종료 채널을 반환합니다. adopted이면 nil입니다.
func (p *ProcessInfo) Done() <-chan struct{} {
	return p.done
}

// IsRunning은 프로세스가 실행 중인지 확인합니다.
func (p *ProcessInfo) IsRunning() bool {
	if p.process == nil {
		return false
	}
	if p.done != nil {
		select {
		case <-p.done:
			return false
		default:
			return true
		}
	}
	return checkProcessAlive(p.process)
}

// ExitStatus는 종료 코드와 시그널을 반환합니다. 실행 중이거나 adopted이면 (-1, "").
func (p *ProcessInfo) ExitStatus() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return -1, ""
	}
	select {
	case <-p.done:
		return p.exitCode, p.exitSig
	default:
		return -1, ""
	}
}

// StopRequested는 Stop으로 종료를 요청했는지 반환합니다.
// 종료 콜백에서 예기치 않은 종료와 구분하는 데 사용합니다.
func (p *ProcessInfo) StopRequested() bool {
	return p.stopRequested.Load()
}

// markStarted는 시작 대기를 끝냅니다.
// 종료 콜백이 먼저 대기 중 종료로 표시했으면 false를 반환합니다.
func (p *ProcessInfo) markStarted() bool {
	return p.phase.CompareAndSwap(phasePending, phaseStarted)
}

// claimStartupExit는 시작 대기 중 종료인지 판정합니다.
// true이면 종료 처리는 시작 실패 경로가 맡습니다.
func (p *ProcessInfo) claimStartupExit() bool {
	return p.phase.CompareAndSwap(phasePending, phaseExitedPending)
}

// Uptime은 시작 이후 경과 시간입니다.
func (p *ProcessInfo) Uptime() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	return time.Since(p.StartedAt)
}

// waitExit는 timeout 안에 프로세스가 종료되면 true를 반환합니다.
func (p *ProcessInfo) waitExit(timeout time.Duration) bool {
	if p.done != nil {
		select {
		case <-p.done:
			return true
		case <-time.After(timeout):
			return false
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !checkProcessAlive(p.process) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !checkProcessAlive(p.process)
}

// Stop은 MCP 서버 프로세스를 안전하게 종료합니다.
// SIGTERM을 보내고 grace 안에 종료되지 않으면 SIGKILL을 보냅니다.
// 강제 종료했으면 forced가 true입니다.
func (p *ProcessInfo) Stop(grace time.Duration) (forced bool, err error) {
	if grace <= 0 {
		grace = StopGracePeriod
	}
	if !p.IsRunning() {
		return false, nil
	}

	p.stopRequested.Store(true)
	log.Info().
		Str("name", p.Name).
		Int("pid", p.PID).
		Msg("[mcp] 프로세스 종료 시작 (SIGTERM)")

	if err := sendTermSignal(p.process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return false, nil
		}
		log.Warn().Err(err).Str("name", p.Name).Msg("[mcp] SIGTERM 전송 실패")
	}

	if p.waitExit(grace) {
		log.Info().Str("name", p.Name).Msg("[mcp] 프로세스 정상 종료")
		return false, nil
	}

	log.Warn().Str("name", p.Name).Dur("grace", grace).Msg("[mcp] 유예 시간 초과, SIGKILL 전송")
	if err := sendKillSignal(p.process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return true, fmt.Errorf("프로세스 %q 강제 종료 실패: %w", p.Name, err)
	}
	if !p.waitExit(time.Second) {
		return true, fmt.Errorf("프로세스 %q(pid %d)가 SIGKILL 후에도 종료되지 않음", p.Name, p.PID)
	}
	return true, nil
}

// launchOptions는 startProcess에 필요한 값입니다.
type launchOptions struct {
	Name     string
	Spec     *LaunchSpec
	LogDir   string
	Dir      string
	Detached bool
	Session  string
	OnExit   func(p *ProcessInfo)
}

// startProcess는 MCP 서버 프로세스를 시작합니다.
// 출력은 <LogDir>/<name>.log에 추가 기록됩니다. detached가 아니면 zerolog에도 전달됩니다.
func startProcess(opts launchOptions) (*ProcessInfo, error) {
	spec := opts.Spec
	cmdPath, err := exec.LookPath(spec.Command)
	if err != nil {
		return nil, fmt.Errorf("명령어 %q를 찾을 수 없음: %w", spec.Command, err)
	}

	if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("로그 디렉토리 생성 실패: %w", err)
	}
	logPath := filepath.Join(opts.LogDir, opts.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("로그 파일 열기 실패 %q: %w", logPath, err)
	}

	cmd := exec.Command(cmdPath, spec.Args...)
	cmd.Env = mergeEnv(os.Environ(), spec.EnvStrings())
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	cmd.SysProcAttr = setSysProcAttr()

	// stdio MCP 서버는 stdin이 닫히면 종료하므로 열린 파이프를 연결합니다.
	var releaseStdin func()
	if opts.Detached {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		releaseStdin, err = attachDetachedStdin(cmd)
	} else {
		cmd.Stdout = io.MultiWriter(logFile, newLogWriter(opts.Name, zerolog.DebugLevel))
		cmd.Stderr = io.MultiWriter(logFile, newLogWriter(opts.Name, zerolog.ErrorLevel))
		var stdin io.WriteCloser
		stdin, err = cmd.StdinPipe()
		releaseStdin = func() { _ = stdin.Close() }
	}
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("stdin 파이프 생성 실패: %w", err)
	}

	log.Info().
		Str("name", opts.Name).
		Str("command", spec.Command).
		Strs("args", spec.Args).
		Bool("detached", opts.Detached).
		Msg("[mcp] 프로세스 시작")

	if err := cmd.Start(); err != nil {
		releaseStdin()
		_ = logFile.Close()
		return nil, fmt.Errorf("MCP 서버 %q 시작 실패: %w", opts.Name, err)
	}

	info := &ProcessInfo{
		Name:      opts.Name,
		PID:       cmd.Process.Pid,
		Command:   spec.Command,
		Args:      spec.Args,
		LogFile:   logPath,
		StartedAt: time.Now(),
		Detached:  opts.Detached,
		Session:   opts.Session,
		process:   cmd.Process,
		done:      make(chan struct{}),
		onExit:    opts.OnExit,
	}
	info.phase.Store(phasePending)

	if opts.Detached {
		// 자식이 파일 디스크립터를 상속받았으므로 부모 쪽은 바로 닫습니다.
		releaseStdin()
		_ = logFile.Close()
	}

	// 프로세스 종료 감시 (비동기)
	go func() {
		_ = cmd.Wait()

		info.mu.Lock()
		if cmd.ProcessState != nil {
			info.exitCode = cmd.ProcessState.ExitCode()
			info.exitSig = exitSignal(cmd.ProcessState)
		}
		info.mu.Unlock()

		if !opts.Detached {
			releaseStdin()
			_ = logFile.Close()
		}
		close(info.done)

		if info.onExit != nil {
			info.onExit(info)
		}
	}()

	return info, nil
}

// adoptProcess는 상태 파일에 기록된 PID로 ProcessInfo를 만듭니다.
// 프로세스가 살아있지 않거나 PID가 다른 프로세스에 재사용되었으면 nil을 반환합니다.
func adoptProcess(entry StateEntry) *ProcessInfo {
	if entry.PID <= 0 {
		return nil
	}
	proc, err := os.FindProcess(entry.PID)
	if err != nil {
		return nil
	}
	if !checkProcessAlive(proc) {
		return nil
	}
	if !sameProcess(entry) {
		log.Warn().
			Str("name", entry.Name).
			Int("pid", entry.PID).
			Msg("[mcp] PID가 다른 프로세스에 재사용됨, 인수하지 않음")
		return nil
	}
	return &ProcessInfo{
		Name:      entry.Name,
		PID:       entry.PID,
		Command:   entry.Command,
		Args:      entry.Args,
		LogFile:   entry.LogFile,
		StartedAt: entry.StartedAt,
		Detached:  true,
		Session:   entry.Session,
		process:   proc,
	}
}

// mergeEnv는 기본 환경에 추가 변수를 덮어씁니다. 결과는 키 순서로 정렬된 추가분을 뒤에 붙입니다.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, override := extra[key]; override {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

// logWriter는 MCP 서버의 stdout/stderr를 zerolog로 전달합니다.
// stdout은 debug, stderr는 error 레벨로 기록합니다.
type logWriter struct {
	out   zerolog.Logger
	level zerolog.Level
}

func newLogWriter(name string, level zerolog.Level) *logWriter {
	return &logWriter{out: logger.WithServer(name), level: level}
}

func (w *logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	w.out.WithLevel(w.level).Msg(msg)
	return len(p), nil
}
