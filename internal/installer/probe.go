package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

// DefaultProbeTimeout은 서버 하나의 기본 점검 시간입니다.
const DefaultProbeTimeout = 15 * time.Second

// 점검 결과 사유
const (
	ReasonExitZero   = "exit 0"
	ReasonHelpExit   = "help returned"
	ReasonTimeout    = "timeout (waiting for stdio)"
	ReasonHandshake  = "handshake ok"
	clientName       = "mcpwf-probe"
	clientVersion    = "0.1.0"
	maxOutputInError = 200
)

// ErrUnknownServer는 카탈로그에 없는 서버를 점검하려 할 때 반환됩니다.
var ErrUnknownServer = errors.New("카탈로그에 없는 서버")

// HandshakeInfo는 initialize 응답에서 얻은 서버 정보입니다.
type HandshakeInfo struct {
	ServerName      string `json:"server_name"`
	ServerVersion   string `json:"server_version"`
	ProtocolVersion string `json:"protocol_version"`
	Tools           int    `json:"tools"`
}

// ProbeResult는 서버 하나의 점검 결과입니다.
type ProbeResult struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Available   bool           `json:"available"`
	Reason      string         `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	Handshake   *HandshakeInfo `json:"handshake,omitempty"`
	server      Server
}

// Prober는 패키지 실행기로 서버 실행 가능 여부를 확인합니다.
type Prober struct {
	// Runner가 비어있지 않으면 카탈로그의 command 대신 사용합니다.
	Runner  string
	Timeout time.Duration
	// Handshake가 true이면 --help 점검 후 MCP initialize까지 확인합니다.
	Handshake bool
}

// NewProber는 Prober를 생성합니다.
func NewProber(runner string, timeout time.Duration, handshake bool) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{Runner: runner, Timeout: timeout, Handshake: handshake}
}

// CheckRunner는 실행기가 PATH에 있는지 확인합니다.
func (p *Prober) CheckRunner() (string, error) {
	runner := p.command(Server{Command: "npx"})
	path, err := exec.LookPath(runner)
	if err != nil {
		return "", fmt.Errorf("%s를 PATH에서 찾을 수 없습니다 (Node.js 설치 필요): %w", runner, err)
	}
	return path, nil
}

func (p *Prober) command(s Server) string {
	if p.Runner != "" {
		return p.Runner
	}
	return s.Command
}

// Probe는 카탈로그의 서버를 <runner> <args> <testArgs>로 실행해 가용성을 판정합니다.
// 종료 코드 0, 종료 코드 1(--help 미지원 서버), 타임아웃(stdin 대기 중인 stdio 서버)은 모두 사용 가능으로 봅니다.
func (p *Prober) Probe(ctx context.Context, name string) ProbeResult {
	server, ok := Lookup(name)
	if !ok {
		log.Warn().Str("name", name).Msg("[installer] 알 수 없는 서버")
		return ProbeResult{Name: name, Error: fmt.Sprintf("%v: %s", ErrUnknownServer, name)}
	}
	return p.probeServer(ctx, server)
}

func (p *Prober) probeServer(ctx context.Context, server Server) ProbeResult {
	result := ProbeResult{Name: server.Name, Description: server.Description, server: server}
	log.Info().Str("name", server.Name).Str("description", server.Description).Msg("[installer] 점검 중")

	started := time.Now()
	result.Available, result.Reason, result.Error = p.runHelp(ctx, server)
	result.Duration = time.Since(started)

	if result.Available && p.Handshake {
		info, err := p.handshake(ctx, server)
		if err != nil {
			result.Available = false
			result.Error = err.Error()
		} else {
			result.Handshake = info
			result.Reason = ReasonHandshake
		}
	}

	event := log.Info()
	if !result.Available {
		event = log.Warn().Str("error", result.Error)
	}
	event.Str("name", server.Name).
		Bool("available", result.Available).
		Str("reason", result.Reason).
		Dur("duration", result.Duration).
		Msg("[installer] 점검 완료")
	return result
}

func (p *Prober) runHelp(ctx context.Context, server Server) (bool, string, string) {
	probeCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append(append([]string{}, server.Args...), server.TestArgs...)
	cmd := exec.CommandContext(probeCtx, p.command(server), args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	// 손자 프로세스가 출력 파이프를 잡고 있어도 Wait가 끝나도록 제한
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err == nil {
		return true, ReasonExitZero, ""
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return true, ReasonTimeout, ""
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, ReasonHelpExit, ""
	}

	msg := err.Error()
	if out := strings.TrimSpace(output.String()); out != "" {
		if len(out) > maxOutputInError {
			out = out[:maxOutputInError] + "..."
		}
		msg += ": " + out
	}
	return false, "", msg
}

// handshake는 mcp-go stdio 클라이언트로 서버를 띄워 initialize와 tools/list를 수행합니다.
func (p *Prober) handshake(ctx context.Context, server Server) (*HandshakeInfo, error) {
	hsCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var env []string
	for _, k := range server.Secrets {
		env = append(env, k+"=")
	}

	c, err := client.NewStdioMCPClient(p.command(server), env, server.Args...)
	if err != nil {
		return nil, fmt.Errorf("MCP 클라이언트 시작 실패: %w", err)
	}
	defer func() { _ = c.Close() }()

	initResult, err := c.Initialize(hsCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize 실패: %w", err)
	}

	info := &HandshakeInfo{
		ServerName:      initResult.ServerInfo.Name,
		ServerVersion:   initResult.ServerInfo.Version,
		ProtocolVersion: initResult.ProtocolVersion,
	}
	if initResult.Capabilities.Tools != nil {
		tools, err := c.ListTools(hsCtx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, fmt.Errorf("tools/list 실패: %w", err)
		}
		info.Tools = len(tools.Tools)
	}
	return info, nil
}
