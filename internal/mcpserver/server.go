// Package mcpserver는 워크플로 매니저 자체를 MCP 서버로 노출합니다.
// 에디터나 에이전트가 MCP 도구 호출로 서버와 워크플로를 시작/중지할 수 있습니다.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	// ServerName은 MCP 서버 이름입니다.
	ServerName = "mcp-workflow"
	// ServerVersion은 MCP 서버 버전입니다.
	ServerVersion = "0.1.0"
)

// Controller는 MCP 도구가 호출하는 워크플로 제어 인터페이스입니다.
// 배치 결과와 상태는 JSON으로 직렬화 가능한 값이어야 합니다.
type Controller interface {
	StartServer(ctx context.Context, name string) error
	StopServer(ctx context.Context, name string) error
	StartWorkflow(ctx context.Context, id string) (any, error)
	StopWorkflow(ctx context.Context, id string) (any, error)
	StartAutostart(ctx context.Context) (any, error)
	StopAll(ctx context.Context) (any, error)
	Status() any
	ServerStatus(name string) (any, bool)
}

// Server는 워크플로 제어 MCP 서버입니다.
// mark3labs/mcp-go를 사용하여 stdio 기반 MCP 프로토콜을 처리합니다.
type Server struct {
	mcpServer *server.MCPServer
	ctrl      Controller
	logger    zerolog.Logger
}

// NewServer는 새 MCP 서버를 생성합니다.
func NewServer(ctrl Controller, logger zerolog.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		logger: logger.With().Str("component", "mcpserver").Logger(),
	}

	s.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	s.logger.Info().
		Str("name", ServerName).
		Str("version", ServerVersion).
		Msg("[mcp] 제어 서버 초기화 완료")

	return s
}

// MCPServer는 내부 mcp-go 서버를 반환합니다 (인프로세스 클라이언트 연결용).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start는 stdio 기반 MCP 서버를 시작합니다.
// 이 함수는 stdin이 닫힐 때까지 블로킹됩니다.
func (s *Server) Start() error {
	s.logger.Info().Msg("[mcp] 제어 서버 시작 (stdio 트랜스포트)")
	return server.ServeStdio(s.mcpServer)
}

// registerTools는 모든 MCP 도구를 등록합니다.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_server",
		mcp.WithDescription("Start a single MCP server defined in the master configuration."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Server name as listed under 'servers' in master-config.json"),
		),
	), s.handleStartServer)

	s.mcpServer.AddTool(mcp.NewTool("stop_server",
		mcp.WithDescription("Stop a running MCP server (SIGTERM, then SIGKILL after the grace period)."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Server name"),
		),
	), s.handleStopServer)

	s.mcpServer.AddTool(mcp.NewTool("start_workflow",
		mcp.WithDescription("Start every server in a workflow. Returns per-server results; fails if any server fails."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Workflow ID as listed under 'workflows' in master-config.json"),
		),
	), s.handleStartWorkflow)

	s.mcpServer.AddTool(mcp.NewTool("stop_workflow",
		mcp.WithDescription("Stop every server in a workflow."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Workflow ID"),
		),
	), s.handleStopWorkflow)

	s.mcpServer.AddTool(mcp.NewTool("start_autostart",
		mcp.WithDescription("Start all enabled autostart servers in priority order (highest first)."),
	), s.handleStartAutostart)

	s.mcpServer.AddTool(mcp.NewTool("stop_all",
		mcp.WithDescription("Stop all running servers."),
	), s.handleStopAll)

	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the status report of all servers and workflows."),
	), s.handleGetStatus)

	s.logger.Debug().Msg("[mcp] 도구 7개 등록 완료")
}

// registerResources는 모든 MCP 리소스를 등록합니다.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		statusURI,
		"Workflow Status",
		mcp.WithResourceDescription("Running state of every configured server and workflow readiness"),
		mcp.WithMIMEType("application/json"),
	), s.handleStatusResource)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		serverURIPrefix+"{name}",
		"Server Status",
		mcp.WithTemplateDescription("Status of a single configured server"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.handleServerResource)

	s.logger.Debug().Msg("[mcp] 리소스 2개 등록 완료")
}
