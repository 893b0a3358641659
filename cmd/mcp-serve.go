package cmd

import (
	"fmt"

	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/insajin/mcp-workflow/internal/mcpserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

// mcpServeCmd는 워크플로 매니저를 MCP 서버로 노출하는 명령어입니다.
var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "워크플로 매니저를 MCP 서버(stdio)로 실행합니다",
	Long: `워크플로 매니저를 stdio 트랜스포트 MCP 서버로 시작합니다.
에디터의 AI 도구가 서버 시작/중지와 상태 조회를 MCP 도구로 호출할 수 있습니다.

사용 예시 (Claude Code MCP 설정):
  {
    "mcpServers": {
      "mcp-workflow": {
        "command": "mcpwf",
        "args": ["mcp-serve", "--master", "/path/to/master-config.json"]
      }
    }
  }

종료 시 이 세션에서 시작한 서버는 모두 중지됩니다.`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

// runMCPServe는 MCP 서버를 시작합니다.
// stdout은 MCP stdio가 사용하므로 로그는 initLogger가 설정한 stderr(또는 파일)로만 나갑니다.
func runMCPServe(cmd *cobra.Command, args []string) error {
	cfg, ws, err := openWorkspace()
	if err != nil {
		return err
	}
	manager := newManager(cfg, ws, false)
	defer stopOwned(manager)

	logger := log.With().Str("component", "mcp-serve").Logger()
	srv := mcpserver.NewServer(mcp.NewControlAdapter(manager), logger)

	logger.Info().
		Str("master", ws.ConfigPath).
		Int("servers", len(ws.Config().Servers)).
		Msg("[mcp] 제어 서버 준비 완료, stdio 대기 중")

	// ServeStdio는 SIGINT/SIGTERM 또는 stdin 종료 시 반환합니다.
	if err := srv.Start(); err != nil {
		return fmt.Errorf("MCP 서버 실행 실패: %w", err)
	}
	return nil
}
