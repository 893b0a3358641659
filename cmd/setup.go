package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/insajin/mcp-workflow/internal/aitools"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	setupSelf    bool
	setupProject string
)

// setupCursorCmd는 Cursor settings.json의 mcp.servers를 갱신합니다.
var setupCursorCmd = &cobra.Command{
	Use:   "setup-cursor",
	Short: "Cursor 설정에 MCP 서버를 등록합니다",
	Long: `활성화된 서버 중 설정 파일이 있는 서버로 Cursor settings.json의
mcp.servers 항목을 교체합니다. 원본은 settings.json.backup-<밀리초>로 보관됩니다.

경로는 editor.settings_path 설정 또는 OS별 기본 경로를 사용합니다.
--self를 지정하면 mcpwf 자체도 MCP 서버(mcp-serve)로 등록합니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		path, err := aitools.CursorSettingsPath(cfg.Editor.SettingsPath)
		if err != nil {
			return err
		}
		servers, err := editorServers(cmd.ErrOrStderr(), ws)
		if err != nil {
			return err
		}
		result, err := aitools.ConfigureCursor(path, servers, time.Now())
		if err != nil {
			return err
		}
		printSetupResult(cmd.OutOrStdout(), "Cursor", result)
		fmt.Fprintln(cmd.OutOrStdout(), "Cursor를 재시작하면 적용됩니다.")
		return nil
	},
}

// setupClaudeCmd는 Claude Code .mcp.json에 서버를 병합합니다.
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Claude Code .mcp.json에 MCP 서버를 등록합니다",
	Long: `활성화된 서버를 Claude Code의 .mcp.json mcpServers에 추가합니다.
기존 항목은 유지하고 같은 이름만 덮어씁니다.

--project를 지정하면 <dir>/.mcp.json을, 아니면 ~/.claude/.mcp.json을 갱신합니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		path, err := aitools.ClaudeMCPPath(setupProject)
		if err != nil {
			return err
		}
		servers, err := editorServers(cmd.ErrOrStderr(), ws)
		if err != nil {
			return err
		}
		result, err := aitools.ConfigureClaudeCode(path, servers, time.Now())
		if err != nil {
			return err
		}
		printSetupResult(cmd.OutOrStdout(), "Claude Code", result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCursorCmd)
	rootCmd.AddCommand(setupClaudeCmd)

	for _, c := range []*cobra.Command{setupCursorCmd, setupClaudeCmd} {
		c.Flags().BoolVar(&setupSelf, "self", false, "mcpwf mcp-serve도 함께 등록합니다")
	}
	setupClaudeCmd.Flags().StringVar(&setupProject, "project", "", "프로젝트 디렉토리 (.mcp.json 위치)")
}

// editorServers는 에디터에 등록할 서버 목록을 만듭니다.
func editorServers(warn io.Writer, ws *mcp.Workspace) (map[string]aitools.MCPServerConfig, error) {
	servers, skipped := aitools.BuildServers(ws)
	for _, name := range skipped {
		fmt.Fprintf(warn, "⚠ %s: 서버 설정 파일이 없어 건너뜁니다\n", name)
	}

	if setupSelf {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("실행 파일 경로 확인 실패: %w", err)
		}
		servers["mcp-workflow"] = aitools.SelfMCPServer(exe, ws.ConfigPath)
	}
	if len(servers) == 0 {
		fmt.Fprintln(warn, "⚠ 등록할 서버가 없습니다. 빈 목록으로 갱신합니다 (활성화된 서버와 설정 파일을 확인하세요)")
	}
	return servers, nil
}

func printSetupResult(w io.Writer, target string, result *aitools.SetupResult) {
	fmt.Fprintf(w, "✓ %s 설정 갱신: %s\n", target, result.SettingsPath)
	if result.BackupPath != "" {
		fmt.Fprintf(w, "  백업: %s\n", result.BackupPath)
	}
	for _, name := range result.Servers {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}
