package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/insajin/mcp-workflow/internal/installer"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	initScaffold bool
	initForce    bool
	initRoot     string
)

// initCmd는 워크플로 디렉토리 구조를 만드는 명령어입니다.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "워크플로 환경을 초기화합니다",
	Long: `마스터 설정을 읽어 워크플로 루트의 디렉토리 구조를 생성하고
environmentVariables와 <root>/.env를 적용합니다.

--scaffold를 지정하면 기본 master-config.json과 서버별 설정 파일을
<root>/configs에 먼저 기록합니다. 기존 파일은 --force 없이는 덮어쓰지 않습니다.

예시:
  mcpwf init --scaffold --root ~/MCP-Workflow
  mcpwf init -m ~/MCP-Workflow/configs/master-config.json`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initScaffold, "scaffold", false, "기본 설정 파일을 생성합니다")
	initCmd.Flags().BoolVar(&initForce, "force", false, "기존 설정 파일을 덮어씁니다")
	initCmd.Flags().StringVar(&initRoot, "root", "",
		"scaffold 대상 워크플로 루트 (기본값: 마스터 설정 위치 또는 ~/MCP-Workflow)")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	master := masterConfigPath(cfg)
	out := cmd.OutOrStdout()

	if initScaffold {
		root, err := scaffoldRoot(initRoot, masterFlag)
		if err != nil {
			return err
		}
		result, err := mcp.Scaffold(mcp.ScaffoldOptions{
			Root:      root,
			Servers:   installer.ScaffoldServers(),
			Workflows: installer.ScaffoldWorkflows(),
			Force:     initForce,
		})
		if err != nil {
			return err
		}
		for _, path := range result.Written {
			fmt.Fprintf(out, "  + %s\n", path)
		}
		for _, path := range result.Skipped {
			fmt.Fprintf(out, "  = %s (기존 파일 유지)\n", path)
		}
		master = result.MasterConfig
	}

	ws, err := mcp.Initialize(master)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "워크플로 환경 초기화 완료: %s\n", ws.Root)
	fmt.Fprintf(out, "마스터 설정: %s\n", ws.ConfigPath)
	if masterFlag == "" && master != cfg.Workflow.MasterConfig {
		fmt.Fprintln(out, "\n다른 디렉토리에서 사용하려면 설정에 마스터 경로를 저장하세요:")
		fmt.Fprintf(out, "  mcpwf config set workflow.master_config %s\n", ws.ConfigPath)
	}
	return nil
}

// scaffoldRoot는 scaffold 대상 루트를 결정합니다.
// --root > --master의 상위 디렉토리(configs/의 부모) > ~/MCP-Workflow 순서입니다.
func scaffoldRoot(root, master string) (string, error) {
	if root != "" {
		return filepath.Abs(root)
	}
	if master != "" {
		abs, err := filepath.Abs(master)
		if err != nil {
			return "", err
		}
		dir := filepath.Dir(abs)
		if filepath.Base(dir) == "configs" {
			dir = filepath.Dir(dir)
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("홈 디렉토리를 찾을 수 없습니다: %w", err)
	}
	return filepath.Join(home, "MCP-Workflow"), nil
}
