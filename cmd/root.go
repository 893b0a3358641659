// Package cmd는 MCP 워크플로 매니저 CLI의 명령어를 정의합니다.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/insajin/mcp-workflow/internal/config"
	"github.com/insajin/mcp-workflow/internal/logger"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// 전역 플래그
	cfgFile    string
	verbose    bool
	masterFlag string

	// 버전 정보 (main에서 주입)
	appVersion   string
	appCommit    string
	appBuildDate string
)

// rootCmd는 CLI의 루트 명령어입니다.
var rootCmd = &cobra.Command{
	Use:   "mcpwf",
	Short: "MCP 서버 워크플로 매니저",
	Long: `mcpwf는 로컬 MCP(Model Context Protocol) 서버 프로세스를 관리합니다.

마스터 설정(master-config.json)에 정의된 서버를 시작/중지하고,
서버 묶음(워크플로) 단위로 실행하며, 상태 조회와 백업,
Cursor/Claude Code 설정 파일 생성을 제공합니다.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

// Execute는 루트 명령어를 실행합니다.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo는 버전 정보를 설정합니다.
func SetVersionInfo(version, commit, buildDate string) {
	appVersion = version
	appCommit = commit
	appBuildDate = buildDate
}

// GetVersionInfo는 버전 정보를 반환합니다.
func GetVersionInfo() (version, commit, buildDate string) {
	return appVersion, appCommit, appBuildDate
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"설정 파일 경로 (기본값: ~/.config/mcpwf/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"상세 로그 출력 (debug 레벨)")
	rootCmd.PersistentFlags().StringVarP(&masterFlag, "master", "m", "",
		"마스터 설정 파일 경로 (기본값: workflow.master_config)")
}

// initConfig는 설정 파일을 초기화합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir := config.ConfigDir()
		if dir == "" {
			fmt.Fprintln(os.Stderr, "홈 디렉토리를 찾을 수 없습니다")
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// 환경변수 자동 바인딩 (MCPWF_SUPERVISOR_STOP_GRACE 등)
	viper.SetEnvPrefix("MCPWF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// 설정 파일 읽기 (없어도 오류 아님)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "설정 파일 읽기 실패: %v\n", err)
		}
	}
}

// initLogger는 로거를 초기화합니다.
func initLogger() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger.Setup(cfg.Logging)
	return nil
}

// loadConfig는 애플리케이션 설정을 로드하고 검증합니다.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("설정 로드 실패: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("설정 검증 실패: %w", err)
	}
	return cfg, nil
}

// masterConfigPath는 --master 플래그 또는 설정의 마스터 설정 경로를 반환합니다.
func masterConfigPath(cfg *config.Config) string {
	if masterFlag != "" {
		return masterFlag
	}
	return cfg.Workflow.MasterConfig
}

// openWorkspace는 설정을 로드하고 워크플로 환경을 초기화합니다.
func openWorkspace() (*config.Config, *mcp.Workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	ws, err := mcp.Initialize(masterConfigPath(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, ws, nil
}

// newManager는 설정의 감독 옵션으로 Manager를 생성합니다.
func newManager(cfg *config.Config, ws *mcp.Workspace, detach bool) *mcp.Manager {
	return mcp.NewManager(ws, mcp.Options{
		StartupWait: cfg.Supervisor.StartupWait,
		StopGrace:   cfg.Supervisor.StopGrace,
		Detach:      detach,
	})
}
