package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/insajin/mcp-workflow/internal/config"
	"github.com/insajin/mcp-workflow/internal/installer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd는 설정 관리를 위한 상위 명령어입니다.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정을 관리합니다",
	Long: `애플리케이션 설정 파일의 값을 조회하거나 수정합니다.

설정 파일 위치: ~/.config/mcpwf/config.yaml
모든 키는 MCPWF_ 접두사 환경변수로 덮어쓸 수 있습니다.
  예: MCPWF_SUPERVISOR_STOP_GRACE=10s

MCP 서버의 API 키는 이 파일이 아니라 <workflow root>/.env에 두세요.`,
}

// configSetCmd는 설정 값을 저장하는 명령어입니다.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "설정 값을 저장합니다",
	Long: `설정 파일에 값을 저장합니다.

키는 점(.)으로 구분된 경로를 사용합니다.
예시:
  mcpwf config set workflow.master_config ~/MCP-Workflow/configs/master-config.json
  mcpwf config set supervisor.stop_grace 10s
  mcpwf config set logging.level debug

지원하는 설정 키:
  workflow.master_config      - 마스터 설정 파일 경로
  supervisor.startup_wait     - 시작 실패 판단 대기 시간 (예: 2s)
  supervisor.stop_grace       - SIGTERM 후 SIGKILL까지 유예 시간 (예: 5s)
  supervisor.health_interval  - 생존 확인 주기 (예: 10s)
  supervisor.watch_config     - 마스터 설정 변경 감시 (true/false)
  supervisor.metrics_addr     - Prometheus /metrics 주소 (비어있으면 비활성)
  installer.runner            - 패키지 실행기 (기본값: npx)
  installer.probe_timeout     - 서버 점검 제한 시간 (예: 15s)
  installer.output_dir        - install 결과 파일 디렉토리
  installer.handshake         - MCP 핸드셰이크 점검 (true/false)
  editor.settings_path        - Cursor settings.json 경로
  logging.level               - 로그 레벨 (debug, info, warn, error)
  logging.format              - 로그 포맷 (json, text)
  logging.file                - 로그 파일 경로 (비어있으면 stderr)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

// configGetCmd는 설정 값을 조회하는 명령어입니다.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "설정 값을 조회합니다",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

// configListCmd는 전체 설정을 출력하는 명령어입니다.
var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "전체 설정을 출력합니다",
	Long: `현재 적용된 모든 설정을 YAML 포맷으로 출력합니다.

MCP 서버 API 키 환경변수의 설정 여부도 마스킹하여 함께 표시합니다.`,
	RunE: runConfigList,
}

// configPathCmd는 설정 파일 경로를 출력하는 명령어입니다.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "설정 파일 경로를 출력합니다",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfigPath())
		return nil
	},
}

// configInitCmd는 기본 설정 파일을 생성하는 명령어입니다.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "기본 설정 파일을 생성합니다",
	Long: `기본 설정 파일을 ~/.config/mcpwf/config.yaml에 생성합니다.

이미 파일이 존재하면 덮어쓰지 않습니다.
강제로 덮어쓰려면 --force 플래그를 사용하세요.`,
	RunE: runConfigInit,
}

var forceInit bool

// validConfigKeys는 config set으로 저장할 수 있는 키 목록입니다.
var validConfigKeys = map[string]bool{
	"workflow.master_config":     true,
	"supervisor.startup_wait":    true,
	"supervisor.stop_grace":      true,
	"supervisor.health_interval": true,
	"supervisor.watch_config":    true,
	"supervisor.metrics_addr":    true,
	"installer.runner":           true,
	"installer.probe_timeout":    true,
	"installer.output_dir":       true,
	"installer.handshake":        true,
	"editor.settings_path":       true,
	"logging.level":              true,
	"logging.format":             true,
	"logging.file":               true,
}

const defaultConfigYAML = `# MCP Workflow Manager 설정 파일
# 생성됨: mcpwf config init

workflow:
  master_config: "~/MCP-Workflow/configs/master-config.json"

supervisor:
  startup_wait: "2s"      # 이 시간 안에 종료되면 시작 실패
  stop_grace: "5s"        # SIGTERM 후 SIGKILL까지 대기
  health_interval: "10s"
  watch_config: false
  metrics_addr: ""        # 예: 127.0.0.1:9464 (포그라운드 감독 중 /metrics)

installer:
  runner: "npx"
  probe_timeout: "15s"
  output_dir: "~/MCP-Workflow/configs"
  handshake: false

editor:
  settings_path: ""       # 비어있으면 OS 기본 Cursor 경로

logging:
  level: "info"    # debug, info, warn, error
  format: "text"   # json, text
  file: ""         # 비어있으면 stderr
`

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "기존 파일을 덮어씁니다")
}

// runConfigSet은 설정 값을 저장합니다.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if !isValidConfigKey(key) {
		return fmt.Errorf("알 수 없는 설정 키: %s", key)
	}
	parsedValue := parseConfigValue(value)

	// 저장 전에 검증하여 잘못된 값이 파일에 남지 않게 합니다.
	viper.Set(key, parsedValue)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 값 변환 실패: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	configPath := config.DefaultConfigPath()
	if used := viper.ConfigFileUsed(); used != "" {
		configPath = used
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("설정 파일 저장 실패: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s = %v\n", key, parsedValue)
	fmt.Fprintf(out, "설정이 저장되었습니다: %s\n", configPath)
	return nil
}

// runConfigGet은 설정 값을 조회합니다.
func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := viper.Get(key)
	if value == nil {
		return fmt.Errorf("설정 키를 찾을 수 없습니다: %s", key)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
	return nil
}

// runConfigList는 전체 설정을 출력합니다.
func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	out := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "# 설정 파일: %s\n\n", configFile)
	} else {
		fmt.Fprintf(out, "# 설정 파일: (기본값 사용 중)\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("YAML 직렬화 실패: %w", err)
	}
	fmt.Fprintln(out, string(yamlData))

	fmt.Fprintln(out, "# 서버 API 키 환경변수 상태:")
	for _, name := range secretEnvNames() {
		printEnvStatus(out, name)
	}
	return nil
}

// runConfigInit은 기본 설정 파일을 생성합니다.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := config.DefaultConfigPath()

	if !forceInit {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("설정 파일이 이미 존재합니다: %s\n--force 플래그로 덮어쓸 수 있습니다", configPath)
		}
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0600); err != nil {
		return fmt.Errorf("설정 파일 생성 실패: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "설정 파일이 생성되었습니다: %s\n", configPath)
	return nil
}

// isValidConfigKey는 유효한 설정 키인지 확인합니다.
func isValidConfigKey(key string) bool {
	return validConfigKeys[key]
}

// parseConfigValue는 문자열 값을 적절한 타입으로 변환합니다.
// "2s" 같은 기간 값은 문자열로 남겨 viper가 time.Duration으로 해석하게 합니다.
func parseConfigValue(value string) interface{} {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && strings.Contains(value, ".") {
		return f
	}
	return value
}

// secretEnvNames는 카탈로그 서버가 요구하는 API 키 환경변수 이름입니다.
func secretEnvNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range installer.Catalog() {
		for _, name := range s.Secrets {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// maskSensitiveValue는 민감한 값을 마스킹합니다.
func maskSensitiveValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// printEnvStatus는 환경변수 설정 상태를 출력합니다.
func printEnvStatus(w io.Writer, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		fmt.Fprintf(w, "  %s: 설정됨 (%s)\n", envVar, maskSensitiveValue(value))
	} else {
		fmt.Fprintf(w, "  %s: 설정되지 않음\n", envVar)
	}
}
