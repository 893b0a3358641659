// Package config는 MCP 워크플로 매니저의 애플리케이션 설정 관리를 담당합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config는 전체 애플리케이션 설정을 나타냅니다.
type Config struct {
	Workflow   WorkflowConfig   `mapstructure:"workflow" yaml:"workflow"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
	Installer  InstallerConfig  `mapstructure:"installer" yaml:"installer"`
	Editor     EditorConfig     `mapstructure:"editor" yaml:"editor"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// WorkflowConfig는 마스터 설정 파일 위치입니다.
type WorkflowConfig struct {
	// MasterConfig는 마스터 설정(JSON) 파일 경로입니다.
	MasterConfig string `mapstructure:"master_config" yaml:"master_config"`
}

// SupervisorConfig는 프로세스 감독 관련 설정입니다.
type SupervisorConfig struct {
	// StartupWait는 시작 직후 즉시 종료 여부를 판단하기 위한 대기 시간입니다.
	StartupWait time.Duration `mapstructure:"startup_wait" yaml:"startup_wait"`
	// StopGrace는 SIGTERM 후 SIGKILL까지의 유예 시간입니다.
	StopGrace time.Duration `mapstructure:"stop_grace" yaml:"stop_grace"`
	// HealthInterval은 생존 확인 주기입니다.
	HealthInterval time.Duration `mapstructure:"health_interval" yaml:"health_interval"`
	// WatchConfig가 true이면 마스터 설정 변경을 감시합니다.
	WatchConfig bool `mapstructure:"watch_config" yaml:"watch_config"`
	// MetricsAddr가 비어있지 않으면 포그라운드 감독 중 Prometheus 메트릭을 노출합니다 (예: 127.0.0.1:9464).
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// InstallerConfig는 서버 가용성 점검 설정입니다.
type InstallerConfig struct {
	// Runner는 패키지 실행기입니다 (기본값: npx).
	Runner string `mapstructure:"runner" yaml:"runner"`
	// ProbeTimeout은 서버 하나를 점검할 때의 최대 시간입니다.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	// OutputDir은 생성된 설정 파일을 저장할 디렉토리입니다.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// Handshake가 true이면 MCP initialize 핸드셰이크까지 확인합니다.
	Handshake bool `mapstructure:"handshake" yaml:"handshake"`
}

// EditorConfig는 에디터 설정 파일 패치 관련 설정입니다.
type EditorConfig struct {
	// SettingsPath는 Cursor settings.json 경로입니다. 비어있으면 OS 기본 경로를 사용합니다.
	SettingsPath string `mapstructure:"settings_path" yaml:"settings_path"`
}

// LoggingConfig는 로깅 설정입니다.
type LoggingConfig struct {
	// Level은 로그 레벨입니다 (debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`
	// Format은 로그 포맷입니다 (json, text).
	Format string `mapstructure:"format" yaml:"format"`
	// File은 로그 파일 경로입니다. 비어있으면 stderr로 출력합니다.
	File string `mapstructure:"file" yaml:"file"`
}

// SetDefaults는 viper 기본값을 등록합니다.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workflow.master_config", "./configs/master-config.json")

	v.SetDefault("supervisor.startup_wait", "2s")
	v.SetDefault("supervisor.stop_grace", "5s")
	v.SetDefault("supervisor.health_interval", "10s")
	v.SetDefault("supervisor.watch_config", false)
	v.SetDefault("supervisor.metrics_addr", "")

	v.SetDefault("installer.runner", "npx")
	v.SetDefault("installer.probe_timeout", "15s")
	v.SetDefault("installer.output_dir", "./configs")
	v.SetDefault("installer.handshake", false)

	v.SetDefault("editor.settings_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

// Load는 전역 viper 인스턴스에서 설정을 로드합니다.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom은 주어진 viper 인스턴스에서 설정을 로드합니다.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("설정 파싱 실패: %w", err)
	}

	cfg.Workflow.MasterConfig = expandPath(cfg.Workflow.MasterConfig)
	cfg.Installer.OutputDir = expandPath(cfg.Installer.OutputDir)
	cfg.Editor.SettingsPath = expandPath(cfg.Editor.SettingsPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// Validate는 설정의 유효성을 검사합니다.
func (c *Config) Validate() error {
	if c.Workflow.MasterConfig == "" {
		return fmt.Errorf("workflow.master_config가 비어있습니다")
	}
	if c.Supervisor.StartupWait < 0 {
		return fmt.Errorf("supervisor.startup_wait는 0 이상이어야 합니다")
	}
	if c.Supervisor.StopGrace <= 0 {
		return fmt.Errorf("supervisor.stop_grace는 0보다 커야 합니다")
	}
	if c.Installer.Runner == "" {
		return fmt.Errorf("installer.runner가 비어있습니다")
	}
	if c.Installer.ProbeTimeout <= 0 {
		return fmt.Errorf("installer.probe_timeout은 0보다 커야 합니다")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("유효하지 않은 로그 레벨: %s (debug, info, warn, error 중 하나)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("유효하지 않은 로그 포맷: %s (json, text 중 하나)", c.Logging.Format)
	}

	return nil
}

// expandPath는 ~를 홈 디렉토리로 확장합니다.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConfigDir은 설정 디렉토리 경로를 반환합니다.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mcpwf")
}

// EnsureConfigDir는 설정 디렉토리가 존재하는지 확인하고 없으면 생성합니다.
func EnsureConfigDir() error {
	dir := ConfigDir()
	if dir == "" {
		return fmt.Errorf("홈 디렉토리를 찾을 수 없습니다")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}
	return nil
}

// DefaultConfigPath는 기본 설정 파일 경로를 반환합니다.
func DefaultConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
