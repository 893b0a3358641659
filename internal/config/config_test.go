package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// TestLoadFrom_Defaults는 기본값이 올바르게 로드되는지 테스트합니다.
func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(newTestViper())
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.Workflow.MasterConfig != "./configs/master-config.json" {
		t.Errorf("MasterConfig = %q, want %q", cfg.Workflow.MasterConfig, "./configs/master-config.json")
	}
	if cfg.Supervisor.StartupWait != 2*time.Second {
		t.Errorf("StartupWait = %v, want 2s", cfg.Supervisor.StartupWait)
	}
	if cfg.Supervisor.StopGrace != 5*time.Second {
		t.Errorf("StopGrace = %v, want 5s", cfg.Supervisor.StopGrace)
	}
	if cfg.Supervisor.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.Supervisor.MetricsAddr)
	}
	if cfg.Installer.Runner != "npx" {
		t.Errorf("Runner = %q, want %q", cfg.Installer.Runner, "npx")
	}
	if cfg.Installer.ProbeTimeout != 15*time.Second {
		t.Errorf("ProbeTimeout = %v, want 15s", cfg.Installer.ProbeTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("기본 설정은 유효해야 합니다: %v", err)
	}
}

// TestLoadFrom_ExpandsHome은 ~ 경로 확장을 테스트합니다.
func TestLoadFrom_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("UserHomeDir not available")
	}

	v := newTestViper()
	v.Set("workflow.master_config", "~/MCP-Workflow/configs/master-config.json")

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	want := filepath.Join(home, "MCP-Workflow", "configs", "master-config.json")
	if cfg.Workflow.MasterConfig != want {
		t.Errorf("MasterConfig = %q, want %q", cfg.Workflow.MasterConfig, want)
	}
}

// TestConfig_Validate는 설정 검증을 테스트합니다.
func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Workflow:   WorkflowConfig{MasterConfig: "master.json"},
			Supervisor: SupervisorConfig{StartupWait: time.Second, StopGrace: time.Second},
			Installer:  InstallerConfig{Runner: "npx", ProbeTimeout: time.Second},
			Logging:    LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "유효한 설정", mutate: func(c *Config) {}, wantErr: false},
		{name: "마스터 설정 경로 누락", mutate: func(c *Config) { c.Workflow.MasterConfig = "" }, wantErr: true},
		{name: "음수 startup_wait", mutate: func(c *Config) { c.Supervisor.StartupWait = -time.Second }, wantErr: true},
		{name: "0 stop_grace", mutate: func(c *Config) { c.Supervisor.StopGrace = 0 }, wantErr: true},
		{name: "빈 runner", mutate: func(c *Config) { c.Installer.Runner = "" }, wantErr: true},
		{name: "0 probe_timeout", mutate: func(c *Config) { c.Installer.ProbeTimeout = 0 }, wantErr: true},
		{name: "잘못된 로그 레벨", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "잘못된 로그 포맷", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestExpandPath는 경로 확장을 테스트합니다.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("UserHomeDir not available")
	}

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "/abs/path", want: "/abs/path"},
		{input: "relative/path", want: "relative/path"},
		{input: "~/x", want: filepath.Join(home, "x")},
	}

	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path == "" {
		t.Skip("UserHomeDir not available")
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("DefaultConfigPath() = %q, want config.yaml basename", path)
	}
}
