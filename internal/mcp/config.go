// Package mcp는 MCP 서버 프로세스와 워크플로의 라이프사이클 관리를 제공합니다.
// 마스터 설정(JSON)을 읽어 서버를 시작/중지하고, 워크플로 단위로 묶어 실행합니다.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// 마스터 설정에서 치환되는 변수
const (
	varHome         = "${HOME}"
	varWorkflowRoot = "${WORKFLOW_ROOT}"
)

var (
	// ErrServerNotFound는 설정에 없는 서버를 요청했을 때 반환됩니다.
	ErrServerNotFound = errors.New("서버를 설정에서 찾을 수 없음")
	// ErrServerDisabled는 비활성화된 서버를 시작하려 할 때 반환됩니다.
	ErrServerDisabled = errors.New("서버가 설정에서 비활성화됨")
	// ErrWorkflowNotFound는 설정에 없는 워크플로를 요청했을 때 반환됩니다.
	ErrWorkflowNotFound = errors.New("워크플로를 설정에서 찾을 수 없음")
	// ErrLaunchSpecNotFound는 서버별 설정 파일이 없을 때 반환됩니다.
	ErrLaunchSpecNotFound = errors.New("서버 설정 파일을 찾을 수 없음")
	// ErrNotInitialized는 마스터 설정 파일이 없을 때 반환됩니다.
	ErrNotInitialized = errors.New("마스터 설정 파일이 없음 (mcpwf init --scaffold로 생성)")
)

// ServerEntry는 마스터 설정의 서버 항목입니다.
type ServerEntry struct {
	Enabled     bool   `json:"enabled"`
	Autostart   bool   `json:"autostart"`
	Priority    int    `json:"priority"`
	ConfigPath  string `json:"configPath"`
	Description string `json:"description,omitempty"`
}

// WorkflowEntry는 이름 붙은 서버 묶음입니다.
type WorkflowEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Servers     []string `json:"servers"`
}

// BackupConfig는 백업 설정입니다.
type BackupConfig struct {
	Enabled     bool     `json:"enabled"`
	Location    string   `json:"location"`
	Retention   int      `json:"retention"`
	Compression bool     `json:"compression"`
	Exclude     []string `json:"exclude,omitempty"`
}

// MasterConfig는 master-config.json 파일 구조입니다.
type MasterConfig struct {
	WorkflowRoot         string                   `json:"workflowRoot"`
	EnvironmentVariables map[string]string        `json:"environmentVariables,omitempty"`
	Servers              map[string]ServerEntry   `json:"servers"`
	Workflows            map[string]WorkflowEntry `json:"workflows,omitempty"`
	Backup               *BackupConfig            `json:"backup,omitempty"`
}

// LaunchSpec은 서버별 설정 파일(<name>-config.json)의 실행 정보입니다.
type LaunchSpec struct {
	Command string         `json:"command"`
	Args    []string       `json:"args"`
	Env     map[string]any `json:"env,omitempty"`
}

// EnvStrings는 환경 변수를 문자열 맵으로 변환합니다.
// 문자열이 아닌 값(숫자, 불리언)은 JSON 표현 그대로 사용합니다.
func (s *LaunchSpec) EnvStrings() map[string]string {
	out := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			data, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}

// LoadMasterConfig는 마스터 설정 파일을 읽어 파싱합니다.
func LoadMasterConfig(path string) (*MasterConfig, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("설정 경로 확인 실패 %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotInitialized, resolved)
		}
		return nil, fmt.Errorf("마스터 설정 파일 읽기 실패: %w", err)
	}

	var cfg MasterConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("마스터 설정 파일 파싱 실패: %w", err)
	}

	if cfg.Servers == nil {
		cfg.Servers = make(map[string]ServerEntry)
	}
	if cfg.Workflows == nil {
		cfg.Workflows = make(map[string]WorkflowEntry)
	}
	if cfg.EnvironmentVariables == nil {
		cfg.EnvironmentVariables = make(map[string]string)
	}

	return &cfg, nil
}

// Workspace는 초기화된 워크플로 루트와 마스터 설정입니다.
// 설정 감시 중에는 마스터 설정이 교체될 수 있으므로 Config()로 접근합니다.
type Workspace struct {
	ConfigPath string
	Root       string
	config     *MasterConfig
	home       string
	mu         sync.RWMutex
}

// Config는 현재 마스터 설정을 반환합니다.
func (w *Workspace) Config() *MasterConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// SetConfig는 마스터 설정을 교체합니다. workflowRoot 변경은 반영하지 않습니다.
func (w *Workspace) SetConfig(cfg *MasterConfig) {
	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()
}

// Initialize는 마스터 설정을 로드하고 워크플로 환경을 준비합니다.
// 1. ${HOME} 치환으로 워크플로 루트 결정
// 2. environmentVariables를 치환 후 프로세스 환경에 설정
// 3. <root>/.env 파일 로드 (기존 환경 변수는 덮어쓰지 않음)
// 4. 디렉토리 구조 생성
func Initialize(configPath string) (*Workspace, error) {
	resolved, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("설정 경로 확인 실패 %q: %w", configPath, err)
	}
	log.Info().Str("path", resolved).Msg("[workflow] 마스터 설정 로드")

	cfg, err := LoadMasterConfig(resolved)
	if err != nil {
		return nil, err
	}

	ws, err := NewWorkspace(resolved, cfg)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.EnvironmentVariables {
		if err := os.Setenv(key, ws.Expand(value)); err != nil {
			return nil, fmt.Errorf("환경 변수 %q 설정 실패: %w", key, err)
		}
	}

	envFile := filepath.Join(ws.Root, ".env")
	if _, statErr := os.Stat(envFile); statErr == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf(".env 파일 로드 실패 %q: %w", envFile, err)
		}
		log.Debug().Str("file", envFile).Msg("[workflow] .env 로드 완료")
	}

	if err := ws.EnsureDirectories(); err != nil {
		return nil, err
	}

	log.Info().Str("root", ws.Root).Msg("[workflow] 초기화 완료")
	return ws, nil
}

// NewWorkspace는 환경 변경 없이 Workspace를 생성합니다.
func NewWorkspace(configPath string, cfg *MasterConfig) (*Workspace, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("홈 디렉토리를 찾을 수 없습니다: %w", err)
	}
	if cfg.WorkflowRoot == "" {
		return nil, fmt.Errorf("마스터 설정에 workflowRoot가 없습니다")
	}

	root := strings.ReplaceAll(cfg.WorkflowRoot, varHome, home)
	return &Workspace{
		ConfigPath: configPath,
		Root:       filepath.Clean(root),
		config:     cfg,
		home:       home,
	}, nil
}

// Expand는 ${WORKFLOW_ROOT}와 ${HOME}을 모두 치환합니다.
func (w *Workspace) Expand(value string) string {
	r := strings.NewReplacer(varWorkflowRoot, w.Root, varHome, w.home)
	return r.Replace(value)
}

// Directories는 워크플로 루트 아래에 필요한 디렉토리 목록을 반환합니다.
func (w *Workspace) Directories() []string {
	return []string{
		w.Root,
		filepath.Join(w.Root, "configs"),
		filepath.Join(w.Root, "scripts"),
		filepath.Join(w.Root, "resources"),
		filepath.Join(w.Root, "logs"),
		filepath.Join(w.Root, "templates"),
		filepath.Join(w.Root, "resources", "databases"),
		filepath.Join(w.Root, "resources", "screenshots"),
		filepath.Join(w.Root, "resources", "downloads"),
		filepath.Join(w.Root, "resources", "memory-store"),
		filepath.Join(w.Root, "backups"),
		filepath.Join(w.Root, "run"),
	}
}

// EnsureDirectories는 필요한 디렉토리를 모두 생성합니다.
func (w *Workspace) EnsureDirectories() error {
	for _, dir := range w.Directories() {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		log.Info().Str("dir", dir).Msg("[workflow] 디렉토리 생성")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("디렉토리 생성 실패 %q: %w", dir, err)
		}
	}
	return nil
}

// LogsDir은 서버 로그 디렉토리입니다.
func (w *Workspace) LogsDir() string {
	return filepath.Join(w.Root, "logs")
}

// StatePath는 실행 상태 파일 경로입니다.
func (w *Workspace) StatePath() string {
	return filepath.Join(w.Root, "run", "state.json")
}

// Server는 이름으로 서버 항목을 조회합니다.
func (w *Workspace) Server(name string) (ServerEntry, bool) {
	entry, ok := w.Config().Servers[name]
	return entry, ok
}

// Workflow는 ID로 워크플로 항목을 조회합니다.
func (w *Workspace) Workflow(id string) (WorkflowEntry, bool) {
	entry, ok := w.Config().Workflows[id]
	return entry, ok
}

// LaunchSpecPath는 서버 설정 파일 경로를 치환하여 반환합니다.
func (w *Workspace) LaunchSpecPath(name string) (string, error) {
	entry, ok := w.Server(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrServerNotFound, name)
	}
	return w.Expand(entry.ConfigPath), nil
}

// LoadLaunchSpec은 서버별 설정 파일을 읽어 실행 정보를 반환합니다.
func (w *Workspace) LoadLaunchSpec(name string) (*LaunchSpec, error) {
	path, err := w.LaunchSpecPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLaunchSpecNotFound, path)
		}
		return nil, fmt.Errorf("서버 설정 파일 읽기 실패 %q: %w", path, err)
	}

	var spec LaunchSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("서버 설정 파일 파싱 실패 %q: %w", path, err)
	}
	if spec.Command == "" {
		return nil, fmt.Errorf("서버 설정 파일에 command가 없음: %s", path)
	}

	for k, v := range spec.Env {
		if s, ok := v.(string); ok {
			spec.Env[k] = w.Expand(s)
		}
	}

	return &spec, nil
}
