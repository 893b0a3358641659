// Package aitools는 에디터/AI 도구의 MCP 서버 설정 파일 패치 기능을 제공합니다.
// Cursor settings.json과 Claude Code .mcp.json에 워크플로 서버 목록을 기록합니다.
package aitools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/rs/zerolog/log"
)

// MCPServerConfig는 에디터 설정에 기록되는 MCP 서버 항목입니다.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// SelfMCPServer는 이 도구 자체를 MCP 서버로 등록하기 위한 설정을 반환합니다.
func SelfMCPServer(executable, masterConfig string) MCPServerConfig {
	args := []string{"mcp-serve"}
	if masterConfig != "" {
		args = append(args, "--master", masterConfig)
	}
	return MCPServerConfig{
		Command: executable,
		Args:    args,
		Env:     map[string]string{},
	}
}

// BuildServers는 활성화된 서버 중 설정 파일이 있는 서버의 에디터 항목을 만듭니다.
// 건너뛴 서버 이름도 함께 반환합니다.
func BuildServers(ws *mcp.Workspace) (map[string]MCPServerConfig, []string) {
	cfg := ws.Config()
	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make(map[string]MCPServerConfig)
	var skipped []string
	for _, name := range names {
		if !cfg.Servers[name].Enabled {
			continue
		}
		spec, err := ws.LoadLaunchSpec(name)
		if err != nil {
			log.Warn().Err(err).Str("name", name).Msg("[cursor] 서버 설정을 읽을 수 없어 건너뜀")
			skipped = append(skipped, name)
			continue
		}
		args := spec.Args
		if args == nil {
			args = []string{}
		}
		servers[name] = MCPServerConfig{
			Command: spec.Command,
			Args:    args,
			Env:     spec.EnvStrings(),
		}
	}
	return servers, skipped
}

// ReadJSONConfig는 JSON 설정 파일을 읽어 map으로 반환합니다.
func ReadJSONConfig(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("설정 파일 읽기 실패: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("JSON 파싱 실패: %w", err)
	}
	// "null" 문서는 에러 없이 nil map이 됩니다.
	if result == nil {
		return nil, fmt.Errorf("설정 파일이 JSON 객체가 아님: %s", path)
	}

	return result, nil
}

// WriteJSONConfig는 값을 2칸 들여쓰기 JSON 파일로 저장합니다.
func WriteJSONConfig(path string, data any) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON 직렬화 실패: %w", err)
	}

	jsonData = append(jsonData, '\n')

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("설정 파일 저장 실패: %w", err)
	}

	return nil
}

// BackupFile는 파일을 <path>.backup-<unix 밀리초>로 복사하고 백업 경로를 반환합니다.
// 원본이 없으면 빈 문자열을 반환합니다.
func BackupFile(path string, now time.Time) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("백업 원본 읽기 실패: %w", err)
	}

	backupPath := path + ".backup-" + strconv.FormatInt(now.UnixMilli(), 10)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("백업 파일 저장 실패: %w", err)
	}

	return backupPath, nil
}

// EnsureDir는 파일 경로의 상위 디렉토리가 존재하는지 확인하고, 없으면 생성합니다.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("디렉토리 생성 실패: %w", err)
	}
	return nil
}

// addMCPServerToJSON는 JSON 설정의 key 아래에 MCP 서버 항목을 추가합니다.
func addMCPServerToJSON(config map[string]interface{}, key, serverName string, server MCPServerConfig) {
	servers, ok := config[key].(map[string]interface{})
	if !ok {
		servers = make(map[string]interface{})
		config[key] = servers
	}

	servers[serverName] = server
}
