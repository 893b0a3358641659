package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ScaffoldServer는 기본 설정에 기록할 서버 정보입니다.
type ScaffoldServer struct {
	Name        string
	Description string
	Command     string
	Args        []string
	Env         map[string]string
	Enabled     bool
	Autostart   bool
	Priority    int
}

// ScaffoldOptions는 Scaffold 입력입니다.
type ScaffoldOptions struct {
	// Root는 워크플로 루트 디렉토리입니다.
	Root      string
	Servers   []ScaffoldServer
	Workflows map[string]WorkflowEntry
	// Force가 true이면 기존 파일을 덮어씁니다.
	Force bool
}

// ScaffoldResult는 기록/건너뛴 파일 목록입니다.
type ScaffoldResult struct {
	MasterConfig string
	Written      []string
	Skipped      []string
}

// Scaffold는 기본 master-config.json과 서버별 설정 파일을 <root>/configs에 기록합니다.
// 1. configs 디렉토리 생성
// 2. 서버별 <name>-config.json 기록
// 3. master-config.json 기록
// 4. 비밀 값 자리표시용 .env 기록
func Scaffold(opts ScaffoldOptions) (*ScaffoldResult, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("워크플로 루트가 비어있음")
	}

	configsDir := filepath.Join(opts.Root, "configs")
	if err := os.MkdirAll(configsDir, 0755); err != nil {
		return nil, fmt.Errorf("설정 디렉토리 생성 실패 %q: %w", configsDir, err)
	}

	log.Info().
		Str("root", opts.Root).
		Int("servers", len(opts.Servers)).
		Msg("[workflow] 기본 설정 생성 시작")

	result := &ScaffoldResult{MasterConfig: filepath.Join(configsDir, "master-config.json")}
	master := MasterConfig{
		WorkflowRoot:         opts.Root,
		EnvironmentVariables: map[string]string{"MCP_WORKFLOW_ROOT": varWorkflowRoot},
		Servers:              make(map[string]ServerEntry, len(opts.Servers)),
		Workflows:            opts.Workflows,
		Backup: &BackupConfig{
			Enabled:   true,
			Location:  varWorkflowRoot + "/backups",
			Retention: 5,
		},
	}
	if master.Workflows == nil {
		master.Workflows = map[string]WorkflowEntry{}
	}

	secrets := map[string]string{}
	for _, srv := range opts.Servers {
		if srv.Name == "" {
			return nil, fmt.Errorf("서버 이름이 비어있음")
		}

		env := make(map[string]any, len(srv.Env))
		for k, v := range srv.Env {
			env[k] = v
			if v == "" {
				secrets[k] = ""
			}
		}
		spec := LaunchSpec{Command: srv.Command, Args: srv.Args, Env: env}
		specPath := filepath.Join(configsDir, srv.Name+"-config.json")
		if err := writeScaffoldJSON(specPath, spec, opts.Force, result); err != nil {
			return nil, err
		}

		master.Servers[srv.Name] = ServerEntry{
			Enabled:     srv.Enabled,
			Autostart:   srv.Autostart,
			Priority:    srv.Priority,
			ConfigPath:  varWorkflowRoot + "/configs/" + srv.Name + "-config.json",
			Description: srv.Description,
		}
	}

	if err := writeScaffoldJSON(result.MasterConfig, master, opts.Force, result); err != nil {
		return nil, err
	}

	if len(secrets) > 0 {
		envPath := filepath.Join(opts.Root, ".env")
		if _, err := os.Stat(envPath); err == nil && !opts.Force {
			result.Skipped = append(result.Skipped, envPath)
		} else {
			if err := writeEnvFile(envPath, secrets); err != nil {
				return nil, fmt.Errorf("환경 변수 파일 기록 실패: %w", err)
			}
			result.Written = append(result.Written, envPath)
		}
	}

	log.Info().
		Int("written", len(result.Written)).
		Int("skipped", len(result.Skipped)).
		Msg("[workflow] 기본 설정 생성 완료")

	return result, nil
}

// writeScaffoldJSON은 파일이 없거나 force일 때만 2칸 들여쓰기 JSON을 기록합니다.
func writeScaffoldJSON(path string, v any, force bool, result *ScaffoldResult) error {
	if _, err := os.Stat(path); err == nil && !force {
		log.Debug().Str("file", path).Msg("[workflow] 기존 파일 유지")
		result.Skipped = append(result.Skipped, path)
		return nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON 직렬화 실패 %q: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("파일 기록 실패 %q: %w", path, err)
	}

	result.Written = append(result.Written, path)
	return nil
}

// writeEnvFile은 환경 변수를 KEY=VALUE 형식으로 .env 파일에 기록합니다.
func writeEnvFile(path string, envVars map[string]string) error {
	keys := make([]string, 0, len(envVars))
	for k := range envVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%s", k, envVars[k]))
	}
	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0600)
}
