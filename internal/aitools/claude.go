package aitools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ClaudeServersKey는 Claude Code .mcp.json의 서버 목록 키입니다.
const ClaudeServersKey = "mcpServers"

// ClaudeMCPPath는 Claude Code .mcp.json 경로를 반환합니다.
// projectDir이 비어있으면 글로벌 설정(~/.claude/.mcp.json)을 사용합니다.
func ClaudeMCPPath(projectDir string) (string, error) {
	if projectDir != "" {
		return filepath.Join(projectDir, ".mcp.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("홈 디렉토리 확인 실패: %w", err)
	}
	return filepath.Join(home, ".claude", ".mcp.json"), nil
}

// ConfigureClaudeCode는 .mcp.json의 mcpServers에 서버를 추가합니다.
// Cursor와 달리 기존 항목은 유지하고 같은 이름만 덮어씁니다. 파일이 없으면 새로 만듭니다.
func ConfigureClaudeCode(mcpPath string, servers map[string]MCPServerConfig, now time.Time) (*SetupResult, error) {
	config := make(map[string]interface{})
	backupPath := ""

	if _, err := os.Stat(mcpPath); err == nil {
		backupPath, err = BackupFile(mcpPath, now)
		if err != nil {
			return nil, fmt.Errorf("백업 실패: %w", err)
		}

		existing, err := ReadJSONConfig(mcpPath)
		if err != nil {
			log.Warn().Err(err).Str("path", mcpPath).Msg("[cursor] .mcp.json 파싱 실패, 새로 생성")
		} else {
			config = existing
		}
	}

	names := make([]string, 0, len(servers))
	for name, server := range servers {
		addMCPServerToJSON(config, ClaudeServersKey, name, server)
		names = append(names, name)
	}

	if err := WriteJSONConfig(mcpPath, config); err != nil {
		return nil, err
	}

	log.Info().Str("path", mcpPath).Int("servers", len(servers)).Msg("[cursor] Claude Code MCP 설정 갱신 완료")
	return &SetupResult{SettingsPath: mcpPath, BackupPath: backupPath, Servers: sortedCopy(names)}, nil
}

func sortedCopy(names []string) []string {
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}
