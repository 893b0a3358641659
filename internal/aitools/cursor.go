package aitools

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// CursorServersKey는 Cursor settings.json에서 MCP 서버 목록을 담는 키입니다.
const CursorServersKey = "mcp.servers"

// SetupResult는 설정 파일 패치 결과입니다.
type SetupResult struct {
	SettingsPath string   `json:"settings_path"`
	BackupPath   string   `json:"backup_path,omitempty"`
	Servers      []string `json:"servers"`
}

// CursorSettingsPath는 Cursor settings.json 경로를 결정합니다.
// override가 있으면 그대로 사용하고, 없으면 OS별 기본 경로를 사용합니다.
func CursorSettingsPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("홈 디렉토리 확인 실패: %w", err)
	}
	return defaultCursorSettingsPath(runtime.GOOS, home, os.Getenv("APPDATA")), nil
}

func defaultCursorSettingsPath(goos, home, appData string) string {
	switch goos {
	case "windows":
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Cursor", "User", "settings.json")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "settings.json")
	default:
		return filepath.Join(home, ".config", "Cursor", "User", "settings.json")
	}
}

// ConfigureCursor는 Cursor settings.json의 mcp.servers 키를 servers로 통째로 교체합니다.
// 1. 설정 파일이 없거나 파싱할 수 없으면 에러
// 2. 원본을 <path>.backup-<밀리초>로 백업
// 3. 2칸 들여쓰기로 저장
func ConfigureCursor(settingsPath string, servers map[string]MCPServerConfig, now time.Time) (*SetupResult, error) {
	if _, err := os.Stat(settingsPath); err != nil {
		return nil, fmt.Errorf("Cursor 설정 파일을 찾을 수 없음 %q: %w", settingsPath, err)
	}

	settings, err := ReadJSONConfig(settingsPath)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]interface{}, len(servers))
	names := make([]string, 0, len(servers))
	for name, server := range servers {
		entries[name] = server
		names = append(names, name)
	}
	settings[CursorServersKey] = entries

	backupPath, err := BackupFile(settingsPath, now)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backup", backupPath).Msg("[cursor] 기존 설정 백업 완료")

	if err := WriteJSONConfig(settingsPath, settings); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", settingsPath).
		Int("servers", len(servers)).
		Msg("[cursor] MCP 서버 설정 갱신 완료")

	return &SetupResult{
		SettingsPath: settingsPath,
		BackupPath:   backupPath,
		Servers:      sortedCopy(names),
	}, nil
}
