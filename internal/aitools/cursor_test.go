package aitools

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultCursorSettingsPath(t *testing.T) {
	tests := []struct {
		goos    string
		appData string
		want    string
	}{
		{goos: "linux", want: filepath.Join("/home/u", ".config", "Cursor", "User", "settings.json")},
		{goos: "darwin", want: filepath.Join("/home/u", "Library", "Application Support", "Cursor", "User", "settings.json")},
		{goos: "windows", appData: "/appdata", want: filepath.Join("/appdata", "Cursor", "User", "settings.json")},
		{goos: "windows", want: filepath.Join("/home/u", "AppData", "Roaming", "Cursor", "User", "settings.json")},
	}

	for _, tt := range tests {
		if got := defaultCursorSettingsPath(tt.goos, "/home/u", tt.appData); got != tt.want {
			t.Errorf("defaultCursorSettingsPath(%q, %q) = %q, want %q", tt.goos, tt.appData, got, tt.want)
		}
	}
}

func TestCursorSettingsPath_Override(t *testing.T) {
	got, err := CursorSettingsPath("/custom/settings.json")
	if err != nil || got != "/custom/settings.json" {
		t.Errorf("CursorSettingsPath() = %q, %v", got, err)
	}
}

func TestConfigureCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	original := `{"editor.fontSize": 14, "mcp.servers": {"stale": {"command": "old"}}}`
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	servers := map[string]MCPServerConfig{
		"memory": {Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-memory"}, Env: map[string]string{}},
	}
	now := time.UnixMilli(1700000000000)

	result, err := ConfigureCursor(path, servers, now)
	if err != nil {
		t.Fatalf("ConfigureCursor() error: %v", err)
	}
	if result.BackupPath != path+".backup-1700000000000" {
		t.Errorf("BackupPath = %q", result.BackupPath)
	}
	if len(result.Servers) != 1 || result.Servers[0] != "memory" {
		t.Errorf("Servers = %v", result.Servers)
	}

	backup, _ := os.ReadFile(result.BackupPath)
	if string(backup) != original {
		t.Error("백업 내용이 원본과 다릅니다")
	}

	settings, err := ReadJSONConfig(path)
	if err != nil {
		t.Fatalf("ReadJSONConfig() error: %v", err)
	}
	if settings["editor.fontSize"] != float64(14) {
		t.Error("다른 설정이 보존되지 않았습니다")
	}
	mcpServers := settings[CursorServersKey].(map[string]interface{})
	if _, ok := mcpServers["stale"]; ok {
		t.Error("mcp.servers는 통째로 교체되어야 합니다")
	}
	mem := mcpServers["memory"].(map[string]interface{})
	if mem["command"] != "npx" {
		t.Errorf("memory = %v", mem)
	}
	if env, ok := mem["env"].(map[string]interface{}); !ok || len(env) != 0 {
		t.Errorf("env = %v, want {}", mem["env"])
	}
}

func TestConfigureCursor_NoServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"mcp.servers": {"stale": {"command": "old"}}}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := ConfigureCursor(path, map[string]MCPServerConfig{}, time.Now())
	if err != nil {
		t.Fatalf("ConfigureCursor() error: %v", err)
	}
	if len(result.Servers) != 0 {
		t.Errorf("Servers = %v, want empty", result.Servers)
	}

	settings, err := ReadJSONConfig(path)
	if err != nil {
		t.Fatalf("ReadJSONConfig() error: %v", err)
	}
	mcpServers, ok := settings[CursorServersKey].(map[string]interface{})
	if !ok || len(mcpServers) != 0 {
		t.Errorf("mcp.servers = %v, want {}", settings[CursorServersKey])
	}
}

func TestConfigureCursor_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ConfigureCursor(filepath.Join(dir, "missing.json"), nil, time.Now()); err == nil {
		t.Error("설정 파일이 없으면 에러가 발생해야 합니다")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{oops"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ConfigureCursor(bad, nil, time.Now()); err == nil {
		t.Error("잘못된 JSON이면 에러가 발생해야 합니다")
	}

	nullDoc := filepath.Join(dir, "null.json")
	if err := os.WriteFile(nullDoc, []byte("null"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ConfigureCursor(nullDoc, map[string]MCPServerConfig{"memory": {Command: "npx"}}, time.Now()); err == nil {
		t.Error("JSON 객체가 아니면 에러가 발생해야 합니다")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("실패 시 백업이 생성되면 안 됩니다: %d entries", len(entries))
	}
}

func TestConfigureClaudeCode(t *testing.T) {
	dir := t.TempDir()
	path, err := ClaudeMCPPath(dir)
	if err != nil {
		t.Fatalf("ClaudeMCPPath() error: %v", err)
	}

	// 파일이 없으면 새로 생성
	result, err := ConfigureClaudeCode(path, map[string]MCPServerConfig{"memory": {Command: "npx"}}, time.Now())
	if err != nil {
		t.Fatalf("ConfigureClaudeCode() error: %v", err)
	}
	if result.BackupPath != "" {
		t.Errorf("BackupPath = %q, want empty for new file", result.BackupPath)
	}

	// 두 번째 호출은 기존 항목을 보존하고 백업을 남김
	result, err = ConfigureClaudeCode(path, map[string]MCPServerConfig{"fetch": {Command: "npx"}}, time.UnixMilli(42))
	if err != nil {
		t.Fatalf("ConfigureClaudeCode() error: %v", err)
	}
	if result.BackupPath != path+".backup-42" {
		t.Errorf("BackupPath = %q", result.BackupPath)
	}

	config, err := ReadJSONConfig(path)
	if err != nil {
		t.Fatalf("ReadJSONConfig() error: %v", err)
	}
	servers := config[ClaudeServersKey].(map[string]interface{})
	if len(servers) != 2 {
		t.Errorf("mcpServers = %v, want memory+fetch", servers)
	}
}

func TestConfigureClaudeCode_NullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mcp.json")
	if err := os.WriteFile(path, []byte("null"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := ConfigureClaudeCode(path, map[string]MCPServerConfig{"memory": {Command: "npx"}}, time.UnixMilli(7))
	if err != nil {
		t.Fatalf("ConfigureClaudeCode() error: %v", err)
	}
	if result.BackupPath != path+".backup-7" {
		t.Errorf("BackupPath = %q", result.BackupPath)
	}

	config, err := ReadJSONConfig(path)
	if err != nil {
		t.Fatalf("ReadJSONConfig() error: %v", err)
	}
	servers, ok := config[ClaudeServersKey].(map[string]interface{})
	if !ok || len(servers) != 1 {
		t.Errorf("mcpServers = %v, want memory", config[ClaudeServersKey])
	}
}
