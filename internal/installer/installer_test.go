//go:build !windows

package installer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/insajin/mcp-workflow/internal/aitools"
)

func newTestInstaller(t *testing.T) (*Installer, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "configs")
	inst, err := New(NewProber(fakeRunner(t), 300*time.Millisecond, false), out)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return inst, out
}

func TestInstaller_Run(t *testing.T) {
	inst, out := newTestInstaller(t)

	report, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// memory, filesystem, fetch, sequential-thinking(exit 0) + github(exit 1) + puppeteer(timeout)
	if report.AvailableCount != 6 || report.TotalCount != 9 {
		t.Errorf("available/total = %d/%d, want 6/9", report.AvailableCount, report.TotalCount)
	}
	if len(report.Unavailable()) != 3 {
		t.Errorf("Unavailable() = %d, want 3", len(report.Unavailable()))
	}
	if report.Results[0].Name != "filesystem" {
		t.Errorf("첫 결과 = %q, 카탈로그 순서여야 합니다", report.Results[0].Name)
	}

	working, err := aitools.ReadJSONConfig(filepath.Join(out, WorkingServersFile))
	if err != nil {
		t.Fatalf("working-servers.json 읽기 실패: %v", err)
	}
	if len(working) != 6 {
		t.Errorf("working servers = %d, want 6", len(working))
	}
	if _, ok := working["sqlite"]; ok {
		t.Error("사용 불가 서버가 기록되었습니다")
	}

	cursor, err := aitools.ReadJSONConfig(report.CursorFile)
	if err != nil {
		t.Fatalf("cursor-settings.json 읽기 실패: %v", err)
	}
	servers := cursor[aitools.CursorServersKey].(map[string]interface{})
	gh := servers["github"].(map[string]interface{})
	env := gh["env"].(map[string]interface{})
	if v, ok := env["GITHUB_PERSONAL_ACCESS_TOKEN"]; !ok || v != "" {
		t.Errorf("github env = %v", env)
	}
	if _, ok := servers["brave-search"]; ok {
		t.Error("brave-search는 사용 불가이므로 없어야 합니다")
	}

	if report.BasicFile != filepath.Join(out, BasicSettingsFile) {
		t.Errorf("BasicFile = %q", report.BasicFile)
	}
}

func TestInstaller_BasicServers(t *testing.T) {
	inst, _ := newTestInstaller(t)
	basic := inst.BasicServers()
	if len(basic) != 4 {
		t.Fatalf("BasicServers() = %d, want 4", len(basic))
	}

	fs := basic["filesystem"]
	if len(fs.Args) != 4 || fs.Args[2] != inst.home || fs.Args[3] != "/" {
		t.Errorf("filesystem args = %v", fs.Args)
	}
}

func TestInstaller_CancelledContext(t *testing.T) {
	inst, _ := newTestInstaller(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := inst.InstallAndTest(ctx); err == nil {
		t.Error("취소된 컨텍스트에서 에러가 발생해야 합니다")
	}
}
