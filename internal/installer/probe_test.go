//go:build !windows

package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeRunner는 패키지 이름(두 번째 인자)에 따라 다르게 동작하는 npx 대역 스크립트를 만듭니다.
func fakeRunner(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
case "$2" in
  *server-memory|*server-filesystem|*server-fetch|*server-sequential-thinking) exit 0 ;;
  *server-github) echo "usage: server-github" >&2; exit 1 ;;
  *server-puppeteer) exec sleep 5 ;;
  *) echo "npm ERR! 404 Not Found" >&2; exit 127 ;;
esac
`
	path := filepath.Join(t.TempDir(), "fake-npx")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestProber_Probe(t *testing.T) {
	prober := NewProber(fakeRunner(t), 500*time.Millisecond, false)

	tests := []struct {
		name       string
		wantAvail  bool
		wantReason string
	}{
		{name: "memory", wantAvail: true, wantReason: ReasonExitZero},
		{name: "github", wantAvail: true, wantReason: ReasonHelpExit},
		{name: "puppeteer", wantAvail: true, wantReason: ReasonTimeout},
		{name: "sqlite", wantAvail: false},
		{name: "unknown-server", wantAvail: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := prober.Probe(context.Background(), tt.name)
			if res.Available != tt.wantAvail {
				t.Fatalf("Available = %v, want %v (error=%q)", res.Available, tt.wantAvail, res.Error)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if !tt.wantAvail && res.Error == "" {
				t.Error("실패 시 에러 메시지가 있어야 합니다")
			}
		})
	}
}

func TestProber_CancelledContextIsNotTimeout(t *testing.T) {
	prober := NewProber(fakeRunner(t), 5*time.Second, false)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res := prober.Probe(ctx, "puppeteer")
	if res.Available {
		t.Error("상위 컨텍스트 취소는 사용 가능으로 판정하면 안 됩니다")
	}
}

func TestProber_Handshake_Fails(t *testing.T) {
	// 즉시 종료하는 서버는 --help 점검은 통과해도 핸드셰이크는 실패해야 함
	prober := NewProber(fakeRunner(t), time.Second, true)
	res := prober.Probe(context.Background(), "memory")
	if res.Available {
		t.Error("initialize 응답이 없으면 사용 불가여야 합니다")
	}
	if res.Handshake != nil {
		t.Errorf("Handshake = %+v, want nil", res.Handshake)
	}
}

func TestProber_CheckRunner(t *testing.T) {
	if _, err := NewProber(fakeRunner(t), 0, false).CheckRunner(); err != nil {
		t.Errorf("절대 경로 실행기는 찾을 수 있어야 합니다: %v", err)
	}
	if _, err := NewProber("definitely-not-a-runner-xyz", 0, false).CheckRunner(); err == nil {
		t.Error("없는 실행기는 에러여야 합니다")
	}
}

func TestNewProber_DefaultTimeout(t *testing.T) {
	if p := NewProber("", 0, false); p.Timeout != DefaultProbeTimeout {
		t.Errorf("Timeout = %v, want %v", p.Timeout, DefaultProbeTimeout)
	}
}
