package installer

import (
	"strings"
	"testing"
)

func TestCatalog_Order(t *testing.T) {
	want := []string{
		"filesystem", "memory", "github", "brave-search", "fetch",
		"sqlite", "puppeteer", "sequential-thinking", "everything",
	}
	got := Catalog()
	if len(got) != len(want) {
		t.Fatalf("len(Catalog()) = %d, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Name != want[i] {
			t.Errorf("Catalog()[%d] = %q, want %q", i, s.Name, want[i])
		}
		if s.Command != "npx" || len(s.Args) != 2 || s.Args[1] != packagePrefix+s.Name {
			t.Errorf("%s: command/args = %s %v", s.Name, s.Command, s.Args)
		}
		if strings.Join(s.TestArgs, " ") != "--help" {
			t.Errorf("%s: TestArgs = %v", s.Name, s.TestArgs)
		}
	}
}

func TestCatalog_IsCopy(t *testing.T) {
	c := Catalog()
	c[0].Name = "changed"
	if s, _ := Lookup("filesystem"); s.Name != "filesystem" {
		t.Error("Catalog() 수정이 원본에 반영되면 안 됩니다")
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("github"); !ok {
		t.Error("github를 찾을 수 없습니다")
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("없는 서버가 조회되었습니다")
	}
}

// TestScaffoldServers는 기본 설정 변환 규칙을 검증합니다.
func TestScaffoldServers(t *testing.T) {
	servers := ScaffoldServers()
	byName := map[string]int{}
	for i, s := range servers {
		byName[s.Name] = i
	}

	fs := servers[byName["filesystem"]]
	if !fs.Enabled || !fs.Autostart || fs.Priority != 100 {
		t.Errorf("filesystem = %+v", fs)
	}
	if got := strings.Join(fs.Args[2:], " "); got != "${WORKFLOW_ROOT} ${HOME}" {
		t.Errorf("filesystem extra args = %q", got)
	}

	if ev := servers[byName["everything"]]; ev.Enabled {
		t.Error("everything은 기본 비활성화여야 합니다")
	}
	if gh := servers[byName["github"]]; gh.Autostart {
		t.Error("github는 자동 시작하면 안 됩니다")
	} else if _, ok := gh.Env["GITHUB_PERSONAL_ACCESS_TOKEN"]; !ok {
		t.Error("github에 토큰 자리표시가 없습니다")
	}

	// 카탈로그 원본 인자가 변경되지 않아야 함
	if s, _ := Lookup("filesystem"); len(s.Args) != 2 {
		t.Errorf("카탈로그 원본 args가 변경됨: %v", s.Args)
	}
}

// TestScaffoldWorkflows는 기본 워크플로가 카탈로그 서버만 참조하는지 확인합니다.
func TestScaffoldWorkflows(t *testing.T) {
	for id, wf := range ScaffoldWorkflows() {
		if len(wf.Servers) == 0 {
			t.Errorf("%s: 서버가 없습니다", id)
		}
		for _, name := range wf.Servers {
			if _, ok := Lookup(name); !ok {
				t.Errorf("%s: 알 수 없는 서버 %q", id, name)
			}
		}
	}
}
