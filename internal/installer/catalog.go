// Package installer는 알려진 MCP 서버 패키지의 가용성 점검과
// 점검 결과 기반 설정 파일 생성을 담당합니다.
package installer

import (
	"github.com/insajin/mcp-workflow/internal/mcp"
)

const packagePrefix = "@modelcontextprotocol/server-"

// Server는 카탈로그의 MCP 서버 패키지입니다.
type Server struct {
	Name        string
	Description string
	Command     string
	Args        []string
	// TestArgs는 가용성 점검 시 Args 뒤에 붙는 인자입니다.
	TestArgs []string
	// Secrets는 에디터 설정에 빈 값으로 기록할 환경 변수 키입니다.
	Secrets []string
}

func npxServer(name, description string, secrets ...string) Server {
	return Server{
		Name:        name,
		Description: description,
		Command:     "npx",
		Args:        []string{"-y", packagePrefix + name},
		TestArgs:    []string{"--help"},
		Secrets:     secrets,
	}
}

// catalog는 점검 순서대로 정렬된 서버 목록입니다.
var catalog = []Server{
	npxServer("filesystem", "Enhanced filesystem access"),
	npxServer("memory", "Persistent memory storage"),
	npxServer("github", "GitHub integration", "GITHUB_PERSONAL_ACCESS_TOKEN"),
	npxServer("brave-search", "Web search with Brave", "BRAVE_API_KEY"),
	npxServer("fetch", "HTTP request client"),
	npxServer("sqlite", "SQLite database integration"),
	npxServer("puppeteer", "Browser automation"),
	npxServer("sequential-thinking", "Advanced problem solving"),
	npxServer("everything", "Reference server exercising every MCP feature"),
}

// Catalog는 카탈로그 복사본을 반환합니다.
func Catalog() []Server {
	out := make([]Server, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup은 이름으로 카탈로그 항목을 찾습니다.
func Lookup(name string) (Server, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Server{}, false
}

// env는 비밀 키를 빈 값으로 채운 환경 변수 맵입니다.
func (s Server) env() map[string]string {
	env := make(map[string]string, len(s.Secrets))
	for _, k := range s.Secrets {
		env[k] = ""
	}
	return env
}

// 기본 설정 생성 시 자동 시작할 서버와 우선순위
var scaffoldDefaults = map[string]struct {
	autostart bool
	priority  int
}{
	"filesystem":          {autostart: true, priority: 100},
	"memory":              {autostart: true, priority: 90},
	"sequential-thinking": {autostart: true, priority: 80},
	"fetch":               {priority: 70},
	"github":              {priority: 60},
	"brave-search":        {priority: 50},
	"sqlite":              {priority: 40},
	"puppeteer":           {priority: 30},
}

// ScaffoldServers는 카탈로그를 기본 master-config.json 항목으로 변환합니다.
// filesystem은 워크플로 루트와 홈 디렉토리 접근 인자를 추가하고, everything은 비활성화합니다.
func ScaffoldServers() []mcp.ScaffoldServer {
	servers := make([]mcp.ScaffoldServer, 0, len(catalog))
	for _, s := range catalog {
		args := append([]string{}, s.Args...)
		switch s.Name {
		case "filesystem":
			args = append(args, "${WORKFLOW_ROOT}", "${HOME}")
		case "sqlite":
			args = append(args, "--db-path", "${WORKFLOW_ROOT}/resources/databases/workflow.db")
		}

		def, known := scaffoldDefaults[s.Name]
		servers = append(servers, mcp.ScaffoldServer{
			Name:        s.Name,
			Description: s.Description,
			Command:     s.Command,
			Args:        args,
			Env:         s.env(),
			Enabled:     known,
			Autostart:   def.autostart,
			Priority:    def.priority,
		})
	}
	return servers
}

// ScaffoldWorkflows는 기본 워크플로 묶음입니다.
func ScaffoldWorkflows() map[string]mcp.WorkflowEntry {
	return map[string]mcp.WorkflowEntry{
		"development": {
			Name:        "Development",
			Description: "코드 작업용 파일 시스템, GitHub, 메모리",
			Servers:     []string{"filesystem", "github", "memory"},
		},
		"research": {
			Name:        "Research",
			Description: "웹 검색과 단계적 추론",
			Servers:     []string{"brave-search", "fetch", "memory", "sequential-thinking"},
		},
		"automation": {
			Name:        "Automation",
			Description: "브라우저 자동화와 데이터 저장",
			Servers:     []string{"puppeteer", "fetch", "sqlite", "filesystem"},
		},
	}
}
