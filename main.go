// Package main은 MCP 워크플로 매니저(mcpwf) CLI의 진입점입니다.
package main

import (
	"os"

	"github.com/insajin/mcp-workflow/cmd"
)

// 빌드 시 ldflags로 주입되는 버전 정보
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
