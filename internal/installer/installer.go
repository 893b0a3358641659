package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/insajin/mcp-workflow/internal/aitools"
	"github.com/rs/zerolog/log"
)

// 생성 파일 이름
const (
	WorkingServersFile = "working-servers.json"
	CursorSettingsFile = "cursor-settings.json"
	BasicSettingsFile  = "basic-cursor-settings.json"
)

// Report는 전체 카탈로그 점검 결과입니다.
type Report struct {
	Results        []ProbeResult `json:"results"`
	AvailableCount int           `json:"available_count"`
	TotalCount     int           `json:"total_count"`
	WorkingFile    string        `json:"working_file,omitempty"`
	CursorFile     string        `json:"cursor_file,omitempty"`
	BasicFile      string        `json:"basic_file,omitempty"`
}

// Available은 사용 가능한 서버 결과만 반환합니다.
func (r *Report) Available() []ProbeResult {
	var out []ProbeResult
	for _, res := range r.Results {
		if res.Available {
			out = append(out, res)
		}
	}
	return out
}

// Unavailable은 사용할 수 없는 서버 결과만 반환합니다.
func (r *Report) Unavailable() []ProbeResult {
	var out []ProbeResult
	for _, res := range r.Results {
		if !res.Available {
			out = append(out, res)
		}
	}
	return out
}

// Installer는 카탈로그 점검과 설정 파일 생성을 수행합니다.
type Installer struct {
	prober    *Prober
	outputDir string
	home      string
}

// New는 Installer를 생성합니다. outputDir에 생성 파일이 기록됩니다.
func New(prober *Prober, outputDir string) (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("홈 디렉토리를 찾을 수 없습니다: %w", err)
	}
	return &Installer{prober: prober, outputDir: outputDir, home: home}, nil
}

// Run은 기본 설정 생성, 전체 점검, Cursor 설정 생성을 차례로 수행합니다.
func (i *Installer) Run(ctx context.Context) (*Report, error) {
	basic, err := i.CreateBasicConfig()
	if err != nil {
		return nil, err
	}

	report, err := i.InstallAndTest(ctx)
	if err != nil {
		return nil, err
	}
	report.BasicFile = basic

	if _, err := i.GenerateCursorConfig(report); err != nil {
		return nil, err
	}
	return report, nil
}

// InstallAndTest는 카탈로그 순서대로 모든 서버를 점검하고
// 사용 가능한 서버를 working-servers.json에 기록합니다.
func (i *Installer) InstallAndTest(ctx context.Context) (*Report, error) {
	servers := Catalog()
	report := &Report{TotalCount: len(servers)}

	for _, s := range servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := i.prober.probeServer(ctx, s)
		if res.Available {
			report.AvailableCount++
		}
		report.Results = append(report.Results, res)
	}

	working := make(map[string]aitools.MCPServerConfig)
	for _, res := range report.Available() {
		working[res.Name] = aitools.MCPServerConfig{
			Command: res.server.Command,
			Args:    res.server.Args,
			Env:     map[string]string{},
		}
	}

	path := filepath.Join(i.outputDir, WorkingServersFile)
	if err := aitools.WriteJSONConfig(path, working); err != nil {
		return nil, err
	}
	report.WorkingFile = path

	log.Info().
		Int("available", report.AvailableCount).
		Int("total", report.TotalCount).
		Str("file", path).
		Msg("[installer] 점검 결과 저장")
	return report, nil
}

// GenerateCursorConfig는 사용 가능한 서버로 cursor-settings.json을 만듭니다.
// github와 brave-search에는 빈 API 키 항목을 추가합니다.
func (i *Installer) GenerateCursorConfig(report *Report) (string, error) {
	servers := make(map[string]aitools.MCPServerConfig)
	for _, res := range report.Available() {
		servers[res.Name] = aitools.MCPServerConfig{
			Command: res.server.Command,
			Args:    res.server.Args,
			Env:     res.server.env(),
		}
	}

	path := filepath.Join(i.outputDir, CursorSettingsFile)
	if err := aitools.WriteJSONConfig(path, map[string]any{aitools.CursorServersKey: servers}); err != nil {
		return "", err
	}
	report.CursorFile = path

	log.Info().Str("file", path).Int("servers", len(servers)).Msg("[installer] Cursor 설정 생성")
	return path, nil
}

// BasicServers는 점검 없이 바로 쓸 수 있는 최소 서버 구성입니다.
// filesystem에는 홈 디렉토리와 파일 시스템 루트를 허용 경로로 넘깁니다.
func (i *Installer) BasicServers() map[string]aitools.MCPServerConfig {
	basic := map[string]aitools.MCPServerConfig{}
	for _, name := range []string{"filesystem", "memory", "fetch", "sequential-thinking"} {
		s, _ := Lookup(name)
		args := append([]string{}, s.Args...)
		if name == "filesystem" {
			args = append(args, i.home, filesystemRoot(i.home))
		}
		basic[name] = aitools.MCPServerConfig{Command: s.Command, Args: args, Env: map[string]string{}}
	}
	return basic
}

// CreateBasicConfig는 basic-cursor-settings.json을 기록합니다.
func (i *Installer) CreateBasicConfig() (string, error) {
	path := filepath.Join(i.outputDir, BasicSettingsFile)
	if err := aitools.WriteJSONConfig(path, map[string]any{aitools.CursorServersKey: i.BasicServers()}); err != nil {
		return "", err
	}
	log.Info().Str("file", path).Msg("[installer] 기본 Cursor 설정 생성")
	return path, nil
}

// filesystemRoot는 경로가 속한 볼륨의 루트입니다 (Unix "/", Windows "C:\").
func filesystemRoot(path string) string {
	return filepath.VolumeName(path) + string(filepath.Separator)
}
