package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/insajin/mcp-workflow/internal/branding"
	"github.com/insajin/mcp-workflow/internal/config"
	"github.com/insajin/mcp-workflow/internal/installer"
	"github.com/spf13/cobra"
)

var installHandshake bool

// installCmd는 카탈로그의 모든 서버를 점검하고 에디터 설정 파일을 생성합니다.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "MCP 서버 가용성을 점검하고 설정 파일을 생성합니다",
	Long: `패키지 실행기(기본값: npx)로 카탈로그의 서버를 하나씩 --help 실행하여
사용 가능 여부를 확인합니다.

생성 파일 (installer.output_dir):
  basic-cursor-settings.json  - 기본 서버 4개 설정
  working-servers.json        - 사용 가능한 서버 목록
  cursor-settings.json        - 사용 가능한 서버의 Cursor 설정

--handshake를 지정하면 MCP initialize 핸드셰이크까지 확인합니다.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

// probeCmd는 서버 하나를 점검합니다.
var probeCmd = &cobra.Command{
	Use:   "probe <name>",
	Short: "카탈로그 서버 하나의 가용성을 점검합니다",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		prober := newProber(cfg)
		result := prober.Probe(cmd.Context(), args[0])
		printProbeResult(cmd.OutOrStdout(), result)
		if !result.Available {
			if result.Error != "" {
				return errors.New(result.Error)
			}
			return fmt.Errorf("%s 사용 불가", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(probeCmd)

	for _, c := range []*cobra.Command{installCmd, probeCmd} {
		c.Flags().BoolVar(&installHandshake, "handshake", false, "MCP initialize 핸드셰이크까지 확인합니다")
	}
}

func newProber(cfg *config.Config) *installer.Prober {
	return installer.NewProber(cfg.Installer.Runner, cfg.Installer.ProbeTimeout,
		cfg.Installer.Handshake || installHandshake)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, branding.StartupBanner())

	prober := newProber(cfg)
	runner, err := prober.CheckRunner()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "패키지 실행기: %s\n\n", runner)

	inst, err := installer.New(prober, cfg.Installer.OutputDir)
	if err != nil {
		return err
	}
	report, err := inst.Run(cmd.Context())
	if report != nil {
		printInstallReport(out, report)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n다음 단계:")
	fmt.Fprintln(out, "  1. API 키가 필요한 서버는 <root>/.env에 값을 채우세요")
	fmt.Fprintln(out, "  2. mcpwf init --scaffold 로 워크플로 환경을 만드세요")
	fmt.Fprintln(out, "  3. mcpwf setup-cursor 또는 setup-claude 로 에디터에 등록하세요")
	return nil
}

func printProbeResult(w io.Writer, r installer.ProbeResult) {
	if r.Available {
		fmt.Fprintf(w, "  ✓ %-22s %s (%s)\n", r.Name, r.Reason, r.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "  ✗ %-22s %s\n", r.Name, r.Error)
	}
	if h := r.Handshake; h != nil {
		fmt.Fprintf(w, "      %s %s, protocol %s, 도구 %d개\n",
			h.ServerName, h.ServerVersion, h.ProtocolVersion, h.Tools)
	}
}

func printInstallReport(w io.Writer, report *installer.Report) {
	for _, r := range report.Results {
		printProbeResult(w, r)
	}
	fmt.Fprintf(w, "\n사용 가능: %d/%d\n", report.AvailableCount, report.TotalCount)
	for _, path := range []string{report.BasicFile, report.WorkingFile, report.CursorFile} {
		if path != "" {
			fmt.Fprintf(w, "  생성: %s\n", path)
		}
	}
}
