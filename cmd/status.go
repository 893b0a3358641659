package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/spf13/cobra"
)

// statusCmd는 서버와 워크플로 상태를 출력하는 명령어입니다.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "서버와 워크플로 상태를 확인합니다",
	Long: `마스터 설정의 모든 서버와 워크플로 상태를 표시합니다.

실행 상태는 <root>/run/state.json을 기준으로 하며,
--detach로 띄운 서버도 다른 호출에서 확인할 수 있습니다.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "JSON 형식으로 출력")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, ws, err := openWorkspace()
	if err != nil {
		return err
	}
	report := newManager(cfg, ws, true).Status()

	if statusJSON {
		return printStatusJSON(cmd.OutOrStdout(), report)
	}
	printStatusReport(cmd.OutOrStdout(), report)
	return nil
}

// printStatusJSON은 상태 보고서를 JSON으로 출력합니다.
func printStatusJSON(w io.Writer, report mcp.StatusReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON 변환 실패: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printStatusReport는 사람이 읽기 쉬운 형식으로 상태를 출력합니다.
func printStatusReport(w io.Writer, report mcp.StatusReport) {
	fmt.Fprintln(w, "=== MCP WORKFLOW STATUS ===")
	fmt.Fprintf(w, "Timestamp: %s\n", report.Timestamp)
	fmt.Fprintf(w, "Root:      %s\n", report.WorkflowRoot)
	fmt.Fprintf(w, "Running:   %d/%d\n", report.RunningServerCount, report.TotalServerCount)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SERVERS:")
	for _, name := range report.ServerNames() {
		st := report.Servers[name]
		if st.Running {
			pid := 0
			if st.PID != nil {
				pid = *st.PID
			}
			fmt.Fprintf(w, "  %-24s ✓ RUNNING (PID: %d", name, pid)
			if st.Uptime != "" {
				fmt.Fprintf(w, ", uptime: %s", st.Uptime)
			}
			fmt.Fprintln(w, ")")
			continue
		}
		var flags []string
		if !st.Enabled {
			flags = append(flags, "disabled")
		}
		if st.Autostart {
			flags = append(flags, "autostart")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(w, "  %-24s ✗ STOPPED%s\n", name, suffix)
	}

	if len(report.Workflows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WORKFLOWS:")
		for _, id := range report.WorkflowIDs() {
			wf := report.Workflows[id]
			mark := "⚠ INCOMPLETE"
			if wf.Ready {
				mark = "✓ READY"
			}
			fmt.Fprintf(w, "  %-24s %s (%d/%d)\n", id, mark, wf.RunningServers, wf.TotalServers)
			if wf.Name != "" {
				fmt.Fprintf(w, "    %s\n", wf.Name)
			}
		}
	}
}
