package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insajin/mcp-workflow/internal/config"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/insajin/mcp-workflow/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// watchDebounce는 설정 파일 저장 이벤트를 묶는 간격입니다.
const watchDebounce = 500 * time.Millisecond

var (
	detachFlag bool
	watchFlag  bool
)

var startServerCmd = &cobra.Command{
	Use:   "start-server <name>",
	Short: "MCP 서버 하나를 시작합니다",
	Long: `마스터 설정에 등록된 MCP 서버를 시작합니다.

기본적으로 포그라운드에서 서버를 감독하며 Ctrl+C 시 서버를 중지합니다.
--detach를 지정하면 서버를 띄운 뒤 바로 종료하고, 이후 stop-server로 중지합니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, detachFlag)
		if err := manager.StartServer(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s 시작됨\n", args[0])
		return supervise(cmd, cfg, manager)
	},
}

var stopServerCmd = &cobra.Command{
	Use:   "stop-server <name>",
	Short: "실행 중인 MCP 서버를 중지합니다",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, true)
		if err := manager.StopServer(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s 중지됨\n", args[0])
		return nil
	},
}

var startWorkflowCmd = &cobra.Command{
	Use:   "start-workflow <id>",
	Short: "워크플로의 서버를 순서대로 시작합니다",
	Long: `워크플로에 나열된 서버를 순서대로 시작합니다.
하나라도 실패하면 나머지를 계속 시도한 뒤 실패로 종료합니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, detachFlag)
		result, err := manager.StartWorkflow(cmd.Context(), args[0])
		if err := reportBatch(cmd.OutOrStdout(), result, err); err != nil {
			if !detachFlag {
				stopOwned(manager)
			}
			return err
		}
		return supervise(cmd, cfg, manager)
	},
}

var stopWorkflowCmd = &cobra.Command{
	Use:   "stop-workflow <id>",
	Short: "워크플로의 서버를 순서대로 중지합니다",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, true)
		result, err := manager.StopWorkflow(cmd.Context(), args[0])
		return reportBatch(cmd.OutOrStdout(), result, err)
	},
}

var startAutostartCmd = &cobra.Command{
	Use:   "start-autostart",
	Short: "autostart 서버를 우선순위 순으로 시작합니다",
	Long: `enabled와 autostart가 모두 true인 서버를 priority 내림차순으로 시작합니다.

--watch(또는 supervisor.watch_config)를 지정하면 마스터 설정 변경을 감시하여
비활성화된 서버는 중지하고 새로 활성화된 autostart 서버는 시작합니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, detachFlag)
		result, err := manager.StartAutostart(cmd.Context())
		if err := reportBatch(cmd.OutOrStdout(), result, err); err != nil {
			if !detachFlag {
				stopOwned(manager)
			}
			return err
		}
		if watchFlag {
			cfg.Supervisor.WatchConfig = true
		}
		return supervise(cmd, cfg, manager)
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "실행 중인 모든 MCP 서버를 중지합니다",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		manager := newManager(cfg, ws, true)
		result, err := manager.StopAll(cmd.Context())
		return reportBatch(cmd.OutOrStdout(), result, err)
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	rootCmd.AddCommand(stopServerCmd)
	rootCmd.AddCommand(startWorkflowCmd)
	rootCmd.AddCommand(stopWorkflowCmd)
	rootCmd.AddCommand(startAutostartCmd)
	rootCmd.AddCommand(stopAllCmd)

	for _, c := range []*cobra.Command{startServerCmd, startWorkflowCmd, startAutostartCmd} {
		c.Flags().BoolVarP(&detachFlag, "detach", "d", false, "서버를 백그라운드에 두고 바로 종료합니다")
	}
	startAutostartCmd.Flags().BoolVar(&watchFlag, "watch", false, "마스터 설정 변경을 감시합니다")
}

// reportBatch는 배치 결과를 출력하고 실패 시 에러를 반환합니다.
func reportBatch(w io.Writer, result *mcp.BatchResult, err error) error {
	if result == nil {
		return err
	}
	if len(result.Items) == 0 {
		fmt.Fprintf(w, "%s: 대상 서버 없음\n", result.Operation)
	}
	for _, item := range result.Items {
		if item.Success {
			fmt.Fprintf(w, "  ✓ %s\n", item.Server)
		} else {
			fmt.Fprintf(w, "  ✗ %s: %s\n", item.Server, item.Error)
		}
	}
	if err != nil {
		return err
	}
	return result.Err()
}

// supervise는 포그라운드 모드에서 서버가 모두 종료되거나 시그널을 받을 때까지 대기합니다.
// 1. SIGINT/SIGTERM 컨텍스트 생성
// 2. HealthMonitor 시작
// 3. 설정 감시 (옵션)
// 4. 종료 조건까지 대기 후 남은 서버 정리
func supervise(cmd *cobra.Command, cfg *config.Config, manager *mcp.Manager) error {
	if detachFlag {
		fmt.Fprintln(cmd.OutOrStdout(), "백그라운드 실행 중. 'mcpwf status'로 확인하고 'mcpwf stop-all'로 중지하세요.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := mcp.NewHealthMonitor(manager, cfg.Supervisor.HealthInterval)
	health.Start(ctx, func(report mcp.HealthReport) {
		for _, sh := range report.Servers {
			log.Debug().
				Str("server", sh.Name).
				Str("status", sh.Status).
				Int64("uptime_seconds", sh.UptimeSeconds).
				Int("exits", sh.Exits).
				Msg("[mcp-health] 상태")
		}
	})
	defer health.Stop()

	if cfg.Supervisor.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.Supervisor.MetricsAddr, manager)
		defer shutdown()
	}

	watching := false
	if cfg.Supervisor.WatchConfig {
		watcher, err := mcp.NewConfigWatcher(ctx, manager.Workspace().ConfigPath, manager, watchDebounce)
		if err != nil {
			log.Warn().Err(err).Msg("[watcher] 설정 감시를 시작할 수 없습니다")
		} else {
			defer watcher.Close()
			watching = true
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "포그라운드에서 감독 중입니다. Ctrl+C로 모든 서버를 중지합니다.")
	err := awaitShutdown(ctx, manager, watching)
	stopOwned(manager)
	if err != nil && ctx.Err() != nil {
		// 시그널로 인한 정상 종료
		return nil
	}
	return err
}

// awaitShutdown은 포그라운드 감독의 종료 조건까지 대기합니다.
// 설정 감시 중에는 실행 중인 서버가 없어도 재조정으로 새 서버가 시작될 수 있으므로
// 시그널을 받을 때까지 기다립니다. 그 외에는 띄운 서버가 모두 종료되면 반환합니다.
func awaitShutdown(ctx context.Context, manager *mcp.Manager, watching bool) error {
	if watching {
		<-ctx.Done()
		return ctx.Err()
	}
	return manager.Wait(ctx)
}

// serveMetrics는 감독 카운터를 /metrics로 노출하고 종료 함수를 반환합니다.
func serveMetrics(addr string, manager *mcp.Manager) func() {
	reg := metrics.NewRegistry(manager.Metrics(), func() int { return len(manager.RunningNames()) })
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("[mcp-health] 메트릭 엔드포인트 시작")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("[mcp-health] 메트릭 엔드포인트 실패")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// stopOwned는 시그널 컨텍스트와 무관하게 이 호출이 띄운 서버를 중지합니다.
func stopOwned(manager *mcp.Manager) {
	result, err := manager.StopOwned(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("[mcp] 서버 정리 실패")
		return
	}
	if result != nil && !result.OK() {
		log.Error().Strs("failed", result.Failed()).Msg("[mcp] 일부 서버 중지 실패")
	}
}
