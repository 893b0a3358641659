package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcpwf"

// NewRegistry exposes the supervision counters as Prometheus metrics.
// running reports the current number of running servers and may be nil.
func NewRegistry(m *Metrics, running func() int) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	counter := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}

	reg.MustRegister(
		counter("server_starts_total", "MCP servers that passed the startup check.", m.ServerStarts.Load),
		counter("server_start_failures_total", "MCP server starts that failed or exited during startup.", m.StartFailures.Load),
		counter("server_stops_total", "MCP servers stopped on request.", m.ServerStops.Load),
		counter("server_forced_kills_total", "MCP servers killed after the stop grace period.", m.ForcedKills.Load),
		counter("server_unexpected_exits_total", "MCP servers that exited without a stop request.", m.UnexpectedExits.Load),
		counter("batch_runs_total", "Workflow, autostart and stop-all batches executed.", m.BatchRuns.Load),
		counter("batch_failures_total", "Batches with at least one failed server.", m.BatchFailures.Load),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_startup_seconds_avg",
			Help:      "Running average of the startup check duration.",
		}, func() float64 { return m.AvgStartup().Seconds() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the supervisor started.",
		}, func() float64 { return m.Uptime().Seconds() }),
	)

	if running != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "servers_running",
			Help:      "MCP servers currently in the running table.",
		}, func() float64 { return float64(running()) }))
	}
	return reg
}

// Handler returns an HTTP handler serving the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
