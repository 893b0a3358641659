// Package metrics provides supervision counters for the MCP workflow manager.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks process supervision counters.
// All fields are thread-safe for concurrent access.
type Metrics struct {
	// Server lifecycle
	ServerStarts    atomic.Int64
	StartFailures   atomic.Int64
	ServerStops     atomic.Int64
	ForcedKills     atomic.Int64
	UnexpectedExits atomic.Int64

	// Batch operations (workflow, autostart)
	BatchRuns     atomic.Int64
	BatchFailures atomic.Int64

	// Timing
	startTime      time.Time
	lastStart      atomic.Value // time.Time
	avgStartupNs   atomic.Int64
	startupSamples atomic.Int64

	mu sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	Uptime          string    `json:"uptime"`
	ServerStarts    int64     `json:"server_starts"`
	StartFailures   int64     `json:"start_failures"`
	ServerStops     int64     `json:"server_stops"`
	ForcedKills     int64     `json:"forced_kills"`
	UnexpectedExits int64     `json:"unexpected_exits"`
	BatchRuns       int64     `json:"batch_runs"`
	BatchFailures   int64     `json:"batch_failures"`
	AvgStartupMs    float64   `json:"avg_startup_ms"`
	LastStart       string    `json:"last_start,omitempty"`
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordStartup records how long a server took to pass the startup check.
func (m *Metrics) RecordStartup(d time.Duration) {
	ns := d.Nanoseconds()
	count := m.startupSamples.Add(1)

	// Running average: newAvg = oldAvg + (newValue - oldAvg) / count
	for {
		oldAvg := m.avgStartupNs.Load()
		newAvg := oldAvg + (ns-oldAvg)/count
		if m.avgStartupNs.CompareAndSwap(oldAvg, newAvg) {
			break
		}
		count = m.startupSamples.Load()
		if count == 0 {
			count = 1
		}
	}
	m.lastStart.Store(time.Now())
}

// Uptime returns the duration since the metrics instance was created.
func (m *Metrics) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// AvgStartup returns the average recorded startup duration.
func (m *Metrics) AvgStartup() time.Duration {
	return time.Duration(m.avgStartupNs.Load())
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Timestamp:       time.Now(),
		Uptime:          m.Uptime().Round(time.Millisecond).String(),
		ServerStarts:    m.ServerStarts.Load(),
		StartFailures:   m.StartFailures.Load(),
		ServerStops:     m.ServerStops.Load(),
		ForcedKills:     m.ForcedKills.Load(),
		UnexpectedExits: m.UnexpectedExits.Load(),
		BatchRuns:       m.BatchRuns.Load(),
		BatchFailures:   m.BatchFailures.Load(),
		AvgStartupMs:    float64(m.avgStartupNs.Load()) / float64(time.Millisecond),
	}

	if v := m.lastStart.Load(); v != nil {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			snap.LastStart = t.Format(time.RFC3339)
		}
	}

	return snap
}
