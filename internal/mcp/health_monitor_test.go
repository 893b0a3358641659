package mcp

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func newEmptyManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(newTestWorkspace(t, nil, nil), testOptionsPortable())
}

func testOptionsPortable() Options {
	return Options{StartupWait: 100 * time.Millisecond, StopGrace: time.Second}
}

func TestNewHealthMonitor_DefaultInterval(t *testing.T) {
	m := newEmptyManager(t)
	hm := NewHealthMonitor(m, 0)

	if hm.interval != 10*time.Second {
		t.Errorf("interval = %v, want 10s", hm.interval)
	}
	if m.getObserver() != hm {
		t.Error("HealthMonitor가 Manager의 Observer로 등록되지 않았습니다")
	}
}

func TestHealthMonitor_RecordsEvents(t *testing.T) {
	hm := NewHealthMonitor(newEmptyManager(t), time.Minute)

	hm.ServerStarted("memory", 100)
	hm.ServerExited("memory", 1, "")
	hm.ServerStarted("memory", 101)
	hm.ServerStopped("memory")
	hm.ServerStarted("fetch", 200)
	hm.ServerStopped("fetch")

	report := hm.CollectHealth()
	if len(report.Servers) != 2 {
		t.Fatalf("Servers = %+v, want 2", report.Servers)
	}

	// 이름순 정렬
	fetch, memory := report.Servers[0], report.Servers[1]
	if fetch.Name != "fetch" || memory.Name != "memory" {
		t.Fatalf("order = %s, %s", fetch.Name, memory.Name)
	}

	if fetch.Status != "stopped" || fetch.LastError != nil {
		t.Errorf("fetch = %+v, want stopped without error", fetch)
	}
	if memory.Status != "error" {
		t.Errorf("memory.Status = %q, want error after non-zero exit", memory.Status)
	}
	if memory.Starts != 2 || memory.Restarts != 1 || memory.Exits != 1 {
		t.Errorf("memory = %+v", memory)
	}
	if memory.LastError == nil || *memory.LastError != "exit code 1" {
		t.Errorf("memory.LastError = %v", memory.LastError)
	}
}

func TestHealthMonitor_SweepPrunesDead(t *testing.T) {
	m := newEmptyManager(t)
	hm := NewHealthMonitor(m, time.Minute)

	// 이미 Wait가 끝난 프로세스를 인수된 항목처럼 등록
	dead, err := os.StartProcess(selfExecutable(t), []string{"-test.run=^$"}, &os.ProcAttr{})
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	if _, err := dead.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	m.mu.Lock()
	m.processes["ghost"] = &ProcessInfo{Name: "ghost", PID: dead.Pid, process: dead}
	m.mu.Unlock()

	report := hm.Sweep()
	if m.IsRunning("ghost") || len(m.RunningNames()) != 0 {
		t.Error("죽은 항목이 정리되지 않았습니다")
	}
	if len(report.Servers) != 1 || report.Servers[0].Exits != 1 || report.Servers[0].Status != "stopped" {
		t.Errorf("report = %+v", report.Servers)
	}
}

func TestHealthMonitor_StartStop(t *testing.T) {
	hm := NewHealthMonitor(newEmptyManager(t), 20*time.Millisecond)

	var mu sync.Mutex
	calls := 0
	hm.Start(context.Background(), func(report HealthReport) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	time.Sleep(120 * time.Millisecond)
	hm.Stop()

	mu.Lock()
	got := calls
	mu.Unlock()
	if got == 0 {
		t.Error("reportFn이 호출되지 않았습니다")
	}
}

func selfExecutable(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("os.Executable: %v", err)
	}
	return exe
}
