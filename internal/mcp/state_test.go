package mcp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateStore_LoadMissing(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "run", "state.json"))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Load() = %v, want empty", entries)
	}
}

func TestStateStore_SaveLoad(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "run", "state.json"))
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := s.Save([]StateEntry{
		{Name: "memory", PID: 200, Command: "npx", StartedAt: started},
		{Name: "fetch", PID: 100, Command: "npx", Args: []string{"-y", "x"}, LogFile: "/l/fetch.log", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Load() len = %d, want 2", len(entries))
	}
	if entries[0].Name != "fetch" || entries[1].Name != "memory" {
		t.Errorf("항목이 이름순이 아닙니다: %v", entries)
	}
	if !entries[0].StartedAt.Equal(started) || entries[0].LogFile != "/l/fetch.log" {
		t.Errorf("fetch = %+v", entries[0])
	}

	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("임시 파일이 남아있습니다")
	}
}

func TestStateStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewStateStore(path).Load(); err == nil {
		t.Error("손상된 상태 파일에서 에러가 발생해야 합니다")
	}
}
