package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// StateEntry는 상태 파일에 기록되는 실행 중 서버 정보입니다.
type StateEntry struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	Args      []string  `json:"args,omitempty"`
	LogFile   string    `json:"log_file,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Session   string    `json:"session,omitempty"`
}

// stateFile은 state.json의 최상위 구조입니다.
type stateFile struct {
	UpdatedAt time.Time    `json:"updated_at"`
	Servers   []StateEntry `json:"servers"`
}

// StateStore는 다른 CLI 호출 간에 실행 중 서버 PID를 공유하기 위한 파일 저장소입니다.
type StateStore struct {
	path string
	mu   sync.Mutex
}

// NewStateStore는 주어진 경로의 StateStore를 생성합니다.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path는 상태 파일 경로를 반환합니다.
func (s *StateStore) Path() string {
	return s.path
}

// Load는 상태 파일을 읽습니다. 파일이 없으면 빈 목록을 반환합니다.
func (s *StateStore) Load() ([]StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("상태 파일 읽기 실패: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("상태 파일 파싱 실패: %w", err)
	}
	return sf.Servers, nil
}

// Save는 실행 중 서버 목록을 원자적으로 기록합니다 (임시 파일 후 rename).
func (s *StateStore) Save(entries []StateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]StateEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	data, err := json.MarshalIndent(stateFile{UpdatedAt: time.Now(), Servers: sorted}, "", "  ")
	if err != nil {
		return fmt.Errorf("상태 직렬화 실패: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("상태 디렉토리 생성 실패: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("상태 파일 쓰기 실패: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("상태 파일 교체 실패: %w", err)
	}
	return nil
}

// LoadAlive는 상태 파일을 읽어 살아있는 프로세스만 인수하고,
// 죽은 항목이 있었으면 파일을 정리합니다.
func (s *StateStore) LoadAlive() ([]*ProcessInfo, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}

	var alive []*ProcessInfo
	var kept []StateEntry
	for _, entry := range entries {
		proc := adoptProcess(entry)
		if proc == nil {
			log.Debug().Str("name", entry.Name).Int("pid", entry.PID).Msg("[mcp] 종료된 프로세스를 상태에서 제거")
			continue
		}
		alive = append(alive, proc)
		kept = append(kept, entry)
	}

	if len(kept) != len(entries) {
		if err := s.Save(kept); err != nil {
			return alive, err
		}
	}
	return alive, nil
}

// entryFromProcess는 ProcessInfo를 상태 항목으로 변환합니다.
func entryFromProcess(p *ProcessInfo) StateEntry {
	return StateEntry{
		Name:      p.Name,
		PID:       p.PID,
		Command:   p.Command,
		Args:      p.Args,
		LogFile:   p.LogFile,
		StartedAt: p.StartedAt,
		Session:   p.Session,
	}
}
