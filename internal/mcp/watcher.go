package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Reconciler는 새 마스터 설정을 적용하는 대상입니다. *Manager가 구현합니다.
type Reconciler interface {
	Reconcile(ctx context.Context, cfg *MasterConfig) (*BatchResult, error)
}

// ConfigWatcher는 마스터 설정 파일 변경을 감시하여 Reconcile을 호출합니다.
// 에디터가 임시 파일 후 rename으로 저장하는 경우를 위해 상위 디렉토리를 감시합니다.
type ConfigWatcher struct {
	fsWatcher *fsnotify.Watcher
	target    Reconciler
	path      string
	debounce  time.Duration

	timer *time.Timer
	mu    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConfigWatcher는 path의 변경을 감시하는 ConfigWatcher를 생성하고 시작합니다.
// debounce가 0이면 200ms를 사용합니다.
func NewConfigWatcher(ctx context.Context, path string, target Reconciler, debounce time.Duration) (*ConfigWatcher, error) {
	if target == nil {
		return nil, fmt.Errorf("reconcile 대상이 필요합니다")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("설정 경로 확인 실패 %q: %w", path, err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("파일 감시자 생성 실패: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("디렉토리 감시 실패 %q: %w", filepath.Dir(absPath), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &ConfigWatcher{
		fsWatcher: fsWatcher,
		target:    target,
		path:      absPath,
		debounce:  debounce,
		ctx:       watchCtx,
		cancel:    cancel,
	}

	w.wg.Add(1)
	go w.processEvents()

	log.Info().Str("path", absPath).Msg("[watcher] 마스터 설정 감시 시작")
	return w, nil
}

// processEvents는 파일 이벤트를 처리합니다.
func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("[watcher] 파일 감시 오류")

		case <-w.ctx.Done():
			return
		}
	}
}

// schedule은 디바운스 후 reload를 예약합니다. 연속된 이벤트는 하나로 합쳐집니다.
func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload는 마스터 설정을 다시 읽어 적용합니다.
// 파싱에 실패하면 기존 설정을 유지합니다.
func (w *ConfigWatcher) reload() {
	if w.ctx.Err() != nil {
		return
	}

	cfg, err := LoadMasterConfig(w.path)
	if err != nil {
		log.Error().Err(err).Msg("[watcher] 마스터 설정 재로드 실패, 기존 설정 유지")
		return
	}

	log.Info().Str("path", w.path).Msg("[watcher] 마스터 설정 변경 감지")
	result, err := w.target.Reconcile(w.ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("[watcher] 설정 적용 중 일부 실패")
		return
	}
	log.Info().Int("changes", len(result.Items)).Msg("[watcher] 설정 적용 완료")
}

// Close는 감시를 중지합니다.
func (w *ConfigWatcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsWatcher.Close()
}
