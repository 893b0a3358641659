// Package backup은 워크플로 설정과 리소스의 스냅샷 백업을 만듭니다.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/insajin/mcp-workflow/internal/mcp"
	"github.com/rs/zerolog/log"
)

// Prefix는 백업 이름 접두사입니다. 보존 정책은 이 접두사를 가진 항목만 대상으로 합니다.
const Prefix = "mcp-workflow-backup-"

// ErrBackupDisabled는 백업 설정이 없거나 비활성화되었을 때 반환됩니다.
var ErrBackupDisabled = errors.New("백업이 설정에서 비활성화됨")

// source는 백업에 포함할 디렉토리입니다.
type source struct {
	rel      string // 워크플로 루트 기준 경로
	dest     string // 백업 내 이름
	required bool
}

var sources = []source{
	{rel: "configs", dest: "configs", required: true},
	{rel: "templates", dest: "templates", required: true},
	{rel: filepath.Join("resources", "databases"), dest: "databases"},
	{rel: filepath.Join("resources", "memory-store"), dest: "memory-store"},
}

// Result는 백업 결과입니다.
type Result struct {
	// Path는 백업 디렉토리 또는 압축 파일 경로입니다.
	Path    string   `json:"path"`
	Files   int      `json:"files"`
	Skipped int      `json:"skipped"`
	Deleted []string `json:"deleted,omitempty"`
}

// Create는 워크스페이스의 현재 설정으로 백업을 만듭니다.
func Create(ws *mcp.Workspace) (*Result, error) {
	return create(ws, time.Now())
}

// Name은 시각으로 백업 이름을 만듭니다 (ISO 8601에서 :와 .을 -로 치환).
func Name(now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	return Prefix + strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}

// Dir은 backup.location을 치환한 백업 디렉토리입니다. 비어 있으면 <root>/backups입니다.
func Dir(ws *mcp.Workspace) string {
	if cfg := ws.Config().Backup; cfg != nil {
		if dir := ws.Expand(cfg.Location); dir != "" {
			return dir
		}
	}
	return filepath.Join(ws.Root, "backups")
}

func create(ws *mcp.Workspace, now time.Time) (*Result, error) {
	cfg := ws.Config().Backup
	if cfg == nil || !cfg.Enabled {
		return nil, ErrBackupDisabled
	}

	backupDir := Dir(ws)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("백업 디렉토리 생성 실패 %q: %w", backupDir, err)
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("잘못된 exclude 패턴: %q", pattern)
		}
	}

	name := Name(now)
	backupPath := filepath.Join(backupDir, name)
	if err := os.Mkdir(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("백업 디렉토리 생성 실패 %q: %w", backupPath, err)
	}

	log.Info().Str("path", backupPath).Msg("[backup] 백업 생성 시작")

	result := &Result{Path: backupPath}
	c := &copier{exclude: cfg.Exclude}
	for _, src := range sources {
		from := filepath.Join(ws.Root, src.rel)
		if _, err := os.Stat(from); err != nil {
			if os.IsNotExist(err) && !src.required {
				continue
			}
			_ = os.RemoveAll(backupPath)
			return nil, fmt.Errorf("백업 원본 확인 실패 %q: %w", from, err)
		}
		if err := c.copyTree(from, filepath.Join(backupPath, src.dest), src.dest); err != nil {
			_ = os.RemoveAll(backupPath)
			return nil, err
		}
	}
	result.Files = c.files
	result.Skipped = c.skipped

	if cfg.Compression {
		archive := backupPath + ".tar.gz"
		if err := writeTarGz(backupPath, archive); err != nil {
			_ = os.Remove(archive)
			return nil, fmt.Errorf("백업 압축 실패: %w", err)
		}
		if err := os.RemoveAll(backupPath); err != nil {
			log.Warn().Err(err).Str("path", backupPath).Msg("[backup] 압축 후 디렉토리 삭제 실패")
		}
		result.Path = archive
	}

	if cfg.Retention > 0 {
		result.Deleted = prune(backupDir, cfg.Retention)
	}

	log.Info().
		Str("path", result.Path).
		Int("files", result.Files).
		Int("skipped", result.Skipped).
		Int("deleted", len(result.Deleted)).
		Msg("[backup] 백업 생성 완료")

	return result, nil
}

// copier는 exclude 패턴을 적용하며 디렉토리를 복사합니다.
type copier struct {
	exclude []string
	files   int
	skipped int
}

// excluded는 백업 내 상대 경로(슬래시 구분)가 exclude 패턴에 해당하는지 확인합니다.
func (c *copier) excluded(rel string) bool {
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (c *copier) copyTree(src, dst, destRel string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		sub, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel := destRel
		if sub != "." {
			rel = destRel + "/" + filepath.ToSlash(sub)
		}
		target := filepath.Join(dst, sub)

		if sub != "." && c.excluded(rel) {
			c.skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("파일 복사 실패 %q: %w", path, err)
			}
			c.files++
			return nil
		default:
			// 소켓, 파이프 등은 건너뜀
			c.skipped++
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// writeTarGz는 dir을 이름 그대로 최상위 항목으로 하는 tar.gz를 만듭니다.
func writeTarGz(dir, archive string) error {
	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	base := filepath.Dir(dir)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		link := ""
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

type entry struct {
	name  string
	path  string
	mtime time.Time
}

// List는 backupDir의 백업 항목을 최신순으로 반환합니다.
func List(backupDir string) ([]string, error) {
	entries, err := list(backupDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

func list(backupDir string) ([]entry, error) {
	dirEntries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil, fmt.Errorf("백업 디렉토리 읽기 실패: %w", err)
	}

	var entries []entry
	for _, d := range dirEntries {
		if !strings.HasPrefix(d.Name(), Prefix) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			name:  d.Name(),
			path:  filepath.Join(backupDir, d.Name()),
			mtime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].mtime.Equal(entries[j].mtime) {
			return entries[i].mtime.After(entries[j].mtime)
		}
		return entries[i].name > entries[j].name
	})
	return entries, nil
}

// prune은 최신 retention개를 남기고 오래된 백업을 삭제합니다.
// 삭제 실패는 기록만 하고 계속합니다.
func prune(backupDir string, retention int) []string {
	entries, err := list(backupDir)
	if err != nil {
		log.Warn().Err(err).Msg("[backup] 보존 정책 적용 실패")
		return nil
	}
	if len(entries) <= retention {
		return nil
	}

	var deleted []string
	for _, e := range entries[retention:] {
		if err := os.RemoveAll(e.path); err != nil {
			log.Error().Err(err).Str("name", e.name).Msg("[backup] 오래된 백업 삭제 실패")
			continue
		}
		log.Info().Str("name", e.name).Msg("[backup] 오래된 백업 삭제")
		deleted = append(deleted, e.name)
	}
	return deleted
}
