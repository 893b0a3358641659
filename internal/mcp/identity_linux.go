//go:build linux

package mcp

import (
	"math"
	"time"

	"github.com/prometheus/procfs"
)

// startTimeTolerance는 기록된 시작 시각과 커널 시작 시각의 허용 오차입니다.
// /proc/stat의 btime이 초 단위이므로 여유를 둡니다.
const startTimeTolerance = 3 * time.Second

// sameProcess는 PID가 상태 파일에 기록된 그 서버 프로세스인지 확인합니다 (Linux).
// 서버는 Setpgid로 시작하므로 프로세스 그룹 리더여야 하고,
// 시작 시각이 기록과 맞아야 합니다. PID 재사용을 걸러냅니다.
func sameProcess(entry StateEntry) bool {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return true
	}
	proc, err := fs.Proc(entry.PID)
	if err != nil {
		return false
	}
	stat, err := proc.Stat()
	if err != nil {
		return false
	}
	if stat.PGRP != entry.PID {
		return false
	}
	if entry.StartedAt.IsZero() {
		return true
	}

	started, err := stat.StartTime()
	if err != nil {
		return true
	}
	sec, frac := math.Modf(started)
	kernelStart := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	diff := entry.StartedAt.Sub(kernelStart)
	if diff < 0 {
		diff = -diff
	}
	return diff <= startTimeTolerance
}
