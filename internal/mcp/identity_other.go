//go:build !linux && !windows

package mcp

import "syscall"

// sameProcess는 PID가 상태 파일에 기록된 그 서버 프로세스인지 확인합니다.
// /proc이 없는 플랫폼에서는 프로세스 그룹 리더인지만 확인합니다.
func sameProcess(entry StateEntry) bool {
	pgid, err := syscall.Getpgid(entry.PID)
	if err != nil {
		return false
	}
	return pgid == entry.PID
}
