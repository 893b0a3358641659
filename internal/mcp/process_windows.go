//go:build windows

package mcp

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr는 Windows에서 프로세스 속성을 반환합니다.
// Windows에서는 프로세스 그룹 설정이 불필요합니다.
func setSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// sendTermSignal은 Windows에서 프로세스를 종료합니다.
// Windows에는 SIGTERM이 없으므로 Kill을 사용합니다.
func sendTermSignal(process *os.Process) error {
	return process.Kill()
}

// sendKillSignal은 프로세스를 강제 종료합니다 (Windows).
func sendKillSignal(process *os.Process) error {
	return process.Kill()
}

// checkProcessAlive는 프로세스가 실행 중인지 확인합니다 (Windows).
// FindProcess는 종료된 프로세스의 핸들을 열 수 없으면 실패합니다.
func checkProcessAlive(process *os.Process) bool {
	p, err := os.FindProcess(process.Pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}

// exitSignal은 Windows에서 항상 빈 문자열을 반환합니다.
func exitSignal(state *os.ProcessState) string {
	return ""
}

// attachDetachedStdin은 Windows에서 추가 파일 상속을 지원하지 않으므로
// 부모가 쓰기 끝을 보유합니다. 부모 종료 시 stdin이 닫힙니다.
func attachDetachedStdin(cmd *exec.Cmd) (func(), error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdin = r
	return func() {
		_ = r.Close()
		_ = w.Close()
	}, nil
}

// sameProcess는 Windows에서 항상 true입니다. 프로세스 그룹 정보가 없습니다.
func sameProcess(entry StateEntry) bool {
	return true
}
