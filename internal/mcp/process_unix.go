//go:build !windows

package mcp

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr는 프로세스 그룹을 설정합니다 (Unix).
// 자식 프로세스(npx가 띄운 node 등)도 함께 종료되도록 Setpgid를 활성화합니다.
func setSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// sendTermSignal은 프로세스 그룹에 SIGTERM을 전송합니다 (Unix).
// 그룹 전송이 실패하면 프로세스 자체에 전송합니다.
func sendTermSignal(process *os.Process) error {
	if err := syscall.Kill(-process.Pid, syscall.SIGTERM); err == nil {
		return nil
	}
	return process.Signal(syscall.SIGTERM)
}

// sendKillSignal은 프로세스 그룹에 SIGKILL을 전송합니다 (Unix).
func sendKillSignal(process *os.Process) error {
	if err := syscall.Kill(-process.Pid, syscall.SIGKILL); err == nil {
		return nil
	}
	return process.Kill()
}

// checkProcessAlive는 프로세스가 실행 중인지 확인합니다 (Unix).
// Signal(0)은 실제 시그널을 보내지 않고 프로세스 존재만 확인합니다.
func checkProcessAlive(process *os.Process) bool {
	err := process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// 다른 사용자 소유 프로세스는 EPERM이지만 살아있음
	return errors.Is(err, syscall.EPERM)
}

// exitSignal은 종료 원인이 된 시그널 이름을 반환합니다.
func exitSignal(state *os.ProcessState) string {
	if state == nil {
		return ""
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return ws.Signal().String()
}

// attachDetachedStdin은 부모가 종료된 후에도 stdin이 EOF에 도달하지 않도록
// 파이프의 쓰기 끝을 자식에게 추가 파일로 상속시킵니다.
// stdio MCP 서버는 stdin EOF를 받으면 종료하기 때문입니다.
func attachDetachedStdin(cmd *exec.Cmd) (func(), error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdin = r
	cmd.ExtraFiles = append(cmd.ExtraFiles, w)
	return func() {
		_ = r.Close()
		_ = w.Close()
	}, nil
}
