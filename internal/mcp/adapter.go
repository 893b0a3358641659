package mcp

import "context"

// ControlAdapter는 Manager를 mcpserver.Controller 인터페이스에 맞추는 어댑터입니다.
// mcpserver 패키지에서 정의한 인터페이스를 직접 import하지 않고,
// 동일한 시그니처로 구현하여 인터페이스 분리 원칙을 따릅니다.
type ControlAdapter struct {
	manager *Manager
}

// NewControlAdapter는 새로운 ControlAdapter를 생성합니다.
func NewControlAdapter(manager *Manager) *ControlAdapter {
	return &ControlAdapter{manager: manager}
}

// StartServer는 MCP 서버를 시작합니다.
func (a *ControlAdapter) StartServer(ctx context.Context, name string) error {
	return a.manager.StartServer(ctx, name)
}

// StopServer는 MCP 서버를 중지합니다.
func (a *ControlAdapter) StopServer(ctx context.Context, name string) error {
	return a.manager.StopServer(ctx, name)
}

// StartWorkflow는 워크플로를 시작하고 항목별 결과를 반환합니다.
func (a *ControlAdapter) StartWorkflow(ctx context.Context, id string) (any, error) {
	return batchOrNil(a.manager.StartWorkflow(ctx, id))
}

// StopWorkflow는 워크플로를 중지하고 항목별 결과를 반환합니다.
func (a *ControlAdapter) StopWorkflow(ctx context.Context, id string) (any, error) {
	return batchOrNil(a.manager.StopWorkflow(ctx, id))
}

// StartAutostart는 자동 시작 서버를 시작합니다.
func (a *ControlAdapter) StartAutostart(ctx context.Context) (any, error) {
	return batchOrNil(a.manager.StartAutostart(ctx))
}

// StopAll은 모든 서버를 중지합니다.
func (a *ControlAdapter) StopAll(ctx context.Context) (any, error) {
	return batchOrNil(a.manager.StopAll(ctx))
}

// Status는 상태 보고서를 반환합니다.
func (a *ControlAdapter) Status() any {
	return a.manager.Status()
}

// ServerStatus는 서버 하나의 상태를 반환합니다.
func (a *ControlAdapter) ServerStatus(name string) (any, bool) {
	st, ok := a.manager.Status().Servers[name]
	if !ok {
		return nil, false
	}
	return st, true
}

// batchOrNil은 nil *BatchResult가 non-nil 인터페이스가 되지 않도록 변환합니다.
func batchOrNil(result *BatchResult, err error) (any, error) {
	if result == nil {
		return nil, err
	}
	return result, err
}
