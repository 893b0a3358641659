package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleStartServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	s.logger.Info().Str("server", name).Msg("[mcp] 도구 호출: start_server")
	if err := s.ctrl.StartServer(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start server %s: %s", name, err.Error())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server %s started", name)), nil
}

func (s *Server) handleStopServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}

	s.logger.Info().Str("server", name).Msg("[mcp] 도구 호출: stop_server")
	if err := s.ctrl.StopServer(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to stop server %s: %s", name, err.Error())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server %s stopped", name)), nil
}

func (s *Server) handleStartWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'workflow_id' is missing or invalid"), nil
	}
	s.logger.Info().Str("workflow", id).Msg("[mcp] 도구 호출: start_workflow")
	return batchResult(s.ctrl.StartWorkflow(ctx, id))
}

func (s *Server) handleStopWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'workflow_id' is missing or invalid"), nil
	}
	s.logger.Info().Str("workflow", id).Msg("[mcp] 도구 호출: stop_workflow")
	return batchResult(s.ctrl.StopWorkflow(ctx, id))
}

func (s *Server) handleStartAutostart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info().Msg("[mcp] 도구 호출: start_autostart")
	return batchResult(s.ctrl.StartAutostart(ctx))
}

func (s *Server) handleStopAll(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info().Msg("[mcp] 도구 호출: stop_all")
	return batchResult(s.ctrl.StopAll(ctx))
}

func (s *Server) handleGetStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(s.ctrl.Status())
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize status"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// batchResult는 배치 결과를 JSON 텍스트로 반환합니다.
// 항목 중 하나라도 실패하면 결과 본문은 그대로 두고 IsError를 설정합니다.
func batchResult(result any, err error) (*mcp.CallToolResult, error) {
	if result == nil {
		if err == nil {
			return mcp.NewToolResultText("{}"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}

	out := mcp.NewToolResultText(string(data))
	out.IsError = err != nil
	return out, nil
}
