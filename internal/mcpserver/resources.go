package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	statusURI       = "mcpwf://status"
	serverURIPrefix = "mcpwf://servers/"
)

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("리소스 직렬화 실패: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handleStatusResource는 mcpwf://status 리소스 핸들러입니다.
func (s *Server) handleStatusResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.ctrl.Status())
}

// handleServerResource는 mcpwf://servers/{name} 리소스 핸들러입니다.
func (s *Server) handleServerResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := serverNameFromURI(uri)
	if name == "" {
		return nil, fmt.Errorf("invalid server URI: %s", uri)
	}

	st, ok := s.ctrl.ServerStatus(name)
	if !ok {
		return nil, fmt.Errorf("server not found: %s", name)
	}
	return jsonResource(uri, st)
}

// serverNameFromURI는 mcpwf://servers/{name}에서 서버 이름을 추출합니다.
func serverNameFromURI(uri string) string {
	if !strings.HasPrefix(uri, serverURIPrefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, serverURIPrefix)
	if idx := strings.Index(name, "/"); idx != -1 {
		name = name[:idx]
	}
	return name
}
