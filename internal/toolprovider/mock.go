package toolprovider

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// MockClient is a test double for Client.
type MockClient struct {
	ToolsFunc        func(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error)
	CallFunc         func(ctx context.Context, p domain.ToolProvider, name string, args map[string]any) (*CallResult, error)
	PingFunc         func(ctx context.Context, p domain.ToolProvider) error
	AuthenticateFunc func(ctx context.Context, req AuthRequest) (*AuthResult, error)
	DisconnectFunc   func(ctx context.Context, p domain.ToolProvider) error
}

func (m *MockClient) Tools(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error) {
	if m.ToolsFunc != nil {
		return m.ToolsFunc(ctx, p)
	}
	return nil, nil
}

func (m *MockClient) Call(ctx context.Context, p domain.ToolProvider, name string, args map[string]any) (*CallResult, error) {
	if m.CallFunc != nil {
		return m.CallFunc(ctx, p, name, args)
	}
	return &CallResult{Success: true, Result: "mock result"}, nil
}

func (m *MockClient) Ping(ctx context.Context, p domain.ToolProvider) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx, p)
	}
	return nil
}

func (m *MockClient) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, req)
	}
	return &AuthResult{Success: true, ServerID: "mock-server"}, nil
}

func (m *MockClient) Disconnect(ctx context.Context, p domain.ToolProvider) error {
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, p)
	}
	return nil
}
