// Package toolprovider talks to the external MCP servers users register as
// tool providers, either through a provider gateway service or directly.
package toolprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// Client reaches tool providers.
type Client interface {
	// Tools lists the provider's tool catalog.
	Tools(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error)

	// Call invokes one tool. A tool-level failure is reported through
	// CallResult.Success, not the error.
	Call(ctx context.Context, p domain.ToolProvider, name string, args map[string]any) (*CallResult, error)

	// Ping reports whether the provider is reachable.
	Ping(ctx context.Context, p domain.ToolProvider) error

	// Authenticate registers a provider and returns its remote server id.
	Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error)

	// Disconnect releases a provider's remote registration.
	Disconnect(ctx context.Context, p domain.ToolProvider) error
}

// CallResult is the outcome of a tool call.
type CallResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthRequest registers a provider with its credentials.
type AuthRequest struct {
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	AuthType    domain.AuthType `json:"authType"`
	Credentials json.RawMessage `json:"credentials,omitempty"`
}

// AuthResult is the reply to an AuthRequest. OAuth providers may reply with
// an AuthorizationURL the user must visit.
type AuthResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ServerID         string `json:"server_id,omitempty"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
}

// ProviderError is returned when a provider operation fails.
type ProviderError struct {
	Provider string
	Op       string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("tool provider %s: %s: %d %s", e.Provider, e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("tool provider %s: %s: %s", e.Provider, e.Op, e.Message)
}
