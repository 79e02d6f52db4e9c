package tools

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/toolprovider"
	"github.com/soyeahso/mcpchat/internal/tracing"
)

const defaultExecutionError = "MCP tool execution failed"

// ExposedName joins provider and tool names, replacing every rune outside
// [A-Za-z0-9_] with an underscore.
func ExposedName(provider, tool string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, provider+"_"+tool)
}

// ExecutionError is returned when a provider reports a failed tool call.
type ExecutionError struct {
	Tool    string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// Tool is a provider tool exposed under its registry name.
type Tool struct {
	Name        string
	Description string
	Parameters  ObjectSchema
	Provider    domain.ToolProvider
	RemoteName  string

	client toolprovider.Client
	log    *logging.Logger
}

// Execute validates args and forwards the call to the tool's provider.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (result any, err error) {
	ctx, span := tracing.StartSpan(ctx, "tools.execute",
		attribute.String("tool.name", t.Name),
		attribute.String("tool.provider", t.Provider.Name))
	defer func() { tracing.End(span, err) }()

	if args == nil {
		args = map[string]any{}
	}
	if err := t.Parameters.Validate(args); err != nil {
		return nil, err
	}

	res, err := t.client.Call(ctx, t.Provider, t.RemoteName, args)
	if err != nil {
		t.log.Error().Err(err).Str("tool", t.Name).Msg("tool call failed")
		return nil, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = defaultExecutionError
		}
		return nil, &ExecutionError{Tool: t.Name, Message: msg}
	}
	return res.Result, nil
}

// Definition is the listing form of a tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Provider    string         `json:"provider"`
	InputSchema map[string]any `json:"inputSchema"`
}

func (t *Tool) Definition() Definition {
	return Definition{
		Name:        t.Name,
		Description: t.Description,
		Provider:    t.Provider.Name,
		InputSchema: t.Parameters.JSONSchema(),
	}
}
