package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/toolprovider"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

type staticProviders struct {
	providers []domain.ToolProvider
	err       error
	calls     int
}

func (s *staticProviders) ActiveProviders(ctx context.Context, userID string) ([]domain.ToolProvider, error) {
	s.calls++
	return s.providers, s.err
}

func tool(name string) mcp.Tool {
	return mcp.NewTool(name, mcp.WithDescription(name+" tool"), mcp.WithString("q", mcp.Required()))
}

func catalogClient(catalogs map[string][]mcp.Tool, failing ...string) *toolprovider.MockClient {
	return &toolprovider.MockClient{
		ToolsFunc: func(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error) {
			for _, f := range failing {
				if p.Name == f {
					return nil, &toolprovider.ProviderError{Provider: p.Name, Op: "tools", Status: 500, Message: "boom"}
				}
			}
			return catalogs[p.Name], nil
		},
	}
}

func TestExposedName(t *testing.T) {
	assert.Equal(t, "My_Server__get_data", ExposedName("My Server!", "get_data"))
	assert.Equal(t, "weather_forecast", ExposedName("weather", "forecast"))
	assert.Equal(t, "a_b_c_d", ExposedName("a-b", "c.d"))
	assert.Equal(t, "__x", ExposedName("é", "x"))
}

func TestBuildSkipsFailingProvider(t *testing.T) {
	src := &staticProviders{providers: []domain.ToolProvider{
		{ID: "1", Name: "broken", IsActive: true},
		{ID: "2", Name: "healthy", IsActive: true},
	}}
	b := &Builder{
		Providers: src,
		Client:    catalogClient(map[string][]mcp.Tool{"healthy": {tool("get_data")}}, "broken"),
		Log:       silentLog(),
	}

	reg, err := b.Build(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"healthy_get_data"}, reg.Names())
}

func TestBuildSkipsInactive(t *testing.T) {
	src := &staticProviders{providers: []domain.ToolProvider{
		{ID: "1", Name: "off", IsActive: false},
		{ID: "2", Name: "on", IsActive: true},
	}}
	b := &Builder{
		Providers: src,
		Client:    catalogClient(map[string][]mcp.Tool{"off": {tool("x")}, "on": {tool("y")}}),
		Log:       silentLog(),
	}
	reg, err := b.Build(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"on_y"}, reg.Names())
}

func TestBuildProviderListError(t *testing.T) {
	b := &Builder{
		Providers: &staticProviders{err: errors.New("db down")},
		Client:    &toolprovider.MockClient{},
		Log:       silentLog(),
	}
	_, err := b.Build(context.Background(), "u1")
	assert.ErrorContains(t, err, "db down")
}

func TestBuildNotCached(t *testing.T) {
	src := &staticProviders{providers: []domain.ToolProvider{{Name: "p", IsActive: true}}}
	b := &Builder{Providers: src, Client: catalogClient(nil), Log: silentLog()}
	_, _ = b.Build(context.Background(), "u1")
	_, _ = b.Build(context.Background(), "u1")
	assert.Equal(t, 2, src.calls)
}

func collidingBuilder(policy Policy) *Builder {
	// "My Server" and "My-Server" both expose My_Server_get.
	src := &staticProviders{providers: []domain.ToolProvider{
		{ID: "1", Name: "My Server", IsActive: true},
		{ID: "2", Name: "My-Server", IsActive: true},
	}}
	return &Builder{
		Providers: src,
		Client: catalogClient(map[string][]mcp.Tool{
			"My Server": {tool("get")},
			"My-Server": {tool("get")},
		}),
		Policy: policy,
		Log:    silentLog(),
	}
}

func TestCollisionPolicies(t *testing.T) {
	tests := []struct {
		policy    Policy
		names     []string
		ownerOf   string
		wantOwner string
	}{
		{PolicyOverwrite, []string{"My_Server_get"}, "My_Server_get", "My-Server"},
		{"", []string{"My_Server_get"}, "My_Server_get", "My-Server"},
		{PolicyReject, []string{"My_Server_get"}, "My_Server_get", "My Server"},
		{PolicySuffix, []string{"My_Server_get", "My_Server_get_2"}, "My_Server_get_2", "My-Server"},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			reg, err := collidingBuilder(tt.policy).Build(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.names, reg.Names())
			got, ok := reg.Get(tt.ownerOf)
			require.True(t, ok)
			assert.Equal(t, tt.wantOwner, got.Provider.Name)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyOverwrite, p)
	p, err = ParsePolicy("suffix")
	require.NoError(t, err)
	assert.Equal(t, PolicySuffix, p)
	_, err = ParsePolicy("merge")
	assert.Error(t, err)
}

func TestDefinitions(t *testing.T) {
	src := &staticProviders{providers: []domain.ToolProvider{{Name: "w", IsActive: true}}}
	b := &Builder{Providers: src, Client: catalogClient(map[string][]mcp.Tool{"w": {tool("b"), tool("a")}}), Log: silentLog()}
	reg, err := b.Build(context.Background(), "u1")
	require.NoError(t, err)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "w_a", defs[0].Name)
	assert.Equal(t, "w", defs[0].Provider)
	assert.Equal(t, "a tool", defs[0].Description)
	assert.Equal(t, []string{"q"}, defs[0].InputSchema["required"])
	assert.Equal(t, 2, reg.Len())
}
