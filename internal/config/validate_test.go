package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Nil(t, Validate(&cfg))
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{-1, 65536} {
		cfg := Defaults()
		cfg.Gateway.Port = port
		assert.Contains(t, issuePaths(Validate(&cfg)), "gateway.port")
	}
}

func TestValidate_Bind(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Bind = "tailnet"
	assert.Contains(t, issuePaths(Validate(&cfg)), "gateway.bind")

	cfg.Gateway.Bind = "custom"
	assert.Contains(t, issuePaths(Validate(&cfg)), "gateway.customBindHost")

	cfg.Gateway.CustomBindHost = "10.0.0.5"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_TLSRequiresFiles(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.TLS.Enabled = true
	assert.Contains(t, issuePaths(Validate(&cfg)), "gateway.tls")
}

func TestValidate_AuthUsers(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Auth.Users = []UserToken{
		{UserID: "a", Token: "t1"},
		{UserID: "", Token: "t2"},
		{UserID: "c", Token: "t1"},
	}
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "gateway.auth.users[1].userId")
	assert.Contains(t, paths, "gateway.auth.users[2].token")
}

func TestValidate_Backends(t *testing.T) {
	cfg := Defaults()
	cfg.Backends.List = nil
	assert.Contains(t, issuePaths(Validate(&cfg)), "backends.list")

	cfg.Backends.Default = "missing"
	cfg.Backends.List = []BackendEntry{
		{Name: "a", Kind: "http"},
		{Name: "a", Kind: "bogus"},
		{Name: "c", Kind: "anthropic"},
	}
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "backends.list[0].url")
	assert.Contains(t, paths, "backends.list[1].name")
	assert.Contains(t, paths, "backends.list[1].kind")
	assert.Contains(t, paths, "backends.list[2].model")
	assert.Contains(t, paths, "backends.list[2].apiKey")
	assert.Contains(t, paths, "backends.default")
}

func TestValidate_ToolProviders(t *testing.T) {
	cfg := Defaults()
	cfg.ToolProviders.Mode = "relay"
	cfg.ToolProviders.CollisionPolicy = "merge"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "toolProviders.mode")
	assert.Contains(t, paths, "toolProviders.collisionPolicy")

	cfg = Defaults()
	cfg.ToolProviders.BaseURL = "not a url"
	assert.Contains(t, issuePaths(Validate(&cfg)), "toolProviders.baseUrl")

	cfg.ToolProviders.Mode = "direct"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_CollisionPolicies(t *testing.T) {
	for _, p := range []string{"overwrite", "suffix", "reject"} {
		cfg := Defaults()
		cfg.ToolProviders.CollisionPolicy = p
		assert.Empty(t, Validate(&cfg), "policy %s should be valid", p)
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	cfg.Logging.ConsoleStyle = "fancy"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.consoleStyle")
}

func TestValidate_TracingExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracing.Exporter = "jaeger"
	assert.Contains(t, issuePaths(Validate(&cfg)), "tracing.exporter")
}

func TestValidate_MultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = -1
	cfg.Logging.Level = "bad"
	issues := Validate(&cfg)
	require.Len(t, issues, 2)
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "gateway.port", Message: "bad"}
	assert.Equal(t, "gateway.port: bad", issue.String())
}
