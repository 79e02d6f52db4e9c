package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var (
	validBinds            = []string{"auto", "lan", "loopback", "custom"}
	validBackendKinds     = []string{"http", "ollama", "openai", "anthropic"}
	validProviderModes    = []string{"gateway", "direct"}
	validCollisionPolicys = []string{"overwrite", "suffix", "reject"}
	validLogLevels        = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	validConsoleStyles    = []string{"pretty", "compact", "json"}
	validExporters        = []string{"stdout", "noop"}
)

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Gateway
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind is custom")
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		add("gateway.tls", "certPath and keyPath are required when TLS is enabled")
	}
	seen := map[string]bool{}
	for i, u := range cfg.Gateway.Auth.Users {
		if u.UserID == "" {
			add(fmt.Sprintf("gateway.auth.users[%d].userId", i), "userId is required")
		}
		if u.Token == "" {
			add(fmt.Sprintf("gateway.auth.users[%d].token", i), "token is required")
		} else if seen[u.Token] {
			add(fmt.Sprintf("gateway.auth.users[%d].token", i), "token is assigned to more than one user")
		}
		seen[u.Token] = true
	}
	if cfg.Gateway.RateLimit.RequestsPerMinute < 0 {
		add("gateway.rateLimit.requestsPerMinute", "must not be negative")
	}

	// Backends
	if len(cfg.Backends.List) == 0 {
		add("backends.list", "at least one backend is required")
	}
	names := map[string]bool{}
	for i, b := range cfg.Backends.List {
		path := fmt.Sprintf("backends.list[%d]", i)
		if b.Name == "" {
			add(path+".name", "name is required")
		} else if names[b.Name] {
			add(path+".name", "duplicate backend name %q", b.Name)
		}
		names[b.Name] = true
		if !slices.Contains(validBackendKinds, b.Kind) {
			add(path+".kind", "must be one of %v, got %q", validBackendKinds, b.Kind)
		}
		if b.Kind == "http" && b.URL == "" {
			add(path+".url", "url is required for http backends")
		}
		if (b.Kind == "openai" || b.Kind == "anthropic" || b.Kind == "ollama") && b.Model == "" {
			add(path+".model", "model is required for %s backends", b.Kind)
		}
		if b.Kind == "anthropic" && b.APIKey == "" {
			add(path+".apiKey", "apiKey is required for anthropic backends")
		}
	}
	if cfg.Backends.Default != "" && len(cfg.Backends.List) > 0 && !names[cfg.Backends.Default] {
		add("backends.default", "unknown backend %q", cfg.Backends.Default)
	}

	// Tool providers
	tp := cfg.ToolProviders
	if tp.Mode != "" && !slices.Contains(validProviderModes, tp.Mode) {
		add("toolProviders.mode", "must be one of %v, got %q", validProviderModes, tp.Mode)
	}
	if tp.Mode == "gateway" {
		if u, err := url.Parse(tp.BaseURL); tp.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			add("toolProviders.baseUrl", "an absolute URL is required in gateway mode")
		}
	}
	if tp.CollisionPolicy != "" && !slices.Contains(validCollisionPolicys, tp.CollisionPolicy) {
		add("toolProviders.collisionPolicy", "must be one of %v, got %q", validCollisionPolicys, tp.CollisionPolicy)
	}

	// Logging
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	// Tracing
	if cfg.Tracing.Exporter != "" && !slices.Contains(validExporters, cfg.Tracing.Exporter) {
		add("tracing.exporter", "must be one of %v, got %q", validExporters, cfg.Tracing.Exporter)
	}

	return issues
}
