package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	for i := range cfg.Gateway.Auth.Users {
		cfg.Gateway.Auth.Users[i].Token = expandEnvVars(cfg.Gateway.Auth.Users[i].Token)
	}
	for i := range cfg.Backends.List {
		cfg.Backends.List[i].APIKey = expandEnvVars(cfg.Backends.List[i].APIKey)
		cfg.Backends.List[i].URL = expandEnvVars(cfg.Backends.List[i].URL)
	}
	cfg.ToolProviders.BaseURL = expandEnvVars(cfg.ToolProviders.BaseURL)
	cfg.Client.Token = expandEnvVars(cfg.Client.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = d.Gateway.Port
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = d.Gateway.Bind
	}
	if cfg.Backends.Default == "" && len(cfg.Backends.List) > 0 {
		cfg.Backends.Default = cfg.Backends.List[0].Name
	}
	if cfg.ToolProviders.Mode == "" {
		cfg.ToolProviders.Mode = d.ToolProviders.Mode
	}
	if cfg.ToolProviders.CollisionPolicy == "" {
		cfg.ToolProviders.CollisionPolicy = d.ToolProviders.CollisionPolicy
	}
	if cfg.ToolProviders.CallTimeout == 0 {
		cfg.ToolProviders.CallTimeout = d.ToolProviders.CallTimeout
	}
	if cfg.ToolProviders.Breaker.MaxFailures == 0 {
		cfg.ToolProviders.Breaker.MaxFailures = d.ToolProviders.Breaker.MaxFailures
	}
	if cfg.ToolProviders.Breaker.OpenTimeout == 0 {
		cfg.ToolProviders.Breaker.OpenTimeout = d.ToolProviders.Breaker.OpenTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = d.Client.ServerURL
	}
}

// applyEnvOverrides reads MCPCHAT_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MCPCHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("MCPCHAT_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("MCPCHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MCPCHAT_TOOL_BASE_URL"); v != "" {
		cfg.ToolProviders.BaseURL = v
	}
	if v := os.Getenv("MCPCHAT_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("MCPCHAT_TOKEN"); v != "" {
		cfg.Client.Token = v
	}
}
