package config

import "time"

// Config is the root configuration for mcpchat.
type Config struct {
	SystemPrompt  string              `yaml:"systemPrompt,omitempty"`
	Gateway       GatewayConfig       `yaml:"gateway,omitempty"`
	Backends      BackendsConfig      `yaml:"backends,omitempty"`
	ToolProviders ToolProvidersConfig `yaml:"toolProviders,omitempty"`
	Store         StoreConfig         `yaml:"store,omitempty"`
	Logging       LoggingConfig       `yaml:"logging,omitempty"`
	Tracing       TracingConfig       `yaml:"tracing,omitempty"`
	Client        ClientConfig        `yaml:"client,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket chat server.
type GatewayConfig struct {
	Port           int             `yaml:"port,omitempty"`
	Bind           string          `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string          `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth     `yaml:"auth,omitempty"`
	TLS            GatewayTLS      `yaml:"tls,omitempty"`
	AllowedOrigins []string        `yaml:"allowedOrigins,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rateLimit,omitempty"`
}

// GatewayAuth maps bearer tokens to the users they authenticate.
type GatewayAuth struct {
	Users []UserToken `yaml:"users,omitempty"`
}

// UserToken binds one bearer token to a user id.
type UserToken struct {
	UserID string `yaml:"userId"`
	Token  string `yaml:"token"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// RateLimitConfig is a per-client token bucket applied to /api/ routes.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute,omitempty"` // 0 disables
	Burst             int `yaml:"burst,omitempty"`
}

// BackendsConfig lists the model backends a chat submission can select.
type BackendsConfig struct {
	Default string         `yaml:"default,omitempty"`
	List    []BackendEntry `yaml:"list,omitempty"`
}

// BackendEntry defines a single model backend.
type BackendEntry struct {
	Name      string        `yaml:"name"`
	Kind      string        `yaml:"kind"` // "http" | "ollama" | "openai" | "anthropic"
	URL       string        `yaml:"url,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	APIKey    string        `yaml:"apiKey,omitempty"`
	MaxTokens int           `yaml:"maxTokens,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Aliases   []string      `yaml:"aliases,omitempty"`
}

// ToolProvidersConfig controls how registered tool providers are reached.
type ToolProvidersConfig struct {
	Mode            string        `yaml:"mode,omitempty"` // "gateway" | "direct"
	BaseURL         string        `yaml:"baseUrl,omitempty"`
	CollisionPolicy string        `yaml:"collisionPolicy,omitempty"` // "overwrite" | "suffix" | "reject"
	CallTimeout     time.Duration `yaml:"callTimeout,omitempty"`
	Breaker         BreakerConfig `yaml:"breaker,omitempty"`
}

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"maxFailures,omitempty"`
	OpenTimeout time.Duration `yaml:"openTimeout,omitempty"`
}

// StoreConfig locates the sqlite database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty means <data dir>/mcpchat.db
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Exporter string `yaml:"exporter,omitempty"` // "stdout" | "noop"
}

// ClientConfig holds the defaults used by the CLI when talking to a server.
type ClientConfig struct {
	ServerURL string `yaml:"serverUrl,omitempty"`
	Token     string `yaml:"token,omitempty"`
	Model     string `yaml:"model,omitempty"`
}
