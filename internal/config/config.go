package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 3000,
			Bind: "loopback",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
		Backends: BackendsConfig{
			Default: "default",
			List: []BackendEntry{
				{Name: "default", Kind: "http", URL: "http://localhost:5328/api/chat/gemini"},
			},
		},
		ToolProviders: ToolProvidersConfig{
			Mode:            "gateway",
			BaseURL:         "http://localhost:5328/api",
			CollisionPolicy: "overwrite",
			CallTimeout:     30 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Client: ClientConfig{
			ServerURL: "http://127.0.0.1:3000",
		},
	}
}
