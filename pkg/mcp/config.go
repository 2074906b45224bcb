package mcp

import (
	"time"
)

const (
	// TransportStdio serves MCP over stdin/stdout
	TransportStdio = "stdio"
	// TransportSSE serves MCP over HTTP server-sent events
	TransportSSE = "sse"
)

// Config represents the MCP server configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
}

// ServerConfig defines server settings
type ServerConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport"`
	Port      int    `mapstructure:"port" yaml:"port"`
	Host      string `mapstructure:"host" yaml:"host"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// AuthConfig defines authentication settings for the SSE transport
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
}

// PerformanceConfig defines performance settings
type PerformanceConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxListItems   int           `mapstructure:"max_list_items" yaml:"max_list_items"`
}

// DefaultConfig returns default MCP configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: TransportStdio,
			Port:      7002,
			Host:      "localhost",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Performance: PerformanceConfig{
			RequestTimeout: 60 * time.Second,
			MaxListItems:   100,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Transport != TransportStdio && c.Server.Transport != TransportSSE {
		return &ConfigError{Field: "server.transport", Message: "transport must be stdio or sse"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "port must be between 1 and 65535"}
	}
	if c.Server.Host == "" {
		return &ConfigError{Field: "server.host", Message: "host cannot be empty"}
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		return &ConfigError{Field: "auth.token", Message: "token is required when auth is enabled"}
	}
	if c.Performance.RequestTimeout <= 0 {
		return &ConfigError{Field: "performance.request_timeout", Message: "request_timeout must be positive"}
	}
	if c.Performance.MaxListItems <= 0 || c.Performance.MaxListItems > 1000 {
		return &ConfigError{Field: "performance.max_list_items", Message: "max_list_items must be between 1 and 1000"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config validation error: " + e.Field + " - " + e.Message
}
