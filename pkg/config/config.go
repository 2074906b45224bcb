package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/storepulse/engine/core"
	mcpconfig "github.com/compozy/storepulse/pkg/mcp"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFileName is the config file looked up in the working directory
	DefaultConfigFileName = "storepulse.yaml"
	// EnvPrefix prefixes every environment override (STOREPULSE_SERVER_PORT, ...)
	EnvPrefix = "STOREPULSE"

	defaultConfigType = "yaml"

	// DriverMedusa reads through the Medusa Admin API
	DriverMedusa = "medusa"
	// DriverPostgres reads the Medusa database directly
	DriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server" yaml:"server"`
	Source    SourceConfig     `mapstructure:"source" yaml:"source"`
	Medusa    MedusaConfig     `mapstructure:"medusa" yaml:"medusa"`
	Postgres  PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
	Analytics AnalyticsConfig  `mapstructure:"analytics" yaml:"analytics"`
	Assistant AssistantConfig  `mapstructure:"assistant" yaml:"assistant"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Log       LogConfig        `mapstructure:"log" yaml:"log"`
	MCP       mcpconfig.Config `mapstructure:"mcp" yaml:"mcp"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	AuthToken       string        `mapstructure:"auth_token" yaml:"auth_token,omitempty"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig selects where commerce data is read from
type SourceConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
}

// MedusaConfig configures the Admin API client
type MedusaConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	PageSize   int           `mapstructure:"page_size" yaml:"page_size"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries uint          `mapstructure:"max_retries" yaml:"max_retries"`
	CartsPath  string        `mapstructure:"carts_path" yaml:"carts_path"`
}

// PostgresConfig configures direct database access
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

// AnalyticsConfig tunes report defaults
type AnalyticsConfig struct {
	DefaultCurrency    string `mapstructure:"default_currency" yaml:"default_currency"`
	CartLookbackDays   int    `mapstructure:"cart_lookback_days" yaml:"cart_lookback_days"`
	OriginLookbackDays int    `mapstructure:"origin_lookback_days" yaml:"origin_lookback_days"`
	TopDiscountsLimit  int    `mapstructure:"top_discounts_limit" yaml:"top_discounts_limit"`
	TopProductsLimit   int    `mapstructure:"top_products_limit" yaml:"top_products_limit"`
}

// AssistantConfig configures the OpenAI-compatible chat relay
type AssistantConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model        string        `mapstructure:"model" yaml:"model"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TelemetryConfig configures optional usage events
type TelemetryConfig struct {
	PostHogAPIKey   string `mapstructure:"posthog_api_key" yaml:"posthog_api_key,omitempty"`
	PostHogEndpoint string `mapstructure:"posthog_endpoint" yaml:"posthog_endpoint"`
	DistinctID      string `mapstructure:"distinct_id" yaml:"distinct_id,omitempty"`
}

// Enabled reports whether events should be sent
func (t TelemetryConfig) Enabled() bool {
	return t.PostHogAPIKey != ""
}

// LogConfig configures the default logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7001,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Source: SourceConfig{
			Driver: DriverMedusa,
		},
		Medusa: MedusaConfig{
			BaseURL:    "http://localhost:9000",
			PageSize:   200,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			CartsPath:  "/admin/carts",
		},
		Postgres: PostgresConfig{
			MaxOpenConns: 5,
		},
		Analytics: AnalyticsConfig{
			DefaultCurrency:    "USD",
			CartLookbackDays:   30,
			OriginLookbackDays: 30,
			TopDiscountsLimit:  20,
			TopProductsLimit:   10,
		},
		Assistant: AssistantConfig{
			Enabled: false,
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1",
			Timeout: 2 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			PostHogEndpoint: "https://app.posthog.com",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		MCP: *mcpconfig.DefaultConfig(),
	}
}

// SetDefaults registers every default with v so environment variables can
// override keys that are absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.auth_token", d.Server.AuthToken)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("source.driver", d.Source.Driver)
	v.SetDefault("medusa.base_url", d.Medusa.BaseURL)
	v.SetDefault("medusa.api_key", d.Medusa.APIKey)
	v.SetDefault("medusa.page_size", d.Medusa.PageSize)
	v.SetDefault("medusa.timeout", d.Medusa.Timeout)
	v.SetDefault("medusa.max_retries", d.Medusa.MaxRetries)
	v.SetDefault("medusa.carts_path", d.Medusa.CartsPath)
	v.SetDefault("postgres.dsn", d.Postgres.DSN)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("analytics.default_currency", d.Analytics.DefaultCurrency)
	v.SetDefault("analytics.cart_lookback_days", d.Analytics.CartLookbackDays)
	v.SetDefault("analytics.origin_lookback_days", d.Analytics.OriginLookbackDays)
	v.SetDefault("analytics.top_discounts_limit", d.Analytics.TopDiscountsLimit)
	v.SetDefault("analytics.top_products_limit", d.Analytics.TopProductsLimit)
	v.SetDefault("assistant.enabled", d.Assistant.Enabled)
	v.SetDefault("assistant.base_url", d.Assistant.BaseURL)
	v.SetDefault("assistant.api_key", d.Assistant.APIKey)
	v.SetDefault("assistant.model", d.Assistant.Model)
	v.SetDefault("assistant.system_prompt", d.Assistant.SystemPrompt)
	v.SetDefault("assistant.timeout", d.Assistant.Timeout)
	v.SetDefault("telemetry.posthog_api_key", d.Telemetry.PostHogAPIKey)
	v.SetDefault("telemetry.posthog_endpoint", d.Telemetry.PostHogEndpoint)
	v.SetDefault("telemetry.distinct_id", d.Telemetry.DistinctID)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("mcp.server.transport", d.MCP.Server.Transport)
	v.SetDefault("mcp.server.host", d.MCP.Server.Host)
	v.SetDefault("mcp.server.port", d.MCP.Server.Port)
	v.SetDefault("mcp.server.base_url", d.MCP.Server.BaseURL)
	v.SetDefault("mcp.auth.enabled", d.MCP.Auth.Enabled)
	v.SetDefault("mcp.auth.token", d.MCP.Auth.Token)
	v.SetDefault("mcp.performance.request_timeout", d.MCP.Performance.RequestTimeout)
	v.SetDefault("mcp.performance.max_list_items", d.MCP.Performance.MaxListItems)
}

// NewViper returns a viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration from configPath (or ./storepulse.yaml when empty),
// applies environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	v := NewViper()

	if configPath == "" {
		candidate := filepath.Join(".", DefaultConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			configPath = ""
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType(defaultConfigType)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to configPath (./storepulse.yaml when empty)
func Save(cfg *Config, configPath string) error {
	if configPath == "" {
		configPath = filepath.Join(".", DefaultConfigFileName)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType(defaultConfigType)

	v.Set("server", cfg.Server)
	v.Set("source", cfg.Source)
	v.Set("medusa", cfg.Medusa)
	v.Set("postgres", cfg.Postgres)
	v.Set("analytics", cfg.Analytics)
	v.Set("assistant", cfg.Assistant)
	v.Set("telemetry", cfg.Telemetry)
	v.Set("log", cfg.Log)
	v.Set("mcp", cfg.MCP)

	if err := v.WriteConfigAs(configPath); err != nil {
		return core.NewError(fmt.Errorf("failed to write config file: %w", err), core.ErrorCodeConfigWrite, map[string]any{
			"path": configPath,
		})
	}

	return nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port", "port must be between 1 and 65535")
	}

	switch c.Source.Driver {
	case DriverMedusa:
		if _, err := url.ParseRequestURI(c.Medusa.BaseURL); err != nil {
			return invalid("medusa.base_url", "base_url must be an absolute URL")
		}
		if c.Medusa.PageSize <= 0 {
			return invalid("medusa.page_size", "page_size must be positive")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return invalid("postgres.dsn", "dsn is required when source.driver is postgres")
		}
	default:
		return invalid("source.driver", fmt.Sprintf("unknown driver %q (expected medusa or postgres)", c.Source.Driver))
	}

	if len(c.Analytics.DefaultCurrency) != 3 {
		return invalid("analytics.default_currency", "default_currency must be a 3 letter ISO code")
	}
	if c.Analytics.CartLookbackDays <= 0 || c.Analytics.OriginLookbackDays <= 0 {
		return invalid("analytics", "lookback days must be positive")
	}
	if c.Analytics.TopDiscountsLimit <= 0 || c.Analytics.TopProductsLimit <= 0 {
		return invalid("analytics", "limits must be positive")
	}

	if c.Assistant.Enabled && c.Assistant.Model == "" {
		return invalid("assistant.model", "model is required when the assistant is enabled")
	}

	if err := c.MCP.Validate(); err != nil {
		return core.NewError(err, core.ErrorCodeConfigInvalid, map[string]any{"field": "mcp"})
	}

	return nil
}

func invalid(field, message string) error {
	return core.NewError(fmt.Errorf("%s: %s", field, message), core.ErrorCodeConfigInvalid, map[string]any{
		"field": field,
	})
}
