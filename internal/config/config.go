// Package config loads gateway configuration from YAML with ${ENV} expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values like "30s" or "2m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"30s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level gateway configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Quota    QuotaConfig    `yaml:"quota"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Keys     KeysConfig     `yaml:"keys"`
	Context  ContextConfig  `yaml:"context"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

// UpstreamConfig holds the completion provider settings.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	// PlatformKey is the shared credential funding non-BYOK calls.
	// Empty means platform funding is unavailable (BYOK only).
	PlatformKey string   `yaml:"platform_key"`
	Timeout     Duration `yaml:"timeout"`
	Temperature float32  `yaml:"temperature"`
}

// QuotaConfig holds daily limits for platform-funded callers.
type QuotaConfig struct {
	FreeMessagesPerDay int `yaml:"free_messages_per_day"`
	FreeTokensPerDay   int `yaml:"free_tokens_per_day"`
}

// StorageConfig holds sqlite paths.
type StorageConfig struct {
	MeteringPath  string `yaml:"metering_path"`
	DocumentsPath string `yaml:"documents_path"`
}

// AuthConfig points at the external authentication collaborator.
type AuthConfig struct {
	VerifyURL string   `yaml:"verify_url"`
	Timeout   Duration `yaml:"timeout"`
}

// KeysConfig points at the platform key service that stores per-caller
// provider credentials encrypted at rest.
type KeysConfig struct {
	ServiceURL string   `yaml:"service_url"`
	Token      string   `yaml:"token"`
	Timeout    Duration `yaml:"timeout"`
}

// ContextConfig bounds caller-document context assembly.
type ContextConfig struct {
	TokenBudget  int `yaml:"token_budget"`
	MaxDocuments int `yaml:"max_documents"`
}

// LoggingConfig holds telemetry settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	TelemetryPath string `yaml:"telemetry_path"`
}

// Load reads a YAML config file, expands ${ENV} references, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config populated with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(DefaultServerReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = Duration(DefaultServerWriteTimeout)
	}
	if c.Server.RateLimitPerMinute <= 0 {
		c.Server.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = Duration(DefaultUpstreamTimeout)
	}
	if c.Upstream.Temperature <= 0 {
		c.Upstream.Temperature = DefaultTemperature
	}
	if c.Quota.FreeMessagesPerDay <= 0 {
		c.Quota.FreeMessagesPerDay = DefaultFreeMessagesPerDay
	}
	if c.Quota.FreeTokensPerDay < 0 {
		c.Quota.FreeTokensPerDay = DefaultFreeTokensPerDay
	}
	if c.Storage.MeteringPath == "" {
		c.Storage.MeteringPath = "data/metering.db"
	}
	if c.Context.TokenBudget <= 0 {
		c.Context.TokenBudget = DefaultContextTokenBudget
	}
	if c.Context.MaxDocuments <= 0 {
		c.Context.MaxDocuments = DefaultContextMaxDocuments
	}
	if c.Auth.Timeout <= 0 {
		c.Auth.Timeout = Duration(10 * time.Second)
	}
	if c.Keys.Timeout <= 0 {
		c.Keys.Timeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks settings that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("config: upstream.base_url is required")
	}
	if c.Auth.VerifyURL == "" {
		return fmt.Errorf("config: auth.verify_url is required")
	}
	return nil
}
