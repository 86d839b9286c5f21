// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/persona-shift/internal/llm"
)

// Defaults
const (
	DefaultPort                 = 8080
	DefaultRequestTimeout       = 120 * time.Second
	DefaultSessionTTL           = time.Hour
	DefaultTokenExpirationHours = 24
	DefaultMaxImageBytes        = 10 << 20
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "console"
)

// Config represents the configuration loaded from a file and the environment.
// All fields are optional in the file; missing values use defaults or CLI flags.
type Config struct {
	// Model access
	APIKey     string `mapstructure:"api_key"`     // Gemini API key
	TextModel  string `mapstructure:"text_model"`  // Model for refinement and persona details
	ImageModel string `mapstructure:"image_model"` // Model for portrait editing

	// Generation
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // Bound on each generation call, 0 disables
	MaxImageBytes  int64         `mapstructure:"max_image_bytes"` // Largest accepted base portrait

	// Server
	Port                 int           `mapstructure:"port"`
	SessionSecret        string        `mapstructure:"session_secret"`         // HMAC secret for session tokens
	SessionTTL           time.Duration `mapstructure:"session_ttl"`            // Idle time before a session is evicted
	TokenExpirationHours int           `mapstructure:"token_expiration_hours"` // Session token lifetime

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "console" or "json"
	Verbose   bool   `mapstructure:"verbose"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string][]string{
	"api_key":                {"GEMINI_API_KEY", "API_KEY"},
	"port":                   {"PORT"},
	"session_secret":         {"SESSION_SECRET"},
	"session_ttl":            {"SESSION_TTL"},
	"token_expiration_hours": {"SESSION_EXPIRATION_HOURS"},
	"request_timeout":        {"REQUEST_TIMEOUT"},
	"log_level":              {"LOG_LEVEL"},
	"log_format":             {"LOG_FORMAT"},
	"text_model":             {"GEMINI_TEXT_MODEL"},
	"image_model":            {"GEMINI_IMAGE_MODEL"},
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		TextModel:            llm.DefaultConfig().Models[llm.TierStandard],
		ImageModel:           llm.DefaultConfig().Models[llm.TierImage],
		RequestTimeout:       DefaultRequestTimeout,
		MaxImageBytes:        DefaultMaxImageBytes,
		Port:                 DefaultPort,
		SessionTTL:           DefaultSessionTTL,
		TokenExpirationHours: DefaultTokenExpirationHours,
		LogLevel:             DefaultLogLevel,
		LogFormat:            DefaultLogFormat,
	}
}

// Load reads configuration from path (YAML, JSON or TOML, by extension) and
// applies environment overrides. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("text_model", defaults.TextModel)
	v.SetDefault("image_model", defaults.ImageModel)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("max_image_bytes", defaults.MaxImageBytes)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("session_ttl", defaults.SessionTTL)
	v.SetDefault("token_expiration_hours", defaults.TokenExpirationHours)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	v.SetEnvPrefix("PERSONA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the command that needs them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.RequestTimeout < 0 {
		return errors.New("config error: 'request_timeout' must be non-negative")
	}
	if c.SessionTTL < 0 {
		return errors.New("config error: 'session_ttl' must be non-negative")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("config error: 'max_image_bytes' must be non-negative")
	}
	if c.TokenExpirationHours < 0 {
		return errors.New("config error: 'token_expiration_hours' must be non-negative")
	}
	if c.LogFormat != "" && c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("config error: 'log_format' must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.TextModel == "" {
		result.TextModel = defaults.TextModel
	}
	if result.ImageModel == "" {
		result.ImageModel = defaults.ImageModel
	}
	if result.SessionSecret == "" {
		result.SessionSecret = defaults.SessionSecret
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RequestTimeout == 0 {
		result.RequestTimeout = defaults.RequestTimeout
	}
	if result.SessionTTL == 0 {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.TokenExpirationHours == 0 {
		result.TokenExpirationHours = defaults.TokenExpirationHours
	}
	if result.MaxImageBytes == 0 {
		result.MaxImageBytes = defaults.MaxImageBytes
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LLMConfig returns the model client configuration
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	if c.TextModel != "" {
		cfg = cfg.WithModel(llm.TierStandard, c.TextModel)
	}
	if c.ImageModel != "" {
		cfg = cfg.WithModel(llm.TierImage, c.ImageModel)
	}
	return cfg
}
