package config

import (
	"fmt"
)

// minSecretLength guards against trivially guessable session secrets
const minSecretLength = 16

// JWTConfig holds configuration for session token signing and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWTConfig derives the session token configuration. SESSION_SECRET is required.
func (c *Config) JWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:          c.SessionSecret,
		ExpirationHours: c.TokenExpirationHours,
	}
	if cfg.ExpirationHours == 0 {
		cfg.ExpirationHours = DefaultTokenExpirationHours
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required but not set")
	}
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("session token expiration must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
