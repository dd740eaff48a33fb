package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONFORMITY_"

// Load reads the TOML file at path over DefaultConfig, applies
// environment overrides and validates the result. A missing file is not
// an error; the defaults and environment are used as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RateLimit.Enabled && c.RateLimit.TokensPerSecond <= 0 {
		return errors.New("invalid config: rate_limit.tokens_per_second must be positive when enabled")
	}
	return nil
}

// applyEnv overlays secrets and deployment-specific values.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("BACKOFFICE_ENDPOINT", &c.Backoffice.Endpoint)
	if c.Backoffice.TokenEnv != "" {
		if v, ok := lookup(c.Backoffice.TokenEnv); ok {
			c.Backoffice.Token = strings.TrimSpace(v)
		}
	}
	str("STORAGE_MODE", &c.Storage.Mode)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	str("AWS_ACCESS_KEY_ID", &c.Storage.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.Password)
	str("TEMPORAL_HOST_PORT", &c.Temporal.HostPort)
	str("TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	str("LOG_LEVEL", &c.Observability.LogLevel)
}

// NewLogger builds the process logger described by o.
func (o ObservabilityConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if o.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
