package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, RetreatPreserveNormalized, cfg.Wizard.RetreatPolicy)
	assert.Equal(t, StorageBackoffice, cfg.Storage.Mode)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.Convert.Std())
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Temporal, cfg.Temporal)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conformity.toml")
		doc := `
[backoffice]
endpoint = "https://bo.example.com/graphql"

[timeouts]
convert = "90s"

[storage]
mode = "s3"
bucket = "envelopes"

[wizard]
retreat_policy = "reset_to_sourcing"
signature_marker = "[[sign]]"
signature_style = "SignatureZone"
`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://bo.example.com/graphql", cfg.Backoffice.Endpoint)
		assert.Equal(t, 90*time.Second, cfg.Timeouts.Convert.Std())
		assert.Equal(t, "envelopes", cfg.Storage.Bucket)
		assert.Equal(t, RetreatResetToSourcing, cfg.Wizard.RetreatPolicy)
		assert.Equal(t, DefaultMaxAttempts, cfg.Retry.MaxAttempts, "untouched sections keep defaults")
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[backoffice]\nendpont = \"x\"\n"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("s3 mode requires a bucket", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s3.toml")
		require.NoError(t, os.WriteFile(path, []byte("[storage]\nmode = \"s3\"\n"), 0o600))
		_, err := Load(path)
		require.ErrorContains(t, err, "Bucket")
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CONFORMITY_BACKOFFICE_ENDPOINT": " https://env.example.com/graphql ",
		"CONFORMITY_BACKOFFICE_TOKEN":    "secret",
		"CONFORMITY_REDIS_ADDR":          "redis:6379",
		"CONFORMITY_LOG_LEVEL":           "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	cfg.applyEnv(lookup)

	assert.Equal(t, "https://env.example.com/graphql", cfg.Backoffice.Endpoint)
	assert.Equal(t, "secret", cfg.Backoffice.Token)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "info", cfg.Observability.LogLevel, "blank values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"max interval below initial", func(c *Config) { c.Retry.MaxInterval = Duration(time.Millisecond) }},
		{"unknown retreat policy", func(c *Config) { c.Wizard.RetreatPolicy = "rewind" }},
		{"cache enabled without address", func(c *Config) { c.Cache.Enabled = true }},
		{"redis sink without stream", func(c *Config) { c.Events.Sink = SinkRedis; c.Events.RedisAddr = "r:6379" }},
		{"rate limit enabled with zero rate", func(c *Config) { c.RateLimit.TokensPerSecond = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDurationText(t *testing.T) {
	type doc struct {
		Timeout Duration `toml:"timeout"`
	}
	out, err := toml.Marshal(doc{Timeout: Duration(1500 * time.Millisecond)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "1.5s")

	var in doc
	require.NoError(t, toml.Unmarshal([]byte(`timeout = "2m"`), &in))
	assert.Equal(t, 2*time.Minute, in.Timeout.Std())

	require.Error(t, toml.Unmarshal([]byte(`timeout = "soon"`), &in))
}
