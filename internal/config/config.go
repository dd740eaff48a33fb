// Package config holds the runtime configuration of the envelope
// pipeline: backoffice endpoint and resilience, object storage, read-cache
// invalidation, event emission, the Temporal worker and wizard behavior.
package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes "30s" style text in
// TOML and JSON documents.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the root configuration document.
type Config struct {
	Backoffice     BackofficeConfig     `toml:"backoffice" json:"backoffice"`
	Timeouts       TimeoutConfig        `toml:"timeouts" json:"timeouts"`
	Retry          RetryConfig          `toml:"retry" json:"retry"`
	RateLimit      RateLimitConfig      `toml:"rate_limit" json:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `toml:"circuit_breaker" json:"circuit_breaker"`
	Storage        StorageConfig        `toml:"storage" json:"storage"`
	Cache          CacheConfig          `toml:"cache" json:"cache"`
	Events         EventsConfig         `toml:"events" json:"events"`
	Temporal       TemporalConfig       `toml:"temporal" json:"temporal"`
	Wizard         WizardConfig         `toml:"wizard" json:"wizard"`
	Sourcing       SourcingConfig       `toml:"sourcing" json:"sourcing"`
	Observability  ObservabilityConfig  `toml:"observability" json:"observability"`
}

// BackofficeConfig locates the GraphQL backoffice.
type BackofficeConfig struct {
	Endpoint string `toml:"endpoint" json:"endpoint" validate:"required,url"`
	Token    string `toml:"-" json:"-"`
	TokenEnv string `toml:"token_env" json:"token_env"`
}

// TimeoutConfig bounds each external call. Zero disables the bound.
type TimeoutConfig struct {
	Materialize    Duration `toml:"materialize" json:"materialize"`
	Fetch          Duration `toml:"fetch" json:"fetch"`
	Convert        Duration `toml:"convert" json:"convert"`
	IssueTargets   Duration `toml:"issue_targets" json:"issue_targets"`
	Upload         Duration `toml:"upload" json:"upload"`
	CreateEnvelope Duration `toml:"create_envelope" json:"create_envelope"`
	LinkCampaign   Duration `toml:"link_campaign" json:"link_campaign"`
	Notify         Duration `toml:"notify" json:"notify"`
}

// RetryConfig controls retries of transient backoffice failures.
type RetryConfig struct {
	MaxAttempts     int      `toml:"max_attempts" json:"max_attempts" validate:"gte=1"`
	MaxElapsedTime  Duration `toml:"max_elapsed_time" json:"max_elapsed_time" validate:"gte=0"`
	InitialInterval Duration `toml:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval     Duration `toml:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64  `toml:"multiplier" json:"multiplier" validate:"gte=1"`
	UseJitter       bool     `toml:"use_jitter" json:"use_jitter"`
}

// RateLimitConfig is a local token bucket per operation.
type RateLimitConfig struct {
	Enabled         bool    `toml:"enabled" json:"enabled"`
	TokensPerSecond float64 `toml:"tokens_per_second" json:"tokens_per_second" validate:"gte=0"`
	BurstSize       int     `toml:"burst_size" json:"burst_size" validate:"gte=0"`
}

// CircuitBreakerConfig trips a per-operation breaker after consecutive
// transient failures.
type CircuitBreakerConfig struct {
	Enabled          bool     `toml:"enabled" json:"enabled"`
	FailureThreshold int      `toml:"failure_threshold" json:"failure_threshold" validate:"gte=1"`
	SuccessThreshold int      `toml:"success_threshold" json:"success_threshold" validate:"gte=1"`
	OpenTimeout      Duration `toml:"open_timeout" json:"open_timeout" validate:"gt=0"`
	HalfOpenProbes   int      `toml:"half_open_probes" json:"half_open_probes" validate:"gte=1"`
}

// Storage modes.
const (
	StorageBackoffice = "backoffice"
	StorageS3         = "s3"
)

// StorageConfig selects where document binaries go. In backoffice mode
// upload targets and normalization uploads are RPCs; in s3 mode they are
// presigned and written directly.
type StorageConfig struct {
	Mode            string   `toml:"mode" json:"mode" validate:"oneof=backoffice s3"`
	Bucket          string   `toml:"bucket" json:"bucket" validate:"required_if=Mode s3"`
	Region          string   `toml:"region" json:"region"`
	Endpoint        string   `toml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	UsePathStyle    bool     `toml:"use_path_style" json:"use_path_style"`
	Prefix          string   `toml:"prefix" json:"prefix"`
	PresignExpiry   Duration `toml:"presign_expiry" json:"presign_expiry" validate:"gt=0"`
	AccessKeyID     string   `toml:"-" json:"-"`
	SecretAccessKey string   `toml:"-" json:"-"`
}

// CacheConfig locates the read caches invalidated after submission.
type CacheConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	RedisAddr string `toml:"redis_addr" json:"redis_addr" validate:"required_if=Enabled true"`
	RedisDB   int    `toml:"redis_db" json:"redis_db" validate:"gte=0"`
	Password  string `toml:"-" json:"-"`
	KeyPrefix string `toml:"key_prefix" json:"key_prefix"`
}

// Event sink kinds.
const (
	SinkNoop  = "noop"
	SinkLog   = "log"
	SinkRedis = "redis"
)

// EventsConfig selects the domain event sink.
type EventsConfig struct {
	Sink      string `toml:"sink" json:"sink" validate:"oneof=noop log redis"`
	Stream    string `toml:"stream" json:"stream" validate:"required_if=Sink redis"`
	MaxLen    int64  `toml:"max_len" json:"max_len" validate:"gte=0"`
	RedisAddr string `toml:"redis_addr" json:"redis_addr" validate:"required_if=Sink redis"`
}

// TemporalConfig locates the Temporal frontend.
type TemporalConfig struct {
	HostPort  string `toml:"host_port" json:"host_port" validate:"required"`
	Namespace string `toml:"namespace" json:"namespace" validate:"required"`
	TaskQueue string `toml:"task_queue" json:"task_queue" validate:"required"`
}

// Retreat policies.
const (
	RetreatPreserveNormalized = "preserve_normalized"
	RetreatResetToSourcing    = "reset_to_sourcing"
)

// WizardConfig tunes interactive behavior and normalization styling.
type WizardConfig struct {
	RetreatPolicy   string `toml:"retreat_policy" json:"retreat_policy" validate:"oneof=preserve_normalized reset_to_sourcing"`
	SignatureMarker string `toml:"signature_marker" json:"signature_marker" validate:"required"`
	SignatureStyle  string `toml:"signature_style" json:"signature_style" validate:"required"`
}

// SourcingConfig bounds sourcing fan-out.
type SourcingConfig struct {
	DefaultCategory   string `toml:"default_category" json:"default_category"`
	FetchConcurrency  int    `toml:"fetch_concurrency" json:"fetch_concurrency" validate:"gte=1"`
	UploadConcurrency int    `toml:"upload_concurrency" json:"upload_concurrency" validate:"gte=1"`
}

// ObservabilityConfig controls logging.
type ObservabilityConfig struct {
	LogLevel  string `toml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" json:"log_format" validate:"oneof=text json"`
}
