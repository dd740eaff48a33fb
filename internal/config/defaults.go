package config

import "time"

// Retry constants.
const (
	DefaultMaxAttempts       = 3
	DefaultMaxElapsedTime    = 45 * time.Second
	DefaultInitialInterval   = 250 * time.Millisecond
	DefaultMaxInterval       = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// Circuit breaker constants.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultOpenTimeout      = 30 * time.Second
	DefaultHalfOpenProbes   = 1
)

// Call timeouts. Conversion dominates: it renders a full document.
const (
	DefaultMaterializeTimeout = 30 * time.Second
	DefaultFetchTimeout       = 30 * time.Second
	DefaultConvertTimeout     = 2 * time.Minute
	DefaultRPCTimeout         = 15 * time.Second
	DefaultUploadTimeout      = 60 * time.Second
)

// Fan-out and naming constants.
const (
	DefaultFetchConcurrency  = 4
	DefaultUploadConcurrency = 4
	DefaultPresignExpiry     = 15 * time.Minute
	DefaultSignatureMarker   = "{{signature}}"
	DefaultSignatureStyle    = "SignatureZone"
	DefaultCachePrefix       = "backoffice"
	DefaultTaskQueue         = "conformity-envelopes"
)

// DefaultConfig returns a configuration usable against a local stack.
func DefaultConfig() *Config {
	return &Config{
		Backoffice: BackofficeConfig{
			Endpoint: "http://localhost:4000/graphql",
			TokenEnv: "CONFORMITY_BACKOFFICE_TOKEN",
		},
		Timeouts: TimeoutConfig{
			Materialize:    Duration(DefaultMaterializeTimeout),
			Fetch:          Duration(DefaultFetchTimeout),
			Convert:        Duration(DefaultConvertTimeout),
			IssueTargets:   Duration(DefaultRPCTimeout),
			Upload:         Duration(DefaultUploadTimeout),
			CreateEnvelope: Duration(DefaultRPCTimeout),
			LinkCampaign:   Duration(DefaultRPCTimeout),
			Notify:         Duration(DefaultRPCTimeout),
		},
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			MaxElapsedTime:  Duration(DefaultMaxElapsedTime),
			InitialInterval: Duration(DefaultInitialInterval),
			MaxInterval:     Duration(DefaultMaxInterval),
			Multiplier:      DefaultBackoffMultiplier,
			UseJitter:       true,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			TokensPerSecond: DefaultTokensPerSecond,
			BurstSize:       DefaultBurstSize,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: DefaultFailureThreshold,
			SuccessThreshold: DefaultSuccessThreshold,
			OpenTimeout:      Duration(DefaultOpenTimeout),
			HalfOpenProbes:   DefaultHalfOpenProbes,
		},
		Storage: StorageConfig{
			Mode:          StorageBackoffice,
			Region:        "eu-west-3",
			Prefix:        "conformity",
			PresignExpiry: Duration(DefaultPresignExpiry),
		},
		Cache: CacheConfig{
			KeyPrefix: DefaultCachePrefix,
		},
		Events: EventsConfig{
			Sink:   SinkLog,
			MaxLen: 10000,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: DefaultTaskQueue,
		},
		Wizard: WizardConfig{
			RetreatPolicy:   RetreatPreserveNormalized,
			SignatureMarker: DefaultSignatureMarker,
			SignatureStyle:  DefaultSignatureStyle,
		},
		Sourcing: SourcingConfig{
			FetchConcurrency:  DefaultFetchConcurrency,
			UploadConcurrency: DefaultUploadConcurrency,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}
