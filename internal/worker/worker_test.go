package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkactivity "go.temporal.io/sdk/activity"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/cache"
	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/workflow"
	"github.com/iliassehm/conformity/pkg/events"
)

type recordingRegistry struct {
	workflows  int
	activities []string
}

func (r *recordingRegistry) RegisterWorkflow(any) { r.workflows++ }

func (r *recordingRegistry) RegisterActivityWithOptions(_ any, o sdkactivity.RegisterOptions) {
	r.activities = append(r.activities, o.Name)
}

func TestNewStackDefaults(t *testing.T) {
	s, err := NewStack(context.Background(), config.DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	assert.IsType(t, &artifact.InMemoryStore{}, s.Artifacts)
	assert.IsType(t, cache.Noop{}, s.Invalidator)
	assert.IsType(t, &events.LogSink{}, s.Sink)
	assert.NotNil(t, s.Aggregator)
	assert.NotNil(t, s.Normalizer)
	assert.NotNil(t, s.Transaction)
}

func TestNewStackSinks(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Config)
		want any
	}{
		{"noop", func(c *config.Config) { c.Events.Sink = config.SinkNoop }, events.NewNoOpEventSink()},
		{"redis", func(c *config.Config) {
			c.Events.Sink = config.SinkRedis
			c.Events.Stream = "conformity-events"
			c.Events.RedisAddr = "localhost:6379"
		}, &events.RedisStreamSink{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.edit(cfg)
			s, err := NewStack(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s.Sink)
		})
	}
}

func TestNewStackRedisCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.RedisAddr = "localhost:6379"

	s, err := NewStack(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &cache.RedisInvalidator{}, s.Invalidator)
}

func TestNewStackRejectsBadRetryConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Retry.MaxAttempts = 0

	_, err := NewStack(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestRegisterAll(t *testing.T) {
	s, err := NewStack(context.Background(), config.DefaultConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	var r recordingRegistry
	RegisterAll(&r, s)

	assert.Equal(t, 1, r.workflows)
	assert.Equal(t, []string{
		workflow.ActivitySourceDocuments,
		workflow.ActivityNormalizeDocuments,
		workflow.ActivitySubmitEnvelope,
	}, r.activities)
}
