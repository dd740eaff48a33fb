// Package worker builds the envelope pipeline from configuration and
// registers it with a Temporal worker. Construction happens once at
// startup; activity packages stay free of wiring.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/backoffice"
	"github.com/iliassehm/conformity/internal/cache"
	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/normalize"
	"github.com/iliassehm/conformity/internal/resilience"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/storage/httpblob"
	"github.com/iliassehm/conformity/internal/storage/s3"
	"github.com/iliassehm/conformity/internal/submission"
	"github.com/iliassehm/conformity/internal/transport"
	"github.com/iliassehm/conformity/pkg/activity"
	"github.com/iliassehm/conformity/pkg/events"
)

// Stack is the set of collaborators every entry point shares.
type Stack struct {
	Backoffice  *backoffice.Client
	Blobs       *httpblob.Client
	Artifacts   artifact.Store
	Sink        events.EventSink
	Invalidator submission.Invalidator
	Aggregator  *sourcing.Aggregator
	Normalizer  *normalize.Normalizer
	Transaction *submission.Transaction
	RetryStats  *resilience.RetryStats

	closers []func() error
}

// targetStore issues upload targets and accepts normalization uploads.
type targetStore interface {
	submission.TargetIssuer
	normalize.Uploader
}

// NewStack builds the pipeline described by cfg. Close releases the
// Redis clients it opened.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stack{RetryStats: &resilience.RetryStats{}}

	core := transport.NewGraphQLHandler(&http.Client{}, cfg.Backoffice.Endpoint, transport.BearerToken(cfg.Backoffice.Token))
	handler, err := resilience.NewPipeline(core, cfg, logger, s.RetryStats)
	if err != nil {
		return nil, fmt.Errorf("build backoffice pipeline: %w", err)
	}
	s.Backoffice = backoffice.New(handler)
	s.Blobs = httpblob.New(&http.Client{}, httpblob.WithTimeout(cfg.Timeouts.Fetch.Std()))

	var targets targetStore = s.Backoffice
	switch cfg.Storage.Mode {
	case config.StorageS3:
		store, err := s3.New(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		targets = store
		s.Artifacts = store
	default:
		s.Artifacts = artifact.NewInMemoryStore()
	}

	s.Invalidator = cache.Noop{}
	if cfg.Cache.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			DB:       cfg.Cache.RedisDB,
			Password: cfg.Cache.Password,
		})
		s.closers = append(s.closers, rc.Close)
		s.Invalidator = cache.NewRedisInvalidator(rc, cfg.Cache.KeyPrefix)
	}

	switch cfg.Events.Sink {
	case config.SinkLog:
		s.Sink = events.NewLogSink(logger)
	case config.SinkRedis:
		rc := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
		s.closers = append(s.closers, rc.Close)
		s.Sink = events.NewRedisStreamSink(rc, cfg.Events.Stream, cfg.Events.MaxLen)
	default:
		s.Sink = events.NewNoOpEventSink()
	}

	s.Aggregator = sourcing.NewAggregator(s.Backoffice, s.Blobs,
		sourcing.WithFetchConcurrency(cfg.Sourcing.FetchConcurrency),
		sourcing.WithLogger(logger))

	s.Normalizer = normalize.New(normalize.NewDocumentEditors(), targets, s.Backoffice, s.Blobs,
		normalize.WithSignatureZone(cfg.Wizard.SignatureMarker, cfg.Wizard.SignatureStyle),
		normalize.WithProgress(func(ctx context.Context, _ domain.Document, done, total int) {
			activity.RecordHeartbeat(ctx, done, total)
		}),
		normalize.WithLogger(logger))

	s.Transaction = submission.New(targets, s.Blobs, s.Backoffice, s.Invalidator,
		submission.WithUploadConcurrency(cfg.Sourcing.UploadConcurrency),
		submission.WithLogger(logger))

	return s, nil
}

// Close releases external clients.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
