package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"source", event.Source,
		"session_id", event.SessionID,
		"idempotency_key", event.IdempotencyKey,
		"payload", string(event.Payload))
	return nil
}

// RedisStreamSink appends events to a Redis stream. Idempotency keys are
// remembered in a companion set so retried emissions are dropped.
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink writing to stream, trimmed
// approximately to maxLen entries when maxLen > 0.
func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Append implements EventSink.
func (s *RedisStreamSink) Append(ctx context.Context, event Event) error {
	if event.IdempotencyKey != "" {
		added, err := s.client.SAdd(ctx, s.stream+":seen", event.IdempotencyKey).Result()
		if err != nil {
			return fmt.Errorf("record idempotency key: %w", err)
		}
		if added == 0 {
			return nil
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"type": event.Type, "event": body},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append event to stream %s: %w", s.stream, err)
	}
	return nil
}

// Recorder keeps events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Append implements EventSink.
func (r *Recorder) Append(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
