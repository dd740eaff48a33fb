// Package cache invalidates the backoffice read caches an envelope
// submission makes stale: the customer's documents, envelopes and
// campaigns, and the company-wide lists when the owner is a company.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliassehm/conformity/internal/domain"
)

// Cached collections affected by a new envelope.
const (
	CollectionDocuments = "documents"
	CollectionEnvelopes = "envelopes"
	CollectionCampaigns = "campaigns"
)

var collections = []string{CollectionDocuments, CollectionEnvelopes, CollectionCampaigns}

// ErrNoScope indicates an owner with neither customer nor company.
var ErrNoScope = errors.New("cache scope requires a customer or company")

// Keys returns the exact keys and the key patterns to drop for owner.
// Patterns cover paginated or filtered variants of each list.
func Keys(prefix string, owner domain.Owner) (keys, patterns []string, err error) {
	var scopes []string
	if owner.CustomerID != "" {
		scopes = append(scopes, "customer:"+owner.CustomerID)
	}
	if owner.CompanyID != "" {
		scopes = append(scopes, "company:"+owner.CompanyID)
	}
	if len(scopes) == 0 {
		return nil, nil, ErrNoScope
	}
	for _, s := range scopes {
		for _, c := range collections {
			base := fmt.Sprintf("%s:%s:%s", prefix, s, c)
			keys = append(keys, base)
			patterns = append(patterns, base+":*")
		}
	}
	return keys, patterns, nil
}

// Invalidator drops cached reads for an owner.
type Invalidator interface {
	Invalidate(ctx context.Context, owner domain.Owner) error
}

// RedisInvalidator deletes cache keys from Redis.
type RedisInvalidator struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisInvalidator creates an invalidator for keys under prefix.
func NewRedisInvalidator(client redis.UniversalClient, prefix string) *RedisInvalidator {
	return &RedisInvalidator{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "cache"),
	}
}

// scanBatch is the SCAN COUNT hint.
const scanBatch = 200

// Invalidate implements Invalidator. Exact keys go in one UNLINK; pattern
// matches are collected with SCAN and unlinked in batches.
func (r *RedisInvalidator) Invalidate(ctx context.Context, owner domain.Owner) error {
	keys, patterns, err := Keys(r.prefix, owner)
	if err != nil {
		return err
	}

	removed, err := r.client.Unlink(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("unlink cache keys: %w", err)
	}

	for _, pattern := range patterns {
		iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
		batch := make([]string, 0, scanBatch)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				n, err := r.client.Unlink(ctx, batch...).Result()
				if err != nil {
					return fmt.Errorf("unlink %s: %w", pattern, err)
				}
				removed += n
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(batch) > 0 {
			n, err := r.client.Unlink(ctx, batch...).Result()
			if err != nil {
				return fmt.Errorf("unlink %s: %w", pattern, err)
			}
			removed += n
		}
	}

	r.logger.DebugContext(ctx, "read caches invalidated",
		"customer_id", owner.CustomerID,
		"company_id", owner.CompanyID,
		"removed", removed)
	return nil
}

// Noop is used when no cache is configured.
type Noop struct{}

// Invalidate implements Invalidator.
func (Noop) Invalidate(context.Context, domain.Owner) error { return nil }
