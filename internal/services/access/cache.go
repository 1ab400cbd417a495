package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "access:"

// CachedSource memoizes the facts of another FactsSource in Redis. Entries live under the
// current generation and expire after ttl. Invalidate bumps the generation, so entries
// written by loads that started before it are never read again.
type CachedSource struct {
	next      FactsSource
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

func NewCachedSource(next FactsSource, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:      next,
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultKeyPrefix,
	}
}

func (c *CachedSource) generationKey() string {
	return c.keyPrefix + "gen"
}

func (c *CachedSource) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedSource) key(gen int64, subject Subject, target Target) string {
	return fmt.Sprintf("%s%d:%s:%s:%s", c.keyPrefix, gen, target.Kind, target, subject.cacheKey())
}

func (c *CachedSource) WorkspaceFacts(ctx context.Context, subject Subject, target Target) (*WorkspaceFacts, error) {
	return cached(ctx, c, subject, target, func() (*WorkspaceFacts, error) {
		return c.next.WorkspaceFacts(ctx, subject, target)
	})
}

func (c *CachedSource) ProjectFacts(ctx context.Context, subject Subject, target Target) (*ProjectFacts, error) {
	return cached(ctx, c, subject, target, func() (*ProjectFacts, error) {
		return c.next.ProjectFacts(ctx, subject, target)
	})
}

func cached[T any](ctx context.Context, c *CachedSource, subject Subject, target Target, load func() (*T, error)) (*T, error) {
	// The generation is read before loading so a concurrent Invalidate orphans this entry
	gen, err := c.generation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Access cache unavailable", slog.Any("error", err))
		return load()
	}
	key := c.key(gen, subject, target)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var facts T
		if err := sonic.Unmarshal(raw, &facts); err == nil {
			return &facts, nil
		}
		slog.WarnContext(ctx, "Dropping malformed access cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "Access cache unavailable", slog.Any("error", err))
	}

	facts, err := load()
	if err != nil {
		return nil, err
	}

	if payload, err := sonic.Marshal(facts); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "Unable to store access facts", slog.Any("error", err))
		}
	}
	return facts, nil
}

// Invalidate moves the cache to a new generation. Older entries are left to expire.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate access cache: %w", err)
	}
	return nil
}
