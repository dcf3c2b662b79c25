package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpeters88/chatdesk/pkg/logging"
)

// Service is a tiered TTL cache over Redis. A nil or unreachable backend
// degrades to pass-through: every read is a miss and every write is a no-op.
// Callers must never depend on the cache for correctness.
type Service struct {
	client *redis.Client
	tracer trace.Tracer
	logger *logging.Logger
}

// New creates a cache service. client may be nil for a degraded instance.
func New(client *redis.Client, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		client: client,
		tracer: otel.Tracer("chatdesk.internal.cache"),
		logger: logger,
	}
}

// Get returns the value for key, or ok=false on a miss or backend failure.
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	if s == nil || s.client == nil {
		return "", false
	}
	ctx, span := s.tracer.Start(ctx, "cache.get")
	defer span.End()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

// Set stores value under key. ttlHint > 0 overrides the key's class TTL.
func (s *Service) Set(ctx context.Context, key, value string, ttlHint time.Duration) {
	if s == nil || s.client == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, "cache.set")
	defer span.End()

	ttl := ttlHint
	if ttl <= 0 {
		ttl = TTLFor(key)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache write failed, skipping", "key", key, "error", err)
	}
}

// Delete removes a single key.
func (s *Service) Delete(ctx context.Context, key string) {
	if s == nil || s.client == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, "cache.delete")
	defer span.End()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes every key matching the glob pattern and reports how
// many were deleted. Uses SCAN so large keyspaces are not blocked.
func (s *Service) DeleteByPrefix(ctx context.Context, pattern string) int {
	if s == nil || s.client == nil {
		return 0
	}
	ctx, span := s.tracer.Start(ctx, "cache.delete_by_prefix")
	defer span.End()

	deleted := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			span.RecordError(err)
			s.logger.Warn("cache delete failed during prefix sweep", "key", iter.Val(), "error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("cache prefix scan failed", "pattern", pattern, "error", err)
	}
	return deleted
}

// Available reports whether the backend answers a ping. Informational only.
func (s *Service) Available(ctx context.Context) bool {
	if s == nil || s.client == nil {
		return false
	}
	return s.client.Ping(ctx).Err() == nil
}
