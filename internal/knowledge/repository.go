// Package knowledge holds per-organization knowledge documents and the
// retrieval interfaces the conversation core consumes.
package knowledge

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const docsKeyPrefix = "knowledge:docs:"

// Repository persists organization knowledge snippets.
type Repository interface {
	AppendDocuments(ctx context.Context, orgID string, docs []string) error
	GetDocuments(ctx context.Context, orgID string) ([]string, error)
	ReplaceDocuments(ctx context.Context, orgID string, docs []string) error
}

// RedisRepository stores raw documents in Redis lists, one list per org.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a Redis-backed knowledge repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisRepository{client: client}
}

func docsKey(orgID string) string {
	return docsKeyPrefix + orgID
}

// AppendDocuments pushes new snippets onto the org's list.
func (r *RedisRepository) AppendDocuments(ctx context.Context, orgID string, docs []string) error {
	if len(docs) == 0 {
		return nil
	}
	args := make([]interface{}, len(docs))
	for i, d := range docs {
		args[i] = d
	}
	if err := r.client.RPush(ctx, docsKey(orgID), args...).Err(); err != nil {
		return fmt.Errorf("knowledge: failed to push documents: %w", err)
	}
	return nil
}

// GetDocuments retrieves all snippets for the org.
func (r *RedisRepository) GetDocuments(ctx context.Context, orgID string) ([]string, error) {
	docs, err := r.client.LRange(ctx, docsKey(orgID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("knowledge: failed to load documents: %w", err)
	}
	return docs, nil
}

// ReplaceDocuments overwrites all snippets for the org atomically.
func (r *RedisRepository) ReplaceDocuments(ctx context.Context, orgID string, docs []string) error {
	key := docsKey(orgID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(docs) > 0 {
		args := make([]interface{}, len(docs))
		for i, d := range docs {
			args[i] = d
		}
		pipe.RPush(ctx, key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("knowledge: failed to replace documents: %w", err)
	}
	return nil
}
