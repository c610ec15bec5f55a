package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// snapshotTTL bounds how long a cached document snapshot survives after
// the last room touched it.
const snapshotTTL = 15 * time.Minute

// RedisStore caches hot document snapshots and backs the rate limiter.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that keeps its
// own keys (rate limiting, IP blocking).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// snapshotKey returns the key for a document's cached content.
func snapshotKey(documentID string) string {
	return fmt.Sprintf("doc:%s:content", documentID)
}

// CacheSnapshot stores a document's current content with a TTL. Rooms
// refresh it on every flush so reopening a recently edited document
// skips the database read.
func (s *RedisStore) CacheSnapshot(ctx context.Context, documentID, content string) error {
	return s.client.Set(ctx, snapshotKey(documentID), content, snapshotTTL).Err()
}

// GetSnapshot retrieves a cached document snapshot. The second return
// value reports whether the cache held one.
func (s *RedisStore) GetSnapshot(ctx context.Context, documentID string) (string, bool, error) {
	val, err := s.client.Get(ctx, snapshotKey(documentID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// DropSnapshot removes a cached snapshot, used when a room is evicted
// after its content has been flushed to the durable store.
func (s *RedisStore) DropSnapshot(ctx context.Context, documentID string) error {
	return s.client.Del(ctx, snapshotKey(documentID)).Err()
}
