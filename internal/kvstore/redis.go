package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps each key as a plain Redis string under a namespace.
type RedisStore struct {
	redis     *redis.Client
	namespace string
	tracer    trace.Tracer
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if client == nil {
		panic("kvstore: redis client cannot be nil")
	}
	return &RedisStore{
		redis:     client,
		namespace: namespace,
		tracer:    otel.Tracer("medassist.internal.kvstore.redis"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "kvstore.redis.get")
	defer span.End()

	v, err := s.redis.Get(ctx, namespacedKey(s.namespace, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		span.RecordError(err)
		return "", fmt.Errorf("kvstore: redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "kvstore.redis.set")
	defer span.End()

	if err := s.redis.Set(ctx, namespacedKey(s.namespace, key), value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "kvstore.redis.delete")
	defer span.End()

	if err := s.redis.Del(ctx, namespacedKey(s.namespace, key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis delete %s: %w", key, err)
	}
	return nil
}
