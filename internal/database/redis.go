package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps slots as plain keys under prefix + profile.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, addr, password string, db int, prefix, profile string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix + profile + ":"}, nil
}

func (s *RedisStore) key(slot string) string {
	return s.prefix + slot
}

func (s *RedisStore) Get(ctx context.Context, slot string) (string, error) {
	value, err := s.client.Get(ctx, s.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSlotEmpty
	}
	return value, err
}

func (s *RedisStore) Set(ctx context.Context, slot, value string) error {
	return s.client.Set(ctx, s.key(slot), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = s.key(slot)
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
