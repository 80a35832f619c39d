package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vjranagit/drought/pkg/table"
)

// RedisStore implements Store on a shared redis instance. Every key is
// namespaced with a prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	codec  *Codec
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(addr, prefix string, codec *Codec) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix, codec), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string, codec *Codec) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, codec: codec}
}

// PrefixKey returns the redis key for a table key
func (s *RedisStore) PrefixKey(key string) string {
	return s.prefix + key
}

// Save implements Store.Save
func (s *RedisStore) Save(ctx context.Context, key string, t *table.Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	payload, err := s.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("failed to encode table %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.PrefixKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write table %s: %w", key, err)
	}
	return nil
}

// Load implements Store.Load
func (s *RedisStore) Load(ctx context.Context, key string) (*table.Table, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	payload, err := s.client.Get(ctx, s.PrefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", key, err)
	}
	return s.codec.Decode(payload)
}

// Keys implements Store.Keys
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete implements Store.Delete
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.client.Del(ctx, s.PrefixKey(key)).Err()
}

// Close implements Store.Close
func (s *RedisStore) Close() error {
	defer s.codec.Close()
	return s.client.Close()
}
