package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVStore is a string key-value view over Redis with a fixed key prefix
// and an optional TTL applied on every write.
type KVStore struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewKVStore returns a store whose keys live under prefix.
func NewKVStore(client *Client, prefix string, ttl time.Duration) (*KVStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &KVStore{client: client, prefix: strings.TrimSpace(prefix), ttl: ttl}, nil
}

func (s *KVStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the stored value and whether the key exists.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl)
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key))
}
