package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// LocalStore keeps device-side JSON blobs in Redis. Keys live under prefix:
//
//	{prefix}unsyncedScores, {prefix}generalScores, {prefix}chat_messages_{classId}, ...
//
// Values never expire; the offline buffer must outlive any TTL.
type LocalStore struct {
	client *redis.Client
	prefix string
}

func NewLocalStore(client *redis.Client, prefix string) *LocalStore {
	return &LocalStore{client: client, prefix: prefix}
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *LocalStore) key(k string) string {
	return s.prefix + k
}
