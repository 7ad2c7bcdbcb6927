package tokenstore

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"
)

// keyPrefix namespaces token keys in a potentially shared Redis instance.
const keyPrefix = "bookmarkd:token:"

// RedisStore persists tokens in a managed key-value service via rueidis.
//
// Reads deliberately use plain GET (not DoCache): the store can be shared by
// several processes and a client-side cache would violate the freshness
// contract of TokenStore.
type RedisStore struct {
	client rueidis.Client
}

// Compile-time check to ensure RedisStore implements TokenStore
var _ TokenStore = (*RedisStore)(nil)

// RedisOptions contains configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore creates a RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// NewRedisStoreFromOptions creates a RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
		// Server-assisted client caching is unused; opt out of the
		// invalidation bookkeeping entirely.
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() {
	r.client.Close()
}

// Get returns the token stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	cmd := r.client.B().Get().Key(keyPrefix + key).Build()
	value, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get token from redis: %w", err)
	}
	if value == "" {
		return "", ErrNotFound
	}

	return value, nil
}

// Set stores the token under key. No TTL: tokens stay until overwritten.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Set().Key(keyPrefix + key).Value(value).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}

	return nil
}
