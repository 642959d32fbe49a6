// internal/storage/redis.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps snapshots as JSON values in Redis under
// "odyssey:snapshot:{name}" keys. Values carry no TTL; a save session is
// expected to overwrite them for the lifetime of the save.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures the Redis snapshot store connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "odyssey:snapshot"
}

// NewRedisSnapshotStore connects to Redis and verifies the connection.
func NewRedisSnapshotStore(ctx context.Context, opts RedisOptions) (*RedisSnapshotStore, error) {
	if opts.Prefix == "" {
		opts.Prefix = "odyssey:snapshot"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisSnapshotStore{client: client, prefix: opts.Prefix}, nil
}

func (rs *RedisSnapshotStore) key(name string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, name)
}

// Save overwrites the whole snapshot value.
func (rs *RedisSnapshotStore) Save(ctx context.Context, name string, v interface{}) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot %s: %w", name, err)
	}
	if err := rs.client.Set(ctx, rs.key(name), content, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads a snapshot into v. A missing key is not an error.
func (rs *RedisSnapshotStore) Load(ctx context.Context, name string, v interface{}) (bool, error) {
	content, err := rs.client.Get(ctx, rs.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	if err := json.Unmarshal(content, v); err != nil {
		return false, fmt.Errorf("failed to parse snapshot %s: %w", name, err)
	}
	return true, nil
}

// Delete removes a snapshot key.
func (rs *RedisSnapshotStore) Delete(ctx context.Context, name string) error {
	if err := rs.client.Del(ctx, rs.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (rs *RedisSnapshotStore) Close() error {
	return rs.client.Close()
}

var _ SnapshotStore = (*RedisSnapshotStore)(nil)
