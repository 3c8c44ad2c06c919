package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores the completion set as a JSON array under the fixed
// StorageKey.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Redis-backed progress store.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Load(ctx context.Context) ([]string, error) {
	data, err := b.client.Get(ctx, StorageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress key: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode progress value: %w", err)
	}
	return ids, nil
}

func (b *RedisBackend) Save(ctx context.Context, topicIDs []string) error {
	if topicIDs == nil {
		topicIDs = []string{}
	}
	data, err := json.Marshal(topicIDs)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	if err := b.client.Set(ctx, StorageKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set progress key: %w", err)
	}
	return nil
}
