package appointments

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBlob keeps the collection under a single Redis key with no expiry.
type RedisBlob struct {
	client *redis.Client
	key    string
}

// NewRedisBlob creates a blob stored at key.
func NewRedisBlob(client *redis.Client, key string) *RedisBlob {
	if client == nil {
		panic("appointments: redis client cannot be nil")
	}
	if strings.TrimSpace(key) == "" {
		key = "healthy_life_appointments"
	}
	return &RedisBlob{client: client, key: key}
}

func (b *RedisBlob) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *RedisBlob) Write(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, b.key, data, 0).Err()
}
