package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventPublisher pushes mutation events onto a per-user pub/sub channel.
// Sessions without listeners simply drop the message; that is the intended
// at-most-once behavior.
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

// UserEventChannel names the pub/sub channel carrying a user's events.
func UserEventChannel(userID uint) string {
	return fmt.Sprintf("events:user:%d", userID)
}

func (p *RedisEventPublisher) Publish(ctx context.Context, userID uint, payload []byte) error {
	if p.client == nil {
		return nil
	}
	return p.client.Publish(ctx, UserEventChannel(userID), payload).Err()
}

type RedisTokenBlacklist struct {
	client *redis.Client
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func blacklistKey(token string) string {
	return "auth:blacklist:" + token
}

func (b *RedisTokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b.client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return b.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

func (b *RedisTokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
