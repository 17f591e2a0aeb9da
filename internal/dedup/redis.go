package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "dingd:delivery:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Redis is a Store shared between replicas, backed by SET NX with expiry.
type Redis struct {
	client    redis.Cmdable
	closer    func() error
	keyPrefix string
	ttl       time.Duration
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	r := NewRedisWithClient(client, cfg.KeyPrefix, cfg.TTL)
	r.closer = client.Close
	return r, nil
}

// NewRedisWithClient wraps an existing client. The caller keeps ownership.
func NewRedisWithClient(client redis.Cmdable, keyPrefix string, ttl time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *Redis) key(id string) string { return r.keyPrefix + id }

func (r *Redis) Seen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	set, err := r.client.SetNX(ctx, r.key(id), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", id, err)
	}
	return !set, nil
}

func (r *Redis) Forget(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("dedup forget %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
