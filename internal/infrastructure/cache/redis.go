package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ContentDigest/internal/ports"
)

const defaultDialTimeout = 5 * time.Second

// RedisOptions selects a Redis deployment. URL wins over Addrs when both are set.
type RedisOptions struct {
	URL          string
	Addrs        []string
	MasterName   string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache is the shared dedup backend for multi-process deployments.
type RedisCache struct {
	client goredis.UniversalClient
	prefix string
}

var _ ports.KeyValueCache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client.
func NewRedisCache(client goredis.UniversalClient, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix}
}

// DialRedis connects and pings. go-redis picks the topology: MasterName means Sentinel,
// several Addrs mean Cluster, one Addr is standalone.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCache(client, opts.KeyPrefix), nil
}

func newClient(opts RedisOptions) (goredis.UniversalClient, error) {
	dial := orDefault(opts.DialTimeout)
	read := orDefault(opts.ReadTimeout)
	write := orDefault(opts.WriteTimeout)

	if opts.URL != "" {
		parsed, err := goredis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if parsed.DialTimeout == 0 {
			parsed.DialTimeout = dial
		}
		if parsed.ReadTimeout == 0 {
			parsed.ReadTimeout = read
		}
		if parsed.WriteTimeout == 0 {
			parsed.WriteTimeout = write
		}
		return goredis.NewClient(parsed), nil
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redis url or at least one address is required")
	}
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        opts.Addrs,
		MasterName:   opts.MasterName,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dial,
		ReadTimeout:  read,
		WriteTimeout: write,
	}), nil
}

func orDefault(d time.Duration) time.Duration {
	if d == 0 {
		return defaultDialTimeout
	}
	return d
}

// Exists reports whether the key is live.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Set stores value under key; a zero ttl keeps the key until evicted.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
