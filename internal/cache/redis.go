package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a remote cache backed by go-redis. Every operation that fails
// against the server falls through to an embedded in-process Memory cache so
// a dead Redis never fails a request; failures are logged once per call.
type Redis struct {
	client   *redis.Client
	fallback *Memory
	log      *slog.Logger
}

// RedisOptions configures the Redis cache backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// MaxItems bounds the embedded in-process fallback store.
	MaxItems int
	Logger   *slog.Logger
}

// NewRedis creates a Redis-backed cache. The connection is verified with a
// short ping; on failure the cache still works, serving purely from the
// in-process fallback until the server comes back.
func NewRedis(ctx context.Context, opts RedisOptions) *Redis {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, serving from in-process cache", "addr", opts.Addr, "error", err)
	}

	return &Redis{
		client:   client,
		fallback: NewMemory(opts.MaxItems),
		log:      logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return value, true
	}
	if err != redis.Nil {
		r.log.Warn("redis get failed", "key", key, "error", err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Warn("redis set failed", "key", key, "error", err)
	}
	// Mirror into the fallback so reads survive a Redis outage.
	r.fallback.Set(ctx, key, value, ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Warn("redis delete failed", "key", key, "error", err)
	}
	r.fallback.Delete(ctx, key)
}

func (r *Redis) Invalidate(ctx context.Context, prefix string) {
	if prefix == "" {
		if err := r.client.FlushDB(ctx).Err(); err != nil {
			r.log.Warn("redis flush failed", "error", err)
		}
	} else {
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
			if err != nil {
				r.log.Warn("redis scan failed", "prefix", prefix, "error", err)
				break
			}
			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					r.log.Warn("redis delete failed", "prefix", prefix, "error", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	r.fallback.Invalidate(ctx, prefix)
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
