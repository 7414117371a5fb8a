package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

const redisKeyPrefix = "hybridrag:l1:"

// RedisConfig configures the durable backing of the exact-match tier.
type RedisConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	TTL          time.Duration `yaml:"ttl" json:"ttl"`
}

// RedisStore persists exact-match entries in redis so L1 survives process
// restarts. All methods map backend failures to errors; the manager treats
// them as misses.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrCacheError, "failed to connect to redis").WithCause(err)
	}

	logger.Info("redis exact store connected", zap.String("addr", cfg.Addr))

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "redis_store")),
	}, nil
}

// Get fetches an entry by fingerprint. Returns ErrCacheMiss when absent.
func (s *RedisStore) Get(ctx context.Context, key string) (*types.CacheEntry, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, types.NewError(types.ErrCacheError, "redis get failed").WithCause(err)
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, types.NewError(types.ErrCacheError, "redis entry decode failed").WithCause(err)
	}
	if entry.Expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Set stores an entry under its fingerprint.
func (s *RedisStore) Set(ctx context.Context, entry *types.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return types.NewError(types.ErrCacheError, "redis entry encode failed").WithCause(err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+entry.Key, data, s.ttl).Err(); err != nil {
		return types.NewError(types.ErrCacheError, "redis set failed").WithCause(err)
	}
	return nil
}

// Delete removes a fingerprint.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return types.NewError(types.ErrCacheError, "redis delete failed").WithCause(err)
	}
	return nil
}

// DeleteMatching scans the store and removes entries whose original query
// matches the glob pattern, so invalidated results cannot refill the LRU.
// Returns the number removed.
func (s *RedisStore) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, types.NewError(types.ErrCacheError, "redis get failed").WithCause(err)
		}

		var entry types.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		query := ""
		if entry.Value != nil && entry.Value.Metadata != nil {
			query = entry.Value.Metadata.OriginalQuery
		}
		if ok, _ := matchPattern(pattern, query); !ok {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, types.NewError(types.ErrCacheError, "redis delete failed").WithCause(err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, types.NewError(types.ErrCacheError, "redis scan failed").WithCause(err)
	}
	return removed, nil
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
