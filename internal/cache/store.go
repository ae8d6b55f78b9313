package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/utils"
)

// Store is the cache abstraction the services depend on. Implementations are
// fail-open: every method degrades to a miss / no-op when the backing store
// is unreachable, and no backing-store error ever reaches a caller.
type Store interface {
	// Get unmarshals the cached value into dest and reports whether it hit.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Del(ctx context.Context, keys ...string) bool
	// DelPattern deletes every key matching a glob pattern. The key space is
	// walked incrementally with SCAN; matches are removed in one UNLINK so a
	// caller never observes a partially deleted family.
	DelPattern(ctx context.Context, pattern string) bool
	Exists(ctx context.Context, key string) bool
	// MGet returns raw JSON for each key that hit; missing keys are absent.
	MGet(ctx context.Context, keys []string) map[string]json.RawMessage
	MSet(ctx context.Context, entries map[string]any, ttl time.Duration) bool
	Available() bool
}

const probeInterval = 30 * time.Second

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client

	available atomic.Bool
	lastProbe atomic.Int64 // unix nanos of the last failed-state probe
}

// NewRedisStore connects to Redis and returns a Store. An unreachable Redis
// is not an error: the store starts in the unavailable state and re-probes
// in the background of normal operations.
func NewRedisStore(log *logger.Logger) Store {
	storeLog := log.With("service", "RedisStore")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))
	password := utils.GetEnv("REDIS_PASSWORD", "", nil)
	db := utils.GetEnvAsInt("REDIS_DB", 0, nil)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	s := &redisStore{log: storeLog, rdb: rdb}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		storeLog.Warn("Redis unreachable, running without cache", "addr", addr, "error", err)
		s.available.Store(false)
		s.lastProbe.Store(time.Now().UnixNano())
	} else {
		storeLog.Info("Redis connected", "addr", addr)
		s.available.Store(true)
	}
	return s
}

func (s *redisStore) Available() bool {
	return s.ensureAvailable(context.Background())
}

// ensureAvailable reports whether the backing store is usable, re-pinging at
// most once per probeInterval while down.
func (s *redisStore) ensureAvailable(ctx context.Context) bool {
	if s.available.Load() {
		return true
	}
	last := time.Unix(0, s.lastProbe.Load())
	if time.Since(last) < probeInterval {
		return false
	}
	s.lastProbe.Store(time.Now().UnixNano())
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return false
	}
	s.log.Info("Redis became reachable again")
	s.available.Store(true)
	return true
}

func (s *redisStore) markDown(err error) {
	if s.available.CompareAndSwap(true, false) {
		s.log.Warn("Redis error, degrading to no-cache mode", "error", err)
	}
	s.lastProbe.Store(time.Now().UnixNano())
}

func (s *redisStore) Get(ctx context.Context, key string, dest any) bool {
	if !s.ensureAvailable(ctx) {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			s.markDown(err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		_ = s.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func (s *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !s.ensureAvailable(ctx) {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Error("Cache value not serializable", "key", key, "error", err)
		return false
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.markDown(err)
		return false
	}
	return true
}

func (s *redisStore) Del(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if !s.ensureAvailable(ctx) {
		return false
	}
	if err := s.rdb.Unlink(ctx, keys...).Err(); err != nil {
		s.markDown(err)
		return false
	}
	return true
}

func (s *redisStore) DelPattern(ctx context.Context, pattern string) bool {
	if !s.ensureAvailable(ctx) {
		return false
	}

	var matched []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		matched = append(matched, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.markDown(err)
		return false
	}
	if len(matched) == 0 {
		return true
	}
	if err := s.rdb.Unlink(ctx, matched...).Err(); err != nil {
		s.markDown(err)
		return false
	}
	return true
}

func (s *redisStore) Exists(ctx context.Context, key string) bool {
	if !s.ensureAvailable(ctx) {
		return false
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		s.markDown(err)
		return false
	}
	return n > 0
}

func (s *redisStore) MGet(ctx context.Context, keys []string) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	if len(keys) == 0 || !s.ensureAvailable(ctx) {
		return out
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		s.markDown(err)
		return out
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = json.RawMessage(str)
	}
	return out
}

func (s *redisStore) MSet(ctx context.Context, entries map[string]any, ttl time.Duration) bool {
	if len(entries) == 0 {
		return true
	}
	if !s.ensureAvailable(ctx) {
		return false
	}
	pipe := s.rdb.Pipeline()
	for key, value := range entries {
		raw, err := json.Marshal(value)
		if err != nil {
			s.log.Error("Cache value not serializable", "key", key, "error", err)
			continue
		}
		pipe.Set(ctx, key, raw, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.markDown(err)
		return false
	}
	return true
}
