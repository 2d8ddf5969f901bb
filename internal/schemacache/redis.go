package schemacache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "dataconnect:schema:"

// RedisClient is the subset of redis.Cmdable used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisEnvelope struct {
	Values    []string  `json:"values"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore shares the cache between API replicas. Redis enforces the
// sliding deadline through key expiry; the absolute deadline is tracked in
// the stored envelope.
type RedisStore struct {
	client RedisClient
	logger zerolog.Logger
	now    Clock
}

func NewRedisStore(client RedisClient, logger zerolog.Logger, now Clock) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, logger: logger, now: now}
}

// Get treats any Redis failure as a miss.
func (s *RedisStore) Get(ctx context.Context, key Key) ([]string, bool) {
	k := redisKeyPrefix + key.String()
	raw, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", k).Msg("schema cache get failed")
		}
		return nil, false
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("schema cache entry corrupt")
		s.client.Del(ctx, k)
		return nil, false
	}

	now := s.now()
	ttl := min(SlidingTTL, env.CreatedAt.Add(AbsoluteTTL).Sub(now))
	if ttl <= 0 {
		s.client.Del(ctx, k)
		return nil, false
	}
	if err := s.client.Expire(ctx, k, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("schema cache expire failed")
	}
	return env.Values, true
}

func (s *RedisStore) Set(ctx context.Context, key Key, values []string) {
	k := redisKeyPrefix + key.String()
	raw, err := json.Marshal(redisEnvelope{Values: cloneValues(values), CreatedAt: s.now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("schema cache encode failed")
		return
	}
	if err := s.client.Set(ctx, k, raw, min(SlidingTTL, AbsoluteTTL)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", k).Msg("schema cache set failed")
	}
}
