package core

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for generation counters.
const (
	StatsTotalKey      = "pptgen:stats:total"
	StatsUserKeyPrefix = "pptgen:stats:user:"
)

// StatsUserKey returns the Redis hash key holding one user's counters.
func StatsUserKey(user string) string {
	return StatsUserKeyPrefix + user
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisStats stores generation counters in Redis hashes so that several
// server processes report the same totals.
type RedisStats struct {
	client redis.UniversalClient
}

func NewRedisStats(client redis.UniversalClient) *RedisStats {
	return &RedisStats{client: client}
}

func (s *RedisStats) Record(ctx context.Context, user string, r AssemblyReport) error {
	slides := int64(r.Slides)
	skipped := int64(len(r.Skipped))
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range []string{StatsTotalKey, StatsUserKey(user)} {
			p.HIncrBy(ctx, key, "decks", 1)
			p.HIncrBy(ctx, key, "slides", slides)
			p.HIncrBy(ctx, key, "skipped", skipped)
		}
		return nil
	})
	return err
}

func (s *RedisStats) Snapshot(ctx context.Context, user string) (StatsSnapshot, error) {
	total, err := s.counters(ctx, StatsTotalKey)
	if err != nil {
		return StatsSnapshot{}, err
	}
	u, err := s.counters(ctx, StatsUserKey(user))
	if err != nil {
		return StatsSnapshot{}, err
	}
	return StatsSnapshot{Total: total, User: u}, nil
}

func (s *RedisStats) counters(ctx context.Context, key string) (StatsCounters, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return StatsCounters{}, err
	}
	parse := func(field string) int64 {
		n, _ := strconv.ParseInt(vals[field], 10, 64)
		return n
	}
	return StatsCounters{Decks: parse("decks"), Slides: parse("slides"), Skipped: parse("skipped")}, nil
}
