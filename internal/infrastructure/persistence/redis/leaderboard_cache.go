// Package redis implements the optional leaderboard cache on Redis Sorted
// Sets. The cache is write-through: XP changes update it via the event bus,
// and the read side falls back to a full store scan on any cache error.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
)

var (
	// ErrLeaderboardEmpty is returned when the cached leaderboard has no entries.
	ErrLeaderboardEmpty = errors.New("leaderboard_cache: leaderboard is empty")
)

// Key layout:
//   - Sorted set "smcquest:leaderboard:xp" maps user id -> XP score.
//   - Hash "smcquest:leaderboard:info" maps user id -> row JSON.
//
// Rank lookups are O(log N), range queries O(log N + M).
const (
	keyLeaderboardXP   = "smcquest:leaderboard:xp"
	keyLeaderboardInfo = "smcquest:leaderboard:info"
)

// LeaderboardCache keeps the XP ranking in Redis. It implements
// player.LeaderboardCache.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds staleness if write-through events are lost. Zero disables
	// expiry.
	TTL time.Duration
}

// NewLeaderboardCache connects to Redis and verifies the connection.
func NewLeaderboardCache(ctx context.Context, opts Options) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("leaderboard_cache: ping failed: %w", err)
	}

	return &LeaderboardCache{client: client, ttl: opts.TTL}, nil
}

// Close releases the Redis connection.
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// Update writes one row through to the cache.
func (c *LeaderboardCache) Update(ctx context.Context, row player.LeaderboardRow) error {
	member := strconv.FormatInt(row.UserID, 10)

	info, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("leaderboard_cache: marshal row: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, keyLeaderboardXP, redis.Z{Score: float64(row.XP), Member: member})
	pipe.HSet(ctx, keyLeaderboardInfo, member, info)
	if c.ttl > 0 {
		pipe.Expire(ctx, keyLeaderboardXP, c.ttl)
		pipe.Expire(ctx, keyLeaderboardInfo, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: update: %w", err)
	}
	return nil
}

// Top returns up to limit rows in descending XP order. Ties are not
// ordered deterministically here; the read side applies the final ordering.
func (c *LeaderboardCache) Top(ctx context.Context, limit int) ([]player.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}

	members, err := c.client.ZRevRange(ctx, keyLeaderboardXP, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: zrevrange: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrLeaderboardEmpty
	}

	infos, err := c.client.HMGet(ctx, keyLeaderboardInfo, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: hmget: %w", err)
	}

	rows := make([]player.LeaderboardRow, 0, len(members))
	for i, raw := range infos {
		text, ok := raw.(string)
		if !ok {
			// Score without info means a partial write; treat the cache
			// as stale and let the caller fall back.
			return nil, fmt.Errorf("leaderboard_cache: missing info for member %s", members[i])
		}
		var row player.LeaderboardRow
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("leaderboard_cache: unmarshal row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rebuild replaces the whole cached ranking with the given rows.
func (c *LeaderboardCache) Rebuild(ctx context.Context, rows []player.LeaderboardRow) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, keyLeaderboardXP, keyLeaderboardInfo)

	for _, row := range rows {
		member := strconv.FormatInt(row.UserID, 10)
		info, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("leaderboard_cache: marshal row: %w", err)
		}
		pipe.ZAdd(ctx, keyLeaderboardXP, redis.Z{Score: float64(row.XP), Member: member})
		pipe.HSet(ctx, keyLeaderboardInfo, member, info)
	}
	if c.ttl > 0 {
		pipe.Expire(ctx, keyLeaderboardXP, c.ttl)
		pipe.Expire(ctx, keyLeaderboardInfo, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild: %w", err)
	}
	return nil
}

// Remove drops one user from the cached ranking (full account reset).
func (c *LeaderboardCache) Remove(ctx context.Context, userID int64) error {
	member := strconv.FormatInt(userID, 10)

	pipe := c.client.TxPipeline()
	pipe.ZRem(ctx, keyLeaderboardXP, member)
	pipe.HDel(ctx, keyLeaderboardInfo, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: remove: %w", err)
	}
	return nil
}
