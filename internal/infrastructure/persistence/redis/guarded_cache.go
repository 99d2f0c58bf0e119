package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/pkg/circuitbreaker"
)

// GuardedCache wraps a leaderboard cache with a circuit breaker. When Redis
// misbehaves the breaker opens and cache calls fail fast; readers then fall
// back to the progress store instead of waiting on timeouts.
type GuardedCache struct {
	inner   player.LeaderboardCache
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedCache wraps inner with a cache breaker. State transitions are
// logged so an unavailable Redis is visible in the logs.
func NewGuardedCache(inner player.LeaderboardCache, log *slog.Logger) *GuardedCache {
	if log == nil {
		log = slog.Default()
	}
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("cache breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	})
	return &GuardedCache{inner: inner, breaker: breaker}
}

// Update passes one row through the breaker.
func (g *GuardedCache) Update(ctx context.Context, row player.LeaderboardRow) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Update(ctx, row)
	})
}

// Top reads the ranking through the breaker. An empty ranking is a normal
// outcome and must not trip the breaker.
func (g *GuardedCache) Top(ctx context.Context, limit int) ([]player.LeaderboardRow, error) {
	var (
		rows  []player.LeaderboardRow
		empty bool
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		rows, err = g.inner.Top(ctx, limit)
		if errors.Is(err, ErrLeaderboardEmpty) {
			empty = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, ErrLeaderboardEmpty
	}
	return rows, nil
}

// Rebuild replaces the ranking through the breaker.
func (g *GuardedCache) Rebuild(ctx context.Context, rows []player.LeaderboardRow) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Rebuild(ctx, rows)
	})
}

// Remove drops one user through the breaker.
func (g *GuardedCache) Remove(ctx context.Context, userID int64) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Remove(ctx, userID)
	})
}
