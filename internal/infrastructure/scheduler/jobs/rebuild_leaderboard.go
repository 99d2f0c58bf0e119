// Package jobs contains implementations of scheduled jobs for the course
// worker process.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/smc-quest/smc-quest-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRebuilder rebuilds the ranking cache from the progress store.
type LeaderboardRebuilder interface {
	RebuildCache(ctx context.Context) error
}

// RebuildLeaderboardJob periodically resets the Redis ranking from the
// store. Write-through events keep the cache fresh between runs; the
// periodic rebuild repairs it after evictions, restarts or lost events.
type RebuildLeaderboardJob struct {
	rebuilder LeaderboardRebuilder
	retrier   *retry.Retrier
	logger    *slog.Logger

	runCount  atomic.Int64
	failCount atomic.Int64
}

// NewRebuildLeaderboardJob creates the job.
func NewRebuildLeaderboardJob(rebuilder LeaderboardRebuilder, logger *slog.Logger) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildLeaderboardJob{
		rebuilder: rebuilder,
		retrier:   retry.CacheRetrier(),
		logger:    logger,
	}
}

// Name returns the unique job name.
func (j *RebuildLeaderboardJob) Name() string { return "rebuild_leaderboard" }

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "rebuilds the Redis XP ranking from the progress store"
}

// Run executes one rebuild.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	j.runCount.Add(1)

	err := j.retrier.Do(ctx, func(ctx context.Context) error {
		return j.rebuilder.RebuildCache(ctx)
	})
	if err != nil {
		j.failCount.Add(1)
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	return nil
}
