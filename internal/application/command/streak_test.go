package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// setLastActive rewinds the player's last activity date by the given number
// of days.
func setLastActive(t *testing.T, env *testEnv, userID int64, daysAgo int) {
	t.Helper()
	require.NoError(t, env.store.Mutate(context.Background(), userID, func(state *player.State) error {
		state.LastActiveDate = timeutil.FormatDateStr(timeutil.Now().AddDate(0, 0, -daysAgo))
		return nil
	}))
}

func TestStreakTracker_Touch_FirstActivity(t *testing.T) {
	env := newTestEnv(t)

	streak, isNewDay, err := env.streaks.Touch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
	assert.True(t, isNewDay)
}

func TestStreakTracker_Touch_SameDayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.streaks.Touch(ctx, 1)
	require.NoError(t, err)

	streak, isNewDay, err := env.streaks.Touch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
	assert.False(t, isNewDay)
}

func TestStreakTracker_Touch_YesterdayIncrements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.Streak = 3
		return nil
	}))
	setLastActive(t, env, 1, 1)

	streak, isNewDay, err := env.streaks.Touch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, streak)
	assert.True(t, isNewDay)
}

func TestStreakTracker_Touch_GapResets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.Streak = 15
		return nil
	}))
	setLastActive(t, env, 1, 3)

	streak, _, err := env.streaks.Touch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestStreakTracker_Touch_MilestonePaysOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Day 6 ends yesterday; today's touch crosses the 7-day milestone.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.Streak = 6
		return nil
	}))
	setLastActive(t, env, 1, 1)

	streak, _, err := env.streaks.Touch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, streak)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.True(t, state.HasBadge(catalog.BadgeStreak7))
		assert.Equal(t, player.XP(100), state.XP, "milestone bonus paid")
		return nil
	})
	require.NoError(t, err)

	// Replaying day 7 must not pay twice: the badge gates the bonus.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.Streak = 6
		return nil
	}))
	setLastActive(t, env, 1, 1)

	streak, _, err = env.streaks.Touch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, streak)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(100), state.XP, "no double payout")
		return nil
	})
	require.NoError(t, err)
}

func TestStreakTracker_ClaimDailyBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	xp, claimed, err := env.streaks.ClaimDailyBonus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 10, xp)

	// Second claim on the same day is refused without error.
	xp, claimed, err = env.streaks.ClaimDailyBonus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Zero(t, xp)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(10), state.XP)
		return nil
	})
	require.NoError(t, err)

	// A new day opens a new claim.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.DailyBonusClaimedDate = timeutil.FormatDateStr(timeutil.Now().AddDate(0, 0, -1))
		return nil
	}))

	_, claimed, err = env.streaks.ClaimDailyBonus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, claimed)
}
