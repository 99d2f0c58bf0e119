package command

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func TestDeadlineController_SetModuleDeadline(t *testing.T) {
	env := newTestEnv(t)

	// The free intro module carries no deadline.
	state := player.NewState(1, "")
	state.DeadlineExtensions = 2
	env.deadlines.SetModuleDeadline(state)
	assert.Nil(t, state.DeadlineAt())
	assert.Equal(t, 0, state.DeadlineExtensions, "entering a module resets the counter")

	// A gated module gets now+72h.
	state.ModuleIndex = 1
	env.deadlines.SetModuleDeadline(state)
	deadline := state.DeadlineAt()
	require.NotNil(t, deadline)
	expected := time.Now().UTC().Add(72 * time.Hour)
	assert.WithinDuration(t, expected, *deadline, time.Minute)
}

func TestDeadlineController_IsExpired(t *testing.T) {
	env := newTestEnv(t)
	state := player.NewState(1, "")

	assert.False(t, env.deadlines.IsExpired(state), "no deadline never expires")
	assert.True(t, math.IsInf(env.deadlines.HoursRemaining(state), 1))

	past := time.Now().UTC().Add(-time.Minute)
	state.SetDeadlineAt(&past)
	assert.True(t, env.deadlines.IsExpired(state))
	assert.Negative(t, env.deadlines.HoursRemaining(state))

	// A malformed stored value reads as "no deadline" (fail open).
	state.ModuleDeadline = "not-a-timestamp"
	assert.False(t, env.deadlines.IsExpired(state))
}

func TestDeadlineController_ApplyPenaltyExtension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		past := time.Now().UTC().Add(-time.Hour)
		state.SetDeadlineAt(&past)
		return nil
	}))

	// Three extensions succeed, each pushing to now+48h.
	for i := 1; i <= 3; i++ {
		applied, err := env.deadlines.ApplyPenaltyExtension(ctx, 1)
		require.NoError(t, err)
		assert.True(t, applied, "extension %d within the cap", i)
	}

	err := env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 3, state.DeadlineExtensions)
		require.NotNil(t, state.DeadlineAt())
		assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), *state.DeadlineAt(), time.Minute)
		return nil
	})
	require.NoError(t, err)

	// The fourth is refused without error and leaves the deadline untouched.
	var before time.Time
	require.NoError(t, env.store.View(ctx, 1, func(state *player.State) error {
		before = *state.DeadlineAt()
		return nil
	}))

	applied, err := env.deadlines.ApplyPenaltyExtension(ctx, 1)
	require.NoError(t, err)
	assert.False(t, applied)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 3, state.DeadlineExtensions)
		assert.Equal(t, before, *state.DeadlineAt())
		return nil
	})
	require.NoError(t, err)
}

func TestDeadlineController_Extend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// With a live deadline the extension stacks on top of it.
	current := time.Now().UTC().Add(10 * time.Hour)
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.SetDeadlineAt(&current)
		return nil
	}))

	deadline, err := env.deadlines.Extend(ctx, 1, 24)
	require.NoError(t, err)
	assert.WithinDuration(t, current.Add(24*time.Hour), deadline, time.Second)

	// With an expired deadline the base is now, not the past.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		past := time.Now().UTC().Add(-100 * time.Hour)
		state.SetDeadlineAt(&past)
		return nil
	}))

	deadline, err = env.deadlines.Extend(ctx, 1, 24)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), deadline, time.Minute)

	// Operator extensions share the penalty cap.
	_, err = env.deadlines.Extend(ctx, 1, 24)
	require.NoError(t, err)
	_, err = env.deadlines.Extend(ctx, 1, 24)
	assert.ErrorIs(t, err, shared.ErrExtensionsExhausted)
}

func TestDeadlineController_Repurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Player in module 1 with an exhausted deadline, cross-module progress,
	// XP, a streak and a badge.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.ModuleIndex = 1
		state.MarkCompleted("m0_quiz")
		state.MarkCompleted("m0_boss")
		state.MarkCompleted("m1_task")
		if _, err := state.AddXP(150); err != nil {
			return err
		}
		state.Streak = 5
		state.GrantBadge(catalog.BadgeFirstQuest)
		state.ActiveQuest = "m1_task"
		state.HomeworkStatus = player.HomeworkPending
		state.DeadlineExtensions = 3
		past := time.Now().UTC().Add(-time.Hour)
		state.SetDeadlineAt(&past)
		return nil
	}))

	require.NoError(t, env.deadlines.Repurchase(ctx, 1))

	err := env.store.View(ctx, 1, func(state *player.State) error {
		// Only current-module quests leave the completed set.
		assert.False(t, state.HasCompleted("m1_task"))
		assert.True(t, state.HasCompleted("m0_quiz"))
		assert.True(t, state.HasCompleted("m0_boss"))

		assert.Empty(t, state.ActiveQuest)
		assert.Equal(t, player.HomeworkIdle, state.HomeworkStatus)
		assert.Nil(t, state.QuizSession)

		// Fresh deadline, counter reset.
		assert.Equal(t, 0, state.DeadlineExtensions)
		require.NotNil(t, state.DeadlineAt())
		assert.WithinDuration(t, time.Now().UTC().Add(72*time.Hour), *state.DeadlineAt(), time.Minute)

		// Earned progress survives.
		assert.Equal(t, player.XP(150), state.XP)
		assert.Equal(t, 5, state.Streak)
		assert.True(t, state.HasBadge(catalog.BadgeFirstQuest))
		return nil
	})
	require.NoError(t, err)
}

func TestDeadlineController_CheckExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.deadlines.CheckExpired(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrPlayerNotFound)

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		past := time.Now().UTC().Add(-time.Minute)
		state.SetDeadlineAt(&past)
		return nil
	}))

	expired, err := env.deadlines.CheckExpired(ctx, 1)
	require.NoError(t, err)
	assert.True(t, expired)
}
