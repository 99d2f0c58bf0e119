package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func TestProgressionEngine_AddXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	level, leveledUp, err := env.progression.AddXP(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
	assert.False(t, leveledUp)

	// Crossing the 100 XP threshold levels up.
	level, leveledUp, err = env.progression.AddXP(ctx, 1, 60)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	assert.True(t, leveledUp)
}

func TestProgressionEngine_AddXP_RejectsNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.progression.AddXP(ctx, 1, -10)
	assert.ErrorIs(t, err, shared.ErrNegativeXP)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(0), state.XP)
		return nil
	})
	require.NoError(t, err)
}

func TestProgressionEngine_TryAdvanceModule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Partial completion does not advance.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.MarkCompleted("m0_quiz")
		return nil
	}))
	advanced, err := env.progression.TryAdvanceModule(ctx, 1)
	require.NoError(t, err)
	assert.False(t, advanced)

	// The full quest set does.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.MarkCompleted("m0_boss")
		return nil
	}))
	advanced, err = env.progression.TryAdvanceModule(ctx, 1)
	require.NoError(t, err)
	assert.True(t, advanced)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 1, state.ModuleIndex)
		assert.NotNil(t, state.DeadlineAt())
		return nil
	})
	require.NoError(t, err)
}

func TestProgressionEngine_TryAdvanceModule_StopsAtLastModule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.ModuleIndex = 2
		state.MarkCompleted("m2_task")
		return nil
	}))

	advanced, err := env.progression.TryAdvanceModule(ctx, 1)
	require.NoError(t, err)
	assert.False(t, advanced)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 2, state.ModuleIndex)
		return nil
	})
	require.NoError(t, err)
}

func TestProgressionEngine_ResetAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.Name = "Alice"
		state.ModuleIndex = 2
		state.MarkCompleted("m0_quiz")
		state.GrantBadge(catalog.BadgeFirstQuest)
		state.Streak = 9
		_, err := state.AddXP(500)
		return err
	}))

	require.NoError(t, env.progression.ResetAccount(ctx, 1))

	err := env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, "Alice", state.Name, "identity survives the reset")
		assert.Equal(t, player.XP(0), state.XP)
		assert.Equal(t, player.Level(1), state.Level)
		assert.Equal(t, 0, state.ModuleIndex)
		assert.Empty(t, state.CompletedQuests)
		assert.Empty(t, state.Badges)
		assert.Zero(t, state.Streak)
		return nil
	})
	require.NoError(t, err)
}
