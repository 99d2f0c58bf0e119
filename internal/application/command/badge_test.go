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

func TestBadgeRegistry_Award(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	granted, err := env.badges.Award(ctx, 1, catalog.BadgeFirstQuest)
	require.NoError(t, err)
	assert.True(t, granted)

	// Awarding a held badge is a no-op, not an error.
	granted, err = env.badges.Award(ctx, 1, catalog.BadgeFirstQuest)
	require.NoError(t, err)
	assert.False(t, granted)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, []string{catalog.BadgeFirstQuest}, state.Badges)
		return nil
	})
	require.NoError(t, err)
}

func TestBadgeRegistry_Award_UnknownBadge(t *testing.T) {
	env := newTestEnv(t)

	granted, err := env.badges.Award(context.Background(), 1, "no_such_badge")
	assert.ErrorIs(t, err, shared.ErrBadgeNotFound)
	assert.False(t, granted)
}
