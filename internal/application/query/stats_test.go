package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

func newQueryStore(t *testing.T) player.Store {
	t.Helper()
	s := file.New(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func defaultCatalog(t *testing.T) *catalog.StaticCatalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

func TestGetPlayer_Handle(t *testing.T) {
	store := newQueryStore(t)
	h := NewGetPlayerHandler(store, nil)
	ctx := context.Background()

	_, err := h.Handle(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrPlayerNotFound)

	dto, err := h.HandleOrCreate(ctx, 1, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), dto.UserID)
	assert.Equal(t, "Alice", dto.Name)

	dto, err = h.Handle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", dto.Name)
}

func TestGetPlayerStats_Handle(t *testing.T) {
	store := newQueryStore(t)
	cat := defaultCatalog(t)
	h := NewGetPlayerStatsHandler(store, cat, 3, nil)
	ctx := context.Background()

	firstModule := cat.QuestIDsForModule(0)
	require.NotEmpty(t, firstModule)

	require.NoError(t, store.Mutate(ctx, 1, func(state *player.State) error {
		state.Name = "Alice"
		state.MarkCompleted(firstModule[0])
		state.GrantBadge(catalog.BadgeFirstQuest)
		state.GrantBadge("retired_badge")
		state.Streak = 4
		_, err := state.AddXP(120)
		return err
	}))

	stats, err := h.Handle(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "Alice", stats.Name)
	assert.Equal(t, 120, stats.XP)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, int(player.MaxLevel()), stats.MaxLevel)
	assert.Equal(t, 1, stats.CompletedInModule)
	assert.Equal(t, len(firstModule), stats.TotalInModule)
	assert.Equal(t, cat.ModuleCount(), stats.ModuleCount)
	assert.Equal(t, 4, stats.Streak)
	assert.True(t, stats.DailyBonusAvailable)

	// Бесплатный вводный модуль живёт без дедлайна.
	assert.False(t, stats.Deadline.Set)
	assert.Equal(t, 3, stats.Deadline.MaxExtensions)

	// Бейдж, снятый из каталога, показывается по id.
	require.Len(t, stats.Badges, 2)
	assert.Equal(t, catalog.BadgeFirstQuest, stats.Badges[0].ID)
	assert.NotEmpty(t, stats.Badges[0].Title)
	assert.Equal(t, "retired_badge", stats.Badges[1].Title)
}

func TestGetPlayerStats_DeadlineDTO(t *testing.T) {
	store := newQueryStore(t)
	h := NewGetPlayerStatsHandler(store, defaultCatalog(t), 3, nil)
	ctx := context.Background()

	future := time.Now().UTC().Add(10 * time.Hour)
	require.NoError(t, store.Mutate(ctx, 1, func(state *player.State) error {
		state.ModuleIndex = 1
		state.SetDeadlineAt(&future)
		state.DeadlineExtensions = 2
		return nil
	}))

	stats, err := h.Handle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stats.Deadline.Set)
	assert.False(t, stats.Deadline.Expired)
	assert.InDelta(t, 10, stats.Deadline.HoursRemaining, 0.1)
	assert.Equal(t, 2, stats.Deadline.ExtensionsUsed)

	// Истёкший дедлайн.
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Mutate(ctx, 1, func(state *player.State) error {
		state.SetDeadlineAt(&past)
		return nil
	}))

	stats, err = h.Handle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stats.Deadline.Expired)
	assert.Zero(t, stats.Deadline.HoursRemaining)
}

func TestGetPlayerStats_DailyBonusClaimedToday(t *testing.T) {
	store := newQueryStore(t)
	h := NewGetPlayerStatsHandler(store, defaultCatalog(t), 3, nil)
	ctx := context.Background()

	require.NoError(t, store.Mutate(ctx, 1, func(state *player.State) error {
		state.DailyBonusClaimedDate = timeutil.FormatDateStr(timeutil.Now())
		return nil
	}))

	stats, err := h.Handle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, stats.DailyBonusAvailable)
}
