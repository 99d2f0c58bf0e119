package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
)

// stubCache — управляемый кеш рейтинга для тестов.
type stubCache struct {
	rows      []player.LeaderboardRow
	topErr    error
	rebuilt   [][]player.LeaderboardRow
	topCalls  int
	rebuildEr error
}

func (c *stubCache) Update(context.Context, player.LeaderboardRow) error { return nil }

func (c *stubCache) Top(_ context.Context, limit int) ([]player.LeaderboardRow, error) {
	c.topCalls++
	if c.topErr != nil {
		return nil, c.topErr
	}
	if limit > len(c.rows) {
		limit = len(c.rows)
	}
	return c.rows[:limit], nil
}

func (c *stubCache) Rebuild(_ context.Context, rows []player.LeaderboardRow) error {
	if c.rebuildEr != nil {
		return c.rebuildEr
	}
	c.rebuilt = append(c.rebuilt, rows)
	return nil
}

func (c *stubCache) Remove(context.Context, int64) error { return nil }

func newLeaderboardStore(t *testing.T) player.Store {
	t.Helper()
	s := file.New(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, s.Load(context.Background()))

	ctx := context.Background()
	seed := []struct {
		userID int64
		name   string
		xp     player.XP
	}{
		{1, "Alice", 300},
		{2, "Bob", 150},
		{3, "Carol", 300},
		{4, "Dave", 50},
	}
	for _, p := range seed {
		require.NoError(t, s.Mutate(ctx, p.userID, func(state *player.State) error {
			state.Name = p.name
			_, err := state.AddXP(p.xp)
			return err
		}))
	}
	return s
}

func TestGetLeaderboard_OrderAndTieBreak(t *testing.T) {
	store := newLeaderboardStore(t)
	h := NewGetLeaderboardHandler(store, nil, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)
	assert.False(t, result.FromCache)

	// XP по убыванию, при равенстве меньший user_id выше.
	assert.Equal(t, int64(1), result.Entries[0].UserID)
	assert.Equal(t, int64(3), result.Entries[1].UserID)
	assert.Equal(t, int64(2), result.Entries[2].UserID)
	assert.Equal(t, int64(4), result.Entries[3].UserID)

	for i, entry := range result.Entries {
		assert.Equal(t, i+1, entry.Place)
	}
}

func TestGetLeaderboard_LimitHandling(t *testing.T) {
	store := newLeaderboardStore(t)
	h := NewGetLeaderboardHandler(store, nil, nil)
	ctx := context.Background()

	// Нулевой лимит превращается в значение по умолчанию.
	result, err := h.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 4)

	result, err = h.Handle(ctx, GetLeaderboardQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 2, result.TotalCount)

	_, err = h.Handle(ctx, GetLeaderboardQuery{Limit: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetLeaderboard_ServedFromCache(t *testing.T) {
	store := newLeaderboardStore(t)
	cache := &stubCache{rows: []player.LeaderboardRow{
		{UserID: 9, Name: "Cached", XP: 999},
	}}
	h := NewGetLeaderboardHandler(store, cache, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 5})
	require.NoError(t, err)
	assert.True(t, result.FromCache)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, int64(9), result.Entries[0].UserID)
}

func TestGetLeaderboard_CacheErrorFallsBackToStore(t *testing.T) {
	store := newLeaderboardStore(t)
	cache := &stubCache{topErr: errors.New("redis down")}
	h := NewGetLeaderboardHandler(store, cache, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 4)
	assert.Equal(t, 1, cache.topCalls)
}

func TestGetLeaderboard_RebuildCache(t *testing.T) {
	store := newLeaderboardStore(t)
	cache := &stubCache{}
	h := NewGetLeaderboardHandler(store, cache, nil)

	require.NoError(t, h.RebuildCache(context.Background()))
	require.Len(t, cache.rebuilt, 1)
	assert.Len(t, cache.rebuilt[0], 4)

	// Без кеша пересборка — no-op.
	require.NoError(t, NewGetLeaderboardHandler(store, nil, nil).RebuildCache(context.Background()))
}

func TestFormatPlaceEmoji(t *testing.T) {
	assert.Equal(t, "🥇", FormatPlaceEmoji(1))
	assert.Equal(t, "🥈", FormatPlaceEmoji(2))
	assert.Equal(t, "🥉", FormatPlaceEmoji(3))
	assert.Equal(t, "4.", FormatPlaceEmoji(4))
}
