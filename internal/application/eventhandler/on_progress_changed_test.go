package eventhandler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
)

type captureCache struct {
	updates []player.LeaderboardRow
	removed []int64
}

func (c *captureCache) Update(_ context.Context, row player.LeaderboardRow) error {
	c.updates = append(c.updates, row)
	return nil
}

func (c *captureCache) Top(context.Context, int) ([]player.LeaderboardRow, error) {
	return nil, nil
}

func (c *captureCache) Rebuild(context.Context, []player.LeaderboardRow) error { return nil }

func (c *captureCache) Remove(_ context.Context, userID int64) error {
	c.removed = append(c.removed, userID)
	return nil
}

func newProjectionStore(t *testing.T) player.Store {
	t.Helper()
	s := file.New(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestOnProgressChanged_UpdatesRow(t *testing.T) {
	store := newProjectionStore(t)
	require.NoError(t, store.Mutate(context.Background(), 1, func(state *player.State) error {
		state.Name = "Alice"
		_, err := state.AddXP(150)
		return err
	}))

	cache := &captureCache{}
	h := NewOnProgressChangedHandler(store, cache, nil)

	// Первое касание дня - именно так свежесозданная запись попадает в кеш.
	require.NoError(t, h.Handle(shared.NewStreakUpdatedEvent(1, 1, 0)))
	require.Len(t, cache.updates, 1)
	assert.Equal(t, int64(1), cache.updates[0].UserID)
	assert.Equal(t, "Alice", cache.updates[0].Name)
	assert.Equal(t, 150, cache.updates[0].XP)

	require.NoError(t, h.Handle(shared.NewXPGainedEvent(1, 50, 200, "grant", "")))
	require.Len(t, cache.updates, 2)
	assert.Equal(t, 150, cache.updates[1].XP, "row is re-read from the store, not the event payload")
}

func TestOnProgressChanged_ResetRemoves(t *testing.T) {
	store := newProjectionStore(t)
	cache := &captureCache{}
	h := NewOnProgressChangedHandler(store, cache, nil)

	require.NoError(t, h.Handle(shared.NewBaseEvent(shared.EventPlayerReset, 7)))
	assert.Equal(t, []int64{7}, cache.removed)
	assert.Empty(t, cache.updates)
}

func TestOnProgressChanged_NilCacheIsNoOp(t *testing.T) {
	h := NewOnProgressChangedHandler(newProjectionStore(t), nil, nil)
	assert.NoError(t, h.Handle(shared.NewStreakUpdatedEvent(1, 1, 0)))
}

func TestOnProgressChanged_EventTypes(t *testing.T) {
	h := NewOnProgressChangedHandler(newProjectionStore(t), &captureCache{}, nil)

	assert.ElementsMatch(t, []shared.EventType{
		shared.EventPlayerReset,
		shared.EventXPGained,
		shared.EventStreakUpdated,
		shared.EventModuleAdvanced,
	}, h.EventTypes())
}
