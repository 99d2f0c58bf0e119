package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.json")
	s := New(path, nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestStore_GetOrCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state, err := s.GetOrCreate(ctx, 1, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.UserID)
	assert.Equal(t, "Alice", state.Name)
	assert.Equal(t, player.XP(0), state.XP)

	// Повторное обращение возвращает ту же запись.
	again, err := s.GetOrCreate(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)

	// Непустое имя обновляет отображаемое имя.
	renamed, err := s.GetOrCreate(ctx, 1, "Alice B")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", renamed.Name)
}

func TestStore_View_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.View(context.Background(), 404, func(*player.State) error { return nil })
	assert.ErrorIs(t, err, shared.ErrPlayerNotFound)
}

func TestStore_Mutate_RoundtripThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()

	s := New(path, nil)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Mutate(ctx, 7, func(state *player.State) error {
		state.Name = "Bob"
		_, err := state.AddXP(120)
		return err
	}))

	// Новый экземпляр читает то, что записал старый.
	reloaded := New(path, nil)
	require.NoError(t, reloaded.Load(ctx))

	err := reloaded.View(ctx, 7, func(state *player.State) error {
		assert.Equal(t, "Bob", state.Name)
		assert.Equal(t, player.XP(120), state.XP)
		assert.Equal(t, player.Level(2), state.Level, "level is recomputed on load")
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Mutate_ErrorAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreate(ctx, 1, "Alice")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Mutate(ctx, 1, func(state *player.State) error {
		state.XP = 999
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(0), state.XP, "aborted mutation must not leak")
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Mutate_CreatesLazily(t *testing.T) {
	s := newTestStore(t)

	err := s.Mutate(context.Background(), 5, func(state *player.State) error {
		assert.Equal(t, int64(5), state.UserID)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Load_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, nil)
	require.NoError(t, s.Load(context.Background()))

	states, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestStore_Load_MigratesOldRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	// Запись старого формата: без бейджей, уровня и статуса домашки.
	raw := `{"42": {"name": "Old", "xp": 300}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s := New(path, nil)
	require.NoError(t, s.Load(context.Background()))

	err := s.View(context.Background(), 42, func(state *player.State) error {
		assert.Equal(t, int64(42), state.UserID)
		assert.Equal(t, player.Level(3), state.Level)
		assert.NotNil(t, state.Badges)
		assert.Equal(t, player.HomeworkIdle, state.HomeworkStatus)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_All_SortedByUserID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		_, err := s.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
	}

	states, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, int64(10), states[0].UserID)
	assert.Equal(t, int64(20), states[1].UserID)
	assert.Equal(t, int64(30), states[2].UserID)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Mutate(ctx, 1, func(state *player.State) error {
				_, err := state.AddXP(10)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := s.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(workers*10), state.XP,
			"per-key locking must serialize mutations")
		return nil
	})
	require.NoError(t, err)
}
