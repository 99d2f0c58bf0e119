package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
)

type recordingNotifier struct {
	sent map[int64]int
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, _ string) error {
	if n.sent == nil {
		n.sent = make(map[int64]int)
	}
	n.sent[userID]++
	return nil
}

func newReminderStore(t *testing.T) player.Store {
	t.Helper()
	s := file.New(filepath.Join(t.TempDir(), "progress.json"), nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func setDeadline(t *testing.T, s player.Store, userID int64, at time.Time) {
	t.Helper()
	require.NoError(t, s.Mutate(context.Background(), userID, func(state *player.State) error {
		state.SetDeadlineAt(&at)
		return nil
	}))
}

func TestDeadlineReminderJob_Run(t *testing.T) {
	store := newReminderStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	setDeadline(t, store, 1, now.Add(6*time.Hour))  // inside the window
	setDeadline(t, store, 2, now.Add(48*time.Hour)) // too far out
	setDeadline(t, store, 3, now.Add(-time.Hour))   // already expired
	require.NoError(t, store.Mutate(ctx, 4, func(*player.State) error { return nil })) // no deadline

	notifier := &recordingNotifier{}
	job := NewDeadlineReminderJob(store, notifier, 24*time.Hour, nil)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, map[int64]int{1: 1}, notifier.sent)

	// A second run must not repeat the reminder for the same deadline.
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, notifier.sent[1])

	// Moving the deadline re-arms the reminder.
	setDeadline(t, store, 1, now.Add(10*time.Hour))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, notifier.sent[1])
}
