package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEADLINE REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// Notifier delivers one message to a user. The Telegram client satisfies
// this through a thin adapter in the worker.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// DeadlineReminderJob scans the progress store and warns players whose
// module deadline falls inside the reminder window. Each deadline value is
// reminded at most once: an extension or repurchase moves the deadline and
// re-arms the reminder.
type DeadlineReminderJob struct {
	store    player.Store
	notifier Notifier
	window   time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	reminded map[string]struct{}
}

// NewDeadlineReminderJob creates the job. window is how far ahead of the
// deadline the warning fires.
func NewDeadlineReminderJob(
	store player.Store,
	notifier Notifier,
	window time.Duration,
	logger *slog.Logger,
) *DeadlineReminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &DeadlineReminderJob{
		store:    store,
		notifier: notifier,
		window:   window,
		logger:   logger,
		reminded: make(map[string]struct{}),
	}
}

// Name returns the unique job name.
func (j *DeadlineReminderJob) Name() string { return "deadline_reminder" }

// Description returns a human-readable description.
func (j *DeadlineReminderJob) Description() string {
	return "warns players about module deadlines expiring soon"
}

// Run scans all records and sends due reminders.
func (j *DeadlineReminderJob) Run(ctx context.Context) error {
	states, err := j.store.All(ctx)
	if err != nil {
		return fmt.Errorf("deadline reminder: list players: %w", err)
	}

	now := timeutil.Now()
	sent := 0

	for _, state := range states {
		deadline := state.DeadlineAt()
		if deadline == nil {
			continue
		}
		remaining := deadline.Sub(now)
		if remaining <= 0 || remaining > j.window {
			continue
		}

		key := fmt.Sprintf("%d:%d", state.UserID, deadline.Unix())
		if j.alreadyReminded(key) {
			continue
		}

		text := fmt.Sprintf(
			"⏰ До дедлайна модуля осталось <b>%.0f ч.</b>\n%s\nУспей закрыть квесты: /quests",
			remaining.Hours(), timeutil.FormatDeadline(*deadline),
		)
		if err := j.notifier.Notify(ctx, state.UserID, text); err != nil {
			j.logger.Warn("deadline reminder delivery failed",
				"user_id", state.UserID, "error", err)
			continue
		}

		j.markReminded(key)
		sent++
	}

	if sent > 0 {
		j.logger.Info("deadline reminders sent", "count", sent)
	}
	return nil
}

func (j *DeadlineReminderJob) alreadyReminded(key string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.reminded[key]
	return ok
}

func (j *DeadlineReminderJob) markReminded(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Старые ключи накапливаются медленно (один на дедлайн), но при
	// длительной работе карту стоит ограничить.
	if len(j.reminded) > 100000 {
		j.reminded = make(map[string]struct{})
	}
	j.reminded[key] = struct{}{}
}
