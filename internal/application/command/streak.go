package command

import (
	"context"
	"log/slog"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// Daily attendance continuity over UTC calendar days, milestone bonuses and
// the once-per-day bonus claim.
// ══════════════════════════════════════════════════════════════════════════════

// StreakMilestone pairs a streak length with its one-time reward.
type StreakMilestone struct {
	Days    int
	BadgeID string
	BonusXP int
}

// StreakPolicy holds streak and daily-bonus parameters.
type StreakPolicy struct {
	// DailyBonusXP is the XP granted by one daily bonus claim.
	DailyBonusXP int

	// Milestones are one-time rewards for unbroken streaks. Idempotency
	// rides on the badge set: a held badge means the bonus was paid.
	Milestones []StreakMilestone
}

// DefaultStreakPolicy returns the default streak parameters.
func DefaultStreakPolicy() StreakPolicy {
	return StreakPolicy{
		DailyBonusXP: 10,
		Milestones: []StreakMilestone{
			{Days: 7, BadgeID: catalog.BadgeStreak7, BonusXP: 100},
			{Days: 30, BadgeID: catalog.BadgeStreak30, BonusXP: 500},
		},
	}
}

// StreakTracker maintains daily attendance streaks.
type StreakTracker struct {
	store       player.Store
	progression *ProgressionEngine
	badges      *BadgeRegistry
	bus         shared.EventPublisher
	policy      StreakPolicy
	log         *slog.Logger
}

// NewStreakTracker creates a streak tracker.
func NewStreakTracker(
	store player.Store,
	progression *ProgressionEngine,
	badges *BadgeRegistry,
	bus shared.EventPublisher,
	policy StreakPolicy,
	log *slog.Logger,
) *StreakTracker {
	if log == nil {
		log = slog.Default()
	}
	return &StreakTracker{
		store:       store,
		progression: progression,
		badges:      badges,
		bus:         bus,
		policy:      policy,
		log:         log,
	}
}

// Touch records a qualifying activity for today (UTC): a second touch on the
// same calendar date is a no-op, yesterday's date increments the streak,
// anything older resets it to 1. Crossing a milestone pays its one-time XP
// bonus and badge.
func (t *StreakTracker) Touch(ctx context.Context, userID int64) (int, bool, error) {
	var (
		events   []shared.Event
		streak   int
		isNewDay bool
	)

	err := t.store.Mutate(ctx, userID, func(state *player.State) error {
		today := timeutil.FormatDateStr(timeutil.Now())

		if state.LastActiveDate == today {
			streak, isNewDay = state.Streak, false
			return nil
		}

		isNewDay = true
		if prev, err := timeutil.ParseDate(state.LastActiveDate); err == nil && timeutil.IsYesterday(prev) {
			state.Streak++
		} else {
			state.Streak = 1
		}
		state.LastActiveDate = today
		streak = state.Streak

		milestone := 0
		for _, m := range t.policy.Milestones {
			if state.Streak != m.Days || state.HasBadge(m.BadgeID) {
				continue
			}
			granted, err := t.badges.award(state, m.BadgeID)
			if err != nil {
				return err
			}
			if !granted {
				continue
			}
			milestone = m.Days
			events = append(events, shared.NewBadgeAwardedEvent(userID, m.BadgeID))

			xpEvents, err := t.progression.applyXP(state, m.BonusXP, "streak_bonus", "")
			if err != nil {
				return err
			}
			events = append(events, xpEvents...)
		}

		events = append(events, shared.NewStreakUpdatedEvent(userID, state.Streak, milestone))
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	t.publishAll(events)
	return streak, isNewDay, nil
}

// ClaimDailyBonus grants the daily XP bonus at most once per UTC calendar
// day, gated on the claim date.
func (t *StreakTracker) ClaimDailyBonus(ctx context.Context, userID int64) (int, bool, error) {
	var (
		events  []shared.Event
		claimed bool
	)

	err := t.store.Mutate(ctx, userID, func(state *player.State) error {
		today := timeutil.FormatDateStr(timeutil.Now())
		if state.DailyBonusClaimedDate == today {
			return nil
		}

		state.DailyBonusClaimedDate = today
		claimed = true

		xpEvents, err := t.progression.applyXP(state, t.policy.DailyBonusXP, "daily_bonus", "")
		if err != nil {
			return err
		}
		events = append(events, xpEvents...)
		events = append(events, shared.NewDailyBonusClaimedEvent(userID, t.policy.DailyBonusXP, state.Streak))
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	if !claimed {
		return 0, false, nil
	}

	t.log.Info("daily bonus claimed", "user_id", userID, "xp", t.policy.DailyBonusXP)
	t.publishAll(events)
	return t.policy.DailyBonusXP, true, nil
}

func (t *StreakTracker) publishAll(events []shared.Event) {
	if t.bus == nil {
		return
	}
	for _, event := range events {
		if err := t.bus.Publish(event); err != nil {
			t.log.Warn("event publish failed", "event_type", event.EventType(), "error", err)
		}
	}
}
