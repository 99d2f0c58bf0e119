// Package command contains write operations (CQRS - Commands): the engines
// that mutate player progress through the store.
package command

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEADLINE CONTROLLER
// Module deadline lifecycle: set, expiry check, penalty extension, repurchase.
// Deadlines exist only on gated modules; the strict extension cap forces
// escalation to repurchase rather than unbounded grace.
// ══════════════════════════════════════════════════════════════════════════════

// DeadlinePolicy holds the deadline lifecycle parameters.
type DeadlinePolicy struct {
	// ModuleDeadlineHours is the deadline duration for a freshly entered module.
	ModuleDeadlineHours int

	// PenaltyExtensionHours is how far a penalty extension pushes the deadline.
	PenaltyExtensionHours int

	// MaxExtensions caps extensions per module. Beyond it only repurchase remains.
	MaxExtensions int
}

// DefaultDeadlinePolicy returns the default parameters.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		ModuleDeadlineHours:   72,
		PenaltyExtensionHours: 48,
		MaxExtensions:         3,
	}
}

// DeadlineController manages module deadlines.
type DeadlineController struct {
	store   player.Store
	catalog catalog.Catalog
	bus     shared.EventPublisher
	policy  DeadlinePolicy
	log     *slog.Logger
}

// NewDeadlineController creates a deadline controller.
func NewDeadlineController(
	store player.Store,
	cat catalog.Catalog,
	bus shared.EventPublisher,
	policy DeadlinePolicy,
	log *slog.Logger,
) *DeadlineController {
	if log == nil {
		log = slog.Default()
	}
	return &DeadlineController{store: store, catalog: cat, bus: bus, policy: policy, log: log}
}

// ─────────────────────────────────────────────────────────────────────────────
// Pure state helpers (shared with the other engines inside one mutation)
// ─────────────────────────────────────────────────────────────────────────────

// SetDeadline sets the record's module deadline to now+hours for a gated
// module, or clears it for a free one. The extension counter resets either way.
func (c *DeadlineController) SetDeadline(state *player.State, hours int) {
	state.DeadlineExtensions = 0
	if c.catalog.IsFreeModule(state.ModuleIndex) {
		state.SetDeadlineAt(nil)
		return
	}
	deadline := timeutil.Now().Add(time.Duration(hours) * time.Hour)
	state.SetDeadlineAt(&deadline)
}

// SetModuleDeadline sets the module deadline with the default duration.
func (c *DeadlineController) SetModuleDeadline(state *player.State) {
	c.SetDeadline(state, c.policy.ModuleDeadlineHours)
}

// IsExpired reports whether a deadline is set and already past.
// A malformed stored deadline reads as "no deadline" (fail open).
func (c *DeadlineController) IsExpired(state *player.State) bool {
	deadline := state.DeadlineAt()
	return deadline != nil && timeutil.Now().After(*deadline)
}

// HoursRemaining returns hours until the deadline: +Inf when unset,
// negative once expired.
func (c *DeadlineController) HoursRemaining(state *player.State) float64 {
	deadline := state.DeadlineAt()
	if deadline == nil {
		return math.Inf(1)
	}
	return timeutil.HoursUntil(*deadline)
}

// applyPenalty applies a penalty extension to the record: now+48h and counter
// increment, until the cap. Returns false with the deadline untouched once
// the cap is reached.
func (c *DeadlineController) applyPenalty(state *player.State) bool {
	if state.DeadlineExtensions >= c.policy.MaxExtensions {
		return false
	}
	deadline := timeutil.Now().Add(time.Duration(c.policy.PenaltyExtensionHours) * time.Hour)
	state.SetDeadlineAt(&deadline)
	state.DeadlineExtensions++
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Store-level operations
// ─────────────────────────────────────────────────────────────────────────────

// ApplyPenaltyExtension pushes the player's deadline by the penalty duration.
// Returns false without error when the extension cap is exhausted - the
// caller must route the player to repurchase.
func (c *DeadlineController) ApplyPenaltyExtension(ctx context.Context, userID int64) (bool, error) {
	var (
		applied  bool
		deadline time.Time
		used     int
	)
	err := c.store.Mutate(ctx, userID, func(state *player.State) error {
		applied = c.applyPenalty(state)
		if applied {
			deadline = *state.DeadlineAt()
			used = state.DeadlineExtensions
		}
		return nil
	})
	if err != nil {
		return applied, err
	}

	if applied {
		c.log.Info("deadline extended",
			"user_id", userID, "new_deadline", deadline, "extensions_used", used)
		c.publish(shared.NewDeadlineExtendedEvent(userID, deadline, used))
	}
	return applied, nil
}

// Extend pushes the deadline by an operator decision: hours past the current
// deadline (or past now when none is set). Counts toward the same cap as
// penalty extensions.
func (c *DeadlineController) Extend(ctx context.Context, userID int64, hours int) (time.Time, error) {
	var (
		deadline time.Time
		used     int
	)
	err := c.store.Mutate(ctx, userID, func(state *player.State) error {
		if state.DeadlineExtensions >= c.policy.MaxExtensions {
			return shared.ErrExtensionsExhausted
		}

		base := timeutil.Now()
		if current := state.DeadlineAt(); current != nil && current.After(base) {
			base = *current
		}
		deadline = base.Add(time.Duration(hours) * time.Hour)
		state.SetDeadlineAt(&deadline)
		state.DeadlineExtensions++
		used = state.DeadlineExtensions
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	c.log.Info("deadline extended by operator",
		"user_id", userID, "new_deadline", deadline, "extensions_used", used)
	c.publish(shared.NewDeadlineExtendedEvent(userID, deadline, used))
	return deadline, nil
}

// Repurchase is the module-scoped reset taken once extensions run out:
// current-module quests leave the completed set, the active quest, homework
// status and quiz session clear, and the deadline is set afresh. XP, streak
// and badges survive - the full destructive reset lives in ProgressionEngine.
func (c *DeadlineController) Repurchase(ctx context.Context, userID int64) error {
	var (
		moduleIndex int
		removed     []string
		deadline    time.Time
	)
	err := c.store.Mutate(ctx, userID, func(state *player.State) error {
		moduleIndex = state.ModuleIndex
		removed = state.RemoveQuests(c.catalog.QuestIDsForModule(moduleIndex))
		state.ActiveQuest = ""
		state.HomeworkStatus = player.HomeworkIdle
		state.QuizSession = nil
		c.SetModuleDeadline(state)

		if dl := state.DeadlineAt(); dl != nil {
			deadline = *dl
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.log.Info("module repurchased",
		"user_id", userID, "module_index", moduleIndex, "removed_quests", len(removed))
	c.publish(shared.NewModuleRepurchasedEvent(userID, moduleIndex, removed, deadline))
	return nil
}

// CheckExpired lazily evaluates the player's deadline. Expiry is a data
// comparison on access, not a background timer.
func (c *DeadlineController) CheckExpired(ctx context.Context, userID int64) (bool, error) {
	var expired bool
	err := c.store.View(ctx, userID, func(state *player.State) error {
		expired = c.IsExpired(state)
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (c *DeadlineController) publish(event shared.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(event); err != nil {
		c.log.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
