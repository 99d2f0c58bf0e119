package command

import (
	"context"
	"log/slog"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION ENGINE
// XP/leveling and module-advancement gating. Advancement is purely set-based:
// completing every quest id bound to the current module unlocks the next one.
// No quest is special-cased by name.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionEngine drives XP, levels and module advancement.
type ProgressionEngine struct {
	store    player.Store
	catalog  catalog.Catalog
	deadline *DeadlineController
	bus      shared.EventPublisher
	log      *slog.Logger
}

// NewProgressionEngine creates a progression engine.
func NewProgressionEngine(
	store player.Store,
	cat catalog.Catalog,
	deadline *DeadlineController,
	bus shared.EventPublisher,
	log *slog.Logger,
) *ProgressionEngine {
	if log == nil {
		log = slog.Default()
	}
	return &ProgressionEngine{store: store, catalog: cat, deadline: deadline, bus: bus, log: log}
}

// AddXP grants amount XP to the player and recomputes level/rank.
// Returns the new level and whether it increased. Negative amounts are
// rejected with no mutation.
func (e *ProgressionEngine) AddXP(ctx context.Context, userID int64, amount int) (int, bool, error) {
	var events []shared.Event
	var level player.Level
	var leveledUp bool

	err := e.store.Mutate(ctx, userID, func(state *player.State) error {
		var err error
		events, err = e.applyXP(state, amount, "grant", "")
		if err != nil {
			return err
		}
		level = state.Level
		leveledUp = len(events) > 1
		return nil
	})
	if err != nil {
		return int(level), leveledUp, err
	}

	e.publishAll(events)
	return int(level), leveledUp, nil
}

// TryAdvanceModule probes set-based advancement for the player: if the
// completed set covers every quest id of the current module, the module index
// moves forward by one (never past the last module), the extension counter
// resets and a fresh deadline is issued.
func (e *ProgressionEngine) TryAdvanceModule(ctx context.Context, userID int64) (bool, error) {
	var events []shared.Event
	var advanced bool

	err := e.store.Mutate(ctx, userID, func(state *player.State) error {
		advanced, events = e.advanceState(state)
		return nil
	})
	if err != nil {
		return false, err
	}

	e.publishAll(events)
	return advanced, nil
}

// ResetAccount is the full destructive reset: XP, module position, quests,
// streak and badges all return to defaults. The module-scoped repurchase in
// DeadlineController is the non-destructive alternative.
func (e *ProgressionEngine) ResetAccount(ctx context.Context, userID int64) error {
	err := e.store.Mutate(ctx, userID, func(state *player.State) error {
		state.Reset()
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("account reset", "user_id", userID)
	e.publish(shared.NewBaseEvent(shared.EventPlayerReset, userID))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pure state helpers (shared with QuestLedger and StreakTracker)
// ─────────────────────────────────────────────────────────────────────────────

// applyXP grants XP on an already-locked record and returns the events to
// publish once the mutation commits. The second event, when present, is the
// level-up.
func (e *ProgressionEngine) applyXP(state *player.State, amount int, source, questID string) ([]shared.Event, error) {
	oldLevel := state.Level
	if _, err := state.AddXP(player.XP(amount)); err != nil {
		return nil, err
	}

	events := []shared.Event{
		shared.NewXPGainedEvent(state.UserID, amount, int(state.XP), source, questID),
	}
	if state.Level > oldLevel {
		e.log.Info("level up",
			"user_id", state.UserID, "new_level", int(state.Level), "rank", string(state.Rank))
		events = append(events,
			shared.NewLevelUpEvent(state.UserID, int(oldLevel), int(state.Level), string(state.Rank)))
	}
	return events, nil
}

// advanceState probes advancement on an already-locked record.
func (e *ProgressionEngine) advanceState(state *player.State) (bool, []shared.Event) {
	idx := state.ModuleIndex
	if idx+1 >= e.catalog.ModuleCount() {
		return false, nil
	}

	for _, questID := range e.catalog.QuestIDsForModule(idx) {
		if !state.HasCompleted(questID) {
			return false, nil
		}
	}

	state.ModuleIndex = idx + 1
	e.deadline.SetModuleDeadline(state)

	e.log.Info("module advanced",
		"user_id", state.UserID, "old_module", idx, "new_module", state.ModuleIndex)
	return true, []shared.Event{
		shared.NewModuleAdvancedEvent(state.UserID, idx, state.ModuleIndex, state.DeadlineAt()),
	}
}

func (e *ProgressionEngine) publish(event shared.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(event); err != nil {
		e.log.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}

func (e *ProgressionEngine) publishAll(events []shared.Event) {
	for _, event := range events {
		e.publish(event)
	}
}
