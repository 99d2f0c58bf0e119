package command

import (
	"context"
	"log/slog"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REGISTRY
// Idempotent achievement flags. Badges only grow; awarding an already-held
// id is a no-op and no revocation operation exists.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRegistry awards badges from the catalog.
type BadgeRegistry struct {
	store   player.Store
	catalog catalog.Catalog
	bus     shared.EventPublisher
	log     *slog.Logger
}

// NewBadgeRegistry creates a badge registry.
func NewBadgeRegistry(
	store player.Store,
	cat catalog.Catalog,
	bus shared.EventPublisher,
	log *slog.Logger,
) *BadgeRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &BadgeRegistry{store: store, catalog: cat, bus: bus, log: log}
}

// Award grants badgeID to the player. An unknown id is a validation error
// with the badge set unchanged; an already-held badge returns (false, nil).
func (r *BadgeRegistry) Award(ctx context.Context, userID int64, badgeID string) (bool, error) {
	var granted bool
	err := r.store.Mutate(ctx, userID, func(state *player.State) error {
		var err error
		granted, err = r.award(state, badgeID)
		return err
	})
	if err != nil {
		return false, err
	}

	if granted {
		r.log.Info("badge awarded", "user_id", userID, "badge_id", badgeID)
		r.publish(shared.NewBadgeAwardedEvent(userID, badgeID))
	}
	return granted, nil
}

// award grants a badge on an already-locked record. Used by the other
// engines inside their own mutations.
func (r *BadgeRegistry) award(state *player.State, badgeID string) (bool, error) {
	if _, err := r.catalog.Badge(badgeID); err != nil {
		return false, err
	}
	return state.GrantBadge(badgeID), nil
}

func (r *BadgeRegistry) publish(event shared.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event); err != nil {
		r.log.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
