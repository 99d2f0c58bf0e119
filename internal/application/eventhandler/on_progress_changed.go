// Package eventhandler содержит обработчики доменных событий.
// Обработчики связывают части системы через асинхронные события:
// командный слой публикует факты, обработчики запускают побочные
// эффекты вроде обновления кеша рейтинга.
package eventhandler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER
// Write-through проекция рейтинга: любое событие, меняющее XP, имя или
// серию игрока, переносит свежую строку в кеш. Кеш не является источником
// истины - ошибка обновления логируется и не прерывает основной поток.
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressChangedHandler обновляет кеш рейтинга по событиям прогресса.
type OnProgressChangedHandler struct {
	store  player.Store
	cache  player.LeaderboardCache
	logger *slog.Logger

	// Timeout ограничивает обращение к кешу из асинхронного воркера.
	timeout time.Duration
}

// NewOnProgressChangedHandler создаёт обработчик проекции рейтинга.
func NewOnProgressChangedHandler(
	store player.Store,
	cache player.LeaderboardCache,
	logger *slog.Logger,
) *OnProgressChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnProgressChangedHandler{
		store:   store,
		cache:   cache,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// EventTypes возвращает типы событий, на которые подписан обработчик.
func (h *OnProgressChangedHandler) EventTypes() []shared.EventType {
	// Регистрация не подписывается отдельно: оба транспорта сразу после
	// создания записи вызывают Touch, чья публикация StreakUpdated и
	// доставляет свежую строку в кеш.
	return []shared.EventType{
		shared.EventPlayerReset,
		shared.EventXPGained,
		shared.EventStreakUpdated,
		shared.EventModuleAdvanced,
	}
}

// Handle обрабатывает одно событие прогресса.
func (h *OnProgressChangedHandler) Handle(event shared.Event) error {
	if h.cache == nil {
		return nil
	}

	userID, err := strconv.ParseInt(event.AggregateID(), 10, 64)
	if err != nil {
		h.logger.Warn("leaderboard projection: bad aggregate id",
			"aggregate_id", event.AggregateID(), "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if event.EventType() == shared.EventPlayerReset {
		if err := h.cache.Remove(ctx, userID); err != nil {
			h.logger.Warn("leaderboard projection: remove failed",
				"user_id", userID, "error", err)
		}
		return nil
	}

	var row player.LeaderboardRow
	err = h.store.View(ctx, userID, func(state *player.State) error {
		row = player.RowFromState(state)
		return nil
	})
	if err != nil {
		h.logger.Warn("leaderboard projection: state read failed",
			"user_id", userID, "error", err)
		return nil
	}

	if err := h.cache.Update(ctx, row); err != nil {
		h.logger.Warn("leaderboard projection: update failed",
			"user_id", userID, "error", err)
	}
	return nil
}

// Register подписывает обработчик на шину событий.
func (h *OnProgressChangedHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range h.EventTypes() {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return err
		}
	}
	return nil
}
