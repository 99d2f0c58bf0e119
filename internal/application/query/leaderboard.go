// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ-N игроков по суммарному XP. Источник истины — хранилище; Redis-кеш
// необязателен, при любой его ошибке выполняется полное сканирование.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 10, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO - DTO для записи лидерборда.
type LeaderboardEntryDTO struct {
	// Place - позиция в рейтинге (начиная с 1).
	Place int `json:"place"`

	// UserID - идентификатор игрока.
	UserID int64 `json:"user_id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// XP - суммарный опыт.
	XP int `json:"xp"`

	// Level - текущий уровень.
	Level int `json:"level"`

	// Rank - текстовое звание.
	Rank string `json:"rank"`

	// Module - индекс текущего модуля.
	Module int `json:"module"`

	// Streak - серия активных дней.
	Streak int `json:"streak"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Entries - записи лидерборда.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - количество игроков в выдаче.
	TotalCount int `json:"total_count"`

	// FromCache - получены ли данные из кеша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы на получение лидерборда.
type GetLeaderboardHandler struct {
	store player.Store
	cache player.LeaderboardCache
	log   *slog.Logger
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
// Кеш может быть nil - тогда всегда сканируется хранилище.
func NewGetLeaderboardHandler(
	store player.Store,
	cache player.LeaderboardCache,
	log *slog.Logger,
) *GetLeaderboardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GetLeaderboardHandler{store: store, cache: cache, log: log}
}

// Handle выполняет запрос на получение лидерборда. Порядок всегда
// детерминирован: XP по убыванию, при равенстве - user_id по возрастанию.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	rows, fromCache := h.fetch(ctx, query.Limit)

	sortRows(rows)
	if len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}

	entries := make([]LeaderboardEntryDTO, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntryDTO{
			Place:  i + 1,
			UserID: row.UserID,
			Name:   row.Name,
			XP:     row.XP,
			Level:  row.Level,
			Rank:   row.Rank,
			Module: row.Module,
			Streak: row.Streak,
		}
	}

	return &GetLeaderboardResult{
		Entries:     entries,
		TotalCount:  len(entries),
		FromCache:   fromCache,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// RebuildCache пересобирает кеш рейтинга из хранилища.
func (h *GetLeaderboardHandler) RebuildCache(ctx context.Context) error {
	if h.cache == nil {
		return nil
	}

	states, err := h.store.All(ctx)
	if err != nil {
		return shared.WrapError("query", "RebuildCache", shared.ErrPersistence, "failed to scan store", err)
	}

	rows := make([]player.LeaderboardRow, 0, len(states))
	for _, state := range states {
		rows = append(rows, player.RowFromState(state))
	}
	return h.cache.Rebuild(ctx, rows)
}

// fetch читает строки рейтинга: сначала кеш, при ошибке - хранилище.
func (h *GetLeaderboardHandler) fetch(ctx context.Context, limit int) ([]player.LeaderboardRow, bool) {
	if h.cache != nil {
		rows, err := h.cache.Top(ctx, limit)
		if err == nil && len(rows) > 0 {
			return rows, true
		}
		if err != nil {
			h.log.Warn("leaderboard cache miss, falling back to store scan", "error", err)
		}
	}

	states, err := h.store.All(ctx)
	if err != nil {
		h.log.Warn("leaderboard store scan failed", "error", err)
		return nil, false
	}

	rows := make([]player.LeaderboardRow, 0, len(states))
	for _, state := range states {
		rows = append(rows, player.RowFromState(state))
	}
	return rows, false
}

// sortRows упорядочивает строки: XP по убыванию, затем user_id по возрастанию.
func sortRows(rows []player.LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].XP != rows[j].XP {
			return rows[i].XP > rows[j].XP
		}
		return rows[i].UserID < rows[j].UserID
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// FormatPlaceEmoji возвращает эмодзи для позиции в рейтинге.
func FormatPlaceEmoji(place int) string {
	switch place {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", place)
	}
}
