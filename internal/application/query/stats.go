package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PLAYER STATS QUERY
// Сводная статистика игрока: прогресс по модулю, дедлайн, серия, бейджи.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeDTO - DTO для полученного бейджа.
type BadgeDTO struct {
	// ID - идентификатор бейджа.
	ID string `json:"id"`

	// Title - отображаемое название.
	Title string `json:"title"`

	// Description - описание условия получения.
	Description string `json:"description"`
}

// DeadlineDTO - DTO для состояния дедлайна текущего модуля.
type DeadlineDTO struct {
	// Set - установлен ли дедлайн (false для бесплатного модуля).
	Set bool `json:"set"`

	// ExpiresAt - момент истечения (nil, если дедлайн не установлен).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Expired - истёк ли дедлайн на момент запроса.
	Expired bool `json:"expired"`

	// HoursRemaining - часов до истечения (0 при отсутствии или истечении).
	HoursRemaining float64 `json:"hours_remaining"`

	// ExtensionsUsed - сколько штрафных продлений израсходовано.
	ExtensionsUsed int `json:"extensions_used"`

	// MaxExtensions - лимит штрафных продлений на модуль.
	MaxExtensions int `json:"max_extensions"`

	// Text - человекочитаемое описание срока.
	Text string `json:"text"`
}

// PlayerStatsResult содержит сводную статистику игрока.
type PlayerStatsResult struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`

	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	MaxLevel int    `json:"max_level"`
	Rank     string `json:"rank"`

	ModuleIndex int    `json:"module_index"`
	ModuleTitle string `json:"module_title"`
	ModuleCount int    `json:"module_count"`

	// CompletedInModule / TotalInModule - прогресс по текущему модулю.
	CompletedInModule int `json:"completed_in_module"`
	TotalInModule     int `json:"total_in_module"`

	// CompletedTotal - завершено квестов за всё время.
	CompletedTotal int `json:"completed_total"`

	ActiveQuest    string `json:"active_quest,omitempty"`
	HomeworkStatus string `json:"homework_status"`

	Deadline DeadlineDTO `json:"deadline"`

	Streak int `json:"streak"`

	// DailyBonusAvailable - доступен ли сегодня ежедневный бонус.
	DailyBonusAvailable bool `json:"daily_bonus_available"`

	Badges []BadgeDTO `json:"badges"`
}

// GetPlayerStatsHandler обрабатывает запросы статистики игрока.
type GetPlayerStatsHandler struct {
	store         player.Store
	catalog       catalog.Catalog
	maxExtensions int
	log           *slog.Logger
}

// NewGetPlayerStatsHandler создаёт новый обработчик статистики.
func NewGetPlayerStatsHandler(
	store player.Store,
	cat catalog.Catalog,
	maxExtensions int,
	log *slog.Logger,
) *GetPlayerStatsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GetPlayerStatsHandler{store: store, catalog: cat, maxExtensions: maxExtensions, log: log}
}

// Handle выполняет запрос статистики игрока.
func (h *GetPlayerStatsHandler) Handle(ctx context.Context, userID int64) (*PlayerStatsResult, error) {
	var result *PlayerStatsResult

	err := h.store.View(ctx, userID, func(state *player.State) error {
		result = h.build(state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *GetPlayerStatsHandler) build(state *player.State) *PlayerStatsResult {
	questIDs := h.catalog.QuestIDsForModule(state.ModuleIndex)
	completedInModule := 0
	for _, questID := range questIDs {
		if state.HasCompleted(questID) {
			completedInModule++
		}
	}

	moduleTitle := ""
	if module, err := h.catalog.Module(state.ModuleIndex); err == nil {
		moduleTitle = module.Title
	}

	badges := make([]BadgeDTO, 0, len(state.Badges))
	for _, badgeID := range state.Badges {
		badge, err := h.catalog.Badge(badgeID)
		if err != nil {
			// Снятый из каталога бейдж показываем по id.
			badges = append(badges, BadgeDTO{ID: badgeID, Title: badgeID})
			continue
		}
		badges = append(badges, BadgeDTO{ID: badge.ID, Title: badge.Title, Description: badge.Description})
	}

	today := timeutil.FormatDateStr(timeutil.Now())

	return &PlayerStatsResult{
		UserID:              int64(state.UserID),
		Name:                state.Name,
		XP:                  int(state.XP),
		Level:               int(state.Level),
		MaxLevel:            int(player.MaxLevel()),
		Rank:                string(state.Rank),
		ModuleIndex:         state.ModuleIndex,
		ModuleTitle:         moduleTitle,
		ModuleCount:         h.catalog.ModuleCount(),
		CompletedInModule:   completedInModule,
		TotalInModule:       len(questIDs),
		CompletedTotal:      len(state.CompletedQuests),
		ActiveQuest:         state.ActiveQuest,
		HomeworkStatus:      string(state.HomeworkStatus),
		Deadline:            h.buildDeadline(state),
		Streak:              state.Streak,
		DailyBonusAvailable: state.DailyBonusClaimedDate != today,
		Badges:              badges,
	}
}

func (h *GetPlayerStatsHandler) buildDeadline(state *player.State) DeadlineDTO {
	dto := DeadlineDTO{
		ExtensionsUsed: state.DeadlineExtensions,
		MaxExtensions:  h.maxExtensions,
		Text:           "без дедлайна",
	}

	deadline := state.DeadlineAt()
	if deadline == nil {
		return dto
	}

	dto.Set = true
	dto.ExpiresAt = deadline
	dto.Text = timeutil.FormatDeadline(*deadline)

	hours := timeutil.HoursUntil(*deadline)
	if hours <= 0 {
		dto.Expired = true
		return dto
	}
	dto.HoursRemaining = hours
	return dto
}
