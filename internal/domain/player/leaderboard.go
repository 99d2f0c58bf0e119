package player

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// ЛИДЕРБОРД
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRow — одна строка рейтинга по суммарному XP.
type LeaderboardRow struct {
	// UserID — идентификатор игрока.
	UserID int64 `json:"user_id"`

	// Name — отображаемое имя.
	Name string `json:"name"`

	// XP — суммарный накопленный опыт.
	XP int `json:"xp"`

	// Level — текущий уровень.
	Level int `json:"level"`

	// Rank — текстовое звание уровня.
	Rank string `json:"rank"`

	// Module — индекс текущего модуля.
	Module int `json:"module"`

	// Streak — текущая серия активных дней.
	Streak int `json:"streak"`
}

// RowFromState строит строку рейтинга из состояния игрока.
func RowFromState(s *State) LeaderboardRow {
	return LeaderboardRow{
		UserID: int64(s.UserID),
		Name:   s.Name,
		XP:     int(s.XP),
		Level:  int(s.Level),
		Rank:   string(s.Rank),
		Module: s.ModuleIndex,
		Streak: s.Streak,
	}
}

// LeaderboardCache — необязательный кеш рейтинга. Хранилище остаётся
// источником истины: при любой ошибке кеша читающая сторона обязана
// перейти на полное сканирование хранилища.
type LeaderboardCache interface {
	// Update записывает одну строку в кеш (write-through).
	Update(ctx context.Context, row LeaderboardRow) error

	// Top возвращает до limit строк по убыванию XP.
	Top(ctx context.Context, limit int) ([]LeaderboardRow, error)

	// Rebuild полностью заменяет кешированный рейтинг.
	Rebuild(ctx context.Context, rows []LeaderboardRow) error

	// Remove убирает игрока из рейтинга (полный сброс аккаунта).
	Remove(ctx context.Context, userID int64) error
}
