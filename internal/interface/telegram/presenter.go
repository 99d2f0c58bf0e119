package telegram

import (
	"fmt"
	"strings"

	"github.com/smc-quest/smc-quest-core/internal/application/command"
	"github.com/smc-quest/smc-quest-core/internal/application/query"
	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTERS
// Форматирование HTML-сообщений бота. Вся разметка собирается здесь,
// обработчики команд остаются свободными от текстов.
// ══════════════════════════════════════════════════════════════════════════════

func formatWelcome(dto *query.PlayerDTO) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👋 Привет, <b>%s</b>!\n\n", dto.Name)
	sb.WriteString("Это курс с квестами, опытом и дедлайнами.\n")
	fmt.Fprintf(&sb, "Твой уровень: <b>%d</b> %s\n", dto.Level, dto.Rank)
	fmt.Fprintf(&sb, "Опыт: <b>%d XP</b>\n\n", dto.XP)
	sb.WriteString("Команды:\n")
	sb.WriteString("/quests — квесты текущего модуля\n")
	sb.WriteString("/stats — твоя статистика\n")
	sb.WriteString("/top — таблица лидеров\n")
	sb.WriteString("/deadline — сроки по модулю\n")
	sb.WriteString("/bonus — ежедневный бонус")
	return sb.String()
}

func formatStats(stats *query.PlayerStatsResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>%s</b>\n\n", stats.Name)
	fmt.Fprintf(&sb, "Уровень: <b>%d/%d</b> %s\n", stats.Level, stats.MaxLevel, stats.Rank)
	fmt.Fprintf(&sb, "Опыт: <b>%d XP</b>\n", stats.XP)
	fmt.Fprintf(&sb, "Модуль: <b>%d/%d</b> — %s\n",
		stats.ModuleIndex+1, stats.ModuleCount, stats.ModuleTitle)
	fmt.Fprintf(&sb, "Квесты модуля: <b>%d/%d</b>\n",
		stats.CompletedInModule, stats.TotalInModule)
	fmt.Fprintf(&sb, "🔥 Серия: <b>%d дн.</b>\n", stats.Streak)

	if len(stats.Badges) > 0 {
		sb.WriteString("\n🏅 Бейджи:\n")
		for _, badge := range stats.Badges {
			fmt.Fprintf(&sb, "  %s\n", badge.Title)
		}
	}

	if stats.DailyBonusAvailable {
		sb.WriteString("\n🎁 Доступен ежедневный бонус: /bonus")
	}
	return sb.String()
}

func formatLeaderboard(result *query.GetLeaderboardResult, userID int64) string {
	if len(result.Entries) == 0 {
		return "Пока никто не набрал XP. Стань первым!"
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Таблица лидеров</b>\n\n")
	for _, entry := range result.Entries {
		marker := ""
		if entry.UserID == userID {
			marker = " ← ты"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> — %d XP (ур. %d)%s\n",
			query.FormatPlaceEmoji(entry.Place), entry.Name, entry.XP, entry.Level, marker)
	}
	return sb.String()
}

func formatDeadline(stats *query.PlayerStatsResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Модуль: <b>%s</b>\n\n", stats.ModuleTitle)

	d := stats.Deadline
	switch {
	case !d.Set:
		sb.WriteString("Дедлайна нет — модуль без ограничения по времени.")
	case d.Expired:
		sb.WriteString("⌛ <b>Дедлайн истёк.</b>\n")
		if d.ExtensionsUsed < d.MaxExtensions {
			sb.WriteString("При следующем запуске квеста будет выдано штрафное продление.")
		} else {
			sb.WriteString("Продления закончились — перезапусти модуль: /repurchase")
		}
	default:
		fmt.Fprintf(&sb, "До дедлайна: <b>%.0f ч.</b>\n%s\n", d.HoursRemaining, d.Text)
		fmt.Fprintf(&sb, "Продлений использовано: %d/%d", d.ExtensionsUsed, d.MaxExtensions)
	}
	return sb.String()
}

func formatTaskQuest(quest catalog.Quest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>%s</b> (+%d XP)\n\n", quest.Title, quest.XPReward)
	if quest.Description != "" {
		sb.WriteString(quest.Description)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Когда будешь готов, отправь работу:\n/submit %s твой комментарий", quest.ID)
	return sb.String()
}

func formatQuizResult(result command.AnswerResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Квиз завершён: <b>%.0f%%</b>\n\n", result.Score*100)

	if !result.Passed {
		sb.WriteString("❌ Не хватило до зачёта (нужно 70%). Попробуй ещё раз — вопросы перемешаются.")
		return sb.String()
	}

	sb.WriteString("✅ <b>Зачёт!</b>\n")
	if result.Completion.XPEarned > 0 {
		fmt.Fprintf(&sb, "Начислено: <b>+%d XP</b>\n", result.Completion.XPEarned)
	}
	if result.Completion.LeveledUp {
		fmt.Fprintf(&sb, "🎉 Новый уровень: <b>%d</b>\n", result.Completion.NewLevel)
	}
	if result.Completion.ModuleAdvanced {
		sb.WriteString("🚀 Открыт следующий модуль! /quests")
	}
	return sb.String()
}

func helpText(isAdmin bool) string {
	var sb strings.Builder
	sb.WriteString("Команды:\n")
	sb.WriteString("/start — регистрация и приветствие\n")
	sb.WriteString("/quests — квесты текущего модуля\n")
	sb.WriteString("/stats — статистика\n")
	sb.WriteString("/top — таблица лидеров\n")
	sb.WriteString("/deadline — сроки по модулю\n")
	sb.WriteString("/bonus — ежедневный бонус\n")
	sb.WriteString("/submit — сдать домашку\n")
	sb.WriteString("/repurchase — перезапуск модуля")

	if isAdmin {
		sb.WriteString("\n\nКоманды куратора:\n")
		sb.WriteString("/approve &lt;user_id&gt; &lt;quest_id&gt;\n")
		sb.WriteString("/reject &lt;user_id&gt; &lt;quest_id&gt;\n")
		sb.WriteString("/revision &lt;user_id&gt; &lt;quest_id&gt;\n")
		sb.WriteString("/extend &lt;user_id&gt; &lt;часы&gt;\n")
		sb.WriteString("/reset &lt;user_id&gt;")
	}
	return sb.String()
}
