package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smc-quest/smc-quest-core/internal/application/query"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	cmd := telegram.ExtractCommand(msg)
	args := telegram.ExtractCommandArgs(msg)

	// Every interaction counts as daily activity once the player exists.
	if cmd != "start" {
		if _, _, err := b.deps.Streaks.Touch(ctx, userID); err != nil && !shared.IsNotFound(err) {
			b.logger.Warn("streak touch failed", "user_id", userID, "error", err)
		}
	}

	switch cmd {
	case "start":
		return b.cmdStart(ctx, msg)
	case "quests":
		return b.cmdQuests(ctx, userID)
	case "stats":
		return b.cmdStats(ctx, userID)
	case "top":
		return b.cmdTop(ctx, userID)
	case "deadline":
		return b.cmdDeadline(ctx, userID)
	case "bonus":
		return b.cmdBonus(ctx, userID)
	case "repurchase":
		return b.cmdRepurchase(ctx, userID)
	case "submit":
		return b.cmdSubmit(ctx, userID, args)
	case "approve", "reject", "revision":
		return b.cmdReview(ctx, userID, player.ReviewDecision(cmd), args)
	case "extend":
		return b.cmdExtend(ctx, userID, args)
	case "reset":
		return b.cmdReset(ctx, userID, args)
	case "help", "":
		return b.send(ctx, userID, helpText(b.isAdmin(userID)))
	default:
		return b.send(ctx, userID, "Неизвестная команда. /help")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) cmdStart(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID

	dto, err := b.deps.GetPlayer.HandleOrCreate(ctx, userID, msg.From.FullName())
	if err != nil {
		return b.sendError(ctx, userID, err)
	}
	if _, _, err := b.deps.Streaks.Touch(ctx, userID); err != nil {
		b.logger.Warn("streak touch failed", "user_id", userID, "error", err)
	}

	return b.send(ctx, userID, formatWelcome(dto))
}

func (b *Bot) cmdQuests(ctx context.Context, userID int64) error {
	dto, err := b.deps.GetPlayer.Handle(ctx, userID)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}

	module, err := b.deps.Catalog.Module(dto.ModuleIndex)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}

	completed := make(map[string]bool, len(dto.CompletedQuests))
	for _, id := range dto.CompletedQuests {
		completed[id] = true
	}

	kb := telegram.NewKeyboard()
	for _, quest := range b.deps.Catalog.QuestsForModule(dto.ModuleIndex) {
		label := fmt.Sprintf("%s (+%d XP)", quest.Title, quest.XPReward)
		if completed[quest.ID] {
			label = "✅ " + quest.Title
		}
		kb.Row(telegram.Button(label, "quest:"+quest.ID))
	}

	text := fmt.Sprintf("<b>%s</b>\n\nВыбери квест:", module.Title)
	_, err = b.client.SendWithKeyboard(ctx, userID, text, kb.Build().InlineKeyboard)
	return err
}

func (b *Bot) cmdStats(ctx context.Context, userID int64) error {
	stats, err := b.deps.GetStats.Handle(ctx, userID)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}
	return b.send(ctx, userID, formatStats(stats))
}

func (b *Bot) cmdTop(ctx context.Context, userID int64) error {
	result, err := b.deps.GetLeaderboard.Handle(ctx, query.GetLeaderboardQuery{Limit: 10})
	if err != nil {
		return b.sendError(ctx, userID, err)
	}
	return b.send(ctx, userID, formatLeaderboard(result, userID))
}

func (b *Bot) cmdDeadline(ctx context.Context, userID int64) error {
	stats, err := b.deps.GetStats.Handle(ctx, userID)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}
	return b.send(ctx, userID, formatDeadline(stats))
}

func (b *Bot) cmdBonus(ctx context.Context, userID int64) error {
	xp, claimed, err := b.deps.Streaks.ClaimDailyBonus(ctx, userID)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}
	if !claimed {
		return b.send(ctx, userID, "Сегодняшний бонус уже получен. Возвращайся завтра!")
	}
	return b.send(ctx, userID, fmt.Sprintf("🎁 Ежедневный бонус: <b>+%d XP</b>", xp))
}

func (b *Bot) cmdRepurchase(ctx context.Context, userID int64) error {
	if err := b.deps.Deadlines.Repurchase(ctx, userID); err != nil {
		return b.sendError(ctx, userID, err)
	}
	return b.send(ctx, userID,
		"🔄 Модуль перезапущен: прогресс модуля очищен, XP и бейджи сохранены. Новый дедлайн установлен.")
}

func (b *Bot) cmdSubmit(ctx context.Context, userID int64, args string) error {
	questID, note, _ := strings.Cut(args, " ")
	if questID == "" {
		return b.send(ctx, userID, "Формат: /submit &lt;quest_id&gt; &lt;комментарий&gt;")
	}

	if _, err := b.deps.Quests.SubmitTask(ctx, userID, questID, strings.TrimSpace(note)); err != nil {
		return b.sendError(ctx, userID, err)
	}
	return b.send(ctx, userID, "📬 Домашка отправлена на проверку. Жди решения куратора.")
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATOR COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) cmdReview(ctx context.Context, adminID int64, decision player.ReviewDecision, args string) error {
	if !b.isAdmin(adminID) {
		return b.send(ctx, adminID, "Команда доступна только куратору.")
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		return b.send(ctx, adminID, "Формат: /approve &lt;user_id&gt; &lt;quest_id&gt;")
	}
	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return b.send(ctx, adminID, "Некорректный user_id.")
	}
	questID := fields[1]

	outcome, err := b.deps.Quests.ReviewDecision(ctx, targetID, questID, decision)
	if err != nil {
		return b.sendError(ctx, adminID, err)
	}

	// Notify the player about the verdict.
	b.notifyReview(ctx, targetID, questID, decision, outcome.XPEarned)

	return b.send(ctx, adminID, fmt.Sprintf(
		"Решение «%s» по %s для %d применено. Начислено XP: %d.",
		decision, questID, targetID, outcome.XPEarned))
}

func (b *Bot) cmdExtend(ctx context.Context, adminID int64, args string) error {
	if !b.isAdmin(adminID) {
		return b.send(ctx, adminID, "Команда доступна только куратору.")
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		return b.send(ctx, adminID, "Формат: /extend &lt;user_id&gt; &lt;часы&gt;")
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	hours, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || hours <= 0 {
		return b.send(ctx, adminID, "Некорректные аргументы.")
	}

	newDeadline, err := b.deps.Deadlines.Extend(ctx, targetID, hours)
	if err != nil {
		return b.sendError(ctx, adminID, err)
	}

	b.notify(ctx, targetID, fmt.Sprintf("⏰ Куратор продлил твой дедлайн на %d ч.", hours))
	return b.send(ctx, adminID, fmt.Sprintf(
		"Дедлайн для %d продлён до %s.", targetID, newDeadline.Format("02.01 15:04")))
}

func (b *Bot) cmdReset(ctx context.Context, adminID int64, args string) error {
	if !b.isAdmin(adminID) {
		return b.send(ctx, adminID, "Команда доступна только куратору.")
	}

	targetID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return b.send(ctx, adminID, "Формат: /reset &lt;user_id&gt;")
	}

	if err := b.deps.Progression.ResetAccount(ctx, targetID); err != nil {
		return b.sendError(ctx, adminID, err)
	}
	return b.send(ctx, adminID, fmt.Sprintf("Аккаунт %d полностью сброшен.", targetID))
}

// ══════════════════════════════════════════════════════════════════════════════
// CALLBACKS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	userID := cb.From.ID

	defer func() {
		if err := b.client.AnswerCallbackQuery(ctx, cb.ID, "", false); err != nil {
			b.logger.Warn("answer callback failed", "error", err)
		}
	}()

	switch {
	case strings.HasPrefix(cb.Data, "quest:"):
		return b.callbackQuestStart(ctx, userID, strings.TrimPrefix(cb.Data, "quest:"))
	case strings.HasPrefix(cb.Data, "quiz:"):
		return b.callbackQuizAnswer(ctx, userID, strings.TrimPrefix(cb.Data, "quiz:"))
	default:
		return nil
	}
}

func (b *Bot) callbackQuestStart(ctx context.Context, userID int64, questID string) error {
	session, err := b.deps.Quests.Start(ctx, userID, questID)
	if errors.Is(err, shared.ErrDeadlineExpired) {
		extended, extErr := b.deps.Deadlines.ApplyPenaltyExtension(ctx, userID)
		if extErr != nil {
			return b.sendError(ctx, userID, extErr)
		}
		if extended {
			return b.send(ctx, userID,
				"⌛ Дедлайн истёк. Выдано штрафное продление — попробуй ещё раз.")
		}
		return b.send(ctx, userID,
			"⌛ Дедлайн истёк, продления закончились. Перезапусти модуль: /repurchase")
	}
	if err != nil {
		return b.sendError(ctx, userID, err)
	}

	if session == nil {
		quest, qErr := b.deps.Catalog.Quest(questID)
		if qErr != nil {
			return b.sendError(ctx, userID, qErr)
		}
		return b.send(ctx, userID, formatTaskQuest(quest))
	}

	return b.sendQuizQuestion(ctx, userID, query.QuizViewFromSession(session))
}

func (b *Bot) callbackQuizAnswer(ctx context.Context, userID int64, payload string) error {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	questionIndex, err1 := strconv.Atoi(parts[0])
	optionIndex, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}

	result, err := b.deps.Quests.AnswerOption(ctx, userID, questionIndex, optionIndex)
	if err != nil {
		return b.sendError(ctx, userID, err)
	}

	if !result.Finished {
		dto, err := b.deps.GetPlayer.Handle(ctx, userID)
		if err != nil || dto.Quiz == nil {
			return err
		}
		return b.sendQuizQuestion(ctx, userID, dto.Quiz)
	}

	return b.send(ctx, userID, formatQuizResult(result))
}

// ══════════════════════════════════════════════════════════════════════════════
// SEND HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	_, err := b.client.SendHTML(ctx, chatID, text)
	return err
}

// notify sends a best-effort message to another player.
func (b *Bot) notify(ctx context.Context, chatID int64, text string) {
	if err := b.send(ctx, chatID, text); err != nil {
		b.logger.Warn("player notification failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) notifyReview(ctx context.Context, targetID int64, questID string, decision player.ReviewDecision, xp int) {
	var text string
	switch decision {
	case player.DecisionApprove:
		text = fmt.Sprintf("✅ Домашка по %s принята! +%d XP", questID, xp)
	case player.DecisionReject:
		text = fmt.Sprintf("❌ Домашка по %s отклонена. Посмотри материалы модуля ещё раз.", questID)
	case player.DecisionRevision:
		text = fmt.Sprintf("✏️ Домашка по %s отправлена на доработку.", questID)
	}
	b.notify(ctx, targetID, text)
}

func (b *Bot) sendQuizQuestion(ctx context.Context, userID int64, view *query.QuizViewDTO) error {
	if view == nil {
		return nil
	}

	kb := telegram.NewKeyboard()
	for _, option := range view.Options {
		kb.Row(telegram.Button(option.Text,
			fmt.Sprintf("quiz:%d:%d", view.QuestionIndex, option.Index)))
	}

	text := fmt.Sprintf("❓ <b>Вопрос %d/%d</b>\n\n%s",
		view.QuestionIndex+1, view.Total, view.Question)
	_, err := b.client.SendWithKeyboard(ctx, userID, text, kb.Build().InlineKeyboard)
	return err
}

// sendError maps domain errors to player-facing messages.
func (b *Bot) sendError(ctx context.Context, chatID int64, err error) error {
	var text string
	switch {
	case shared.IsNotFound(err):
		text = "Не найдено. Начни с команды /start."
	case errors.Is(err, shared.ErrQuestCompleted):
		text = "Этот квест уже завершён. /quests"
	case errors.Is(err, shared.ErrQuestWrongModule):
		text = "Квест из другого модуля. Сначала закрой текущий. /quests"
	case errors.Is(err, shared.ErrNoActiveQuizSession):
		text = "Нет активного квиза. Начни квест заново. /quests"
	case errors.Is(err, shared.ErrQuizIndexMismatch):
		text = "Похоже, это ответ на старый вопрос. Продолжай с текущего."
	case errors.Is(err, shared.ErrNoPendingHomework):
		text = "По этому игроку нет домашки на проверке."
	case errors.Is(err, shared.ErrExtensionsExhausted):
		text = "Продления по этому модулю закончились."
	case shared.IsValidation(err):
		text = "Некорректный запрос: " + err.Error()
	default:
		b.logger.Error("command failed", "chat_id", chatID, "error", err)
		text = "Что-то пошло не так. Попробуй позже."
	}
	return b.send(ctx, chatID, text)
}
