// Package player содержит доменную модель участника курса SMC Quest.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package player

import (
	"fmt"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет уникальный идентификатор пользователя Telegram.
type UserID int64

// IsValid проверяет, что UserID положительный.
func (u UserID) IsValid() bool {
	return u > 0
}

// String возвращает строковое представление идентификатора.
func (u UserID) String() string {
	return fmt.Sprintf("%d", int64(u))
}

// XP представляет очки опыта участника.
type XP int

// IsValid проверяет, что XP неотрицательный.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add складывает XP.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level представляет уровень участника, вычисляемый из XP.
type Level int

// Rank представляет звание участника, вычисляемое из XP.
type Rank string

// rankThreshold связывает порог XP с уровнем и званием.
type rankThreshold struct {
	MinXP XP
	Level Level
	Title Rank
}

// rankTable - упорядоченная таблица порогов. Уровень и звание - это
// наибольший порог, не превышающий текущий XP.
var rankTable = []rankThreshold{
	{0, 1, "🪨 Новичок"},
	{100, 2, "⚔️ Стажёр"},
	{250, 3, "🥉 Аналитик"},
	{500, 4, "🥈 Трейдер"},
	{900, 5, "🥇 Профи"},
	{1500, 6, "💎 Мастер SMC"},
	{2500, 7, "🔮 Архитектор рынка"},
}

// CalculateLevel вычисляет уровень и звание на основе XP.
func CalculateLevel(xp XP) (Level, Rank) {
	level, rank := rankTable[0].Level, rankTable[0].Title
	for _, t := range rankTable {
		if xp >= t.MinXP {
			level, rank = t.Level, t.Title
		}
	}
	return level, rank
}

// MaxLevel возвращает максимальный достижимый уровень.
func MaxLevel() Level {
	return rankTable[len(rankTable)-1].Level
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkStatus определяет статус домашнего задания на проверке.
type HomeworkStatus string

const (
	// HomeworkIdle - домашка не отправлялась.
	HomeworkIdle HomeworkStatus = "idle"
	// HomeworkPending - домашка ждёт решения проверяющего.
	HomeworkPending HomeworkStatus = "pending"
	// HomeworkApproved - домашка принята.
	HomeworkApproved HomeworkStatus = "approved"
	// HomeworkRejected - домашка отклонена.
	HomeworkRejected HomeworkStatus = "rejected"
	// HomeworkRevision - домашка возвращена на доработку.
	HomeworkRevision HomeworkStatus = "revision"
)

// IsValid проверяет, что статус корректен.
func (h HomeworkStatus) IsValid() bool {
	switch h {
	case HomeworkIdle, HomeworkPending, HomeworkApproved, HomeworkRejected, HomeworkRevision:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true, если статус - результат решения проверяющего.
func (h HomeworkStatus) IsTerminal() bool {
	return h == HomeworkApproved || h == HomeworkRejected || h == HomeworkRevision
}

// ReviewDecision определяет решение проверяющего по домашке.
type ReviewDecision string

const (
	// DecisionApprove - принять работу и начислить награду.
	DecisionApprove ReviewDecision = "approve"
	// DecisionReject - отклонить работу.
	DecisionReject ReviewDecision = "reject"
	// DecisionRevision - вернуть на доработку.
	DecisionRevision ReviewDecision = "revision"
)

// IsValid проверяет, что решение корректно.
func (d ReviewDecision) IsValid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRevision:
		return true
	default:
		return false
	}
}

// Status возвращает статус домашки, соответствующий решению.
func (d ReviewDecision) Status() HomeworkStatus {
	switch d {
	case DecisionApprove:
		return HomeworkApproved
	case DecisionReject:
		return HomeworkRejected
	case DecisionRevision:
		return HomeworkRevision
	default:
		return HomeworkIdle
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

// MaxSubmissions ограничивает историю отправок домашек на пользователя.
// Старые записи вытесняются, статус проверки они не несут.
const MaxSubmissions = 20

// Submission - ссылка на отправленную домашку (сам файл хранится снаружи).
type Submission struct {
	// ID - уникальный идентификатор отправки (UUID в строковом формате).
	ID string `json:"id"`

	// QuestID - квест, к которому относится отправка.
	QuestID string `json:"quest_id"`

	// Note - комментарий участника к работе.
	Note string `json:"note,omitempty"`

	// SubmittedAt - время отправки.
	SubmittedAt time.Time `json:"submitted_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STATE
// ══════════════════════════════════════════════════════════════════════════════

// State - запись прогресса одного участника курса. Сериализуется как есть
// в таблицу прогресса (один JSON-документ user_id -> запись).
//
// Даты календарных событий (streak, дневной бонус) хранятся строками
// YYYY-MM-DD в UTC; дедлайн - строкой RFC3339. Некорректная строка дедлайна
// трактуется как отсутствие дедлайна.
type State struct {
	// UserID - идентификатор пользователя Telegram.
	UserID int64 `json:"user_id"`

	// Name - отображаемое имя участника.
	Name string `json:"name"`

	// XP - накопленные очки опыта. Не убывают, кроме полного сброса.
	XP XP `json:"xp"`

	// Level - текущий уровень, производный от XP.
	Level Level `json:"level"`

	// Rank - текущее звание, производное от XP.
	Rank Rank `json:"rank"`

	// ModuleIndex - индекс текущего модуля [0, количество модулей).
	// Не убывает, кроме сброса и выкупа модуля.
	ModuleIndex int `json:"module_index"`

	// CompletedQuests - идентификаторы завершённых квестов.
	// Растёт монотонно, кроме сброса и выкупа модуля.
	CompletedQuests []string `json:"completed_quests"`

	// ActiveQuest - текущий начатый квест (не более одного).
	ActiveQuest string `json:"active_quest,omitempty"`

	// HomeworkStatus - статус домашки на проверке.
	HomeworkStatus HomeworkStatus `json:"homework_status"`

	// ModuleDeadline - дедлайн текущего модуля строкой RFC3339.
	// Пустая строка - дедлайна нет (бесплатный модуль 0).
	ModuleDeadline string `json:"module_deadline,omitempty"`

	// DeadlineExtensions - использованные продления дедлайна в этом модуле.
	DeadlineExtensions int `json:"deadline_extensions"`

	// Streak - количество подряд идущих активных дней (UTC).
	Streak int `json:"streak"`

	// LastActiveDate - дата последней активности (YYYY-MM-DD, UTC).
	LastActiveDate string `json:"last_active_date,omitempty"`

	// DailyBonusClaimedDate - дата последнего полученного дневного бонуса.
	DailyBonusClaimedDate string `json:"daily_bonus_claimed_date,omitempty"`

	// Badges - полученные бейджи. Только растут, повторное вручение - no-op.
	Badges []string `json:"badges"`

	// QuizSession - состояние текущего квиза (между start и финалом).
	QuizSession *QuizSession `json:"quiz_state,omitempty"`

	// Submissions - ограниченная история отправок домашек.
	Submissions []Submission `json:"submissions,omitempty"`

	// CreatedAt - время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState создаёт запись с настройками по умолчанию для нового участника.
func NewState(userID int64, name string) *State {
	now := time.Now().UTC()
	level, rank := CalculateLevel(0)
	if name == "" {
		name = fmt.Sprintf("%d", userID)
	}
	return &State{
		UserID:          userID,
		Name:            name,
		XP:              0,
		Level:           level,
		Rank:            rank,
		ModuleIndex:     0,
		CompletedQuests: []string{},
		HomeworkStatus:  HomeworkIdle,
		Badges:          []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// AddXP увеличивает XP и пересчитывает уровень/звание.
// Возвращает true, если уровень вырос. Отрицательная дельта запрещена.
func (s *State) AddXP(amount XP) (leveledUp bool, err error) {
	if amount < 0 {
		return false, shared.ErrNegativeXP
	}

	oldLevel := s.Level
	s.XP = s.XP.Add(amount)
	s.Recompute()
	s.touch()

	return s.Level > oldLevel, nil
}

// Recompute пересчитывает производные поля (уровень и звание) из XP.
// Вызывается при загрузке записи и после любого изменения XP.
func (s *State) Recompute() {
	s.Level, s.Rank = CalculateLevel(s.XP)
}

// HasCompleted проверяет, завершён ли квест.
func (s *State) HasCompleted(questID string) bool {
	for _, id := range s.CompletedQuests {
		if id == questID {
			return true
		}
	}
	return false
}

// MarkCompleted добавляет квест в завершённые.
// Возвращает false, если квест уже был завершён (идемпотентность).
func (s *State) MarkCompleted(questID string) bool {
	if s.HasCompleted(questID) {
		return false
	}
	s.CompletedQuests = append(s.CompletedQuests, questID)
	s.touch()
	return true
}

// RemoveQuests убирает перечисленные квесты из завершённых.
// Используется только при выкупе модуля. Возвращает реально убранные.
func (s *State) RemoveQuests(questIDs []string) []string {
	strip := make(map[string]bool, len(questIDs))
	for _, id := range questIDs {
		strip[id] = true
	}

	removed := make([]string, 0, len(questIDs))
	kept := s.CompletedQuests[:0]
	for _, id := range s.CompletedQuests {
		if strip[id] {
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	s.CompletedQuests = kept
	if len(removed) > 0 {
		s.touch()
	}
	return removed
}

// HasBadge проверяет наличие бейджа.
func (s *State) HasBadge(badgeID string) bool {
	for _, id := range s.Badges {
		if id == badgeID {
			return true
		}
	}
	return false
}

// GrantBadge вручает бейдж. Возвращает false, если бейдж уже был
// (повторное вручение - no-op, в записи остаётся ровно одна копия).
func (s *State) GrantBadge(badgeID string) bool {
	if s.HasBadge(badgeID) {
		return false
	}
	s.Badges = append(s.Badges, badgeID)
	s.touch()
	return true
}

// DeadlineAt разбирает сохранённый дедлайн.
// Пустая или некорректная строка трактуется как отсутствие дедлайна.
func (s *State) DeadlineAt() *time.Time {
	if s.ModuleDeadline == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.ModuleDeadline)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// SetDeadlineAt устанавливает дедлайн модуля. nil очищает дедлайн.
func (s *State) SetDeadlineAt(t *time.Time) {
	if t == nil {
		s.ModuleDeadline = ""
	} else {
		s.ModuleDeadline = t.UTC().Format(time.RFC3339)
	}
	s.touch()
}

// AddSubmission добавляет ссылку на отправленную домашку,
// вытесняя самые старые записи сверх лимита.
func (s *State) AddSubmission(sub Submission) {
	s.Submissions = append(s.Submissions, sub)
	if len(s.Submissions) > MaxSubmissions {
		s.Submissions = s.Submissions[len(s.Submissions)-MaxSubmissions:]
	}
	s.touch()
}

// ClearQuiz сбрасывает состояние квиза и активный квест.
func (s *State) ClearQuiz() {
	s.QuizSession = nil
	s.ActiveQuest = ""
	s.touch()
}

// Reset - полный сброс аккаунта к значениям по умолчанию.
// Намеренно разрушительный: очищает всё, включая streak и бейджи.
// Выкуп модуля (модульный сброс) живёт в DeadlineController.
func (s *State) Reset() {
	name := s.Name
	createdAt := s.CreatedAt
	*s = *NewState(s.UserID, name)
	s.CreatedAt = createdAt
}

// touch обновляет время последнего изменения.
func (s *State) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// String возвращает строковое представление для логирования.
func (s *State) String() string {
	return fmt.Sprintf(
		"Player{ID: %d, Name: %s, XP: %d, Level: %d, Module: %d, Streak: %d}",
		s.UserID, s.Name, s.XP, s.Level, s.ModuleIndex, s.Streak,
	)
}

// Clone создаёт глубокую копию записи. Store мутирует копию и подменяет
// оригинал только при успешном завершении операции.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	clone := *s
	clone.CompletedQuests = append([]string(nil), s.CompletedQuests...)
	clone.Badges = append([]string(nil), s.Badges...)
	clone.Submissions = append([]Submission(nil), s.Submissions...)
	clone.QuizSession = s.QuizSession.Clone()
	return &clone
}

// Migrate дополняет запись значениями по умолчанию для полей, которых не
// было в старых версиях файла прогресса. Выполняется один раз при загрузке.
func (s *State) Migrate(userID int64) {
	if s.UserID == 0 {
		s.UserID = userID
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("%d", userID)
	}
	if s.XP < 0 {
		s.XP = 0
	}
	if s.CompletedQuests == nil {
		s.CompletedQuests = []string{}
	}
	if s.Badges == nil {
		s.Badges = []string{}
	}
	if !s.HomeworkStatus.IsValid() {
		s.HomeworkStatus = HomeworkIdle
	}
	if s.Streak < 0 {
		s.Streak = 0
	}
	if s.DeadlineExtensions < 0 {
		s.DeadlineExtensions = 0
	}
	// Некорректный дедлайн нормализуется в "нет дедлайна".
	if s.ModuleDeadline != "" && s.DeadlineAt() == nil {
		s.ModuleDeadline = ""
	}
	if s.QuizSession != nil && !s.QuizSession.IsValid() {
		s.QuizSession = nil
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	s.Recompute()
}
