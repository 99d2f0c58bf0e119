package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PLAYER QUERY
// Снимок профиля игрока для клиента. Правильные ответы активной квиз-сессии
// наружу не отдаются - клиент видит только текст вопроса и варианты.
// ══════════════════════════════════════════════════════════════════════════════

// QuizOptionDTO - вариант ответа без признака правильности.
type QuizOptionDTO struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuizViewDTO - клиентское представление активной квиз-сессии.
type QuizViewDTO struct {
	// QuestID - квест, к которому привязана сессия.
	QuestID string `json:"quest_id"`

	// QuestionIndex - номер текущего вопроса (с нуля).
	QuestionIndex int `json:"question_index"`

	// Total - всего вопросов в попытке.
	Total int `json:"total"`

	// Question - текст текущего вопроса.
	Question string `json:"question"`

	// Options - перемешанные варианты ответа.
	Options []QuizOptionDTO `json:"options"`
}

// PlayerDTO - снимок профиля игрока.
type PlayerDTO struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`

	XP    int    `json:"xp"`
	Level int    `json:"level"`
	Rank  string `json:"rank"`

	ModuleIndex     int      `json:"module_index"`
	CompletedQuests []string `json:"completed_quests"`
	ActiveQuest     string   `json:"active_quest,omitempty"`
	HomeworkStatus  string   `json:"homework_status"`

	Deadline           *time.Time `json:"deadline,omitempty"`
	DeadlineExtensions int        `json:"deadline_extensions"`

	Streak         int    `json:"streak"`
	LastActiveDate string `json:"last_active_date,omitempty"`

	Badges []string `json:"badges"`

	Quiz *QuizViewDTO `json:"quiz,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// GetPlayerHandler обрабатывает запросы профиля игрока.
type GetPlayerHandler struct {
	store player.Store
	log   *slog.Logger
}

// NewGetPlayerHandler создаёт новый обработчик профиля.
func NewGetPlayerHandler(store player.Store, log *slog.Logger) *GetPlayerHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GetPlayerHandler{store: store, log: log}
}

// Handle возвращает снимок профиля существующего игрока.
func (h *GetPlayerHandler) Handle(ctx context.Context, userID int64) (*PlayerDTO, error) {
	var dto *PlayerDTO

	err := h.store.View(ctx, userID, func(state *player.State) error {
		dto = toPlayerDTO(state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// HandleOrCreate возвращает снимок профиля, создавая запись при первом
// обращении (регистрация через /api/user/init).
func (h *GetPlayerHandler) HandleOrCreate(ctx context.Context, userID int64, name string) (*PlayerDTO, error) {
	state, err := h.store.GetOrCreate(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return toPlayerDTO(state), nil
}

func toPlayerDTO(state *player.State) *PlayerDTO {
	dto := &PlayerDTO{
		UserID:             int64(state.UserID),
		Name:               state.Name,
		XP:                 int(state.XP),
		Level:              int(state.Level),
		Rank:               string(state.Rank),
		ModuleIndex:        state.ModuleIndex,
		CompletedQuests:    append([]string(nil), state.CompletedQuests...),
		ActiveQuest:        state.ActiveQuest,
		HomeworkStatus:     string(state.HomeworkStatus),
		Deadline:           state.DeadlineAt(),
		DeadlineExtensions: state.DeadlineExtensions,
		Streak:             state.Streak,
		LastActiveDate:     state.LastActiveDate,
		Badges:             append([]string(nil), state.Badges...),
		CreatedAt:          state.CreatedAt,
	}

	if session := state.QuizSession; session != nil && session.IsValid() {
		dto.Quiz = QuizViewFromSession(session)
	}
	return dto
}

// QuizViewFromSession строит клиентское представление текущего вопроса.
// Возвращает nil, когда попытка завершена или отсутствует.
func QuizViewFromSession(session *player.QuizSession) *QuizViewDTO {
	question, ok := session.CurrentQuestion()
	if !ok {
		return nil
	}

	options := make([]QuizOptionDTO, len(question.Options))
	for i, text := range question.Options {
		options[i] = QuizOptionDTO{Index: i, Text: text}
	}

	return &QuizViewDTO{
		QuestID:       session.QuestID,
		QuestionIndex: session.Index,
		Total:         session.Total,
		Question:      question.Question,
		Options:       options,
	}
}
