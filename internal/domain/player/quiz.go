package player

import (
	"math/rand"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// QuizPassThreshold - минимальная доля правильных ответов для зачёта квиза.
const QuizPassThreshold = 0.70

// QuizOption - один вариант ответа в шаблоне вопроса.
type QuizOption struct {
	Text    string
	Correct bool
}

// QuizTemplate - вопрос из каталога до перемешивания вариантов.
type QuizTemplate struct {
	Text    string
	Options []QuizOption
}

// QuizQuestion - материализованный вопрос одной попытки: варианты
// перемешаны, позиция правильного зафиксирована. Порядок вариантов
// живёт только внутри попытки и не детерминирован между попытками.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// QuizSession - состояние одной попытки квиза.
//
// Жизненный цикл: NotStarted -> InProgress(index, correct, total) ->
// {Passed, Failed} -> NotStarted. Провал не блокирует повторный старт.
type QuizSession struct {
	// QuestID - квест, в рамках которого идёт попытка.
	QuestID string `json:"quest_id"`

	// QuizRef - ссылка на квиз в каталоге.
	QuizRef string `json:"quiz_id"`

	// Index - номер текущего вопроса [0, Total].
	Index int `json:"index"`

	// Correct - количество правильных ответов.
	Correct int `json:"correct"`

	// Total - количество вопросов в попытке.
	Total int `json:"total"`

	// Questions - материализованные вопросы этой попытки.
	Questions []QuizQuestion `json:"questions"`

	// StartedAt - время начала попытки.
	StartedAt time.Time `json:"started_at"`
}

// NewQuizSession создаёт попытку квиза: для каждого вопроса перемешивает
// варианты и запоминает, куда попал правильный.
func NewQuizSession(questID, quizRef string, templates []QuizTemplate) *QuizSession {
	questions := make([]QuizQuestion, 0, len(templates))
	for _, tpl := range templates {
		order := rand.Perm(len(tpl.Options))
		q := QuizQuestion{
			Question:     tpl.Text,
			Options:      make([]string, len(tpl.Options)),
			CorrectIndex: -1,
		}
		for pos, src := range order {
			q.Options[pos] = tpl.Options[src].Text
			if tpl.Options[src].Correct {
				q.CorrectIndex = pos
			}
		}
		questions = append(questions, q)
	}

	return &QuizSession{
		QuestID:   questID,
		QuizRef:   quizRef,
		Index:     0,
		Correct:   0,
		Total:     len(questions),
		Questions: questions,
		StartedAt: time.Now().UTC(),
	}
}

// CurrentQuestion возвращает текущий вопрос попытки.
func (q *QuizSession) CurrentQuestion() (QuizQuestion, bool) {
	if q == nil || q.Index < 0 || q.Index >= len(q.Questions) {
		return QuizQuestion{}, false
	}
	return q.Questions[q.Index], true
}

// IsCorrectOption проверяет, указывает ли выбранный вариант на правильный
// ответ текущего вопроса. Хелпер для транспортного слоя.
func (q *QuizSession) IsCorrectOption(optionIndex int) bool {
	current, ok := q.CurrentQuestion()
	if !ok {
		return false
	}
	return optionIndex == current.CorrectIndex
}

// Answer фиксирует ответ на вопрос questionIndex и продвигает попытку.
// Ответ не на текущий вопрос отклоняется.
func (q *QuizSession) Answer(questionIndex int, isCorrect bool) error {
	if q == nil {
		return shared.ErrNoActiveQuizSession
	}
	if questionIndex != q.Index || q.Index >= q.Total {
		return shared.ErrQuizIndexMismatch
	}

	if isCorrect {
		q.Correct++
	}
	q.Index++
	return nil
}

// Finished возвращает true, когда отвечены все вопросы.
func (q *QuizSession) Finished() bool {
	return q != nil && q.Index >= q.Total
}

// Score возвращает долю правильных ответов [0.0, 1.0].
func (q *QuizSession) Score() float64 {
	if q == nil || q.Total == 0 {
		return 0
	}
	return float64(q.Correct) / float64(q.Total)
}

// Passed возвращает true при зачёте (score >= 0.70).
func (q *QuizSession) Passed() bool {
	return q.Finished() && q.Score() >= QuizPassThreshold
}

// Perfect возвращает true при стопроцентном результате.
func (q *QuizSession) Perfect() bool {
	return q.Finished() && q.Total > 0 && q.Correct == q.Total
}

// IsValid проверяет внутреннюю согласованность восстановленной попытки.
// Битая попытка из старого файла прогресса отбрасывается при миграции.
func (q *QuizSession) IsValid() bool {
	if q == nil {
		return false
	}
	if q.Total != len(q.Questions) || q.Total == 0 {
		return false
	}
	if q.Index < 0 || q.Index > q.Total {
		return false
	}
	if q.Correct < 0 || q.Correct > q.Index {
		return false
	}
	for _, question := range q.Questions {
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return false
		}
	}
	return true
}

// Clone создаёт глубокую копию попытки.
func (q *QuizSession) Clone() *QuizSession {
	if q == nil {
		return nil
	}

	clone := *q
	clone.Questions = make([]QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		clone.Questions[i] = question
	}
	return &clone
}
