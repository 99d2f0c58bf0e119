// Package catalog содержит неизменяемый контент курса: модули, квесты,
// квизы и бейджи. Контент загружается один раз и только читается.
package catalog

import (
	"fmt"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// QuestType определяет тип квеста.
type QuestType string

const (
	// QuestTask - задание с ручной проверкой (домашка).
	QuestTask QuestType = "task"
	// QuestQuiz - квиз с автоматическим зачётом.
	QuestQuiz QuestType = "quiz"
)

// Quest - определение квеста в каталоге.
type Quest struct {
	// ID - уникальный идентификатор квеста (например, "m1_quiz").
	ID string

	// ModuleIndex - модуль, к которому привязан квест.
	ModuleIndex int

	// Title - название квеста.
	Title string

	// Type - тип квеста (task или quiz).
	Type QuestType

	// XPReward - награда за завершение.
	XPReward int

	// QuizRef - ссылка на квиз (только для типа quiz).
	QuizRef string

	// Description - текст задания (только для типа task).
	Description string
}

// IsBoss возвращает true для финального квеста модуля.
func (q Quest) IsBoss() bool {
	n := len(q.ID)
	return n >= 5 && q.ID[n-5:] == "_boss"
}

// Module - определение модуля курса.
type Module struct {
	// Index - порядковый номер модуля, начиная с 0.
	Index int

	// Key - машинное имя модуля.
	Key string

	// Title - название модуля.
	Title string

	// Homework - текст домашнего задания модуля.
	Homework string

	// QuestIDs - квесты, завершение которых открывает следующий модуль.
	QuestIDs []string
}

// QuizOption - вариант ответа в вопросе квиза.
type QuizOption struct {
	Text    string
	Correct bool
}

// QuizQuestion - вопрос квиза с набором вариантов.
// Ровно один вариант правильный; порядок в каталоге не имеет значения -
// варианты перемешиваются на каждую попытку.
type QuizQuestion struct {
	Text    string
	Options []QuizOption
}

// Badge - определение бейджа.
type Badge struct {
	// ID - уникальный идентификатор бейджа.
	ID string

	// Title - название бейджа.
	Title string

	// Description - за что вручается.
	Description string
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - контракт каталога контента для движков прогресса.
type Catalog interface {
	// Modules возвращает упорядоченный список модулей.
	Modules() []Module

	// Module возвращает модуль по индексу.
	// Возвращает ErrModuleNotFound для индекса вне диапазона.
	Module(index int) (Module, error)

	// ModuleCount возвращает количество модулей.
	ModuleCount() int

	// IsFreeModule возвращает true для модуля без дедлайна.
	IsFreeModule(index int) bool

	// Quest возвращает квест по идентификатору.
	// Возвращает ErrQuestNotFound для неизвестного id.
	Quest(id string) (Quest, error)

	// QuestsForModule возвращает квесты модуля в порядке каталога.
	QuestsForModule(index int) []Quest

	// QuestIDsForModule возвращает идентификаторы квестов модуля.
	QuestIDsForModule(index int) []string

	// Quiz возвращает вопросы квиза по ссылке.
	// Возвращает ErrQuizNotFound для неизвестной ссылки.
	Quiz(ref string) ([]QuizQuestion, error)

	// Badge возвращает определение бейджа.
	// Возвращает ErrBadgeNotFound для неизвестного id.
	Badge(id string) (Badge, error)

	// Badges возвращает все определения бейджей.
	Badges() []Badge
}

// ══════════════════════════════════════════════════════════════════════════════
// STATIC IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StaticCatalog - каталог на статических данных, валидируется при создании.
type StaticCatalog struct {
	modules      []Module
	quests       []Quest
	questByID    map[string]Quest
	questsByMod  map[int][]Quest
	quizzes      map[string][]QuizQuestion
	badges       []Badge
	badgeByID    map[string]Badge
	freeModules  map[int]bool
}

// NewStaticCatalog собирает каталог и проверяет его целостность:
// индексы модулей непрерывны, квесты ссылаются на существующие модули,
// ссылки квизов разрешаются, в каждом вопросе ровно один правильный вариант.
func NewStaticCatalog(
	modules []Module,
	quests []Quest,
	quizzes map[string][]QuizQuestion,
	badges []Badge,
	freeModules []int,
) (*StaticCatalog, error) {
	if len(modules) == 0 {
		return nil, invalid("course has no modules")
	}
	for i, m := range modules {
		if m.Index != i {
			return nil, invalid(fmt.Sprintf("module %q has index %d, want %d", m.Key, m.Index, i))
		}
	}

	c := &StaticCatalog{
		modules:     modules,
		quests:      quests,
		questByID:   make(map[string]Quest, len(quests)),
		questsByMod: make(map[int][]Quest),
		quizzes:     quizzes,
		badges:      badges,
		badgeByID:   make(map[string]Badge, len(badges)),
		freeModules: make(map[int]bool, len(freeModules)),
	}

	for _, q := range quests {
		if _, dup := c.questByID[q.ID]; dup {
			return nil, invalid(fmt.Sprintf("duplicate quest id %q", q.ID))
		}
		if q.ModuleIndex < 0 || q.ModuleIndex >= len(modules) {
			return nil, invalid(fmt.Sprintf("quest %q references module %d", q.ID, q.ModuleIndex))
		}
		if q.XPReward < 0 {
			return nil, invalid(fmt.Sprintf("quest %q has negative xp reward", q.ID))
		}
		switch q.Type {
		case QuestQuiz:
			questions, ok := quizzes[q.QuizRef]
			if !ok || len(questions) == 0 {
				return nil, invalid(fmt.Sprintf("quest %q references unknown quiz %q", q.ID, q.QuizRef))
			}
		case QuestTask:
			// описания не обязательны
		default:
			return nil, invalid(fmt.Sprintf("quest %q has unknown type %q", q.ID, q.Type))
		}
		c.questByID[q.ID] = q
		c.questsByMod[q.ModuleIndex] = append(c.questsByMod[q.ModuleIndex], q)
	}

	for i := range modules {
		ids := make([]string, 0, len(c.questsByMod[i]))
		for _, q := range c.questsByMod[i] {
			ids = append(ids, q.ID)
		}
		modules[i].QuestIDs = ids
		if len(ids) == 0 {
			return nil, invalid(fmt.Sprintf("module %q has no quests", modules[i].Key))
		}
	}

	for ref, questions := range quizzes {
		for qi, question := range questions {
			correct := 0
			for _, opt := range question.Options {
				if opt.Correct {
					correct++
				}
			}
			if correct != 1 {
				return nil, invalid(fmt.Sprintf("quiz %q question %d has %d correct options", ref, qi, correct))
			}
			if len(question.Options) < 2 {
				return nil, invalid(fmt.Sprintf("quiz %q question %d has too few options", ref, qi))
			}
		}
	}

	for _, b := range badges {
		if _, dup := c.badgeByID[b.ID]; dup {
			return nil, invalid(fmt.Sprintf("duplicate badge id %q", b.ID))
		}
		c.badgeByID[b.ID] = b
	}

	for _, idx := range freeModules {
		if idx < 0 || idx >= len(modules) {
			return nil, invalid(fmt.Sprintf("free module index %d out of range", idx))
		}
		c.freeModules[idx] = true
	}

	return c, nil
}

func invalid(msg string) error {
	return shared.WrapError("catalog", "Validate", shared.ErrInvalidFormat, msg, nil)
}

// Modules возвращает упорядоченный список модулей.
func (c *StaticCatalog) Modules() []Module {
	return c.modules
}

// Module возвращает модуль по индексу.
func (c *StaticCatalog) Module(index int) (Module, error) {
	if index < 0 || index >= len(c.modules) {
		return Module{}, shared.ErrModuleNotFound
	}
	return c.modules[index], nil
}

// ModuleCount возвращает количество модулей.
func (c *StaticCatalog) ModuleCount() int {
	return len(c.modules)
}

// IsFreeModule возвращает true для модуля без дедлайна.
func (c *StaticCatalog) IsFreeModule(index int) bool {
	return c.freeModules[index]
}

// Quest возвращает квест по идентификатору.
func (c *StaticCatalog) Quest(id string) (Quest, error) {
	q, ok := c.questByID[id]
	if !ok {
		return Quest{}, shared.ErrQuestNotFound
	}
	return q, nil
}

// QuestsForModule возвращает квесты модуля в порядке каталога.
func (c *StaticCatalog) QuestsForModule(index int) []Quest {
	return c.questsByMod[index]
}

// QuestIDsForModule возвращает идентификаторы квестов модуля.
func (c *StaticCatalog) QuestIDsForModule(index int) []string {
	quests := c.questsByMod[index]
	ids := make([]string, 0, len(quests))
	for _, q := range quests {
		ids = append(ids, q.ID)
	}
	return ids
}

// Quiz возвращает вопросы квиза по ссылке.
func (c *StaticCatalog) Quiz(ref string) ([]QuizQuestion, error) {
	questions, ok := c.quizzes[ref]
	if !ok {
		return nil, shared.ErrQuizNotFound
	}
	return questions, nil
}

// Badge возвращает определение бейджа.
func (c *StaticCatalog) Badge(id string) (Badge, error) {
	b, ok := c.badgeByID[id]
	if !ok {
		return Badge{}, shared.ErrBadgeNotFound
	}
	return b, nil
}

// Badges возвращает все определения бейджей.
func (c *StaticCatalog) Badges() []Badge {
	return c.badges
}
