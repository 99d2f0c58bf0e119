package command

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
)

// testEnv собирает движки поверх файлового хранилища во временной директории
// и компактного каталога из трёх модулей.
type testEnv struct {
	store       *file.Store
	catalog     *catalog.StaticCatalog
	deadlines   *DeadlineController
	progression *ProgressionEngine
	badges      *BadgeRegistry
	streaks     *StreakTracker
	quests      *QuestLedger
}

func newTestCatalog(t *testing.T) *catalog.StaticCatalog {
	t.Helper()

	modules := []catalog.Module{
		{Index: 0, Key: "intro", Title: "Intro"},
		{Index: 1, Key: "middle", Title: "Middle"},
		{Index: 2, Key: "final", Title: "Final"},
	}
	quests := []catalog.Quest{
		{ID: "m0_quiz", ModuleIndex: 0, Title: "Intro quiz", Type: catalog.QuestQuiz, XPReward: 60, QuizRef: "intro_quiz"},
		{ID: "m0_boss", ModuleIndex: 0, Title: "Intro boss", Type: catalog.QuestTask, XPReward: 50},
		{ID: "m1_task", ModuleIndex: 1, Title: "Middle task", Type: catalog.QuestTask, XPReward: 40},
		{ID: "m2_task", ModuleIndex: 2, Title: "Final task", Type: catalog.QuestTask, XPReward: 100},
	}
	// Четыре вопроса: 3/4 = 0.75 проходит порог, но не является идеальным
	// результатом.
	quizzes := map[string][]catalog.QuizQuestion{
		"intro_quiz": {
			{Text: "q1", Options: []catalog.QuizOption{{Text: "right", Correct: true}, {Text: "wrong"}}},
			{Text: "q2", Options: []catalog.QuizOption{{Text: "right", Correct: true}, {Text: "wrong"}}},
			{Text: "q3", Options: []catalog.QuizOption{{Text: "right", Correct: true}, {Text: "wrong"}}},
			{Text: "q4", Options: []catalog.QuizOption{{Text: "right", Correct: true}, {Text: "wrong"}}},
		},
	}
	badges := []catalog.Badge{
		{ID: catalog.BadgeFirstQuest, Title: "Первый квест"},
		{ID: catalog.BadgeQuizPerfect, Title: "Идеальный квиз"},
		{ID: catalog.BadgeStreak7, Title: "Серия 7"},
		{ID: catalog.BadgeStreak30, Title: "Серия 30"},
		{ID: catalog.BadgeBossSlayer, Title: "Победитель босса"},
		{ID: catalog.BadgeCourseComplete, Title: "Курс пройден"},
	}

	c, err := catalog.NewStaticCatalog(modules, quests, quizzes, badges, []int{0})
	require.NoError(t, err)
	return c
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := file.New(filepath.Join(t.TempDir(), "progress.json"), nil)
	cat := newTestCatalog(t)

	deadlines := NewDeadlineController(store, cat, nil, DefaultDeadlinePolicy(), nil)
	progression := NewProgressionEngine(store, cat, deadlines, nil, nil)
	badges := NewBadgeRegistry(store, cat, nil, nil)
	streaks := NewStreakTracker(store, progression, badges, nil, DefaultStreakPolicy(), nil)
	quests := NewQuestLedger(store, cat, progression, deadlines, badges, nil, nil)

	return &testEnv{
		store:       store,
		catalog:     cat,
		deadlines:   deadlines,
		progression: progression,
		badges:      badges,
		streaks:     streaks,
		quests:      quests,
	}
}
