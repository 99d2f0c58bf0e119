package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func TestDefault_IsConsistent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 8, c.ModuleCount())
	assert.True(t, c.IsFreeModule(0), "the intro module has no deadline")
	assert.False(t, c.IsFreeModule(1))

	for _, m := range c.Modules() {
		quests := c.QuestsForModule(m.Index)
		assert.NotEmpty(t, quests, "module %q has no quests", m.Key)
		assert.Equal(t, c.QuestIDsForModule(m.Index), m.QuestIDs)

		for _, q := range quests {
			assert.Equal(t, m.Index, q.ModuleIndex)
			if q.Type == QuestQuiz {
				questions, err := c.Quiz(q.QuizRef)
				require.NoError(t, err, "quest %q quiz ref", q.ID)
				assert.NotEmpty(t, questions)
			}
		}
	}

	for _, id := range []string{BadgeFirstQuest, BadgeQuizPerfect, BadgeStreak7,
		BadgeStreak30, BadgeBossSlayer, BadgeCourseComplete} {
		_, err := c.Badge(id)
		assert.NoError(t, err, "badge %q missing from catalog", id)
	}
}

func TestDefault_BossQuests(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, m := range c.Modules() {
		bosses := 0
		for _, q := range c.QuestsForModule(m.Index) {
			if q.IsBoss() {
				bosses++
			}
		}
		assert.Equal(t, 1, bosses, "module %q must have exactly one boss quest", m.Key)
	}
}

func TestStaticCatalog_Lookups(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	q, err := c.Quest("m1_quiz")
	require.NoError(t, err)
	assert.Equal(t, QuestQuiz, q.Type)
	assert.Equal(t, 0, q.ModuleIndex)

	_, err = c.Quest("nope")
	assert.ErrorIs(t, err, shared.ErrQuestNotFound)

	_, err = c.Module(-1)
	assert.ErrorIs(t, err, shared.ErrModuleNotFound)
	_, err = c.Module(c.ModuleCount())
	assert.ErrorIs(t, err, shared.ErrModuleNotFound)

	_, err = c.Quiz("nope")
	assert.ErrorIs(t, err, shared.ErrQuizNotFound)

	_, err = c.Badge("nope")
	assert.ErrorIs(t, err, shared.ErrBadgeNotFound)
}

func TestNewStaticCatalog_Validation(t *testing.T) {
	module := Module{Index: 0, Key: "intro", Title: "Intro"}
	quiz := map[string][]QuizQuestion{
		"q1": {{Text: "?", Options: []QuizOption{{Text: "a", Correct: true}, {Text: "b"}}}},
	}
	quest := Quest{ID: "m1_quiz", ModuleIndex: 0, Title: "Quiz", Type: QuestQuiz, XPReward: 10, QuizRef: "q1"}

	t.Run("valid", func(t *testing.T) {
		_, err := NewStaticCatalog([]Module{module}, []Quest{quest}, quiz, nil, []int{0})
		assert.NoError(t, err)
	})

	t.Run("no modules", func(t *testing.T) {
		_, err := NewStaticCatalog(nil, nil, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("gap in module indexes", func(t *testing.T) {
		_, err := NewStaticCatalog([]Module{{Index: 1, Key: "x"}}, []Quest{quest}, quiz, nil, nil)
		assert.Error(t, err)
	})

	t.Run("duplicate quest id", func(t *testing.T) {
		_, err := NewStaticCatalog([]Module{module}, []Quest{quest, quest}, quiz, nil, nil)
		assert.Error(t, err)
	})

	t.Run("quest references missing quiz", func(t *testing.T) {
		bad := quest
		bad.QuizRef = "missing"
		_, err := NewStaticCatalog([]Module{module}, []Quest{bad}, quiz, nil, nil)
		assert.Error(t, err)
	})

	t.Run("question with two correct options", func(t *testing.T) {
		badQuiz := map[string][]QuizQuestion{
			"q1": {{Text: "?", Options: []QuizOption{{Text: "a", Correct: true}, {Text: "b", Correct: true}}}},
		}
		_, err := NewStaticCatalog([]Module{module}, []Quest{quest}, badQuiz, nil, nil)
		assert.Error(t, err)
	})

	t.Run("module without quests", func(t *testing.T) {
		_, err := NewStaticCatalog([]Module{module}, nil, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("free module out of range", func(t *testing.T) {
		_, err := NewStaticCatalog([]Module{module}, []Quest{quest}, quiz, nil, []int{5})
		assert.Error(t, err)
	})
}

func TestQuest_IsBoss(t *testing.T) {
	assert.True(t, Quest{ID: "m3_boss"}.IsBoss())
	assert.False(t, Quest{ID: "m3_quiz"}.IsBoss())
	assert.False(t, Quest{ID: "boss"}.IsBoss())
}
