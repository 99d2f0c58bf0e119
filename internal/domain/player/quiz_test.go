package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func sampleTemplates(n int) []QuizTemplate {
	templates := make([]QuizTemplate, 0, n)
	for i := 0; i < n; i++ {
		templates = append(templates, QuizTemplate{
			Text: "question",
			Options: []QuizOption{
				{Text: "right", Correct: true},
				{Text: "wrong1"},
				{Text: "wrong2"},
				{Text: "wrong3"},
			},
		})
	}
	return templates
}

func TestNewQuizSession_ShufflePreservesOptions(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(5))

	require.Equal(t, 5, session.Total)
	require.Len(t, session.Questions, 5)

	for _, q := range session.Questions {
		assert.ElementsMatch(t, []string{"right", "wrong1", "wrong2", "wrong3"}, q.Options)
		require.GreaterOrEqual(t, q.CorrectIndex, 0)
		require.Less(t, q.CorrectIndex, len(q.Options))
		assert.Equal(t, "right", q.Options[q.CorrectIndex],
			"correct index must follow the correct option after shuffling")
	}
}

func TestQuizSession_PassAtThreshold(t *testing.T) {
	// 7 из 10 - ровно порог зачёта.
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(10))
	for i := 0; i < 10; i++ {
		require.NoError(t, session.Answer(i, i < 7))
	}

	assert.True(t, session.Finished())
	assert.InDelta(t, 0.7, session.Score(), 1e-9)
	assert.True(t, session.Passed())
	assert.False(t, session.Perfect())
}

func TestQuizSession_FailBelowThreshold(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(10))
	for i := 0; i < 10; i++ {
		require.NoError(t, session.Answer(i, i < 6))
	}

	assert.True(t, session.Finished())
	assert.False(t, session.Passed())
}

func TestQuizSession_Perfect(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(3))
	for i := 0; i < 3; i++ {
		require.NoError(t, session.Answer(i, true))
	}
	assert.True(t, session.Perfect())
}

func TestQuizSession_IndexMismatchRejected(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(3))

	assert.ErrorIs(t, session.Answer(1, true), shared.ErrQuizIndexMismatch)
	assert.ErrorIs(t, session.Answer(-1, true), shared.ErrQuizIndexMismatch)
	assert.Equal(t, 0, session.Index, "rejected answer must not advance")
	assert.Equal(t, 0, session.Correct)

	require.NoError(t, session.Answer(0, true))
	assert.ErrorIs(t, session.Answer(0, true), shared.ErrQuizIndexMismatch,
		"a question cannot be answered twice")
}

func TestQuizSession_AnswerPastEnd(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(1))
	require.NoError(t, session.Answer(0, true))
	assert.ErrorIs(t, session.Answer(1, true), shared.ErrQuizIndexMismatch)
}

func TestQuizSession_IsCorrectOption(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(1))
	correct := session.Questions[0].CorrectIndex

	assert.True(t, session.IsCorrectOption(correct))
	assert.False(t, session.IsCorrectOption((correct+1)%4))
}

func TestQuizSession_IsValid(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(3))
	assert.True(t, session.IsValid())

	assert.False(t, (*QuizSession)(nil).IsValid())
	assert.False(t, (&QuizSession{Total: 2}).IsValid())

	broken := session.Clone()
	broken.Index = 5
	assert.False(t, broken.IsValid())

	broken = session.Clone()
	broken.Questions[0].CorrectIndex = 10
	assert.False(t, broken.IsValid())
}

func TestQuizSession_CloneIsDeep(t *testing.T) {
	session := NewQuizSession("m0_q1", "quiz_intro", sampleTemplates(2))
	clone := session.Clone()
	clone.Questions[0].Options[0] = "mutated"

	assert.NotEqual(t, "mutated", session.Questions[0].Options[0])
}
