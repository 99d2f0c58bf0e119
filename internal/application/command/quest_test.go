package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// answerAll plays the active quiz attempt to the end with the given number of
// correct answers, resolving option indexes against the server-side session.
func answerAll(t *testing.T, env *testEnv, userID int64, session *player.QuizSession, correct int) AnswerResult {
	t.Helper()

	var result AnswerResult
	for i := 0; i < session.Total; i++ {
		option := session.Questions[i].CorrectIndex
		if i >= correct {
			option = wrongOption(session.Questions[i])
		}
		var err error
		result, err = env.quests.AnswerOption(context.Background(), userID, i, option)
		require.NoError(t, err)
	}
	return result
}

func wrongOption(q player.QuizQuestion) int {
	for i := range q.Options {
		if i != q.CorrectIndex {
			return i
		}
	}
	return -1
}

func TestQuestLedger_Start_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.Start(ctx, 1, "no_such_quest")
	assert.ErrorIs(t, err, shared.ErrQuestNotFound)

	// Quest from a locked module.
	_, err = env.quests.Start(ctx, 1, "m1_task")
	assert.ErrorIs(t, err, shared.ErrQuestWrongModule)

	// Already completed.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.MarkCompleted("m0_boss")
		return nil
	}))
	_, err = env.quests.Start(ctx, 1, "m0_boss")
	assert.ErrorIs(t, err, shared.ErrQuestCompleted)

	// Expired deadline wins over everything else.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		past := time.Now().UTC().Add(-time.Hour)
		state.SetDeadlineAt(&past)
		return nil
	}))
	_, err = env.quests.Start(ctx, 1, "m0_boss")
	assert.ErrorIs(t, err, shared.ErrDeadlineExpired)
}

func TestQuestLedger_Start_QuizMaterializesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "m0_quiz", session.QuestID)
	assert.Equal(t, 4, session.Total)
	assert.Equal(t, 0, session.Index)
	for _, q := range session.Questions {
		assert.Equal(t, "right", q.Options[q.CorrectIndex])
	}

	// Task quests have no session.
	taskSession, err := env.quests.Start(ctx, 1, "m0_boss")
	require.NoError(t, err)
	assert.Nil(t, taskSession)
}

func TestQuestLedger_Answer_NoActiveSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.quests.AnswerOption(context.Background(), 1, 0, 0)
	assert.ErrorIs(t, err, shared.ErrNoActiveQuizSession)
}

func TestQuestLedger_Answer_IndexMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)

	// Answering a question other than the current one is rejected and the
	// attempt does not advance.
	_, err = env.quests.AnswerOption(ctx, 1, 2, session.Questions[2].CorrectIndex)
	assert.ErrorIs(t, err, shared.ErrQuizIndexMismatch)

	result, err := env.quests.AnswerOption(ctx, 1, 0, session.Questions[0].CorrectIndex)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NextIndex)
}

func TestQuestLedger_Quiz_PassCompletesQuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)

	// 3 of 4 is above the 0.70 threshold but not perfect.
	result := answerAll(t, env, 1, session, 3)
	assert.True(t, result.Finished)
	assert.True(t, result.Passed)
	assert.InDelta(t, 0.75, result.Score, 1e-9)
	assert.True(t, result.Completion.Completed)
	assert.Equal(t, 60, result.Completion.XPEarned)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.True(t, state.HasCompleted("m0_quiz"))
		assert.Nil(t, state.QuizSession)
		assert.Equal(t, player.XP(60), state.XP)
		assert.True(t, state.HasBadge(catalog.BadgeFirstQuest))
		assert.False(t, state.HasBadge(catalog.BadgeQuizPerfect), "3/4 is not a perfect run")
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_Quiz_PerfectAwardsBadge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)

	result := answerAll(t, env, 1, session, 4)
	assert.True(t, result.Passed)
	assert.InDelta(t, 1.0, result.Score, 1e-9)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.True(t, state.HasBadge(catalog.BadgeQuizPerfect))
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_Quiz_FailAllowsRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)

	// 2 of 4 is below the threshold.
	result := answerAll(t, env, 1, session, 2)
	assert.True(t, result.Finished)
	assert.False(t, result.Passed)
	assert.False(t, result.Completion.Completed)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.False(t, state.HasCompleted("m0_quiz"))
		assert.Nil(t, state.QuizSession, "failed attempt must clear the session")
		assert.Equal(t, player.XP(0), state.XP)
		return nil
	})
	require.NoError(t, err)

	// A fresh attempt starts cleanly and can pass.
	session, err = env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)
	result = answerAll(t, env, 1, session, 4)
	assert.True(t, result.Passed)
}

func TestQuestLedger_SubmitTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.quests.SubmitTask(ctx, 1, "m0_boss", "done, see repo")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.HomeworkPending, state.HomeworkStatus)
		assert.Equal(t, "m0_boss", state.ActiveQuest)
		require.Len(t, state.Submissions, 1)
		assert.Equal(t, id, state.Submissions[0].ID)
		assert.False(t, state.HasCompleted("m0_boss"), "submission alone must not complete")
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_SubmitTask_RejectsQuizQuest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.quests.SubmitTask(context.Background(), 1, "m0_quiz", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestQuestLedger_ReviewDecision_Approve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.SubmitTask(ctx, 1, "m0_boss", "")
	require.NoError(t, err)

	outcome, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 50, outcome.XPEarned)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.True(t, state.HasCompleted("m0_boss"))
		assert.Equal(t, player.HomeworkApproved, state.HomeworkStatus)
		assert.Empty(t, state.ActiveQuest)
		assert.True(t, state.HasBadge(catalog.BadgeBossSlayer))
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_ReviewDecision_RejectKeepsQuestOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.SubmitTask(ctx, 1, "m0_boss", "")
	require.NoError(t, err)

	outcome, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionReject)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.Zero(t, outcome.XPEarned)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.False(t, state.HasCompleted("m0_boss"))
		assert.Equal(t, player.HomeworkRejected, state.HomeworkStatus)
		assert.Equal(t, player.XP(0), state.XP)
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_ReviewDecision_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.ReviewDecision("maybe"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// No pending homework.
	_, err = env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	assert.ErrorIs(t, err, shared.ErrNoPendingHomework)
}

func TestQuestLedger_ReviewDecision_WrongQuestRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.SubmitTask(ctx, 1, "m0_boss", "")
	require.NoError(t, err)

	// Approving a different quest than the one submitted must not complete
	// anything.
	_, err = env.quests.ReviewDecision(ctx, 1, "m0_quiz", player.DecisionApprove)
	assert.ErrorIs(t, err, shared.ErrReviewQuestMismatch)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.HomeworkPending, state.HomeworkStatus, "submission stays pending")
		assert.False(t, state.HasCompleted("m0_quiz"))
		assert.False(t, state.HasCompleted("m0_boss"))
		assert.Equal(t, player.XP(0), state.XP)
		return nil
	})
	require.NoError(t, err)

	// The matching quest id still reviews normally.
	outcome, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
}

func TestQuestLedger_RepeatCompletionEarnsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.SubmitTask(ctx, 1, "m0_boss", "")
	require.NoError(t, err)
	outcome, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	require.NoError(t, err)
	require.True(t, outcome.Completed)

	// Second approval cycle for the same quest: review passes but the
	// completion is a no-op with no second reward.
	require.NoError(t, env.store.Mutate(ctx, 1, func(state *player.State) error {
		state.HomeworkStatus = player.HomeworkPending
		state.ActiveQuest = "m0_boss"
		return nil
	}))
	outcome, err = env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.Zero(t, outcome.XPEarned)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, player.XP(50), state.XP, "reward must be granted exactly once")
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_CompletingModuleAdvances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)
	result := answerAll(t, env, 1, session, 4)
	require.True(t, result.Passed)
	assert.False(t, result.Completion.ModuleAdvanced, "one of two quests is not enough")

	_, err = env.quests.SubmitTask(ctx, 1, "m0_boss", "")
	require.NoError(t, err)
	outcome, err := env.quests.ReviewDecision(ctx, 1, "m0_boss", player.DecisionApprove)
	require.NoError(t, err)
	assert.True(t, outcome.ModuleAdvanced)

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 1, state.ModuleIndex)
		assert.NotNil(t, state.DeadlineAt(), "gated module gets a fresh deadline")
		assert.Equal(t, 0, state.DeadlineExtensions)
		return nil
	})
	require.NoError(t, err)
}

func TestQuestLedger_CourseCompleteBadge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	complete := func(questID string) {
		_, err := env.quests.SubmitTask(ctx, 1, questID, "")
		require.NoError(t, err)
		_, err = env.quests.ReviewDecision(ctx, 1, questID, player.DecisionApprove)
		require.NoError(t, err)
	}

	session, err := env.quests.Start(ctx, 1, "m0_quiz")
	require.NoError(t, err)
	require.True(t, answerAll(t, env, 1, session, 4).Passed)
	complete("m0_boss")
	complete("m1_task")
	complete("m2_task")

	err = env.store.View(ctx, 1, func(state *player.State) error {
		assert.Equal(t, 2, state.ModuleIndex, "never past the last module")
		assert.True(t, state.HasBadge(catalog.BadgeCourseComplete))
		return nil
	})
	require.NoError(t, err)
}
