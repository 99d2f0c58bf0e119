package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

func TestCalculateLevel_Thresholds(t *testing.T) {
	tests := []struct {
		xp    XP
		level Level
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{500, 4},
		{899, 4},
		{900, 5},
		{1500, 6},
		{2500, 7},
		{999999, 7},
	}

	for _, tt := range tests {
		level, rank := CalculateLevel(tt.xp)
		assert.Equal(t, tt.level, level, "xp=%d", tt.xp)
		assert.NotEmpty(t, rank)
	}
}

func TestCalculateLevel_Monotone(t *testing.T) {
	prev := Level(0)
	for xp := XP(0); xp <= 3000; xp += 10 {
		level, _ := CalculateLevel(xp)
		assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
		prev = level
	}
	assert.Equal(t, MaxLevel(), prev)
}

func TestState_AddXP(t *testing.T) {
	s := NewState(1, "Alice")

	leveledUp, err := s.AddXP(50)
	require.NoError(t, err)
	assert.False(t, leveledUp)
	assert.Equal(t, XP(50), s.XP)
	assert.Equal(t, Level(1), s.Level)

	leveledUp, err = s.AddXP(50)
	require.NoError(t, err)
	assert.True(t, leveledUp)
	assert.Equal(t, Level(2), s.Level)
}

func TestState_AddXP_NegativeRejected(t *testing.T) {
	s := NewState(1, "Alice")
	s.XP = 100
	s.Recompute()

	_, err := s.AddXP(-10)
	assert.ErrorIs(t, err, shared.ErrNegativeXP)
	assert.Equal(t, XP(100), s.XP, "rejected delta must not mutate XP")
}

func TestState_MarkCompleted_Idempotent(t *testing.T) {
	s := NewState(1, "Alice")

	assert.True(t, s.MarkCompleted("m0_q1"))
	assert.False(t, s.MarkCompleted("m0_q1"))
	assert.Equal(t, []string{"m0_q1"}, s.CompletedQuests)
	assert.True(t, s.HasCompleted("m0_q1"))
	assert.False(t, s.HasCompleted("m0_q2"))
}

func TestState_GrantBadge_Idempotent(t *testing.T) {
	s := NewState(1, "Alice")

	assert.True(t, s.GrantBadge("first_quest"))
	assert.False(t, s.GrantBadge("first_quest"))
	assert.Equal(t, []string{"first_quest"}, s.Badges)
}

func TestState_RemoveQuests(t *testing.T) {
	s := NewState(1, "Alice")
	s.CompletedQuests = []string{"m0_q1", "m1_q1", "m1_q2", "m2_q1"}

	removed := s.RemoveQuests([]string{"m1_q1", "m1_q2", "m1_q3"})

	assert.ElementsMatch(t, []string{"m1_q1", "m1_q2"}, removed)
	assert.Equal(t, []string{"m0_q1", "m2_q1"}, s.CompletedQuests)
}

func TestState_DeadlineRoundtrip(t *testing.T) {
	s := NewState(1, "Alice")
	assert.Nil(t, s.DeadlineAt())

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetDeadlineAt(&deadline)

	got := s.DeadlineAt()
	require.NotNil(t, got)
	assert.True(t, got.Equal(deadline))

	s.SetDeadlineAt(nil)
	assert.Nil(t, s.DeadlineAt())
}

func TestState_DeadlineAt_MalformedReadsAsNone(t *testing.T) {
	s := NewState(1, "Alice")
	s.ModuleDeadline = "not-a-timestamp"
	assert.Nil(t, s.DeadlineAt())
}

func TestState_AddSubmission_Bounded(t *testing.T) {
	s := NewState(1, "Alice")
	for i := 0; i < MaxSubmissions+5; i++ {
		s.AddSubmission(Submission{ID: string(rune('a' + i)), QuestID: "m0_q1"})
	}
	assert.Len(t, s.Submissions, MaxSubmissions)
}

func TestState_Reset(t *testing.T) {
	s := NewState(42, "Alice")
	created := s.CreatedAt
	s.XP = 700
	s.Recompute()
	s.ModuleIndex = 3
	s.CompletedQuests = []string{"m0_q1", "m1_q1"}
	s.Streak = 12
	s.Badges = []string{"first_quest"}
	s.HomeworkStatus = HomeworkPending
	s.ActiveQuest = "m3_q1"

	s.Reset()

	assert.Equal(t, int64(42), s.UserID)
	assert.Equal(t, "Alice", s.Name, "reset keeps the display name")
	assert.Equal(t, created, s.CreatedAt, "reset keeps the original creation time")
	assert.Equal(t, XP(0), s.XP)
	assert.Equal(t, Level(1), s.Level)
	assert.Equal(t, 0, s.ModuleIndex)
	assert.Empty(t, s.CompletedQuests)
	assert.Empty(t, s.Badges)
	assert.Zero(t, s.Streak)
	assert.Equal(t, HomeworkIdle, s.HomeworkStatus)
	assert.Empty(t, s.ActiveQuest)
}

func TestState_Clone_IsDeep(t *testing.T) {
	s := NewState(1, "Alice")
	s.CompletedQuests = []string{"m0_q1"}
	s.Badges = []string{"first_quest"}
	s.QuizSession = NewQuizSession("m0_q1", "quiz_intro", []QuizTemplate{
		{Text: "q", Options: []QuizOption{{Text: "a", Correct: true}, {Text: "b"}}},
	})

	clone := s.Clone()
	clone.CompletedQuests[0] = "changed"
	clone.Badges = append(clone.Badges, "extra")
	clone.QuizSession.Correct = 99

	assert.Equal(t, []string{"m0_q1"}, s.CompletedQuests)
	assert.Equal(t, []string{"first_quest"}, s.Badges)
	assert.Equal(t, 0, s.QuizSession.Correct)
}

func TestState_Migrate(t *testing.T) {
	s := &State{XP: 300, ModuleDeadline: "garbage", Streak: -2}
	s.Migrate(7)

	assert.Equal(t, int64(7), s.UserID)
	assert.Equal(t, "7", s.Name)
	assert.NotNil(t, s.CompletedQuests)
	assert.NotNil(t, s.Badges)
	assert.Equal(t, HomeworkIdle, s.HomeworkStatus)
	assert.Zero(t, s.Streak)
	assert.Empty(t, s.ModuleDeadline, "malformed deadline is normalized away")
	assert.Equal(t, Level(3), s.Level, "level is recomputed from XP")
	assert.False(t, s.CreatedAt.IsZero())
}

func TestState_Migrate_DropsCorruptQuiz(t *testing.T) {
	s := &State{
		UserID:      1,
		Name:        "Alice",
		QuizSession: &QuizSession{QuestID: "m0_q1", Total: 3, Index: 5},
	}
	s.Migrate(1)
	assert.Nil(t, s.QuizSession)
}
