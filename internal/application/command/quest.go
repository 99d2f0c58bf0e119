package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST LEDGER
// Quest/quiz completion and the quiz-session state machine. Task quests go
// through the homework review flow; quiz quests complete automatically at
// the pass threshold.
// ══════════════════════════════════════════════════════════════════════════════

// QuestLedger drives quest starts, quiz attempts and homework review.
type QuestLedger struct {
	store       player.Store
	catalog     catalog.Catalog
	progression *ProgressionEngine
	deadline    *DeadlineController
	badges      *BadgeRegistry
	bus         shared.EventPublisher
	log         *slog.Logger
}

// NewQuestLedger creates a quest ledger.
func NewQuestLedger(
	store player.Store,
	cat catalog.Catalog,
	progression *ProgressionEngine,
	deadline *DeadlineController,
	badges *BadgeRegistry,
	bus shared.EventPublisher,
	log *slog.Logger,
) *QuestLedger {
	if log == nil {
		log = slog.Default()
	}
	return &QuestLedger{
		store:       store,
		catalog:     cat,
		progression: progression,
		deadline:    deadline,
		badges:      badges,
		bus:         bus,
		log:         log,
	}
}

// AnswerResult describes the outcome of one quiz answer.
type AnswerResult struct {
	// Finished is true once every question has been answered.
	Finished bool

	// NextIndex is the next question to present while the attempt runs.
	NextIndex int

	// Passed is valid only when Finished.
	Passed bool

	// Score is the fraction of correct answers, valid only when Finished.
	Score float64

	// Completion describes rewards when the attempt passed.
	Completion CompletionOutcome
}

// CompletionOutcome describes the rewards of a quest completion.
type CompletionOutcome struct {
	// Completed is true when the quest newly entered the completed set.
	Completed bool

	// XPEarned is the granted reward (zero on repeat completions).
	XPEarned int

	// NewLevel is the level after the grant.
	NewLevel int

	// LeveledUp is true when the level increased.
	LeveledUp bool

	// ModuleAdvanced is true when the completion unlocked the next module.
	ModuleAdvanced bool
}

// Start begins a quest for the player. It rejects an unknown quest, a quest
// from another module, an already-completed quest and an expired deadline.
// For quiz quests it materializes a freshly shuffled attempt and returns the
// session; task quests return nil.
func (l *QuestLedger) Start(ctx context.Context, userID int64, questID string) (*player.QuizSession, error) {
	var session *player.QuizSession

	err := l.store.Mutate(ctx, userID, func(state *player.State) error {
		quest, err := l.catalog.Quest(questID)
		if err != nil {
			return err
		}
		if l.deadline.IsExpired(state) {
			return shared.ErrDeadlineExpired
		}
		if state.HasCompleted(questID) {
			return shared.ErrQuestCompleted
		}
		if quest.ModuleIndex != state.ModuleIndex {
			return shared.ErrQuestWrongModule
		}

		state.ActiveQuest = questID

		if quest.Type == catalog.QuestQuiz {
			questions, err := l.catalog.Quiz(quest.QuizRef)
			if err != nil {
				return err
			}
			state.QuizSession = player.NewQuizSession(questID, quest.QuizRef, toTemplates(questions))
			session = state.QuizSession.Clone()
		} else {
			state.QuizSession = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("quest started", "user_id", userID, "quest_id", questID)
	l.publish(shared.NewBaseEvent(shared.EventQuestStarted, userID))
	return session, nil
}

// Answer records one quiz answer. With no active session it rejects the
// call; at the final question it settles the attempt: at or above the pass
// threshold the quest completes idempotently with its XP reward and an
// advancement probe, below it the session clears and a restart is allowed.
func (l *QuestLedger) Answer(ctx context.Context, userID int64, questionIndex int, isCorrect bool) (AnswerResult, error) {
	return l.answer(ctx, userID, questionIndex, func(*player.QuizSession) bool {
		return isCorrect
	})
}

// AnswerOption records a quiz answer by chosen option index, resolving
// correctness against the server-side session. Transport adapters use this
// so a client never learns or supplies the correct index.
func (l *QuestLedger) AnswerOption(ctx context.Context, userID int64, questionIndex, optionIndex int) (AnswerResult, error) {
	return l.answer(ctx, userID, questionIndex, func(session *player.QuizSession) bool {
		return session.IsCorrectOption(optionIndex)
	})
}

func (l *QuestLedger) answer(ctx context.Context, userID int64, questionIndex int, isCorrect func(*player.QuizSession) bool) (AnswerResult, error) {
	var (
		result AnswerResult
		events []shared.Event
	)

	err := l.store.Mutate(ctx, userID, func(state *player.State) error {
		session := state.QuizSession
		if session == nil {
			return shared.ErrNoActiveQuizSession
		}

		if err := session.Answer(questionIndex, isCorrect(session)); err != nil {
			return err
		}

		if !session.Finished() {
			result = AnswerResult{NextIndex: session.Index}
			return nil
		}

		result = AnswerResult{
			Finished: true,
			Passed:   session.Passed(),
			Score:    session.Score(),
		}
		questID := session.QuestID
		perfect := session.Perfect()
		state.ClearQuiz()

		if !result.Passed {
			events = append(events, shared.NewQuizFailedEvent(userID, questID, result.Score))
			return nil
		}

		quest, err := l.catalog.Quest(questID)
		if err != nil {
			return err
		}

		outcome, completionEvents, err := l.completeQuest(state, quest)
		if err != nil {
			return err
		}
		events = append(events, completionEvents...)
		result.Completion = outcome

		if perfect {
			granted, err := l.badges.award(state, catalog.BadgeQuizPerfect)
			if err != nil {
				return err
			}
			if granted {
				events = append(events, shared.NewBadgeAwardedEvent(userID, catalog.BadgeQuizPerfect))
			}
		}
		return nil
	})
	if err != nil {
		return AnswerResult{}, err
	}

	l.publishAll(events)
	return result, nil
}

// SubmitTask submits a manually-reviewed quest for homework review: the
// homework status goes to pending and a bounded submission reference is
// recorded. Completion and XP arrive only through ReviewDecision.
func (l *QuestLedger) SubmitTask(ctx context.Context, userID int64, questID, note string) (string, error) {
	submissionID := uuid.New().String()

	err := l.store.Mutate(ctx, userID, func(state *player.State) error {
		quest, err := l.catalog.Quest(questID)
		if err != nil {
			return err
		}
		if quest.Type != catalog.QuestTask {
			return shared.WrapError("quest", "Submit", shared.ErrInvalidInput,
				"quiz quests are graded automatically", nil)
		}
		if l.deadline.IsExpired(state) {
			return shared.ErrDeadlineExpired
		}
		if state.HasCompleted(questID) {
			return shared.ErrQuestCompleted
		}
		if quest.ModuleIndex != state.ModuleIndex {
			return shared.ErrQuestWrongModule
		}

		state.ActiveQuest = questID
		state.HomeworkStatus = player.HomeworkPending
		state.AddSubmission(player.Submission{
			ID:          submissionID,
			QuestID:     questID,
			Note:        note,
			SubmittedAt: timeutil.Now(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	l.log.Info("homework submitted", "user_id", userID, "quest_id", questID)
	l.publish(shared.NewHomeworkSubmittedEvent(userID, questID, submissionID))
	return submissionID, nil
}

// ReviewDecision applies an external reviewer decision to pending homework.
// The decision must target the quest the pending submission was made for.
// Approve completes the quest idempotently with XP and an advancement probe;
// reject and revision only move the homework status. The core accepts the
// three terminal transitions but never originates them.
func (l *QuestLedger) ReviewDecision(ctx context.Context, userID int64, questID string, decision player.ReviewDecision) (CompletionOutcome, error) {
	if !decision.IsValid() {
		return CompletionOutcome{}, shared.WrapError("quest", "Review", shared.ErrInvalidInput,
			"unknown review decision", nil)
	}

	var (
		outcome CompletionOutcome
		events  []shared.Event
	)

	err := l.store.Mutate(ctx, userID, func(state *player.State) error {
		quest, err := l.catalog.Quest(questID)
		if err != nil {
			return err
		}
		if state.HomeworkStatus != player.HomeworkPending {
			return shared.ErrNoPendingHomework
		}
		if state.ActiveQuest != quest.ID {
			return shared.ErrReviewQuestMismatch
		}

		state.HomeworkStatus = decision.Status()
		events = append(events, shared.NewHomeworkReviewedEvent(userID, questID, string(decision)))

		if decision != player.DecisionApprove {
			return nil
		}

		state.ActiveQuest = ""
		outcome, events, err = l.completeQuestAppend(state, quest, events)
		return err
	})
	if err != nil {
		return CompletionOutcome{}, err
	}

	l.log.Info("homework reviewed",
		"user_id", userID, "quest_id", questID, "decision", string(decision))
	l.publishAll(events)
	return outcome, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion
// ─────────────────────────────────────────────────────────────────────────────

// completeQuest marks the quest completed on an already-locked record,
// grants its XP reward, awards milestone badges and probes advancement.
// A repeat completion is a no-op with no reward.
func (l *QuestLedger) completeQuest(state *player.State, quest catalog.Quest) (CompletionOutcome, []shared.Event, error) {
	outcome, events, err := l.completeQuestAppend(state, quest, nil)
	return outcome, events, err
}

func (l *QuestLedger) completeQuestAppend(state *player.State, quest catalog.Quest, events []shared.Event) (CompletionOutcome, []shared.Event, error) {
	if !state.MarkCompleted(quest.ID) {
		return CompletionOutcome{NewLevel: int(state.Level)}, events, nil
	}

	events = append(events, shared.NewQuestCompletedEvent(state.UserID, quest.ID, quest.XPReward))

	xpEvents, err := l.progression.applyXP(state, quest.XPReward, "quest_reward", quest.ID)
	if err != nil {
		return CompletionOutcome{}, events, err
	}
	leveledUp := len(xpEvents) > 1
	events = append(events, xpEvents...)

	for _, badgeID := range l.earnedBadges(state, quest) {
		granted, err := l.badges.award(state, badgeID)
		if err != nil {
			return CompletionOutcome{}, events, err
		}
		if granted {
			events = append(events, shared.NewBadgeAwardedEvent(state.UserID, badgeID))
		}
	}

	advanced, advanceEvents := l.progression.advanceState(state)
	events = append(events, advanceEvents...)

	return CompletionOutcome{
		Completed:      true,
		XPEarned:       quest.XPReward,
		NewLevel:       int(state.Level),
		LeveledUp:      leveledUp,
		ModuleAdvanced: advanced,
	}, events, nil
}

// earnedBadges lists the badge ids a fresh completion may have unlocked.
func (l *QuestLedger) earnedBadges(state *player.State, quest catalog.Quest) []string {
	var ids []string
	if len(state.CompletedQuests) == 1 {
		ids = append(ids, catalog.BadgeFirstQuest)
	}
	if quest.IsBoss() {
		ids = append(ids, catalog.BadgeBossSlayer)
	}
	if l.courseComplete(state) {
		ids = append(ids, catalog.BadgeCourseComplete)
	}
	return ids
}

func (l *QuestLedger) courseComplete(state *player.State) bool {
	for i := 0; i < l.catalog.ModuleCount(); i++ {
		for _, questID := range l.catalog.QuestIDsForModule(i) {
			if !state.HasCompleted(questID) {
				return false
			}
		}
	}
	return true
}

func toTemplates(questions []catalog.QuizQuestion) []player.QuizTemplate {
	templates := make([]player.QuizTemplate, 0, len(questions))
	for _, q := range questions {
		options := make([]player.QuizOption, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, player.QuizOption{Text: opt.Text, Correct: opt.Correct})
		}
		templates = append(templates, player.QuizTemplate{Text: q.Text, Options: options})
	}
	return templates
}

func (l *QuestLedger) publish(event shared.Event) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(event); err != nil {
		l.log.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}

func (l *QuestLedger) publishAll(events []shared.Event) {
	for _, event := range events {
		l.publish(event)
	}
}
