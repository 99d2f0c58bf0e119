package shared

import (
	"encoding/json"
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Player events
	EventPlayerReset EventType = "player.reset"

	// Progress events
	EventXPGained       EventType = "progress.xp_gained"
	EventLevelUp        EventType = "progress.level_up"
	EventModuleAdvanced EventType = "progress.module_advanced"

	// Deadline events
	EventDeadlineExtended  EventType = "deadline.extended"
	EventModuleRepurchased EventType = "deadline.module_repurchased"

	// Streak events
	EventStreakUpdated     EventType = "streak.updated"
	EventDailyBonusClaimed EventType = "streak.daily_bonus_claimed"

	// Badge events
	EventBadgeAwarded EventType = "badge.awarded"

	// Quest events
	EventQuestStarted      EventType = "quest.started"
	EventQuestCompleted    EventType = "quest.completed"
	EventQuizFailed        EventType = "quest.quiz_failed"
	EventHomeworkSubmitted EventType = "quest.homework_submitted"
	EventHomeworkReviewed  EventType = "quest.homework_reviewed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface. Concrete events override this with
// their own data; a bare BaseEvent carries none.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewBaseEvent creates a new base event keyed by player id.
func NewBaseEvent(eventType EventType, userID int64) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: strconv.FormatInt(userID, 10),
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent fires whenever a player's XP increases.
type XPGainedEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // quest_reward, streak_bonus, daily_bonus
	QuestID  string `json:"quest_id,omitempty"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
		"quest_id":  e.QuestID,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID int64, amount, newTotal int, source, questID string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
		QuestID:   questID,
	}
}

// LevelUpEvent fires when recomputed level exceeds the previous one.
type LevelUpEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	NewRank  string `json:"new_rank"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"new_rank":  e.NewRank,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID int64, oldLevel, newLevel int, newRank string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		NewRank:   newRank,
	}
}

// ModuleAdvancedEvent fires when a player unlocks the next module.
type ModuleAdvancedEvent struct {
	BaseEvent
	UserID    int64      `json:"user_id"`
	OldModule int        `json:"old_module"`
	NewModule int        `json:"new_module"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// Payload implements Event interface.
func (e ModuleAdvancedEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_id":    e.UserID,
		"old_module": e.OldModule,
		"new_module": e.NewModule,
	}
	if e.Deadline != nil {
		p["deadline"] = e.Deadline.Format(time.RFC3339)
	}
	return p
}

// NewModuleAdvancedEvent creates a new ModuleAdvancedEvent.
func NewModuleAdvancedEvent(userID int64, oldModule, newModule int, deadline *time.Time) ModuleAdvancedEvent {
	return ModuleAdvancedEvent{
		BaseEvent: NewBaseEvent(EventModuleAdvanced, userID),
		UserID:    userID,
		OldModule: oldModule,
		NewModule: newModule,
		Deadline:  deadline,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Deadline Events
// ═══════════════════════════════════════════════════════════════════════════

// DeadlineExtendedEvent fires on a successful penalty extension.
type DeadlineExtendedEvent struct {
	BaseEvent
	UserID         int64     `json:"user_id"`
	NewDeadline    time.Time `json:"new_deadline"`
	ExtensionsUsed int       `json:"extensions_used"`
}

// Payload implements Event interface.
func (e DeadlineExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"new_deadline":    e.NewDeadline.Format(time.RFC3339),
		"extensions_used": e.ExtensionsUsed,
	}
}

// NewDeadlineExtendedEvent creates a new DeadlineExtendedEvent.
func NewDeadlineExtendedEvent(userID int64, newDeadline time.Time, extensionsUsed int) DeadlineExtendedEvent {
	return DeadlineExtendedEvent{
		BaseEvent:      NewBaseEvent(EventDeadlineExtended, userID),
		UserID:         userID,
		NewDeadline:    newDeadline,
		ExtensionsUsed: extensionsUsed,
	}
}

// ModuleRepurchasedEvent fires when an exhausted module is bought back.
type ModuleRepurchasedEvent struct {
	BaseEvent
	UserID        int64     `json:"user_id"`
	ModuleIndex   int       `json:"module_index"`
	RemovedQuests []string  `json:"removed_quests"`
	NewDeadline   time.Time `json:"new_deadline"`
}

// Payload implements Event interface.
func (e ModuleRepurchasedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"module_index":   e.ModuleIndex,
		"removed_quests": e.RemovedQuests,
		"new_deadline":   e.NewDeadline.Format(time.RFC3339),
	}
}

// NewModuleRepurchasedEvent creates a new ModuleRepurchasedEvent.
func NewModuleRepurchasedEvent(userID int64, moduleIndex int, removedQuests []string, newDeadline time.Time) ModuleRepurchasedEvent {
	return ModuleRepurchasedEvent{
		BaseEvent:     NewBaseEvent(EventModuleRepurchased, userID),
		UserID:        userID,
		ModuleIndex:   moduleIndex,
		RemovedQuests: removedQuests,
		NewDeadline:   newDeadline,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent fires on the first qualifying activity of a UTC day.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID    int64 `json:"user_id"`
	Streak    int   `json:"streak"`
	Milestone int   `json:"milestone,omitempty"` // 7 or 30 when one was just crossed
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"streak":    e.Streak,
		"milestone": e.Milestone,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID int64, streak, milestone int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userID),
		UserID:    userID,
		Streak:    streak,
		Milestone: milestone,
	}
}

// DailyBonusClaimedEvent fires on the first bonus claim of a UTC day.
type DailyBonusClaimedEvent struct {
	BaseEvent
	UserID int64 `json:"user_id"`
	XP     int   `json:"xp"`
	Streak int   `json:"streak"`
}

// Payload implements Event interface.
func (e DailyBonusClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"xp":      e.XP,
		"streak":  e.Streak,
	}
}

// NewDailyBonusClaimedEvent creates a new DailyBonusClaimedEvent.
func NewDailyBonusClaimedEvent(userID int64, xp, streak int) DailyBonusClaimedEvent {
	return DailyBonusClaimedEvent{
		BaseEvent: NewBaseEvent(EventDailyBonusClaimed, userID),
		UserID:    userID,
		XP:        xp,
		Streak:    streak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeAwardedEvent fires on a first-time badge grant. Re-awards never emit.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID  int64  `json:"user_id"`
	BadgeID string `json:"badge_id"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"badge_id": e.BadgeID,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(userID int64, badgeID string) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, userID),
		UserID:    userID,
		BadgeID:   badgeID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quest Events
// ═══════════════════════════════════════════════════════════════════════════

// QuestCompletedEvent fires when a quest id first enters the completed set.
type QuestCompletedEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	QuestID  string `json:"quest_id"`
	XPEarned int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e QuestCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"quest_id":  e.QuestID,
		"xp_earned": e.XPEarned,
	}
}

// NewQuestCompletedEvent creates a new QuestCompletedEvent.
func NewQuestCompletedEvent(userID int64, questID string, xpEarned int) QuestCompletedEvent {
	return QuestCompletedEvent{
		BaseEvent: NewBaseEvent(EventQuestCompleted, userID),
		UserID:    userID,
		QuestID:   questID,
		XPEarned:  xpEarned,
	}
}

// QuizFailedEvent fires when a finished quiz scores below the pass threshold.
type QuizFailedEvent struct {
	BaseEvent
	UserID  int64   `json:"user_id"`
	QuestID string  `json:"quest_id"`
	Score   float64 `json:"score"`
}

// Payload implements Event interface.
func (e QuizFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"quest_id": e.QuestID,
		"score":    e.Score,
	}
}

// NewQuizFailedEvent creates a new QuizFailedEvent.
func NewQuizFailedEvent(userID int64, questID string, score float64) QuizFailedEvent {
	return QuizFailedEvent{
		BaseEvent: NewBaseEvent(EventQuizFailed, userID),
		UserID:    userID,
		QuestID:   questID,
		Score:     score,
	}
}

// HomeworkSubmittedEvent fires when a manual quest goes to review.
type HomeworkSubmittedEvent struct {
	BaseEvent
	UserID       int64  `json:"user_id"`
	QuestID      string `json:"quest_id"`
	SubmissionID string `json:"submission_id"`
}

// Payload implements Event interface.
func (e HomeworkSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"quest_id":      e.QuestID,
		"submission_id": e.SubmissionID,
	}
}

// NewHomeworkSubmittedEvent creates a new HomeworkSubmittedEvent.
func NewHomeworkSubmittedEvent(userID int64, questID, submissionID string) HomeworkSubmittedEvent {
	return HomeworkSubmittedEvent{
		BaseEvent:    NewBaseEvent(EventHomeworkSubmitted, userID),
		UserID:       userID,
		QuestID:      questID,
		SubmissionID: submissionID,
	}
}

// HomeworkReviewedEvent fires on an operator decision.
type HomeworkReviewedEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	QuestID  string `json:"quest_id"`
	Decision string `json:"decision"` // approve, reject, revision
}

// Payload implements Event interface.
func (e HomeworkReviewedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"quest_id": e.QuestID,
		"decision": e.Decision,
	}
}

// NewHomeworkReviewedEvent creates a new HomeworkReviewedEvent.
func NewHomeworkReviewedEvent(userID int64, questID, decision string) HomeworkReviewedEvent {
	return HomeworkReviewedEvent{
		BaseEvent: NewBaseEvent(EventHomeworkReviewed, userID),
		UserID:    userID,
		QuestID:   questID,
		Decision:  decision,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
