package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/application/query"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
	"github.com/smc-quest/smc-quest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "smc-quest-core",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
		"time":   time.Now().UTC(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER & CONTENT
// ══════════════════════════════════════════════════════════════════════════════

type userInitRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// handleUserInit registers the player on first contact and records the
// daily activity touch.
func (s *Server) handleUserInit(w http.ResponseWriter, r *http.Request) {
	var req userInitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	ctx := r.Context()
	if _, err := s.deps.GetPlayer.HandleOrCreate(ctx, req.UserID, req.Name); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	streak, _, err := s.deps.Streaks.Touch(ctx, req.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	dto, err := s.deps.GetPlayer.Handle(ctx, req.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player": dto,
		"streak": streak,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := parseInt64(r.PathValue("id"))
	if userID == 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "invalid user id")
		return
	}

	dto, err := s.deps.GetPlayer.Handle(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

type moduleDTO struct {
	Index    int        `json:"index"`
	Key      string     `json:"key"`
	Title    string     `json:"title"`
	Homework string     `json:"homework,omitempty"`
	Free     bool       `json:"free"`
	Unlocked bool       `json:"unlocked"`
	Current  bool       `json:"current"`
	Quests   []questDTO `json:"quests"`
}

type questDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	XPReward    int    `json:"xp_reward"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

// handleGetModules lists the course map. With ?user_id= the response marks
// unlocked modules and completed quests for that player.
func (s *Server) handleGetModules(w http.ResponseWriter, r *http.Request) {
	var snapshot *query.PlayerDTO
	if userID := parseInt64(r.URL.Query().Get("user_id")); userID != 0 {
		dto, err := s.deps.GetPlayer.Handle(r.Context(), userID)
		if err != nil && !shared.IsNotFound(err) {
			s.writeDomainError(w, r, err)
			return
		}
		snapshot = dto
	}

	completed := make(map[string]bool)
	currentModule := 0
	if snapshot != nil {
		currentModule = snapshot.ModuleIndex
		for _, questID := range snapshot.CompletedQuests {
			completed[questID] = true
		}
	}

	modules := s.deps.Catalog.Modules()
	out := make([]moduleDTO, 0, len(modules))
	for _, module := range modules {
		dto := moduleDTO{
			Index:    module.Index,
			Key:      module.Key,
			Title:    module.Title,
			Homework: module.Homework,
			Free:     s.deps.Catalog.IsFreeModule(module.Index),
			Unlocked: snapshot == nil || module.Index <= currentModule,
			Current:  snapshot != nil && module.Index == currentModule,
		}
		for _, quest := range s.deps.Catalog.QuestsForModule(module.Index) {
			dto.Quests = append(dto.Quests, questDTO{
				ID:          quest.ID,
				Title:       quest.Title,
				Type:        string(quest.Type),
				XPReward:    quest.XPReward,
				Description: quest.Description,
				Completed:   completed[quest.ID],
			})
		}
		out = append(out, dto)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"modules": out})
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	quest, err := s.deps.Catalog.Quest(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, questDTO{
		ID:          quest.ID,
		Title:       quest.Title,
		Type:        string(quest.Type),
		XPReward:    quest.XPReward,
		Description: quest.Description,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUEST FLOW
// ══════════════════════════════════════════════════════════════════════════════

type questStartRequest struct {
	UserID  int64  `json:"user_id"`
	QuestID string `json:"quest_id"`
}

// handleQuestStart begins a quest. On an expired deadline it tries the
// penalty extension once; past the cap the client is told to repurchase.
func (s *Server) handleQuestStart(w http.ResponseWriter, r *http.Request) {
	var req questStartRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	session, err := s.deps.Quests.Start(ctx, req.UserID, req.QuestID)
	if errors.Is(err, shared.ErrDeadlineExpired) {
		extended, extErr := s.deps.Deadlines.ApplyPenaltyExtension(ctx, req.UserID)
		if extErr != nil {
			s.writeDomainError(w, r, extErr)
			return
		}
		if extended {
			writeJSONError(w, http.StatusConflict, "deadline_expired_extended",
				"Deadline expired; a penalty extension was granted, try again")
			return
		}
		writeJSONError(w, http.StatusConflict, "repurchase_required",
			"Deadline expired and extensions are exhausted; module repurchase required")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if _, _, err := s.deps.Streaks.Touch(ctx, req.UserID); err != nil {
		s.logger.Warn("streak touch failed", logger.UserID(req.UserID), logger.Err(err))
	}

	response := map[string]interface{}{"started": true}
	if session != nil {
		response["quiz"] = query.QuizViewFromSession(session)
	}
	writeJSON(w, http.StatusOK, response)
}

type quizAnswerRequest struct {
	UserID        int64 `json:"user_id"`
	QuestionIndex int   `json:"question_index"`
	OptionIndex   int   `json:"option_index"`
}

func (s *Server) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	var req quizAnswerRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	result, err := s.deps.Quests.AnswerOption(ctx, req.UserID, req.QuestionIndex, req.OptionIndex)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"finished": result.Finished,
	}
	if result.Finished {
		response["passed"] = result.Passed
		response["score"] = result.Score
		response["xp_earned"] = result.Completion.XPEarned
		response["new_level"] = result.Completion.NewLevel
		response["leveled_up"] = result.Completion.LeveledUp
		response["module_advanced"] = result.Completion.ModuleAdvanced
	} else {
		response["next_index"] = result.NextIndex
		if dto, err := s.deps.GetPlayer.Handle(ctx, req.UserID); err == nil && dto.Quiz != nil {
			response["question"] = dto.Quiz
		}
	}
	writeJSON(w, http.StatusOK, response)
}

type questSubmitRequest struct {
	UserID  int64  `json:"user_id"`
	QuestID string `json:"quest_id"`
	Note    string `json:"note"`
}

func (s *Server) handleQuestSubmit(w http.ResponseWriter, r *http.Request) {
	var req questSubmitRequest
	if !s.decode(w, r, &req) {
		return
	}

	submissionID, err := s.deps.Quests.SubmitTask(r.Context(), req.UserID, req.QuestID, req.Note)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submission_id": submissionID,
		"status":        string(player.HomeworkPending),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

type userRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) handleClaimBonus(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decode(w, r, &req) {
		return
	}

	xp, claimed, err := s.deps.Streaks.ClaimDailyBonus(r.Context(), req.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claimed": claimed,
		"xp":      xp,
	})
}

func (s *Server) handleRepurchase(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.deps.Deadlines.Repurchase(r.Context(), req.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	dto, err := s.deps.GetPlayer.Handle(r.Context(), req.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 10)

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{Limit: limit})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := parseInt64(r.PathValue("id"))
	if userID == 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "invalid user id")
		return
	}

	result, err := s.deps.GetStats.Handle(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATOR ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

type adminReviewRequest struct {
	UserID   int64  `json:"user_id"`
	QuestID  string `json:"quest_id"`
	Decision string `json:"decision"` // approve | reject | revision
}

func (s *Server) handleAdminReview(w http.ResponseWriter, r *http.Request) {
	var req adminReviewRequest
	if !s.decode(w, r, &req) {
		return
	}

	outcome, err := s.deps.Quests.ReviewDecision(
		r.Context(), req.UserID, req.QuestID, player.ReviewDecision(req.Decision))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decision":        req.Decision,
		"completed":       outcome.Completed,
		"xp_earned":       outcome.XPEarned,
		"new_level":       outcome.NewLevel,
		"module_advanced": outcome.ModuleAdvanced,
	})
}

type adminExtendRequest struct {
	UserID int64 `json:"user_id"`
	Hours  int   `json:"hours"`
}

func (s *Server) handleAdminExtend(w http.ResponseWriter, r *http.Request) {
	var req adminExtendRequest
	if !s.decode(w, r, &req) {
		return
	}

	newDeadline, err := s.deps.Deadlines.Extend(r.Context(), req.UserID, req.Hours)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"extended":     true,
		"new_deadline": newDeadline,
	})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.deps.Progression.ResetAccount(r.Context(), req.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reset": true})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 100)

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{Limit: limit})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Malformed JSON request body")
		return false
	}
	return true
}

// writeDomainError maps domain error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string

	switch {
	case shared.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		status, code = http.StatusBadRequest, "validation_error"
	case shared.IsStateConflict(err):
		status, code = http.StatusConflict, "state_conflict"
	case shared.IsResourceExhausted(err):
		status, code = http.StatusConflict, "resource_exhausted"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
	}

	writeJSONError(w, status, code, err.Error())
}
