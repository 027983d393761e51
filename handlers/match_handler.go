package handlers

import (
	"context"
	"net/http"
	"strconv"

	"quizmatch/models"
	"quizmatch/services"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matchService      *services.MatchService
	submissionService *services.SubmissionService
	leaderboard       *services.LeaderboardService
}

func NewMatchHandler(matchService *services.MatchService, submissionService *services.SubmissionService, leaderboard *services.LeaderboardService) *MatchHandler {
	return &MatchHandler{
		matchService:      matchService,
		submissionService: submissionService,
		leaderboard:       leaderboard,
	}
}

func matchParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.matchService.CreateMatch(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, match)
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

func (h *MatchHandler) GetState(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	state, err := h.matchService.State(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *MatchHandler) StartMatch(c *gin.Context) {
	h.hostTransition(c, h.matchService.Start)
}

func (h *MatchHandler) PauseMatch(c *gin.Context) {
	h.hostTransition(c, h.matchService.Pause)
}

func (h *MatchHandler) ResumeMatch(c *gin.Context) {
	h.hostTransition(c, h.matchService.Resume)
}

func (h *MatchHandler) CompleteMatch(c *gin.Context) {
	h.hostTransition(c, h.matchService.Complete)
}

func (h *MatchHandler) AdvanceQuestion(c *gin.Context) {
	h.hostTransition(c, h.matchService.AdvanceQuestion)
}

// hostTransition runs one of the host-only lifecycle transitions and
// renders the resulting match.
func (h *MatchHandler) hostTransition(c *gin.Context, transition func(ctx context.Context, matchID, callerID uint) (*models.Match, error)) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	match, err := transition(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

func (h *MatchHandler) DisplayQuestion(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	question, err := h.matchService.DisplayQuestion(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"game_question_id": question.ID,
		"round_number":     question.RoundNumber,
		"question_order":   question.QuestionOrder,
		"displayed_at":     question.DisplayedAt,
	})
}

func (h *MatchHandler) GetLeaderboard(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	entries, err := h.leaderboard.Rank(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// DeleteSubmission is the administrative unsubmit: it removes the
// submission and reverses the team's score delta.
func (h *MatchHandler) DeleteSubmission(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	matchID, ok := matchParam(c)
	if !ok {
		return
	}
	submissionID, err := strconv.ParseUint(c.Param("submissionID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	if err := h.submissionService.Unsubmit(c.Request.Context(), matchID, uint(submissionID), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission removed"})
}
