package handlers

import (
	"net/http"
	"strconv"

	"quizmatch/services"

	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	matchService      *services.MatchService
	submissionService *services.SubmissionService
}

func NewTeamHandler(matchService *services.MatchService, submissionService *services.SubmissionService) *TeamHandler {
	return &TeamHandler{
		matchService:      matchService,
		submissionService: submissionService,
	}
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	var req services.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.matchService.CreateTeam(c.Request.Context(), matchID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) JoinTeam(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	var req services.JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, team, err := h.matchService.JoinTeam(c.Request.Context(), matchID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member, "team": team})
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	matchID, ok := matchParam(c)
	if !ok {
		return
	}
	teamID, err := strconv.ParseUint(c.Param("teamID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}

	if err := h.matchService.DeleteTeam(c.Request.Context(), matchID, uint(teamID), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

func (h *TeamHandler) SubmitAnswer(c *gin.Context) {
	matchID, ok := matchParam(c)
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), matchID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CanSubmit is the side-effect-free pre-flight mirror of SubmitAnswer.
func (h *TeamHandler) CanSubmit(c *gin.Context) {
	teamID, err := strconv.ParseUint(c.Param("teamID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}
	round, err := strconv.Atoi(c.Query("round"))
	if err != nil || round < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round"})
		return
	}
	order, err := strconv.Atoi(c.Query("order"))
	if err != nil || order < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question order"})
		return
	}

	result, err := h.submissionService.CanSubmit(c.Request.Context(), uint(teamID), round, order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
