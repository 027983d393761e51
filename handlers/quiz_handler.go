package handlers

import (
	"net/http"
	"strconv"

	"quizmatch/services"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
}

func NewQuizHandler(quizService *services.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) GetUserQuizzes(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	quizzes, err := h.quizService.GetUserQuizzes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	quizID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quiz ID"})
		return
	}

	quiz, err := h.quizService.GetQuizByID(c.Request.Context(), uint(quizID), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}
