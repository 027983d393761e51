package routes

import (
	"log"
	"net/http"
	"strconv"

	"quizmatch/handlers"
	"quizmatch/middleware"
	"quizmatch/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	matchHandler *handlers.MatchHandler,
	teamHandler *handlers.TeamHandler,
	hub *services.Hub,
	matchService *services.MatchService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Host-only routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)

			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.GetUserQuizzes)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.GET("/:id", quizHandler.GetQuizByID)
			}

			matches := protected.Group("/matches")
			{
				matches.POST("", matchHandler.CreateMatch)
				matches.POST("/:id/start", matchHandler.StartMatch)
				matches.POST("/:id/pause", matchHandler.PauseMatch)
				matches.POST("/:id/resume", matchHandler.ResumeMatch)
				matches.POST("/:id/complete", matchHandler.CompleteMatch)
				matches.POST("/:id/display", matchHandler.DisplayQuestion)
				matches.POST("/:id/advance", matchHandler.AdvanceQuestion)
				matches.DELETE("/:id/teams/:teamID", teamHandler.DeleteTeam)
				matches.DELETE("/:id/submissions/:submissionID", matchHandler.DeleteSubmission)
			}
		}

		// Public match routes for teams
		matches := api.Group("/matches")
		{
			matches.GET("/:id", matchHandler.GetMatch)
			matches.GET("/:id/state", matchHandler.GetState)
			matches.GET("/:id/leaderboard", matchHandler.GetLeaderboard)
			matches.POST("/:id/teams", teamHandler.CreateTeam)
			matches.POST("/:id/join", teamHandler.JoinTeam)
			matches.POST("/:id/answer", teamHandler.SubmitAnswer)
			matches.GET("/:id/teams/:teamID/can-submit", teamHandler.CanSubmit)
		}
	}

	// WebSocket endpoint for live match events. Hosts connect with
	// teamID 0.
	router.GET("/ws/:matchID/:teamID/:memberID", func(c *gin.Context) {
		matchID, err := strconv.ParseUint(c.Param("matchID"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID"})
			return
		}
		teamID, err := strconv.ParseUint(c.Param("teamID"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
			return
		}
		memberID, err := strconv.ParseUint(c.Param("memberID"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID"})
			return
		}

		name, err := matchService.ValidateClient(c.Request.Context(), uint(matchID), uint(teamID), uint(memberID))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not part of this match"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for match %d: %v", matchID, err)
			return
		}

		hub.RegisterClient(conn, uint(matchID), uint(teamID), uint(memberID), name)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
