package main

import (
	"log"

	"quizmatch/config"
	"quizmatch/handlers"
	"quizmatch/middleware"
	"quizmatch/routes"
	"quizmatch/services"
	"quizmatch/store/postgres"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := postgres.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	redisClient := config.InitRedis(cfg)

	st := postgres.New(db)
	cache := services.NewMatchStateCache(redisClient)

	hub := services.NewHub()
	go hub.Run()

	randomizer := services.NewRandomizerService(st.MatchQuestions())
	leaderboard := services.NewLeaderboardService(st.Teams(), st.Submissions())
	authService := services.NewAuthService(st.Users(), cfg.JWTSecret)
	quizService := services.NewQuizService(st.Quizzes())
	matchService := services.NewMatchService(st, randomizer, leaderboard, hub, cache)
	submissionService := services.NewSubmissionService(st, randomizer, hub)

	hub.SetStateProvider(matchService)

	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	matchHandler := handlers.NewMatchHandler(matchService, submissionService, leaderboard)
	teamHandler := handlers.NewTeamHandler(matchService, submissionService)

	router := gin.Default()
	router.Use(middleware.CORS())

	routes.SetupRoutes(router, authHandler, quizHandler, matchHandler, teamHandler, hub, matchService, cfg.JWTSecret)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
