package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/podpulse/podpulse/internal/cache"
	"github.com/podpulse/podpulse/internal/config"
	"github.com/podpulse/podpulse/internal/database"
	"github.com/podpulse/podpulse/internal/handlers"
	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/internal/repository"
	cronjobs "github.com/podpulse/podpulse/internal/scheduler"
	"github.com/podpulse/podpulse/internal/services"
	"github.com/podpulse/podpulse/pkg/logger"
	"github.com/podpulse/podpulse/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// Connect to Redis for the streak cache
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Redis connection error: %v", err)
	}
	streakCache := cache.NewStreakCache(redisClient)

	// Connect the event bus
	producer, err := realtime.NewProducer(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Event bus connection error: %v", err)
	}
	defer producer.Close()

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	podRepo := repository.NewPodRepository(db)

	// --- Services ---
	userService := services.NewUserService(userRepo)
	goalService := services.NewGoalService(goalRepo)
	streakService := services.NewStreakService(checkInRepo, streakCache)
	checkInService := services.NewCheckInService(checkInRepo, userRepo, goalRepo, streakService, producer)
	feedService := services.NewFeedService(userRepo, checkInRepo, streakService, cfg.FeedFanout)
	podService := services.NewPodService(podRepo, userRepo)

	// --- Realtime dispatcher ---
	hub := realtime.NewHub()
	stream := realtime.NewStream(cfg.AMQPURL)
	dispatcher := realtime.NewDispatcher(stream, feedService, hub, cfg.DebounceWindow, cfg.ReconnectMaxElapsed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	// Periodic feed resync as a safety net for missed events
	resyncJob := cronjobs.StartResyncJob(dispatcher, cfg.ResyncSchedule)
	defer resyncJob.Stop()

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService)
	goalHandler := handlers.NewGoalHandler(goalService)
	checkInHandler := handlers.NewCheckInHandler(checkInService)
	statsHandler := handlers.NewStatsHandler(streakService, checkInService, userService)
	podHandler := handlers.NewPodHandler(podService, feedService)
	feedSocketHandler := handlers.NewFeedSocketHandler(hub, feedService, cfg.JWTSecret)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Check-in routes
	protectedCheckInRoutes := router.PathPrefix("/checkins").Subrouter()
	protectedCheckInRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedCheckInRoutes.HandleFunc("", checkInHandler.CreateCheckInHandler).Methods("POST")
	protectedCheckInRoutes.HandleFunc("/today", checkInHandler.GetTodaysCheckInsHandler).Methods("GET")

	// Streak and stats routes
	protectedStatsRoutes := router.PathPrefix("").Subrouter()
	protectedStatsRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedStatsRoutes.HandleFunc("/streak", statsHandler.GetStreakHandler).Methods("GET")
	protectedStatsRoutes.HandleFunc("/stats", statsHandler.GetStatsHandler).Methods("GET")

	// Pod routes
	protectedPodRoutes := router.PathPrefix("/pods").Subrouter()
	protectedPodRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedPodRoutes.HandleFunc("", podHandler.CreatePodHandler).Methods("POST")
	protectedPodRoutes.HandleFunc("", podHandler.ListPodsHandler).Methods("GET")
	protectedPodRoutes.HandleFunc("/{id}/join", podHandler.JoinPodHandler).Methods("POST")
	protectedPodRoutes.HandleFunc("/{id}/feed", podHandler.GetFeedHandler).Methods("GET")

	// Goal routes
	protectedGoalRoutes := router.PathPrefix("/goals").Subrouter()
	protectedGoalRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedGoalRoutes.HandleFunc("", goalHandler.CreateGoalHandler).Methods("POST")
	protectedGoalRoutes.HandleFunc("/current", goalHandler.GetActiveGoalHandler).Methods("GET")

	// Profile routes
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/me", userHandler.GetMeHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/me", userHandler.UpdateMeHandler).Methods("PATCH")

	// Live feed subscription (token passed as query param for websockets)
	router.HandleFunc("/ws/feed", feedSocketHandler.SubscribeFeedHandler).Methods("GET")

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
