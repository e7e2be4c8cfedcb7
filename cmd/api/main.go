package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"pollstream/config"
	"pollstream/internal/handler"
	"pollstream/internal/middleware"
	internalredis "pollstream/internal/redis"
	"pollstream/internal/repository"
	"pollstream/internal/services"
	"pollstream/internal/websocket"
	"pollstream/pkg/database"
	"pollstream/pkg/events"
	"pollstream/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	// Connect to Database
	database.Connect(cfg)
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repository.InitSchema(ctx, database.DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := internalredis.NewClient(internalredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	broker := events.NewRedisBroker(redisClient)

	// Repositories
	seqRepo := repository.NewSequenceRepository(database.DB)
	pollRepo := repository.NewPollRepository(database.DB, seqRepo)
	savedRepo := repository.NewSavedPollRepository(database.DB)

	// Services
	tokenService := services.NewTokenService(cfg.JWTSecret)
	pollService := services.NewPollService(pollRepo, broker, l)
	saveService := services.NewSaveService(pollRepo, savedRepo)
	feedService := services.NewFeedService(pollRepo)

	// Real-time fan-out
	hub := websocket.NewHub()
	go hub.Run(ctx)
	bridge := websocket.NewEventBridge(broker, hub)
	if err := bridge.Run(ctx); err != nil {
		log.Fatalf("Failed to start event bridge: %v", err)
	}
	wsHandler := websocket.NewHandler(tokenService, hub)

	// Rate limiting
	limiterConfig := internalredis.DefaultRateLimitConfig()
	limiterConfig.VoteLimit = cfg.VoteLimitPerMin
	limiterConfig.CreateLimit = cfg.CreateLimitPerMin
	limiter := internalredis.NewRateLimiter(redisClient, limiterConfig)

	pollHandler := handler.NewPollHandler(pollService, saveService, feedService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/v1/ws", wsHandler.Connect)

	v1 := r.Group("/v1/polls")
	{
		v1.GET("/explore", middleware.OptionalAuthMiddleware(tokenService), pollHandler.Explore)

		authed := v1.Group("", middleware.AuthMiddleware(tokenService))
		authed.POST("", middleware.CreateRateLimitMiddleware(limiter), pollHandler.Create)
		authed.GET("/mine", pollHandler.Mine)
		authed.GET("/saved", pollHandler.Saved)
		authed.POST("/:id/vote", middleware.VoteRateLimitMiddleware(limiter), pollHandler.Vote)
		authed.POST("/:id/save", pollHandler.Save)
		authed.DELETE("/:id/save", pollHandler.Unsave)
	}

	l.Infof("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
