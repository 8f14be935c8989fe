package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/auth"
	"github.com/streamverse/catalog-api/internal/config"
	"github.com/streamverse/catalog-api/internal/database"
	"github.com/streamverse/catalog-api/internal/handler"
	"github.com/streamverse/catalog-api/internal/middleware"
	"github.com/streamverse/catalog-api/internal/queue"
	"github.com/streamverse/catalog-api/internal/repository"
	"github.com/streamverse/catalog-api/internal/router"
	"github.com/streamverse/catalog-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	client, db, err := database.Open(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	blacklist := repository.NewBlacklistRepo(db)
	auditLogs := repository.NewAuditRepo(db)

	tokens := auth.NewService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.TokenIssuers)
	recorder := service.NewRecorder(auditLogs, cfg.AuditQueueName)

	authHandler := handler.NewAuthHandler(cfg, tokens, users, blacklist, recorder)
	usersHandler := handler.NewUsersHandler(cfg, users, recorder)
	auditHandler := handler.NewAuditHandler(auditLogs)
	healthHandler := handler.NewHealthHandler(func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})

	// drain admin-action events into logs/audit.log in the background
	go func() {
		if err := queue.StartAuditConsumer(cfg.AuditQueueName); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	authn := middleware.Authenticate(tokens, users, blacklist, cfg.RequireAPIKey)
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e, healthHandler)
	router.RegisterAuth(e, authHandler, usersHandler, auditHandler, authn, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
