package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/fintraq/auth-gateway/internal/config"
	"github.com/fintraq/auth-gateway/internal/database"
	"github.com/fintraq/auth-gateway/internal/handler"
	"github.com/fintraq/auth-gateway/internal/queue"
	"github.com/fintraq/auth-gateway/internal/repository"
	"github.com/fintraq/auth-gateway/internal/router"
	queue_publisher "github.com/fintraq/auth-gateway/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	// Audit trail is best-effort; the consumer reconnects on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	proxy, err := handler.NewTenantProxy(cfg.BackendURL, cfg.TenantPrefix)
	if err != nil {
		log.Fatalf("proxy: invalid BACKEND_URL: %v", err)
	}

	auth := handler.NewAuthHandler(cfg,
		repository.NewUserRepo(db),
		repository.NewTokenRepo(db),
		&queue_publisher.Publisher{})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: true,
	}))

	router.Register(e, auth, proxy, cfg, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("auth gateway listening on %s (env=%s, backend=%s)", addr, cfg.Env, cfg.BackendURL)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
