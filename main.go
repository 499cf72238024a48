package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mock-assessment-service/app"
	"mock-assessment-service/config"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ failed to start: %v", err)
	}
	defer func() { _ = a.Log.Sync() }()

	if err := a.Sync.Start(ctx); err != nil {
		a.Log.Fatal("failed to start leaderboard sync", zap.Error(err))
	}

	go func() {
		if err := a.Fiber.Listen(":" + cfg.Server.Port); err != nil {
			a.Log.Error("server error", zap.Error(err))
			stop()
		}
	}()
	a.Log.Info("server running",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("origins", cfg.CORS.AllowedOrigins))

	<-ctx.Done()
	a.Log.Info("shutting down server")

	if err := a.Sync.Stop(); err != nil {
		a.Log.Warn("leaderboard sync shutdown", zap.Error(err))
	}
	if err := a.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		a.Log.Warn("server shutdown", zap.Error(err))
	}
}
