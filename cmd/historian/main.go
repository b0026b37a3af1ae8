// cmd/historian is an asynchronous historian service that pops session actions from a Redis queue
// and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.Level())
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("database schema: %v", err)
	}

	rdb, err := cache.Connect(ctx, redisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.New(cache.NewJournal(rdb, cfg.Queue()), database.NewStore(pool), historian.Options{
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay(),
		Inactivity: cfg.InactivityTimeout,
		Logger:     logger.WithField("queue", cfg.Queue()),
	})
	hs.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
