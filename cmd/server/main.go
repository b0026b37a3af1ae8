// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const pruneInterval = 5 * time.Minute

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, err := newSigner(cfg)
	if err != nil {
		logger.Fatalf("failed to set up token signing: %v", err)
	}

	opts := cfg.SessionOptions()
	opts.Logger = logger

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts.Journal = cache.NewJournal(rdb, cfg.Queue())
		logger.Infof("journaling actions to redis list %s", cfg.Queue())
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Fatalf("database schema: %v", err)
		}
		opts.OnFinish = recordResults(database.NewStore(pool), logger)
		logger.Info("recording session results to postgres")
	}

	store := game.NewStore(opts)
	go pruneLoop(ctx, store, logger)

	srv := handlers.NewSessionServer(store, signer, logger)
	srv.OriginPatterns = cfg.OriginPatterns

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown")
		}
	}()

	logger.Infof("Running on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func newSigner(cfg config.Config) (*auth.Signer, error) {
	if cfg.PrivateKeyPath != "" {
		return auth.NewSignerFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL())
	}
	return auth.NewSigner(cfg.TokenTTL())
}

// recordResults stores the final places of a finished session.
func recordResults(db *database.Store, logger logrus.FieldLogger) game.OnFinishFunc {
	return func(sessionID uuid.UUID, placements []game.Placement) {
		results := make([]database.Result, 0, len(placements))
		for _, p := range placements {
			results = append(results, database.Result{Player: p.Name, Kind: p.Kind.String(), Place: p.Place})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.RecordSessionResults(ctx, sessionID, results); err != nil {
			logger.WithError(err).WithField("session", sessionID).Error("failed to record session results")
		}
	}
}

func pruneLoop(ctx context.Context, store *game.Store, logger logrus.FieldLogger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Prune(); n > 0 {
				logger.Infof("pruned %d finished sessions", n)
			}
		}
	}
}
