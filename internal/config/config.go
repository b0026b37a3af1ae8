// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is read from the environment, after .env has been loaded by godotenv.
type Config struct {
	Port     string `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HandSize   int `env:"HAND_SIZE"   envDefault:"7"`
	MaxPlayers int `env:"MAX_PLAYERS" envDefault:"10"`

	// RedisAddr enables the action journal when set.
	RedisAddr string `env:"REDIS_ADDR"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	QueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"uno_actions"`

	// DatabaseURL enables result recording when set. The historian requires it.
	DatabaseURL string `env:"DATABASE_URL"`

	// TokenExpireTime is a Go duration, or "never".
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
	PrivateKeyPath  string `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath   string `env:"JWT_PUBLIC_KEY_PATH"`

	// OriginPatterns are the hosts allowed to open the session socket cross-origin.
	OriginPatterns []string `env:"WS_ORIGIN_PATTERNS" envSeparator:","`

	HistorianBatchSize int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMs   int           `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	InactivityTimeout  time.Duration `env:"SESSION_INACTIVITY_TIMEOUT" envDefault:"10m"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HandSize <= 0 {
		return fmt.Errorf("HAND_SIZE must be positive, got %d", c.HandSize)
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("MAX_PLAYERS must be at least 2, got %d", c.MaxPlayers)
	}
	if c.HistorianBatchSize <= 0 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive, got %d", c.HistorianBatchSize)
	}
	if (c.PrivateKeyPath == "") != (c.PublicKeyPath == "") {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}
	if _, err := auth.ParseExpireTime(c.TokenExpireTime); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// TokenTTL returns how long seat tokens live; 0 means forever.
func (c Config) TokenTTL() time.Duration {
	d, _ := auth.ParseExpireTime(c.TokenExpireTime)
	return d
}

func (c Config) HistorianFlushDelay() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

// SessionOptions maps the config onto per-session options.
func (c Config) SessionOptions() game.Options {
	return game.Options{
		HandSize:   c.HandSize,
		MaxPlayers: c.MaxPlayers,
	}
}

// Queue returns the journal queue name, defaulting to the cache default.
func (c Config) Queue() string {
	if c.QueueName == "" {
		return cache.DefaultQueueName
	}
	return c.QueueName
}
