// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx pool for url and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS session_actions (
	session_id     UUID NOT NULL REFERENCES sessions(id),
	action_index   INT NOT NULL,
	actor          TEXT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, action_index)
);

CREATE TABLE IF NOT EXISTS session_results (
	session_id  UUID NOT NULL REFERENCES sessions(id),
	player      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	place       INT NOT NULL,
	PRIMARY KEY (session_id, player)
);
`

// EnsureSchema creates the tables used by the server and the historian if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}
