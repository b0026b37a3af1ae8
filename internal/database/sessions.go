// internal/database/sessions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/cache"
)

// Result is one player's final rank. Place 0 means the player never finished.
type Result struct {
	Player string
	Kind   string
	Place  int
}

// Store persists session history to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordSessionResults marks the session completed and stores every player's place.
func (s *Store) RecordSessionResults(ctx context.Context, sessionID uuid.UUID, results []Result) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertSession := `
			INSERT INTO sessions (id, status, end_time)
			VALUES ($1, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, err := tx.Exec(ctx, upsertSession, sessionID); err != nil {
			return err
		}

		for _, r := range results {
			q := `
				INSERT INTO session_results (session_id, player, kind, place)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (session_id, player)
				DO UPDATE SET kind = $3, place = $4
			`
			if _, err := tx.Exec(ctx, q, sessionID, r.Player, r.Kind, r.Place); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert session results: %w", err)
	}
	return nil
}

// InsertActions writes a batch of journal records in one transaction.
// A session_finish record marks its session completed.
func (s *Store) InsertActions(ctx context.Context, records []cache.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.SessionID, rec.ActionIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert actions: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertSession := `
		INSERT INTO sessions (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertSession, rec.SessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	insertAction := `
		INSERT INTO session_actions (
			session_id, action_index, actor, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, insertAction,
		rec.SessionID, rec.ActionIndex, rec.Actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == "session_finish" {
		finalize := `
			UPDATE sessions
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalize, rec.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned flags a session that went quiet before finishing.
func (s *Store) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE sessions
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, sessionID)
		return err
	})
}
