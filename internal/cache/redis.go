// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for session action logs.
const DefaultQueueName = "uno_actions"

// ActionRecord holds the minimal info needed by the historian worker.
type ActionRecord struct {
	SessionID     uuid.UUID              `json:"session_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         string                 `json:"actor"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Journal pushes action records onto a Redis list for the historian.
type Journal struct {
	rdb   *redis.Client
	queue string
}

func NewJournal(rdb *redis.Client, queue string) *Journal {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Journal{rdb: rdb, queue: queue}
}

// PublishAction serializes the given record to JSON, then pushes it to the Redis queue.
func (j *Journal) PublishAction(ctx context.Context, record ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := j.rdb.RPush(ctx, j.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.queue, err)
	}
	return nil
}

// PopAction blocks up to timeout for the next record. It returns nil, nil when the queue stayed empty.
func (j *Journal) PopAction(ctx context.Context, timeout time.Duration) (*ActionRecord, error) {
	res, err := j.rdb.BLPop(ctx, timeout, j.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", j.queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	var record ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}
