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

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "pongai_actions"

// GameActionRecord holds the minimal info needed by the historian.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	TeamID        int                    `json:"team_id,omitempty"`
	PlayerID      int                    `json:"player_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Options configures the Redis connection.
type Options struct {
	Addr  string
	DB    int
	Queue string
}

// Publisher pushes action records onto a Redis list.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// NewPublisher wraps an existing client. An empty queue uses DefaultQueueName.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Queue returns the list name records are pushed to.
func (p *Publisher) Queue() string {
	return p.queue
}

// PublishGameAction serializes the given record to JSON, then pushes it to the Redis queue.
func (p *Publisher) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Consumer pops action records off the same Redis list the Publisher feeds.
type Consumer struct {
	rdb   *redis.Client
	queue string
}

// NewConsumer wraps an existing client. An empty queue uses DefaultQueueName.
func NewConsumer(rdb *redis.Client, queue string) *Consumer {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Consumer{rdb: rdb, queue: queue}
}

// PopGameAction blocks for up to timeout waiting for the next record.
// ok is false when the wait timed out.
func (c *Consumer) PopGameAction(ctx context.Context, timeout time.Duration) (record GameActionRecord, ok bool, err error) {
	res, err := c.rdb.BLPop(ctx, timeout, c.queue).Result()
	if errors.Is(err, redis.Nil) {
		return GameActionRecord{}, false, nil
	}
	if err != nil {
		return GameActionRecord{}, false, fmt.Errorf("BLPop %s: %w", c.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return GameActionRecord{}, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return GameActionRecord{}, false, fmt.Errorf("invalid action record: %w", err)
	}
	return record, true, nil
}

// Close releases the underlying client.
func (c *Consumer) Close() error {
	return c.rdb.Close()
}
