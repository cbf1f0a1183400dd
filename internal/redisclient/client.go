package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agent-market/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireSessionLock takes a short-lived lock for a checkout session so
// concurrent delivery of the same session (webhook plus success callback)
// reconciles once. The database idempotency record is the durable guard;
// this only avoids doing the work twice.
func (c *Client) AcquireSessionLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("fulfill:lock:%s", sessionID), "1", ttl).Result()
}

// ReleaseSessionLock releases a session lock
func (c *Client) ReleaseSessionLock(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("fulfill:lock:%s", sessionID)).Err()
}

// GetAgent returns a cached agent, or nil on cache miss.
func (c *Client) GetAgent(ctx context.Context, agentID int64) (*models.Agent, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("agent:%d", agentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var agent models.Agent
	if err := json.Unmarshal([]byte(val), &agent); err != nil {
		return nil, fmt.Errorf("corrupt agent cache entry: %w", err)
	}
	return &agent, nil
}

// SetAgent caches an agent with a TTL.
func (c *Client) SetAgent(ctx context.Context, agent *models.Agent, ttl time.Duration) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("agent:%d", agent.ID), data, ttl).Err()
}

// InvalidateAgent drops a cached agent after update or delete.
func (c *Client) InvalidateAgent(ctx context.Context, agentID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("agent:%d", agentID)).Err()
}
