package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	historyTTL = 24 * time.Hour
	maxHistory = 50
)

// HistoryCache keeps the recent conversation window in Redis so LLM calls
// never hit Postgres on the hot path. Entries expire a day after the last
// message; an expired conversation simply starts with an empty window.
type HistoryCache struct {
	redis *redis.Client
}

// NewHistoryCache creates the cache.
func NewHistoryCache(client *redis.Client) *HistoryCache {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &HistoryCache{redis: client}
}

func historyKey(phone string) string {
	return fmt.Sprintf("conversa:%s", phone)
}

// Append adds one message to the window, trimming to the newest maxHistory
// entries and refreshing the TTL. Callers serialize per contact, so the
// read-modify-write is race free.
func (c *HistoryCache) Append(ctx context.Context, phone string, msg ChatMessage) error {
	history, err := c.load(ctx, phone)
	if err != nil {
		return err
	}
	history = append(history, msg)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("conversation: marshal history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(phone), data, historyTTL).Err(); err != nil {
		return fmt.Errorf("conversation: persist history: %w", err)
	}
	return nil
}

// Recent returns up to limit newest messages in chronological order.
func (c *HistoryCache) Recent(ctx context.Context, phone string, limit int) ([]ChatMessage, error) {
	history, err := c.load(ctx, phone)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (c *HistoryCache) load(ctx context.Context, phone string) ([]ChatMessage, error) {
	data, err := c.redis.Get(ctx, historyKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("conversation: decode history: %w", err)
	}
	return history, nil
}
