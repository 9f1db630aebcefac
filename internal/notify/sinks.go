package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.WarnContext(ctx, "model compile failed",
		"notification_id", n.ID,
		"kind", n.Kind,
		"field", n.Field,
		"error", n.Message,
	)
	return nil
}

// RedisSink keeps a capped feed of recent notifications in a Redis list,
// newest first. A nil client makes every call a no-op.
type RedisSink struct {
	rdb  *redis.Client
	key  string
	size int64
}

func NewRedisSink(rdb *redis.Client, key string, size int64) *RedisSink {
	if size <= 0 {
		size = 100
	}
	return &RedisSink{rdb: rdb, key: key, size: size}
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	if s.rdb == nil {
		return nil
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.size-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first. Entries that fail to
// decode are skipped.
func (s *RedisSink) Recent(ctx context.Context, limit int64) ([]Notification, error) {
	if s.rdb == nil {
		return []Notification{}, nil
	}
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	raw, err := s.rdb.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MemorySink holds notifications in process. Used by the CLI and in tests.
type MemorySink struct {
	mu    sync.Mutex
	items []Notification
}

func (s *MemorySink) Notify(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

// Recent returns up to limit notifications, newest first.
func (s *MemorySink) Recent(_ context.Context, limit int64) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.items))
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

// Feed is a sink that can also list what it has recorded.
type Feed interface {
	Sink
	Recent(ctx context.Context, limit int64) ([]Notification, error)
}

var (
	_ Feed = (*RedisSink)(nil)
	_ Feed = (*MemorySink)(nil)
)
