package redisimpl

import (
	"context"
	"fmt"
	"time"

	"micro-timeline/microblog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultTimelineKey = "tl:global"
	DefaultOpTimeout   = 500 * time.Millisecond
)

// RedisTimeline stores the global timeline as a Redis list, newest id first.
type RedisTimeline struct {
	client    *redis.Client
	key       string
	capacity  int
	opTimeout time.Duration
	logger    *zap.Logger
}

type TimelineOption func(*RedisTimeline)

func WithKey(key string) TimelineOption {
	return func(t *RedisTimeline) {
		if key != "" {
			t.key = key
		}
	}
}

func WithCapacity(capacity int) TimelineOption {
	return func(t *RedisTimeline) {
		if capacity > 0 {
			t.capacity = capacity
		}
	}
}

func WithOpTimeout(timeout time.Duration) TimelineOption {
	return func(t *RedisTimeline) {
		if timeout > 0 {
			t.opTimeout = timeout
		}
	}
}

func WithTimelineLogger(logger *zap.Logger) TimelineOption {
	return func(t *RedisTimeline) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewRedisTimeline(client *redis.Client, opts ...TimelineOption) *RedisTimeline {
	t := &RedisTimeline{
		client:    client,
		key:       DefaultTimelineKey,
		capacity:  microblog.DefaultTimelineCapacity,
		opTimeout: DefaultOpTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record pushes the id to the head of the list and trims the tail in a single
// MULTI/EXEC, so the list never exceeds the capacity for any reader.
func (t *RedisTimeline) Record(ctx context.Context, postID string) {
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, t.key, postID)
		pipe.LTrim(ctx, t.key, 0, int64(t.capacity-1))
		return nil
	})
	if err != nil {
		t.logger.Error("failed to record post on timeline",
			zap.String("key", t.key),
			zap.String("post_id", postID),
			zap.Error(fmt.Errorf("%w: %w", microblog.ErrCache, err)),
		)
	}
}

// FetchRecent returns up to limit ids from the head of the list. Any Redis
// failure yields an empty result.
func (t *RedisTimeline) FetchRecent(ctx context.Context, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	ids, err := t.client.LRange(ctx, t.key, 0, int64(limit-1)).Result()
	if err != nil {
		t.logger.Error("failed to fetch timeline",
			zap.String("key", t.key),
			zap.Int("limit", limit),
			zap.Error(fmt.Errorf("%w: %w", microblog.ErrCache, err)),
		)
		return []string{}
	}
	return ids
}

func (t *RedisTimeline) IsReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()
	return t.client.Ping(ctx).Err() == nil
}
