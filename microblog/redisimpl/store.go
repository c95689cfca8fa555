package redisimpl

import (
	"context"
	"encoding/json"
	"time"

	"micro-timeline/microblog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultPostCacheTTL = 10 * time.Minute

func cacheKeyForPost(id string) string { return "post:" + id }

// CachedStore puts a per-post read-through cache in front of a durable store.
// Only single-post reads are served from the cache; bulk and recency queries
// always go to the durable store so deleted posts never resurface on the
// timeline.
type CachedStore struct {
	client     *redis.Client
	persistent microblog.Store
	ttl        time.Duration
	logger     *zap.Logger
}

func NewCachedStore(
	client *redis.Client,
	persistent microblog.Store,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultPostCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		client:     client,
		persistent: persistent,
		ttl:        ttl,
		logger:     logger,
	}
}

// AddPost writes through to persistent storage and warms the cache.
func (c *CachedStore) AddPost(ctx context.Context, author string, body string) (microblog.Post, error) {
	created, err := c.persistent.AddPost(ctx, author, body)
	if err != nil {
		return created, err
	}
	c.set(ctx, created)
	return created, nil
}

// GetPost uses read-through cache backed by persistent storage.
func (c *CachedStore) GetPost(ctx context.Context, postID string) (microblog.Post, error) {
	var cached microblog.Post
	if bytes, err := c.client.Get(ctx, cacheKeyForPost(postID)).Bytes(); err == nil {
		if uErr := json.Unmarshal(bytes, &cached); uErr == nil {
			return cached, nil
		}
	}

	post, err := c.persistent.GetPost(ctx, postID)
	if err != nil {
		return post, err
	}
	c.set(ctx, post)
	return post, nil
}

func (c *CachedStore) GetPosts(ctx context.Context, postIDs []string) (map[string]microblog.Post, error) {
	return c.persistent.GetPosts(ctx, postIDs)
}

func (c *CachedStore) GetRecentPosts(ctx context.Context, n int) ([]microblog.Post, error) {
	return c.persistent.GetRecentPosts(ctx, n)
}

// DeletePost deletes from persistent storage and evicts the cache entry.
func (c *CachedStore) DeletePost(ctx context.Context, postID string) error {
	if err := c.persistent.DeletePost(ctx, postID); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKeyForPost(postID)).Err(); err != nil {
		c.logger.Error("failed to evict cached post", zap.String("post_id", postID), zap.Error(err))
	}
	return nil
}

// IsReady reports the persistent store's health; the cache is optional.
func (c *CachedStore) IsReady(ctx context.Context) bool {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("post cache is unreachable", zap.Error(err))
	}
	return c.persistent.IsReady(ctx)
}

func (c *CachedStore) set(ctx context.Context, post microblog.Post) {
	raw, err := json.Marshal(post)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyForPost(post.PostId), raw, c.ttl).Err(); err != nil {
		c.logger.Error("failed to cache post", zap.String("post_id", post.PostId), zap.Error(err))
	}
}
