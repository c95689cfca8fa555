package microblog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type TimelineManager struct {
	store        Store
	timeline     Timeline
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

type Option func(*TimelineManager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *TimelineManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPageLimits sets the limit used when the caller passes none and the
// largest limit honoured.
func WithPageLimits(defaultLimit, maxLimit int) Option {
	return func(m *TimelineManager) {
		if defaultLimit > 0 {
			m.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			m.maxLimit = maxLimit
		}
	}
}

func NewTimelineManager(store Store, timeline Timeline, opts ...Option) *TimelineManager {
	m := &TimelineManager{
		store:        store,
		timeline:     timeline,
		defaultLimit: DefaultPageLimit,
		maxLimit:     DefaultPageLimit,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.defaultLimit > m.maxLimit {
		m.defaultLimit = m.maxLimit
	}
	return m
}

// CreatePost persists the post and then records it on the timeline. The
// timeline update is best effort and never changes the result.
func (m *TimelineManager) CreatePost(ctx context.Context, author string, body string) (Post, error) {
	author, err := ValidatePost(author, body)
	if err != nil {
		return Post{}, err
	}
	post, err := m.store.AddPost(ctx, author, body)
	if err != nil {
		return Post{}, storageErr("add post", err)
	}
	m.timeline.Record(ctx, post.PostId)
	return post, nil
}

// ListTimeline returns up to limit posts, newest first. Cached ids are
// resolved against the store in cache order; ids whose post is gone are
// skipped. An empty cache read falls back to the store's own ordering.
func (m *TimelineManager) ListTimeline(ctx context.Context, limit int) ([]Post, error) {
	limit = ClampLimit(limit, m.defaultLimit, m.maxLimit)

	ids := m.timeline.FetchRecent(ctx, limit)
	if len(ids) == 0 {
		posts, err := m.store.GetRecentPosts(ctx, limit)
		if err != nil {
			return nil, storageErr("get recent posts", err)
		}
		m.logger.Debug("timeline served from store", zap.Int("limit", limit), zap.Int("posts", len(posts)))
		return nonNil(posts), nil
	}

	found, err := m.store.GetPosts(ctx, ids)
	if err != nil {
		return nil, storageErr("get posts", err)
	}
	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := found[id]; ok {
			posts = append(posts, post)
		}
	}
	m.logger.Debug("timeline served from cache",
		zap.Int("limit", limit),
		zap.Int("cached_ids", len(ids)),
		zap.Int("stale_ids", len(ids)-len(posts)),
	)
	return posts, nil
}

func (m *TimelineManager) GetPost(ctx context.Context, postID string) (Post, error) {
	post, err := m.store.GetPost(ctx, postID)
	if err != nil {
		return Post{}, storageErr("get post", err)
	}
	return post, nil
}

// DeletePost removes the post from the store only. Its id may stay on the
// timeline until evicted by newer posts; reads skip it.
func (m *TimelineManager) DeletePost(ctx context.Context, postID string) error {
	if err := m.store.DeletePost(ctx, postID); err != nil {
		return storageErr("delete post", err)
	}
	return nil
}

func (m *TimelineManager) IsReady(ctx context.Context) bool {
	if !m.timeline.IsReady(ctx) {
		m.logger.Warn("timeline cache is not ready, reads fall back to the store")
	}
	return m.store.IsReady(ctx)
}

// storageErr makes sure every store failure carries ErrStorage while keeping
// ErrNotFound recognisable.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func nonNil(posts []Post) []Post {
	if posts == nil {
		return []Post{}
	}
	return posts
}
