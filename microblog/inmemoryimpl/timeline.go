package inmemoryimpl

import (
	"context"
	"sync"

	"micro-timeline/microblog"

	"go.uber.org/zap"
)

// InMemoryTimeline keeps the id list in process, serializing every access.
type InMemoryTimeline struct {
	mu       sync.Mutex
	ids      []string
	capacity int
	failErr  error
	logger   *zap.Logger
}

func NewInMemoryTimeline(capacity int, logger *zap.Logger) *InMemoryTimeline {
	if capacity <= 0 {
		capacity = microblog.DefaultTimelineCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryTimeline{capacity: capacity, logger: logger}
}

// SetFailure simulates an unreachable cache until called again with nil.
func (t *InMemoryTimeline) SetFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failErr = err
}

func (t *InMemoryTimeline) Record(_ context.Context, postID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failErr != nil {
		t.logger.Error("failed to record post on timeline", zap.String("post_id", postID), zap.Error(t.failErr))
		return
	}

	n := len(t.ids) + 1
	if n > t.capacity {
		n = t.capacity
	}
	ids := make([]string, n)
	ids[0] = postID
	copy(ids[1:], t.ids)
	t.ids = ids
}

func (t *InMemoryTimeline) FetchRecent(_ context.Context, limit int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failErr != nil {
		t.logger.Error("failed to fetch timeline", zap.Int("limit", limit), zap.Error(t.failErr))
		return []string{}
	}
	if limit <= 0 {
		return []string{}
	}
	if limit > len(t.ids) {
		limit = len(t.ids)
	}
	out := make([]string, limit)
	copy(out, t.ids[:limit])
	return out
}

func (t *InMemoryTimeline) IsReady(_ context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failErr == nil
}
