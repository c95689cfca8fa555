package inmemoryimpl

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"micro-timeline/microblog"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	seq     uint64
	order   map[string]uint64
	posts   map[string]microblog.Post
	now     func() time.Time
	failErr error
}

type StoreOption func(*InMemoryStore)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		order: make(map[string]uint64),
		posts: make(map[string]microblog.Post),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFailure makes every subsequent call fail with err wrapped in
// microblog.ErrStorage. A nil err restores normal operation.
func (s *InMemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *InMemoryStore) failure() error {
	if s.failErr != nil {
		return fmt.Errorf("%w: %w", microblog.ErrStorage, s.failErr)
	}
	return nil
}

func (s *InMemoryStore) AddPost(_ context.Context, author string, body string) (microblog.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return microblog.Post{}, err
	}

	s.seq++
	postID := strconv.FormatUint(s.seq, 10)
	post := microblog.Post{PostId: postID, Body: body, AuthorName: author, CreatedAt: s.now()}
	s.order[postID] = s.seq
	s.posts[postID] = post
	return post, nil
}

func (s *InMemoryStore) GetPost(_ context.Context, postID string) (microblog.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return microblog.Post{}, err
	}
	post, ok := s.posts[postID]
	if !ok {
		return microblog.Post{}, fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	return post, nil
}

func (s *InMemoryStore) GetPosts(_ context.Context, postIDs []string) (map[string]microblog.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return nil, err
	}
	found := make(map[string]microblog.Post, len(postIDs))
	for _, id := range postIDs {
		if post, ok := s.posts[id]; ok {
			found[id] = post
		}
	}
	return found, nil
}

func (s *InMemoryStore) GetRecentPosts(_ context.Context, n int) ([]microblog.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []microblog.Post{}, nil
	}

	posts := make([]microblog.Post, 0, len(s.posts))
	for _, post := range s.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return s.order[posts[i].PostId] > s.order[posts[j].PostId]
	})
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

func (s *InMemoryStore) DeletePost(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return err
	}
	if _, ok := s.posts[postID]; !ok {
		return fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	delete(s.posts, postID)
	delete(s.order, postID)
	return nil
}

func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

func (s *InMemoryStore) IsReady(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failErr == nil
}
