package microblog

import (
	"context"
	"time"
)

const DefaultAuthor = "guest"

type Post struct {
	PostId     string    `json:"id"`
	Body       string    `json:"body"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the authoritative record of posts.
type Store interface {
	AddPost(ctx context.Context, author string, body string) (Post, error)
	GetPost(ctx context.Context, postID string) (Post, error)
	// GetPosts resolves the given ids. Ids without a post are simply absent
	// from the result.
	GetPosts(ctx context.Context, postIDs []string) (map[string]Post, error)
	// GetRecentPosts returns up to n posts ordered by creation time, newest first.
	GetRecentPosts(ctx context.Context, n int) ([]Post, error)
	DeletePost(ctx context.Context, postID string) error
	IsReady(ctx context.Context) bool
}

// Timeline is the bounded index of recently created post ids. Implementations
// never return errors: failures are logged and turned into no-ops or empty results.
type Timeline interface {
	Record(ctx context.Context, postID string)
	FetchRecent(ctx context.Context, limit int) []string
	IsReady(ctx context.Context) bool
}

type Manager interface {
	CreatePost(ctx context.Context, author string, body string) (Post, error)
	ListTimeline(ctx context.Context, limit int) ([]Post, error)
	GetPost(ctx context.Context, postID string) (Post, error)
	DeletePost(ctx context.Context, postID string) error
	IsReady(ctx context.Context) bool
}
