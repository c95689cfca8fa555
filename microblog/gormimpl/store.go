package gormimpl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"micro-timeline/microblog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostRecord is the posts table row.
type PostRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Body       string    `gorm:"type:text;not null"`
	AuthorName string    `gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (PostRecord) TableName() string { return "posts" }

func (r PostRecord) toPost() microblog.Post {
	return microblog.Post{
		PostId:     strconv.FormatUint(r.ID, 10),
		Body:       r.Body,
		AuthorName: r.AuthorName,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type GormStore struct {
	db *gorm.DB
}

// OpenMySQL connects to MySQL and migrates the posts table.
func OpenMySQL(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&PostRecord{}); err != nil {
		return nil, fmt.Errorf("migrate posts: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormStore) IsReady(ctx context.Context) bool {
	sqlDB, err := g.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (g *GormStore) AddPost(ctx context.Context, author string, body string) (microblog.Post, error) {
	// Columns are datetime(3); truncate so the returned post matches what is read back.
	now := time.Now().UTC().Truncate(time.Millisecond)
	record := PostRecord{Body: body, AuthorName: author, CreatedAt: now, UpdatedAt: now}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return microblog.Post{}, fmt.Errorf("insert post: %w: %w", microblog.ErrStorage, err)
	}
	return record.toPost(), nil
}

func (g *GormStore) GetPost(ctx context.Context, postID string) (microblog.Post, error) {
	id, err := strconv.ParseUint(postID, 10, 64)
	if err != nil {
		return microblog.Post{}, fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	var record PostRecord
	err = g.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return microblog.Post{}, fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	if err != nil {
		return microblog.Post{}, fmt.Errorf("find post: %w: %w", microblog.ErrStorage, err)
	}
	return record.toPost(), nil
}

func (g *GormStore) GetPosts(ctx context.Context, postIDs []string) (map[string]microblog.Post, error) {
	ids := make([]uint64, 0, len(postIDs))
	for _, postID := range postIDs {
		if id, err := strconv.ParseUint(postID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	found := make(map[string]microblog.Post, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var records []PostRecord
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find posts: %w: %w", microblog.ErrStorage, err)
	}
	for _, record := range records {
		post := record.toPost()
		found[post.PostId] = post
	}
	return found, nil
}

func (g *GormStore) GetRecentPosts(ctx context.Context, n int) ([]microblog.Post, error) {
	posts := []microblog.Post{}
	if n <= 0 {
		return posts, nil
	}
	var records []PostRecord
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("find recent posts: %w: %w", microblog.ErrStorage, err)
	}
	for _, record := range records {
		posts = append(posts, record.toPost())
	}
	return posts, nil
}

func (g *GormStore) DeletePost(ctx context.Context, postID string) error {
	id, err := strconv.ParseUint(postID, 10, 64)
	if err != nil {
		return fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	res := g.db.WithContext(ctx).Delete(&PostRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete post: %w: %w", microblog.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	return nil
}
