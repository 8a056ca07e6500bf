// Package posts implements the feed: post creation and cursor-based
// pagination over public posts.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamelink/gamelink-server/internal/store"
)

const (
	// MaxContentLength bounds post content size.
	MaxContentLength = 2000

	defaultPageSize = 10
	maxPageSize     = 50
)

var (
	// ErrEmptyContent is returned when a post has no content.
	ErrEmptyContent = errors.New("content is required")
	// ErrContentTooLong is returned when content exceeds MaxContentLength.
	ErrContentTooLong = errors.New("content too long")
)

// Service provides feed business logic.
type Service struct {
	store store.Store
}

// New creates a posts service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// Create validates and persists a post.
func (s *Service) Create(ctx context.Context, authorID int64, content, game string, images []string, isPublic bool) (*store.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if images == nil {
		images = []string{}
	}

	post := &store.Post{
		AuthorID: authorID,
		Content:  content,
		Game:     strings.TrimSpace(game),
		Images:   images,
		IsPublic: isPublic,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Feed returns a page of public posts, newest first. beforeID narrows the
// page to posts strictly older than that post; hasMore signals a full page.
func (s *Service) Feed(ctx context.Context, limit int, beforeID *int64) (posts []*store.Post, hasMore bool, err error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	posts, err = s.store.ListPosts(ctx, limit, beforeID)
	if err != nil {
		return nil, false, fmt.Errorf("list posts: %w", err)
	}
	return posts, len(posts) == limit, nil
}
