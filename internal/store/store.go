package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	FullName     string
	ProfilePic   string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is a direct message between two users. The ID is assigned by the
// store at creation time and is opaque to callers.
type Message struct {
	ID         string
	SenderID   int64
	ReceiverID int64
	Text       string
	Image      string
	IsRead     bool
	CreatedAt  time.Time
}

// Post is a feed entry authored by a user.
type Post struct {
	ID        int64
	AuthorID  int64
	Content   string
	Game      string
	Images    []string
	IsPublic  bool
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, fullName, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsersExcept lists every user except the given one, ordered by username.
	ListUsersExcept(ctx context.Context, userID int64) ([]*User, error)

	// UpdateProfile updates the mutable profile fields of a user.
	UpdateProfile(ctx context.Context, userID int64, fullName, profilePic string) (*User, error)
}

// MessageStore handles direct message persistence and read-state bookkeeping.
type MessageStore interface {
	// SaveMessage persists a message with is_read=false, assigning its ID and
	// creation timestamp.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns every message exchanged between viewer and
	// partner ascending by creation time. As a side effect all unread messages
	// from partner to viewer are flipped to read, atomically with the fetch:
	// the returned rows reflect the post-flip state and a subsequent
	// CountUnread for the pair reports zero.
	ListConversation(ctx context.Context, viewerID, partnerID int64) ([]*Message, error)

	// CountUnread returns the number of unread messages from partner to
	// viewer. It does not mutate state.
	CountUnread(ctx context.Context, viewerID, partnerID int64) (int, error)

	// MarkConversationRead flips all unread messages from partner to viewer
	// to read. Idempotent.
	MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error
}

// PostStore handles feed post persistence.
type PostStore interface {
	// CreatePost persists a post, assigning its ID and creation timestamp.
	CreatePost(ctx context.Context, post *Post) error

	// ListPosts returns up to limit public posts, newest first. When beforeID
	// is non-nil only posts created before that post are returned.
	ListPosts(ctx context.Context, limit int, beforeID *int64) ([]*Post, error)

	// GetPostByID retrieves a post by ID.
	GetPostByID(ctx context.Context, id int64) (*Post, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	PostStore

	// Close closes the underlying database connection.
	Close() error
}
