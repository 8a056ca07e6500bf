package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gamelink/gamelink-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	full_name     TEXT NOT NULL DEFAULT '',
	profile_pic   TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	sender_id   INTEGER NOT NULL,
	receiver_id INTEGER NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	is_read     BOOLEAN NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (receiver_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair
	ON messages(sender_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_unread
	ON messages(receiver_id, sender_id, is_read);

CREATE TABLE IF NOT EXISTS posts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id  INTEGER NOT NULL,
	content    TEXT NOT NULL,
	game       TEXT NOT NULL DEFAULT '',
	images     TEXT NOT NULL DEFAULT '[]',
	is_public  BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (author_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_posts_feed ON posts(is_public, created_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a SQLite store at dbPath and ensures the schema exists.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, fullName, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, full_name, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, fullName, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, full_name, profile_pic, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, full_name, profile_pic, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.ProfilePic,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ListUsersExcept lists every user except the given one, ordered by username.
func (s *SQLiteStore) ListUsersExcept(ctx context.Context, userID int64) ([]*store.User, error) {
	query := `
		SELECT id, username, full_name, profile_pic, password_hash, created_at
		FROM users
		WHERE id != ?
		ORDER BY username ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.FullName,
			&user.ProfilePic,
			&user.PasswordHash,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// UpdateProfile updates the mutable profile fields of a user.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID int64, fullName, profilePic string) (*store.User, error) {
	query := `
		UPDATE users
		SET full_name = ?, profile_pic = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, fullName, profilePic, userID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}
	return s.GetUserByID(ctx, userID)
}

// ==== MessageStore implementation ====

// SaveMessage persists a message with is_read=false, assigning ID and timestamp.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.IsRead = false

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, image, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Text,
		msg.Image,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation returns all messages between viewer and partner ascending
// by creation time, flipping unread partner->viewer messages to read in the
// same transaction so the returned rows and a subsequent unread count agree.
func (s *SQLiteStore) ListConversation(ctx context.Context, viewerID, partnerID int64) ([]*store.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	markQuery := `
		UPDATE messages
		SET is_read = 1
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`
	if _, err := tx.ExecContext(ctx, markQuery, partnerID, viewerID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	listQuery := `
		SELECT id, sender_id, receiver_id, text, image, is_read, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := tx.QueryContext(ctx, listQuery, viewerID, partnerID, partnerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Text,
			&msg.Image,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return messages, nil
}

// CountUnread returns the number of unread messages from partner to viewer.
func (s *SQLiteStore) CountUnread(ctx context.Context, viewerID, partnerID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, partnerID, viewerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkConversationRead flips all unread messages from partner to viewer to read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error {
	query := `
		UPDATE messages
		SET is_read = 1
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, partnerID, viewerID); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	return nil
}

// ==== PostStore implementation ====

// CreatePost persists a post, assigning its ID and creation timestamp.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *store.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	images, err := json.Marshal(post.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	query := `
		INSERT INTO posts (author_id, content, game, images, is_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		post.AuthorID,
		post.Content,
		post.Game,
		string(images),
		post.IsPublic,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID retrieves a post by ID.
func (s *SQLiteStore) GetPostByID(ctx context.Context, id int64) (*store.Post, error) {
	query := `
		SELECT id, author_id, content, game, images, is_public, created_at
		FROM posts
		WHERE id = ?
	`
	post, err := scanPost(s.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	return post, nil
}

// ListPosts returns up to limit public posts, newest first, optionally older
// than the post identified by beforeID. A cursor pointing at a deleted or
// unknown post is treated as absent and the newest page is served.
func (s *SQLiteStore) ListPosts(ctx context.Context, limit int, beforeID *int64) ([]*store.Post, error) {
	var query string
	var args []interface{}

	if beforeID != nil {
		var anchorCreatedAt time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM posts WHERE id = ?`, *beforeID,
		).Scan(&anchorCreatedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			beforeID = nil
		case err != nil:
			return nil, fmt.Errorf("resolve post cursor: %w", err)
		default:
			query = `
				SELECT id, author_id, content, game, images, is_public, created_at
				FROM posts
				WHERE is_public = 1
				  AND (created_at, id) < (?, ?)
				ORDER BY created_at DESC, id DESC
				LIMIT ?
			`
			args = []interface{}{anchorCreatedAt, *beforeID, limit}
		}
	}
	if beforeID == nil {
		query = `
			SELECT id, author_id, content, game, images, is_public, created_at
			FROM posts
			WHERE is_public = 1
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`
		args = []interface{}{limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []*store.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

func scanPost(scan func(dest ...interface{}) error) (*store.Post, error) {
	var post store.Post
	var images string
	if err := scan(
		&post.ID,
		&post.AuthorID,
		&post.Content,
		&post.Game,
		&images,
		&post.IsPublic,
		&post.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &post.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return &post, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
