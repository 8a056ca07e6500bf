// Package client is a Go client for the gamelink API: typed REST calls plus
// a listener for the persistent push channel.
package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-resty/resty/v2"

	"github.com/gamelink/gamelink-server/internal/proto"
)

// User is a user summary as returned by the API.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// Post is a feed post as returned by the API.
type Post struct {
	ID        int64    `json:"id"`
	AuthorID  int64    `json:"authorId"`
	Content   string   `json:"content"`
	Game      string   `json:"game,omitempty"`
	Images    []string `json:"images"`
	IsPublic  bool     `json:"isPublic"`
	CreatedAt string   `json:"createdAt"`
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Posts      []Post `json:"posts"`
	HasMore    bool   `json:"hasMore"`
	LastPostID *int64 `json:"lastPostId"`
}

type authResponse struct {
	Token string `json:"token"`
}

type apiError struct {
	Error string `json:"error"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to a gamelink server.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		http:    resty.New().SetBaseURL(baseURL),
		baseURL: baseURL,
	}
}

// Token returns the session token acquired by Register or Login.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetHeader("Authorization", "Bearer "+c.token)
	}
	return req
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := "request failed"
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, username, fullName, password string) error {
	var out authResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username, "fullName": fullName, "password": password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/auth/register")
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out authResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/auth/login")
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Logout drops the stored token.
func (c *Client) Logout() {
	c.token = ""
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	resp, err := c.request(ctx).SetResult(&out).SetError(&apiError{}).Get("/api/auth/me")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates the caller's display name and picture.
func (c *Client) UpdateProfile(ctx context.Context, fullName, profilePic string) (*User, error) {
	var out User
	resp, err := c.request(ctx).
		SetBody(map[string]string{"fullName": fullName, "profilePic": profilePic}).
		SetResult(&out).
		SetError(&apiError{}).
		Put("/api/auth/profile")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Partners lists every other user.
func (c *Client) Partners(ctx context.Context) ([]User, error) {
	var out []User
	resp, err := c.request(ctx).SetResult(&out).SetError(&apiError{}).Get("/api/messages/users")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// History fetches the conversation with a partner, oldest first. The server
// marks everything from the partner as read as a side effect.
func (c *Client) History(ctx context.Context, partnerID int64) ([]proto.Message, error) {
	var out []proto.Message
	resp, err := c.request(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/api/messages/" + strconv.FormatInt(partnerID, 10))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Send delivers a message to the partner and returns the stored record.
func (c *Client) Send(ctx context.Context, partnerID int64, text, image string) (*proto.Message, error) {
	var out proto.Message
	resp, err := c.request(ctx).
		SetBody(map[string]string{"text": text, "image": image}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/messages/send/" + strconv.FormatInt(partnerID, 10))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadCount reports unread messages from the partner.
func (c *Client) UnreadCount(ctx context.Context, partnerID int64) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	resp, err := c.request(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/api/messages/unread/" + strconv.FormatInt(partnerID, 10))
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead flips the conversation with the partner to read.
func (c *Client) MarkRead(ctx context.Context, partnerID int64) error {
	resp, err := c.request(ctx).
		SetError(&apiError{}).
		Post("/api/messages/read/" + strconv.FormatInt(partnerID, 10))
	return checkResponse(resp, err)
}

// Feed fetches a page of public posts.
func (c *Client) Feed(ctx context.Context, limit int, lastPostID *int64) (*FeedPage, error) {
	req := c.request(ctx)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if lastPostID != nil {
		req.SetQueryParam("lastPostId", strconv.FormatInt(*lastPostID, 10))
	}
	var out FeedPage
	resp, err := req.SetResult(&out).SetError(&apiError{}).Get("/api/posts")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes a post.
func (c *Client) CreatePost(ctx context.Context, content, game string, images []string, isPublic bool) (*Post, error) {
	var out Post
	resp, err := c.request(ctx).
		SetBody(map[string]any{"content": content, "game": game, "images": images, "isPublic": isPublic}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/posts")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Listen opens the push channel and invokes onEvent for every frame until the
// context is cancelled or the connection drops.
func (c *Client) Listen(ctx context.Context, onEvent func(proto.Outbound)) error {
	if c.token == "" {
		return fmt.Errorf("listen: not authenticated")
	}

	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + c.token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		var event proto.Outbound
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		onEvent(event)
	}
}
