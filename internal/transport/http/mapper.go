package http

import (
	"github.com/gamelink/gamelink-server/internal/proto"
	"github.com/gamelink/gamelink-server/internal/store"
)

// UserResponse represents a user summary in API responses.
type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// PostResponse represents a feed post in API responses.
type PostResponse struct {
	ID        int64    `json:"id"`
	AuthorID  int64    `json:"authorId"`
	Content   string   `json:"content"`
	Game      string   `json:"game,omitempty"`
	Images    []string `json:"images"`
	IsPublic  bool     `json:"isPublic"`
	CreatedAt string   `json:"createdAt"`
}

func userToResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		ProfilePic: u.ProfilePic,
	}
}

func messageToWire(m *store.Message) proto.Message {
	return proto.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.Image,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func postToResponse(p *store.Post) PostResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return PostResponse{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Content:   p.Content,
		Game:      p.Game,
		Images:    images,
		IsPublic:  p.IsPublic,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
