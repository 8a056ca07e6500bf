package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/service/posts"
)

// PostHandlers provides HTTP handlers for the feed endpoints.
type PostHandlers struct {
	service *posts.Service
	log     *zerolog.Logger
}

// NewPostHandlers creates a new post handlers instance.
func NewPostHandlers(svc *posts.Service, logger *zerolog.Logger) *PostHandlers {
	return &PostHandlers{
		service: svc,
		log:     logger,
	}
}

// CreatePostRequest represents the post creation request body.
type CreatePostRequest struct {
	Content  string   `json:"content" binding:"required"`
	Game     string   `json:"game"`
	Images   []string `json:"images"`
	IsPublic *bool    `json:"isPublic"`
}

// FeedResponse represents a page of the feed.
type FeedResponse struct {
	Posts      []PostResponse `json:"posts"`
	HasMore    bool           `json:"hasMore"`
	LastPostID *int64         `json:"lastPostId"`
}

// Create persists a new post authored by the caller.
// POST /api/posts
func (h *PostHandlers) Create(c *gin.Context) {
	authorID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	isPublic := req.IsPublic == nil || *req.IsPublic

	post, err := h.service.Create(c.Request.Context(), authorID, req.Content, req.Game, req.Images, isPublic)
	if err != nil {
		if errors.Is(err, posts.ErrEmptyContent) || errors.Is(err, posts.ErrContentTooLong) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Int64("author_id", authorID).Msg("failed to create post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, postToResponse(post))
}

// Feed returns a page of public posts for infinite scrolling.
// GET /api/posts?limit=10&lastPostId=42
func (h *PostHandlers) Feed(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	var beforeID *int64
	if raw := c.Query("lastPostId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lastPostId"})
			return
		}
		beforeID = &parsed
	}

	page, hasMore, err := h.service.Feed(c.Request.Context(), limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load feed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := FeedResponse{
		Posts:   make([]PostResponse, 0, len(page)),
		HasMore: hasMore,
	}
	for _, p := range page {
		response.Posts = append(response.Posts, postToResponse(p))
	}
	if len(page) > 0 {
		last := page[len(page)-1].ID
		response.LastPostID = &last
	}

	c.JSON(http.StatusOK, response)
}
