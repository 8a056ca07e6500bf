package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/proto"
	"github.com/gamelink/gamelink-server/internal/service/messaging"
)

// MessageHandlers provides HTTP handlers for direct messaging endpoints.
type MessageHandlers struct {
	service *messaging.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messaging.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: svc,
		log:     logger,
	}
}

// SendMessageRequest represents the send request body. At least one of text
// and image must be present.
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// UnreadCountResponse represents the unread count response body.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// partnerID parses the :id route parameter. A structurally invalid id is a
// bad request; whether the user exists is not checked here, since store
// operations on an unknown partner simply return empty results.
func partnerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid partner id"})
		return 0, false
	}
	return id, true
}

// ListPartners returns every other user as a potential conversation partner.
// GET /api/messages/users
func (h *MessageHandlers) ListPartners(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.service.ListPartners(c.Request.Context(), viewerID)
	if err != nil {
		h.log.Error().Err(err).Int64("viewer_id", viewerID).Msg("failed to list partners")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, userToResponse(u))
	}

	c.JSON(http.StatusOK, response)
}

// GetConversation returns the full history with a partner, marking everything
// they sent to the caller as read.
// GET /api/messages/:id
func (h *MessageHandlers) GetConversation(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	partner, ok := partnerID(c)
	if !ok {
		return
	}

	msgs, err := h.service.FetchHistory(c.Request.Context(), viewerID, partner)
	if err != nil {
		h.log.Error().Err(err).Int64("viewer_id", viewerID).Int64("partner_id", partner).Msg("failed to fetch history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, messageToWire(m))
	}

	c.JSON(http.StatusOK, response)
}

// Send persists a message to the partner and pushes it if they are online.
// POST /api/messages/send/:id
func (h *MessageHandlers) Send(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	receiverID, ok := partnerID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), senderID, receiverID, req.Text, req.Image)
	if err != nil {
		if errors.Is(err, messaging.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message must contain text or an image"})
			return
		}
		h.log.Error().Err(err).Int64("sender_id", senderID).Int64("receiver_id", receiverID).Msg("failed to send message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, messageToWire(msg))
}

// UnreadCount reports how many messages from the partner are unread.
// GET /api/messages/unread/:id
func (h *MessageHandlers) UnreadCount(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	partner, ok := partnerID(c)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), viewerID, partner)
	if err != nil {
		h.log.Error().Err(err).Int64("viewer_id", viewerID).Int64("partner_id", partner).Msg("failed to count unread")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkRead flips everything from the partner to the caller to read.
// POST /api/messages/read/:id
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	partner, ok := partnerID(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), viewerID, partner); err != nil {
		h.log.Error().Err(err).Int64("viewer_id", viewerID).Int64("partner_id", partner).Msg("failed to mark read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read"})
}
