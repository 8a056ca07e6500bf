// Package messaging implements the direct-message operations: partner
// listing, history with read-marking, sending with best-effort push, and
// unread bookkeeping. The store is the source of truth; the push is a
// post-commit notification with no delivery guarantee.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamelink/gamelink-server/internal/store"
)

// ErrEmptyMessage is returned when a send carries neither text nor image.
var ErrEmptyMessage = errors.New("message must contain text or an image")

// Notifier delivers a new-message event to the receiver if they are online.
// Implementations must not block and must swallow delivery failures.
type Notifier interface {
	NotifyNewMessage(receiverID int64, msg *store.Message)
}

// Service provides messaging business logic.
type Service struct {
	store    store.Store
	notifier Notifier
}

// New creates a messaging service. notifier may be nil; the store side of
// every operation works without a transport.
func New(st store.Store, notifier Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
	}
}

// ListPartners returns every user other than the viewer. The directory is not
// scoped to existing conversations; any user can be messaged.
func (s *Service) ListPartners(ctx context.Context, viewerID int64) ([]*store.User, error) {
	users, err := s.store.ListUsersExcept(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	return users, nil
}

// FetchHistory returns the conversation between viewer and partner ascending
// by creation time, marking everything from partner to viewer as read.
func (s *Service) FetchHistory(ctx context.Context, viewerID, partnerID int64) ([]*store.Message, error) {
	msgs, err := s.store.ListConversation(ctx, viewerID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return msgs, nil
}

// Send validates, persists and then attempts push delivery of a message. The
// push happens after the store commit and its outcome never affects the
// returned message: an offline receiver recovers via FetchHistory.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, text, image string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return nil, ErrEmptyMessage
	}

	msg := &store.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(receiverID, msg)
	}

	return msg, nil
}

// CountUnread reports how many messages from partner to viewer are unread.
func (s *Service) CountUnread(ctx context.Context, viewerID, partnerID int64) (int, error) {
	count, err := s.store.CountUnread(ctx, viewerID, partnerID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flips every unread message from partner to viewer to read.
func (s *Service) MarkRead(ctx context.Context, viewerID, partnerID int64) error {
	if err := s.store.MarkConversationRead(ctx, viewerID, partnerID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
