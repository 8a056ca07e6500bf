package client

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/client/chatstate"
	"github.com/gamelink/gamelink-server/internal/proto"
)

// Session glues a Client to the conversation state. All state transitions run
// on the single goroutine inside Run; callers post work through calls.
type Session struct {
	api   *Client
	state *chatstate.State
	calls chan func()
	log   zerolog.Logger
}

// NewSession wraps an authenticated client.
func NewSession(api *Client, logger zerolog.Logger) *Session {
	return &Session{
		api:   api,
		state: chatstate.New(),
		calls: make(chan func(), 64),
		log:   logger.With().Str("component", "session").Logger(),
	}
}

// Run processes push events and posted calls until the context is cancelled.
// The push channel is opened in the background and its events are funneled
// onto the session goroutine.
func (s *Session) Run(ctx context.Context) error {
	go func() {
		err := s.api.Listen(ctx, func(event proto.Outbound) {
			s.post(ctx, func() { s.handlePush(event) })
		})
		if err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("push channel closed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.calls:
			fn()
		}
	}
}

func (s *Session) post(ctx context.Context, fn func()) {
	select {
	case s.calls <- fn:
	case <-ctx.Done():
	}
}

func (s *Session) handlePush(event proto.Outbound) {
	if event.Type != proto.OutboundTypeEvent || event.Event != proto.EventNewMessage {
		return
	}
	var msg proto.Message
	if err := decodeEventData(event.Data, &msg); err != nil {
		s.log.Warn().Err(err).Msg("bad push payload")
		return
	}
	s.state.MessageReceived(msg)
}

// decodeEventData re-decodes the generic envelope payload into a typed value.
func decodeEventData(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// LoadPartners fetches the partner list and the unread count for each
// partner, then applies both to the state.
func (s *Session) LoadPartners(ctx context.Context) {
	s.post(ctx, func() { s.state.PartnersLoading() })

	users, err := s.api.Partners(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("load partners")
		return
	}
	partners := make([]chatstate.Partner, 0, len(users))
	for _, u := range users {
		partners = append(partners, chatstate.Partner{
			ID:         u.ID,
			Username:   u.Username,
			FullName:   u.FullName,
			ProfilePic: u.ProfilePic,
		})
	}
	s.post(ctx, func() { s.state.PartnersLoaded(partners) })

	for _, p := range partners {
		count, err := s.api.UnreadCount(ctx, p.ID)
		if err != nil {
			s.log.Warn().Err(err).Int64("partner", p.ID).Msg("unread count")
			continue
		}
		id := p.ID
		s.post(ctx, func() { s.state.UnreadLoaded(id, count) })
	}
}

// SelectPartner switches the active conversation and fetches its history.
// A result arriving after another selection is discarded by the state.
func (s *Session) SelectPartner(ctx context.Context, partnerID int64) {
	done := make(chan uint64, 1)
	s.post(ctx, func() { done <- s.state.PartnerSelected(partnerID) })

	var fetchID uint64
	select {
	case fetchID = <-done:
	case <-ctx.Done():
		return
	}

	msgs, err := s.api.History(ctx, partnerID)
	if err != nil {
		s.log.Error().Err(err).Int64("partner", partnerID).Msg("fetch history")
		s.post(ctx, func() { s.state.FetchFailed(fetchID) })
		return
	}
	s.post(ctx, func() { s.state.HistoryLoaded(fetchID, partnerID, msgs) })
}

// Send delivers a message to the selected conversation.
func (s *Session) Send(ctx context.Context, partnerID int64, text, image string) error {
	msg, err := s.api.Send(ctx, partnerID, text, image)
	if err != nil {
		return err
	}
	s.post(ctx, func() { s.state.MessageSent(*msg) })
	return nil
}

// Logout clears the token and resets all conversation state.
func (s *Session) Logout(ctx context.Context) {
	s.api.Logout()
	s.post(ctx, func() { s.state.LoggedOut() })
}

// State exposes the conversation state. Accessors are only safe from within
// functions posted to the session goroutine; use View for ad hoc reads.
func (s *Session) State() *chatstate.State {
	return s.state
}

// View runs fn on the session goroutine and waits for it, giving safe read
// access to the state from other goroutines.
func (s *Session) View(ctx context.Context, fn func(*chatstate.State)) {
	done := make(chan struct{})
	s.post(ctx, func() {
		fn(s.state)
		close(done)
	})
	select {
	case <-done:
	case <-ctx.Done():
	}
}
