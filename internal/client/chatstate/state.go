// Package chatstate holds the client-side conversation state machine. It
// reconciles REST-fetched history, sent messages and asynchronously pushed
// events into one ordered message list plus a per-partner unread cache.
//
// The state is not safe for concurrent use: the owner applies events from a
// single goroutine, strictly in arrival order. Every apply is guarded by the
// currently selected partner, so a stale in-flight fetch can never land on a
// newer selection.
package chatstate

import "github.com/gamelink/gamelink-server/internal/proto"

// Partner is a conversation partner as shown in the sidebar.
type Partner struct {
	ID         int64
	Username   string
	FullName   string
	ProfilePic string
}

// State is the client conversation state for one logged-in viewer.
type State struct {
	partners []Partner
	selected int64 // 0 means no selection

	messages []proto.Message
	unread   map[int64]int

	// fetchSeq identifies the latest history fetch; results carrying an
	// older sequence are discarded.
	fetchSeq     uint64
	fetchPending bool

	// pushes for the selected partner that arrived while its history fetch
	// was in flight; merged on HistoryLoaded so nothing is lost or shown
	// against the previous selection's list.
	pending []proto.Message

	partnersLoading bool
}

// New creates an empty state.
func New() *State {
	return &State{unread: make(map[int64]int)}
}

// ==== events ====

// PartnersLoading marks the partner list fetch as in flight.
func (s *State) PartnersLoading() {
	s.partnersLoading = true
}

// PartnersLoaded replaces the partner list and resets the selection.
func (s *State) PartnersLoaded(partners []Partner) {
	s.partners = append([]Partner(nil), partners...)
	s.partnersLoading = false
	s.selected = 0
	s.messages = nil
	s.pending = nil
	s.fetchPending = false
}

// UnreadLoaded records the store-reported unread count for a partner.
// Counts for the currently open conversation are ignored; opening it already
// cleared them.
func (s *State) UnreadLoaded(partnerID int64, count int) {
	if partnerID == s.selected {
		return
	}
	if count > 0 {
		s.unread[partnerID] = count
	} else {
		delete(s.unread, partnerID)
	}
}

// PartnerSelected opens the conversation with a partner and starts a history
// fetch. The returned fetch id must be handed back via HistoryLoaded or
// FetchFailed. The visible list keeps showing the previous selection until
// the history arrives.
func (s *State) PartnerSelected(partnerID int64) (fetchID uint64) {
	s.selected = partnerID
	delete(s.unread, partnerID)
	s.fetchSeq++
	s.fetchPending = true
	s.pending = nil
	return s.fetchSeq
}

// HistoryLoaded installs fetched history, provided the fetch is still the
// latest one for the still-selected partner. Pushes that raced the fetch are
// appended unless the history already contains them.
func (s *State) HistoryLoaded(fetchID uint64, partnerID int64, msgs []proto.Message) {
	if fetchID != s.fetchSeq || partnerID != s.selected {
		return
	}
	s.messages = append([]proto.Message(nil), msgs...)
	for _, m := range s.pending {
		if !s.contains(m.ID) {
			s.messages = append(s.messages, m)
		}
	}
	s.pending = nil
	s.fetchPending = false
	delete(s.unread, partnerID)
}

// FetchFailed abandons an in-flight history fetch. Prior state is kept.
func (s *State) FetchFailed(fetchID uint64) {
	if fetchID != s.fetchSeq {
		return
	}
	s.fetchPending = false
	s.pending = nil
}

// MessageReceived applies a pushed message: appended to the open list when it
// belongs to the selected conversation, otherwise counted as unread for its
// sender.
func (s *State) MessageReceived(msg proto.Message) {
	if msg.SenderID != s.selected {
		s.unread[msg.SenderID]++
		return
	}
	if s.fetchPending {
		s.pending = append(s.pending, msg)
		return
	}
	if !s.contains(msg.ID) {
		s.messages = append(s.messages, msg)
	}
}

// MessageSent appends the server-confirmed message to the open list. The
// caller passes the authoritative record returned by the API, never a locally
// built one. A confirmation addressed to a different partner than the open
// conversation is dropped; it must not land on the visible list.
func (s *State) MessageSent(msg proto.Message) {
	if msg.ReceiverID != s.selected {
		return
	}
	if s.fetchPending {
		s.pending = append(s.pending, msg)
		return
	}
	if !s.contains(msg.ID) {
		s.messages = append(s.messages, msg)
	}
}

// LoggedOut clears all state unconditionally.
func (s *State) LoggedOut() {
	s.partners = nil
	s.selected = 0
	s.messages = nil
	s.pending = nil
	s.unread = make(map[int64]int)
	s.fetchPending = false
	s.partnersLoading = false
}

// ==== accessors ====

// Partners returns the sidebar partner list.
func (s *State) Partners() []Partner {
	return s.partners
}

// SelectedPartner returns the open conversation's partner id, 0 if none.
func (s *State) SelectedPartner() int64 {
	return s.selected
}

// Messages returns the visible message list for the open conversation.
func (s *State) Messages() []proto.Message {
	return s.messages
}

// UnreadCount returns the cached unread badge for a partner.
func (s *State) UnreadCount(partnerID int64) int {
	return s.unread[partnerID]
}

// Loading reports whether a history fetch is in flight.
func (s *State) Loading() bool {
	return s.fetchPending
}

func (s *State) contains(id string) bool {
	for _, m := range s.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}
