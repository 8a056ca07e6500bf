// Package presence tracks which users currently hold a live push connection.
// The registry is process-wide state shared by all connection handlers; it
// never persists anything and holds at most one handle per user.
package presence

import (
	"sync"

	"github.com/gamelink/gamelink-server/internal/proto"
)

// Conn is the handle the registry keeps per connected user. TryPush enqueues
// an event without blocking and reports whether it was accepted.
type Conn interface {
	TryPush(event proto.Outbound) bool
}

// Registry maps user IDs to their active connection handle.
type Registry struct {
	mu    sync.Mutex
	conns map[int64]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

// Register associates the user with a connection. A prior handle for the same
// user is silently replaced; last connection wins on reconnect.
func (r *Registry) Register(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = conn
}

// Unregister removes the association, but only if the stored handle is the
// caller's. A replaced connection tearing down later must not evict its
// replacement.
func (r *Registry) Unregister(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
	}
}

// Resolve returns the active handle for the user, or nil if offline.
func (r *Registry) Resolve(userID int64) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[userID]
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
