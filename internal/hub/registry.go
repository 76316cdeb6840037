package hub

import (
	"sync"

	"github.com/npezzotti/go-chathub/internal/types"
)

// Registry maps user identities to their live connection and presence
// status. It is owned by the hub and injected into it; there is no
// package-level state. Presence records are never deleted: a user who
// disconnects stays in the status map as offline.
type Registry struct {
	mu     sync.RWMutex
	conns  map[int]*Client
	status map[int]types.Status
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[int]*Client),
		status: make(map[int]types.Status),
	}
}

// Connect registers c as the live connection for its user, overwriting
// any prior connection for the same user (last-connect-wins), and marks
// the user online. It returns the replaced connection, if any.
func (r *Registry) Connect(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[c.user.Id]
	if prev == c {
		prev = nil
	}
	r.conns[c.user.Id] = c
	r.status[c.user.Id] = types.StatusOnline

	return prev
}

// Disconnect removes c's mapping and reports whether the user's presence
// flipped to offline. If the user is currently registered under a
// different connection the call is a no-op: a stale disconnect racing a
// newer connect must not knock the user offline. Disconnecting an
// already-removed connection is likewise a no-op.
func (r *Registry) Disconnect(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.conns[c.user.Id]
	if !ok || cur != c {
		return false
	}

	delete(r.conns, c.user.Id)
	r.status[c.user.Id] = types.StatusOffline

	return true
}

// StatusOf returns offline for unknown users.
func (r *Registry) StatusOf(userId int) types.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.status[userId]; ok {
		return s
	}
	return types.StatusOffline
}

// ClientFor returns the live connection for a user, if one exists.
func (r *Registry) ClientFor(userId int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userId]
	return c, ok
}
