package collab

import (
	"sort"
	"sync"
)

// Registry owns the document-id -> participant mapping. Nothing else mutates
// session state. All operations are serialized by a single mutex, so the
// "no duplicate identity" and "empty set means deleted session" invariants
// hold under concurrent joins, leaves and disconnects.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[*Client]struct{})}
}

// Join adds the client to a document session, creating the session lazily.
// Joining twice is a no-op. Returns the resulting presence snapshot.
func (r *Registry) Join(documentID string, c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[documentID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[documentID] = room
	}
	room[c] = struct{}{}
	return presenceLocked(room)
}

// LeaveAll removes the client from every session it joined and returns the
// updated presence snapshot per affected document. Sessions left empty are
// deleted, not kept around.
func (r *Registry) LeaveAll(c *Client) map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	affected := make(map[string][]string)
	for id, room := range r.rooms {
		if _, ok := room[c]; !ok {
			continue
		}
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, id)
			affected[id] = []string{}
			continue
		}
		affected[id] = presenceLocked(room)
	}
	return affected
}

// Members returns every connection currently joined to the document.
func (r *Registry) Members(documentID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[documentID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}

// Peers returns the members of a session except the given sender.
func (r *Registry) Peers(documentID string, sender *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[documentID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		if c == sender {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Presence returns the sorted set of identities in a session. Several
// connections sharing one identity count once.
func (r *Registry) Presence(documentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[documentID]
	if !ok {
		return []string{}
	}
	return presenceLocked(room)
}

// SessionCount returns the number of sessions with at least one participant.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// HasSession reports whether a session entry exists for the document.
func (r *Registry) HasSession(documentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[documentID]
	return ok
}

func presenceLocked(room map[*Client]struct{}) []string {
	seen := make(map[string]struct{}, len(room))
	for c := range room {
		seen[c.Username] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
