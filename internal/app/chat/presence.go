package chat

import (
	"sort"
	"sync"

	"hallchat/internal/app/identity"
)

// Connection is one live transport connection and the identity it was registered with.
type Connection struct {
	ID            string
	Identity      identity.Identity
	SourceAddress string
}

// Outbox receives encoded frames for one connection.
type Outbox interface {
	// Enqueue queues frame for delivery. It returns false if the frame was dropped.
	Enqueue(frame []byte) bool

	// Close stops delivery and tears the transport down.
	Close()
}

type presenceEntry struct {
	conn Connection
	out  Outbox
}

// Registry tracks live connections. All methods are safe for concurrent use and every
// returned count is the state right after that call.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]presenceEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]presenceEntry)}
}

// Register adds conn. It fails with ErrDuplicateConnection if the id is already live.
func (r *Registry) Register(conn Connection, out Outbox) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID]; exists {
		return len(r.conns), ErrDuplicateConnection
	}
	r.conns[conn.ID] = presenceEntry{conn: conn, out: out}
	return len(r.conns), nil
}

// Deregister removes connID. Unknown ids are ignored and reported with removed=false.
func (r *Registry) Deregister(connID string) (count int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; !exists {
		return len(r.conns), false
	}
	delete(r.conns, connID)
	return len(r.conns), true
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// LiveConnections returns a snapshot of the live connections ordered by id.
func (r *Registry) LiveConnections() []Connection {
	r.mu.RLock()
	out := make([]Connection, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.conn)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// outbox returns the outbox registered for connID.
func (r *Registry) outbox(connID string) (Outbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	return e.out, ok
}

// outboxes returns a snapshot of every registered outbox.
func (r *Registry) outboxes() []Outbox {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Outbox, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.out)
	}
	return out
}
