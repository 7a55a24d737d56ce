// Package chat holds the room relay core: the connection registry, the room
// directory and the router that turns inbound events into deliveries.
//
// Registry, Directory and Router are not safe for concurrent use. A single
// owner (the server hub goroutine) serializes every call, which keeps the
// single-room invariant and the registry/room cross references consistent
// without locks.
package chat

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ConnID identifies one connection for the life of the process.
type ConnID string

// NewConnID returns a fresh random identifier.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Connection is the registry record of a live client session.
type Connection struct {
	ID   ConnID
	Name string
	// Room is empty while the connection has not joined a room.
	Room string
	seq  uint64
}

// InRoom reports whether the connection currently belongs to a room.
func (c Connection) InRoom() bool {
	return c.Room != ""
}

// Registry maps connection ids to their records.
type Registry struct {
	conns map[ConnID]*Connection
	next  uint64
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnID]*Connection)}
}

// Add registers a new connection. Ids are never reused, so adding a known id
// fails with ErrDuplicateConnection.
func (r *Registry) Add(id ConnID, name string) (*Connection, error) {
	if _, exists := r.conns[id]; exists {
		return nil, ErrDuplicateConnection
	}
	r.next++
	conn := &Connection{ID: id, Name: name, seq: r.next}
	r.conns[id] = conn
	return conn, nil
}

func (r *Registry) Get(id ConnID) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Remove deletes the record and reports whether it existed.
func (r *Registry) Remove(id ConnID) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// Snapshot returns copies of every record in connect order.
func (r *Registry) Snapshot() []Connection {
	conns := lo.Map(lo.Values(r.conns), func(c *Connection, _ int) Connection { return *c })
	slices.SortFunc(conns, func(a, b Connection) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return conns
}

// IDs returns every registered id in connect order.
func (r *Registry) IDs() []ConnID {
	return lo.Map(r.Snapshot(), func(c Connection, _ int) ConnID { return c.ID })
}
