// Package clients is the I/O domain's registry of live connections,
// keyed by client id. It is the one piece of connection-scoped state the
// game thread is allowed to touch. Broadcast passes read it through the
// batch-lookup Snapshot API to avoid N lock acquisitions per tick;
// single-client lookups use Get.
package clients

import (
	"sync"

	"github.com/cgrimes21/dyewars/internal/ids"
)

// Conn is the narrow surface the client manager needs from a connection:
// just enough to enqueue an outbound frame and to identify it. The real
// type lives in internal/conn (the game server registers each accepted
// connection here); this interface keeps internal/clients from importing
// internal/conn and lets tests register fakes.
type Conn interface {
	ClientID() ids.ClientID
	Send(frame []byte)
	Close()
}

// Manager is the thread-safe client_id -> Conn map. I/O tasks register
// and unregister connections as they accept and close; the game thread
// reads it once per tick via Snapshot.
type Manager struct {
	mu      sync.Mutex
	clients map[ids.ClientID]Conn
}

// New builds an empty manager.
func New() *Manager {
	return &Manager{clients: make(map[ids.ClientID]Conn)}
}

// Register adds c under its own ClientID, overwriting any previous entry
// for that id.
func (m *Manager) Register(c Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ClientID()] = c
}

// Unregister removes the entry for id, if present.
func (m *Manager) Unregister(id ids.ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}

// Get returns the connection registered for id, or nil.
func (m *Manager) Get(id ids.ClientID) Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[id]
}

// Len reports the number of registered connections.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Snapshot copies the current client_id -> Conn map under a single short
// critical section. The game thread calls this once per broadcast pass
// instead of acquiring the manager's lock once per lookup, per the spec's
// concurrency model for ClientManager.
func (m *Manager) Snapshot() map[ids.ClientID]Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ids.ClientID]Conn, len(m.clients))
	for k, v := range m.clients {
		out[k] = v
	}
	return out
}

// ForEach invokes f for every registered connection under a single
// critical section, used for shutdown broadcast where a full copy would
// be wasted work.
func (m *Manager) ForEach(f func(Conn)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		f(c)
	}
}
