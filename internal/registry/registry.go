// Package registry is the game thread's authoritative map of players,
// plus the dirty-set that drives each tick's broadcast pass.
package registry

import (
	"fmt"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/player"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// Registry is not safe for concurrent use: it is owned exclusively by the
// game thread, per the spec's ownership model, so it carries no locks.
type Registry struct {
	nextID         ids.PlayerID
	players        map[ids.PlayerID]*player.Player
	clientToPlayer map[ids.ClientID]ids.PlayerID
	dirty          map[ids.PlayerID]struct{}
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{
		players:        make(map[ids.PlayerID]*player.Player),
		clientToPlayer: make(map[ids.ClientID]ids.PlayerID),
		dirty:          make(map[ids.PlayerID]struct{}),
	}
}

// CreatePlayer allocates a fresh PlayerID, installs a Player bound to
// clientID at the given spawn position and facing, and returns the new id.
func (r *Registry) CreatePlayer(clientID ids.ClientID, x, y int16, facing wire.Direction) ids.PlayerID {
	r.nextID++
	id := r.nextID
	r.players[id] = player.New(id, clientID, x, y, facing)
	r.clientToPlayer[clientID] = id
	return id
}

// AttachClient binds clientID to playerID, overwriting any previous
// binding for that client.
func (r *Registry) AttachClient(playerID ids.PlayerID, clientID ids.ClientID) {
	r.clientToPlayer[clientID] = playerID
	if p, ok := r.players[playerID]; ok {
		p.ClientID = clientID
	}
}

// DetachClient removes the client_id -> player_id binding without
// removing the player itself.
func (r *Registry) DetachClient(clientID ids.ClientID) {
	delete(r.clientToPlayer, clientID)
}

// Get returns the player for id, or nil if unknown.
func (r *Registry) Get(id ids.PlayerID) *player.Player {
	return r.players[id]
}

// GetByClient returns the player currently bound to clientID, or nil.
func (r *Registry) GetByClient(clientID ids.ClientID) *player.Player {
	id, ok := r.clientToPlayer[clientID]
	if !ok {
		return nil
	}
	return r.players[id]
}

// MarkDirty records that playerID's spatial state changed this tick.
// Idempotent within a tick.
func (r *Registry) MarkDirty(playerID ids.PlayerID) {
	r.dirty[playerID] = struct{}{}
}

// DrainDirty returns the current dirty set and clears it. Safe to call
// only from the game thread, exactly once per tick.
func (r *Registry) DrainDirty() []ids.PlayerID {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make([]ids.PlayerID, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, id)
	}
	for id := range r.dirty {
		delete(r.dirty, id)
	}
	return out
}

// Remove erases playerID from every map and returns the removed Player.
// The caller is responsible for then updating the spatial hash and
// visibility tracker — the registry knows nothing about either.
func (r *Registry) Remove(playerID ids.PlayerID) (*player.Player, error) {
	p, ok := r.players[playerID]
	if !ok {
		return nil, fmt.Errorf("registry: player %d not found", playerID)
	}
	delete(r.players, playerID)
	delete(r.dirty, playerID)
	if r.clientToPlayer[p.ClientID] == playerID {
		delete(r.clientToPlayer, p.ClientID)
	}
	return p, nil
}

// Len returns the number of tracked players.
func (r *Registry) Len() int {
	return len(r.players)
}

// ForEach invokes f for every tracked player. f must not mutate the
// registry's maps.
func (r *Registry) ForEach(f func(*player.Player)) {
	for _, p := range r.players {
		f(p)
	}
}
