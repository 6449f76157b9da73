// Package player defines the Player entity and its movement validation
// state machine, the core rule engine the game thread runs every move
// and turn request against.
package player

import (
	"time"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/tilemap"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// Player is the authoritative, game-thread-owned representation of a
// connected avatar. Every field here is mutated exclusively by the game
// thread; I/O tasks never touch it directly.
type Player struct {
	ID               ids.PlayerID
	X, Y             int16
	Facing           wire.Direction
	LastMoveInstant  time.Time
	ClientID         ids.ClientID
}

// New constructs a Player at the given spawn position and facing.
func New(id ids.PlayerID, clientID ids.ClientID, x, y int16, facing wire.Direction) *Player {
	return &Player{
		ID:       id,
		X:        x,
		Y:        y,
		Facing:   facing,
		ClientID: clientID,
	}
}

// Result enumerates the outcomes of a movement attempt.
type Result int

const (
	Success Result = iota
	InvalidDirection
	OnCooldown
	WrongFacing
	Blocked
	OccupiedByPlayer
)

func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case InvalidDirection:
		return "InvalidDirection"
	case OnCooldown:
		return "OnCooldown"
	case WrongFacing:
		return "WrongFacing"
	case Blocked:
		return "Blocked"
	case OccupiedByPlayer:
		return "OccupiedByPlayer"
	default:
		return "Unknown"
	}
}

// MovementRules bundles the tunables AttemptMove needs without importing
// the config package, keeping this package dependency-light.
type MovementRules struct {
	BaseCooldown  time.Duration
	FloorCooldown time.Duration
	// PingCompFullMs is the ping_ms at or above which the cooldown
	// reduction from ping leniency is fully applied.
	PingCompFullMs int64
}

// EffectiveCooldown returns the cooldown for a move attempt at the given
// measured ping, linearly interpolated between BaseCooldown (at ping 0)
// and FloorCooldown (at ping >= PingCompFullMs). The curve is
// monotonically non-increasing in ping and never drops below
// FloorCooldown, matching spec §9's requirement that the exact shape is
// implementation-defined but bounded.
func (r MovementRules) EffectiveCooldown(pingMs int64) time.Duration {
	if pingMs <= 0 {
		return r.BaseCooldown
	}
	if pingMs >= r.PingCompFullMs {
		return r.FloorCooldown
	}
	span := r.BaseCooldown - r.FloorCooldown
	reduction := time.Duration(int64(span) * pingMs / r.PingCompFullMs)
	eff := r.BaseCooldown - reduction
	if eff < r.FloorCooldown {
		eff = r.FloorCooldown
	}
	return eff
}

// IsPlayerBlocked is supplied by the caller (the game thread, backed by
// the spatial hash) so the validator never needs to import the spatial
// package.
type IsPlayerBlocked func(x, y int16) bool

// AttemptMove validates and, on success, commits a move in direction
// toward the player's facing-adjusted target tile. now is injected so the
// validator is deterministic under test. packetFacing is the facing byte
// carried on the wire alongside direction; per spec's resolution of the
// facing/direction ambiguity, the server always validates the player's
// current stored facing against direction and never trusts the packet's
// own facing byte for that check, so packetFacing is not consulted here.
func (p *Player) AttemptMove(now time.Time, direction wire.Direction, packetFacing wire.Direction, m *tilemap.TileMap, rules MovementRules, pingMs int64, isPlayerBlocked IsPlayerBlocked) Result {
	if !direction.Valid() {
		return InvalidDirection
	}

	cooldown := rules.EffectiveCooldown(pingMs)
	if !p.LastMoveInstant.IsZero() && now.Sub(p.LastMoveInstant) < cooldown {
		return OnCooldown
	}

	if p.Facing != direction {
		return WrongFacing
	}

	dx, dy := direction.Delta()
	targetX := p.X + dx
	targetY := p.Y + dy

	if m.IsBlocked(targetX, targetY) {
		return Blocked
	}
	if isPlayerBlocked != nil && isPlayerBlocked(targetX, targetY) {
		return OccupiedByPlayer
	}

	p.X = targetX
	p.Y = targetY
	p.Facing = direction
	p.LastMoveInstant = now
	return Success
}

// AttemptTurn updates facing for any valid direction; the core places no
// cooldown on turning in place. An invalid direction leaves facing
// unchanged and returns InvalidDirection.
func (p *Player) AttemptTurn(direction wire.Direction) (wire.Direction, Result) {
	if !direction.Valid() {
		return p.Facing, InvalidDirection
	}
	p.Facing = direction
	return p.Facing, Success
}
