// Package queue implements the action queue bridging the I/O domain and
// the game domain: a single-consumer queue of typed commands, each bound
// to the client that produced it.
package queue

import (
	"time"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// CommandKind tags the closed set of gameplay commands the action queue
// carries. A closed tagged set (rather than arbitrary closures) keeps the
// action stream recordable and replayable for tests, per spec §9.
type CommandKind int

const (
	KindMove CommandKind = iota
	KindTurn
	KindInteract
	KindPong
	KindDisconnect
	KindJoin
	KindCustom
)

// JoinResult is handed back to a connection's handshake phase once the
// game thread has allocated a Player for it. The game thread is the only
// writer of PlayerRegistry, so join allocation cannot happen on the I/O
// goroutine directly; it is routed through the action queue like any
// other command, with a reply channel standing in for a return value.
type JoinResult struct {
	PlayerID ids.PlayerID
	X, Y     int16
	Facing   wire.Direction
}

// Command is one unit of work produced by an I/O task and consumed by the
// game thread. Exactly one of the Kind-specific fields is meaningful for
// a given Kind.
type Command struct {
	ClientID ids.ClientID
	Kind     CommandKind

	// KindMove
	MoveDirection wire.Direction
	MoveFacing    wire.Direction

	// KindTurn
	TurnDirection wire.Direction

	// KindPong
	PongTimestamp uint32
	PongRecvAt    time.Time

	// KindDisconnect
	DisconnectReason string

	// KindJoin. JoinReply is buffered with capacity 1; the game thread
	// sends exactly one JoinResult and never closes the channel, since
	// the connection is the only reader and reads at most once.
	JoinReply chan JoinResult

	// KindCustom is an escape hatch for non-gameplay maintenance work
	// (e.g. test harness injection). It must not be used on gameplay
	// paths — see spec §9.
	Custom func()
}

// Move builds a KindMove command.
func Move(client ids.ClientID, direction, facing wire.Direction) Command {
	return Command{ClientID: client, Kind: KindMove, MoveDirection: direction, MoveFacing: facing}
}

// Turn builds a KindTurn command.
func Turn(client ids.ClientID, direction wire.Direction) Command {
	return Command{ClientID: client, Kind: KindTurn, TurnDirection: direction}
}

// Interact builds a KindInteract command.
func Interact(client ids.ClientID) Command {
	return Command{ClientID: client, Kind: KindInteract}
}

// Pong builds a KindPong command.
func Pong(client ids.ClientID, timestamp uint32, recvAt time.Time) Command {
	return Command{ClientID: client, Kind: KindPong, PongTimestamp: timestamp, PongRecvAt: recvAt}
}

// Disconnect builds a KindDisconnect command.
func Disconnect(client ids.ClientID, reason string) Command {
	return Command{ClientID: client, Kind: KindDisconnect, DisconnectReason: reason}
}

// Join builds a KindJoin command. reply must be buffered with capacity
// at least 1.
func Join(client ids.ClientID, reply chan JoinResult) Command {
	return Command{ClientID: client, Kind: KindJoin, JoinReply: reply}
}

// CustomFn builds a KindCustom command wrapping fn.
func CustomFn(client ids.ClientID, fn func()) Command {
	return Command{ClientID: client, Kind: KindCustom, Custom: fn}
}
