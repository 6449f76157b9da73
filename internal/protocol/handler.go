package protocol

import (
	"fmt"
	"time"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/queue"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// ErrNotAClientCommand reports an opcode that is well-formed and
// correctly sized but belongs to the server-to-client half of the
// opcode space (e.g. a malicious or buggy client echoing S_Welcome back
// at the server). It is also returned for C_Handshake_Request, which is
// decoded by DecodeHandshake and is not a command after the handshake.
// Distinct from a size/magic protocol error so callers
// can still count it against the violation budget without confusing the
// two failure modes in logs.
type ErrNotAClientCommand struct {
	Op wire.Opcode
}

func (e *ErrNotAClientCommand) Error() string {
	return fmt.Sprintf("protocol: opcode %#x is not a client command", byte(e.Op))
}

// Handshake is the decoded body of C_Handshake_Request.
type Handshake struct {
	Version     uint16
	ClientMagic uint32
}

// DecodeHandshake parses a C_Handshake_Request payload (opcode already
// stripped by the caller via wire.Parse). It performs no validation
// against the server's expected version/magic; that policy decision
// belongs to internal/conn.
func DecodeHandshake(cursor *wire.Reader) (Handshake, error) {
	version, err := cursor.ReadU16()
	if err != nil {
		return Handshake{}, err
	}
	magic, err := cursor.ReadU32()
	if err != nil {
		return Handshake{}, err
	}
	return Handshake{Version: version, ClientMagic: magic}, nil
}

// DecodeCommand maps one fully-framed, size-validated payload to a
// queue.Command bound to client. It never mutates game state and never
// enqueues anything itself — the caller (internal/conn) pushes the
// returned command onto the action queue. recvAt is the time the frame
// was read, used for C_Pong_Response RTT measurement.
//
// ok is false for opcodes that are valid, correctly sized, and
// intentionally produce no action — the combat/chat/inventory opcode
// space the core spec reserves without implementing. Callers must treat
// ok == false as a normal no-op, not a protocol violation.
//
// The caller must have already run wire.Parse and wire.CheckFixedSize on
// the payload; DecodeCommand assumes the opcode is known and the size
// already matches.
func DecodeCommand(client ids.ClientID, op wire.Opcode, cursor *wire.Reader, recvAt time.Time) (cmd queue.Command, ok bool, err error) {
	switch op {
	case wire.OpMoveRequest:
		direction, err := cursor.ReadU8()
		if err != nil {
			return queue.Command{}, false, err
		}
		facing, err := cursor.ReadU8()
		if err != nil {
			return queue.Command{}, false, err
		}
		return queue.Move(client, wire.Direction(direction), wire.Direction(facing)), true, nil

	case wire.OpTurnRequest:
		direction, err := cursor.ReadU8()
		if err != nil {
			return queue.Command{}, false, err
		}
		return queue.Turn(client, wire.Direction(direction)), true, nil

	case wire.OpInteractRequest:
		return queue.Interact(client), true, nil

	case wire.OpPongResponse:
		timestamp, err := cursor.ReadU32()
		if err != nil {
			return queue.Command{}, false, err
		}
		return queue.Pong(client, timestamp, recvAt), true, nil

	case wire.OpDisconnectRequest:
		return queue.Disconnect(client, "client requested"), true, nil

	case wire.OpAttackRequest, wire.OpClientPingRequest:
		// Reserved opcode space: combat is a documented non-goal, and a
		// client-initiated ping is answered directly by the connection
		// (see internal/conn) without touching the action queue.
		return queue.Command{}, false, nil

	default:
		return queue.Command{}, false, &ErrNotAClientCommand{Op: op}
	}
}
