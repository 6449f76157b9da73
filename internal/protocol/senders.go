// Package protocol bridges the typed game-domain events and the raw wire
// format: senders.go holds pure builder functions for every outbound
// message, handler.go decodes inbound frames into internal/queue
// Commands. Builders never perform I/O; they return a ready-to-ship
// framed buffer for the caller to push onto a connection's send queue.
package protocol

import (
	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// ShutdownReason is the closed set of reason codes sent with
// S_ServerShutdown.
type ShutdownReason byte

const (
	ShutdownRestart    ShutdownReason = 0
	ShutdownMaintenance ShutdownReason = 1
)

func buildFrame(op wire.Opcode, body func(w *wire.Writer)) []byte {
	w := wire.NewWriter(16)
	w.WriteU8(byte(op))
	if body != nil {
		body(w)
	}
	frame, err := wire.EncodeFrame(w.Bytes())
	if err != nil {
		// Every builder's payload size is fixed by construction and
		// validated by the accompanying tests; a mismatch here means a
		// builder bug, not a runtime condition callers should handle.
		panic(err)
	}
	return frame
}

// HandshakeAccepted builds S_HandshakeAccepted.
func HandshakeAccepted() []byte {
	return buildFrame(wire.OpHandshakeAccepted, nil)
}

// Welcome builds S_Welcome: the assigned PlayerId and spawn state.
func Welcome(playerID ids.PlayerID, x, y int16, facing wire.Direction) []byte {
	return buildFrame(wire.OpWelcome, func(w *wire.Writer) {
		w.WriteU64(uint64(playerID))
		w.WriteI16(x)
		w.WriteI16(y)
		w.WriteU8(byte(facing))
	})
}

// PositionCorrection builds S_Position_Correction, reflecting the
// authoritative position after a rejected or adjusted move.
func PositionCorrection(x, y int16, facing wire.Direction) []byte {
	return buildFrame(wire.OpPositionCorrection, func(w *wire.Writer) {
		w.WriteI16(x)
		w.WriteI16(y)
		w.WriteU8(byte(facing))
	})
}

// FacingCorrection builds S_Facing_Correction.
func FacingCorrection(facing wire.Direction) []byte {
	return buildFrame(wire.OpFacingCorrection, func(w *wire.Writer) {
		w.WriteU8(byte(facing))
	})
}

// LeftGame builds S_Left_Game for the given player.
func LeftGame(playerID ids.PlayerID) []byte {
	return buildFrame(wire.OpLeftGame, func(w *wire.Writer) {
		w.WriteU64(uint64(playerID))
	})
}

// ServerShutdown builds S_ServerShutdown with the given reason code.
func ServerShutdown(reason ShutdownReason) []byte {
	return buildFrame(wire.OpServerShutdown, func(w *wire.Writer) {
		w.WriteU8(byte(reason))
	})
}

// PingRequest builds S_Ping_Request carrying the sender's own timestamp,
// echoed back in the corresponding C_Pong_Response for RTT measurement.
func PingRequest(timestamp uint32) []byte {
	return buildFrame(wire.OpServerPingRequest, func(w *wire.Writer) {
		w.WriteU32(timestamp)
	})
}

// PongResponse builds S_Pong_Response, echoing the client's ping timestamp.
func PongResponse(timestamp uint32) []byte {
	return buildFrame(wire.OpServerPongResponse, func(w *wire.Writer) {
		w.WriteU32(timestamp)
	})
}

// SpatialEntry is one occupant of a BatchPlayerSpatial packet.
type SpatialEntry struct {
	ID     ids.PlayerID
	X, Y   int16
	Facing wire.Direction
}

// MaxBatchEntries is the wire-format cap on BatchPlayerSpatial entries per
// packet, imposed by the u8 count prefix.
const MaxBatchEntries = 255

// BatchPlayerSpatial packs entries into one or more framed
// S_Batch_Player_Spatial packets, splitting at MaxBatchEntries (or the
// caller-supplied maxPerPacket if smaller) so no single packet exceeds
// the wire's u8 count prefix or the frame's max payload length.
func BatchPlayerSpatial(entries []SpatialEntry, maxPerPacket int) [][]byte {
	if maxPerPacket <= 0 || maxPerPacket > MaxBatchEntries {
		maxPerPacket = MaxBatchEntries
	}
	if len(entries) == 0 {
		return nil
	}

	var packets [][]byte
	for start := 0; start < len(entries); start += maxPerPacket {
		end := start + maxPerPacket
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		w := wire.NewWriter(2 + 13*len(chunk))
		w.WriteU8(byte(wire.OpBatchPlayerSpatial))
		w.WriteU8(uint8(len(chunk)))
		for _, e := range chunk {
			w.WriteU64(uint64(e.ID))
			w.WriteI16(e.X)
			w.WriteI16(e.Y)
			w.WriteU8(byte(e.Facing))
		}
		frame, err := wire.EncodeFrame(w.Bytes())
		if err != nil {
			panic(err)
		}
		packets = append(packets, frame)
	}
	return packets
}
