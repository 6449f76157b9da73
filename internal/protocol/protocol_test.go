package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrimes21/dyewars/internal/protocol"
	"github.com/cgrimes21/dyewars/internal/queue"
	"github.com/cgrimes21/dyewars/internal/wire"
)

func decode(t *testing.T, frame []byte) (wire.Opcode, *wire.Reader) {
	t.Helper()
	payload := frame[wire.HeaderLen:]
	op, cursor, err := wire.Parse(payload)
	require.NoError(t, err)
	require.NoError(t, wire.CheckFixedSize(op, len(payload)))
	return op, cursor
}

func TestWelcomeRoundTrips(t *testing.T) {
	frame := protocol.Welcome(42, 10, -5, wire.DirEast)
	op, cursor := decode(t, frame)
	assert.Equal(t, wire.OpWelcome, op)

	id, err := cursor.ReadU64()
	require.NoError(t, err)
	x, err := cursor.ReadI16()
	require.NoError(t, err)
	y, err := cursor.ReadI16()
	require.NoError(t, err)
	facing, err := cursor.ReadU8()
	require.NoError(t, err)

	assert.EqualValues(t, 42, id)
	assert.EqualValues(t, 10, x)
	assert.EqualValues(t, -5, y)
	assert.Equal(t, byte(wire.DirEast), facing)
}

func TestBatchPlayerSpatialSplitsAtCap(t *testing.T) {
	entries := make([]protocol.SpatialEntry, 300)
	for i := range entries {
		entries[i] = protocol.SpatialEntry{ID: 1, X: 1, Y: 1, Facing: wire.DirNorth}
	}

	packets := protocol.BatchPlayerSpatial(entries, 0)
	require.Len(t, packets, 2)

	_, cursor0 := decode(t, packets[0])
	count0, err := cursor0.ReadU8()
	require.NoError(t, err)
	assert.EqualValues(t, 255, count0)

	_, cursor1 := decode(t, packets[1])
	count1, err := cursor1.ReadU8()
	require.NoError(t, err)
	assert.EqualValues(t, 45, count1)
}

func TestBatchPlayerSpatialEmptyYieldsNoPackets(t *testing.T) {
	assert.Nil(t, protocol.BatchPlayerSpatial(nil, 0))
}

func TestDecodeCommandMove(t *testing.T) {
	w := wire.NewWriter(4)
	w.WriteU8(byte(wire.OpMoveRequest))
	w.WriteU8(byte(wire.DirNorth))
	w.WriteU8(byte(wire.DirNorth))
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)

	op, cursor := decode(t, frame)
	cmd, ok, err := protocol.DecodeCommand(7, op, cursor, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, queue.KindMove, cmd.Kind)
	assert.Equal(t, wire.DirNorth, cmd.MoveDirection)
}

func TestDecodeCommandReservedOpcodeIsNoOp(t *testing.T) {
	w := wire.NewWriter(1)
	w.WriteU8(byte(wire.OpAttackRequest))
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)

	op, cursor := decode(t, frame)
	_, ok, err := protocol.DecodeCommand(7, op, cursor, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeCommandRejectsServerOpcode(t *testing.T) {
	frame := protocol.HandshakeAccepted()
	op, cursor := decode(t, frame)
	_, ok, err := protocol.DecodeCommand(7, op, cursor, time.Now())
	assert.False(t, ok)
	assert.Error(t, err)
	var notClient *protocol.ErrNotAClientCommand
	assert.ErrorAs(t, err, &notClient)
}

func TestDecodeHandshake(t *testing.T) {
	w := wire.NewWriter(8)
	w.WriteU8(byte(wire.OpHandshakeRequest))
	w.WriteU16(0x0001)
	w.WriteU32(0x44594557)
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)

	op, cursor := decode(t, frame)
	assert.Equal(t, wire.OpHandshakeRequest, op)
	hs, err := protocol.DecodeHandshake(cursor)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0001, hs.Version)
	assert.EqualValues(t, 0x44594557, hs.ClientMagic)
}
