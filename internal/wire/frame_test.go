package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrimes21/dyewars/internal/wire"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte{byte(wire.OpTurnRequest), byte(wire.DirEast)}
	framed, err := wire.EncodeFrame(payload)
	require.NoError(t, err)

	assert.Equal(t, wire.FrameMagic[0], framed[0])
	assert.Equal(t, wire.FrameMagic[1], framed[1])

	got, err := wire.ReadFrame(bytes.NewReader(framed))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEncodeFrameRejectsOutOfRangeLength(t *testing.T) {
	_, err := wire.EncodeFrame(nil)
	assert.Error(t, err)

	big := make([]byte, wire.MaxPayloadLen+1)
	_, err = wire.EncodeFrame(big)
	assert.Error(t, err)
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	bad := []byte{0x00, 0x00, 0x00, 0x01, 0xFF}
	_, err := wire.ReadFrame(bytes.NewReader(bad))
	require.Error(t, err)

	var pe *wire.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.KindBadMagic, pe.Kind)
}

func TestReadFrameRejectsShortPayload(t *testing.T) {
	// Declares 10 bytes of payload but only provides 2.
	bad := append([]byte{wire.FrameMagic[0], wire.FrameMagic[1], 0x00, 0x0A}, 0x01, 0x02)
	_, err := wire.ReadFrame(bytes.NewReader(bad))
	assert.Error(t, err)
}

func TestParseAndCheckFixedSize(t *testing.T) {
	payload := []byte{byte(wire.OpMoveRequest), byte(wire.DirNorth), byte(wire.DirNorth)}
	op, cursor, err := wire.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, wire.OpMoveRequest, op)

	require.NoError(t, wire.CheckFixedSize(op, len(payload)))

	dir, err := cursor.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, byte(wire.DirNorth), dir)
}

func TestCheckFixedSizeMismatch(t *testing.T) {
	err := wire.CheckFixedSize(wire.OpMoveRequest, 2)
	require.Error(t, err)
	var pe *wire.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.KindSizeMismatch, pe.Kind)
}

func TestCheckVariableSizeMinimum(t *testing.T) {
	require.NoError(t, wire.CheckFixedSize(wire.OpBatchPlayerSpatial, 2))
	require.NoError(t, wire.CheckFixedSize(wire.OpBatchPlayerSpatial, 2+13))
	assert.Error(t, wire.CheckFixedSize(wire.OpBatchPlayerSpatial, 1))
}

func TestCheckFixedSizeUnknownOpcode(t *testing.T) {
	err := wire.CheckFixedSize(0x7F, 1)
	require.Error(t, err)
	var pe *wire.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.KindUnknownOpcode, pe.Kind)
}
