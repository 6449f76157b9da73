package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrimes21/dyewars/internal/wire"
)

func TestReaderWriterPrimitivesRoundTrip(t *testing.T) {
	w := wire.NewWriter(32)
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.WriteI16(-5)
	w.WriteI32(-100000)
	w.WriteI64(-1)
	w.WriteString("hi")

	r := wire.NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	i16, err := r.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-5), i16)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-100000), i32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), i64)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	assert.Zero(t, r.Remaining())
}

func TestReaderBoundsChecksDoNotWrap(t *testing.T) {
	r := wire.NewReader([]byte{0x01})
	// Requesting far more than remaining must fail cleanly, not overflow
	// an offset+n <= size comparison.
	_, err := r.ReadU64()
	assert.Error(t, err)
}

func TestReaderRejectsInvalidUTF8(t *testing.T) {
	buf := []byte{0x02, 0xFF, 0xFE}
	r := wire.NewReader(buf)
	_, err := r.ReadString()
	require.Error(t, err)
	var pe *wire.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, wire.KindBadUTF8, pe.Kind)
}

func TestDirectionDeltaAndValidity(t *testing.T) {
	assert.True(t, wire.DirNorth.Valid())
	assert.True(t, wire.DirWest.Valid())
	assert.False(t, wire.Direction(4).Valid())

	dx, dy := wire.DirNorth.Delta()
	assert.Equal(t, int16(0), dx)
	assert.Equal(t, int16(1), dy)

	dx, dy = wire.DirEast.Delta()
	assert.Equal(t, int16(1), dx)
	assert.Equal(t, int16(0), dy)

	dx, dy = wire.DirSouth.Delta()
	assert.Equal(t, int16(0), dx)
	assert.Equal(t, int16(-1), dy)

	dx, dy = wire.DirWest.Delta()
	assert.Equal(t, int16(-1), dx)
	assert.Equal(t, int16(0), dy)
}
