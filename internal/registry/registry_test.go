package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/player"
	"github.com/cgrimes21/dyewars/internal/registry"
	"github.com/cgrimes21/dyewars/internal/wire"
)

func TestCreatePlayerAndLookups(t *testing.T) {
	r := registry.New()
	id := r.CreatePlayer(100, 5, 5, wire.DirNorth)
	assert.NotEqual(t, ids.NoPlayer, id)

	p := r.Get(id)
	require.NotNil(t, p)
	assert.Equal(t, int16(5), p.X)

	byClient := r.GetByClient(100)
	require.NotNil(t, byClient)
	assert.Equal(t, id, byClient.ID)
}

func TestUniqueIDsAcrossCreation(t *testing.T) {
	r := registry.New()
	a := r.CreatePlayer(1, 0, 0, wire.DirNorth)
	b := r.CreatePlayer(2, 0, 0, wire.DirNorth)
	assert.NotEqual(t, a, b)
}

func TestAttachDetachClient(t *testing.T) {
	r := registry.New()
	id := r.CreatePlayer(1, 0, 0, wire.DirNorth)
	r.DetachClient(1)
	assert.Nil(t, r.GetByClient(1))

	r.AttachClient(id, 2)
	p := r.GetByClient(2)
	require.NotNil(t, p)
	assert.Equal(t, id, p.ID)
}

func TestMarkDirtyIsIdempotentAndDrainClears(t *testing.T) {
	r := registry.New()
	id := r.CreatePlayer(1, 0, 0, wire.DirNorth)

	r.MarkDirty(id)
	r.MarkDirty(id)

	drained := r.DrainDirty()
	assert.Equal(t, []ids.PlayerID{id}, drained)

	assert.Nil(t, r.DrainDirty(), "dirty set must be cleared after drain")
}

func TestRemoveErasesFromAllMaps(t *testing.T) {
	r := registry.New()
	id := r.CreatePlayer(1, 0, 0, wire.DirNorth)
	r.MarkDirty(id)

	removed, err := r.Remove(id)
	require.NoError(t, err)
	assert.Equal(t, id, removed.ID)

	assert.Nil(t, r.Get(id))
	assert.Nil(t, r.GetByClient(1))
	assert.Equal(t, 0, r.Len())

	_, err = r.Remove(id)
	assert.Error(t, err)
}

func TestForEachVisitsAllPlayers(t *testing.T) {
	r := registry.New()
	r.CreatePlayer(1, 0, 0, wire.DirNorth)
	r.CreatePlayer(2, 0, 0, wire.DirNorth)

	seen := 0
	r.ForEach(func(p *player.Player) { seen++ })
	assert.Equal(t, 2, seen)
}
