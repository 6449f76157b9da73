package game

import (
	"github.com/cgrimes21/dyewars/internal/config"
	"github.com/cgrimes21/dyewars/internal/spatial"
	"github.com/cgrimes21/dyewars/internal/tilemap"
	"github.com/cgrimes21/dyewars/internal/visibility"
)

// World bundles the three pieces of spatial state that belong
// exclusively to the game thread (spec §5): the static tile map, the
// spatial hash, and the visibility tracker. None of World's fields carry
// locks; the tick loop is their only caller.
type World struct {
	Map        *tilemap.TileMap
	Spatial    *spatial.Hash
	Visibility *visibility.Tracker
}

// NewWorld builds a World sized per cfg, with a spatial hash cell size
// derived from ViewRange (cfg.CellSize) as recommended by the reference
// design.
func NewWorld(cfg config.Config) *World {
	return &World{
		Map:        tilemap.New(cfg.WorldWidth, cfg.WorldHeight),
		Spatial:    spatial.New(cfg.WorldWidth, cfg.WorldHeight, cfg.CellSize()),
		Visibility: visibility.New(),
	}
}
