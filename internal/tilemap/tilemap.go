// Package tilemap holds the static grid of tile flags that movement
// validation checks for blocking terrain.
package tilemap

// Flag describes per-tile properties. Only the blocking bit is consumed
// by the core today; the type is a bitset so the scripting hook surface
// (see internal/game) can later expose additional terrain semantics
// without a wire or storage change.
type Flag uint8

const (
	FlagNone    Flag = 0
	FlagBlocked Flag = 1 << 0
)

// TileMap is an immutable (after construction) width x height grid of
// tile flags.
type TileMap struct {
	width  int16
	height int16
	tiles  []Flag
}

// New builds a TileMap of the given dimensions, every tile initialized to
// FlagNone (walkable).
func New(width, height int16) *TileMap {
	if width <= 0 || height <= 0 {
		panic("tilemap: width and height must be positive")
	}
	return &TileMap{
		width:  width,
		height: height,
		tiles:  make([]Flag, int(width)*int(height)),
	}
}

// Width returns the map's width in tiles.
func (m *TileMap) Width() int16 { return m.width }

// Height returns the map's height in tiles.
func (m *TileMap) Height() int16 { return m.height }

// InBounds reports whether (x, y) lies within [0, width) x [0, height).
func (m *TileMap) InBounds(x, y int16) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// SetFlag sets the tile flags at (x, y). It is a construction-time API;
// callers must not mutate the map after the game thread starts ticking.
func (m *TileMap) SetFlag(x, y int16, flag Flag) {
	if !m.InBounds(x, y) {
		return
	}
	m.tiles[int(y)*int(m.width)+int(x)] = flag
}

// IsBlocked returns true when (x, y) is out of bounds or the tile's
// blocking flag is set.
func (m *TileMap) IsBlocked(x, y int16) bool {
	if !m.InBounds(x, y) {
		return true
	}
	return m.tiles[int(y)*int(m.width)+int(x)]&FlagBlocked != 0
}
