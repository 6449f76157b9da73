// Package spatial implements the uniform-grid spatial hash the game
// thread uses to answer "who is near this position" without scanning
// every player.
package spatial

import (
	"fmt"

	"github.com/cgrimes21/dyewars/internal/ids"
)

type cellKey struct {
	cx, cy int32
}

// Hash is a uniform grid of cells; each cell's occupants are kept in
// insertion order within the cell's slice.
type Hash struct {
	cellSize    int32
	worldWidth  int32
	worldHeight int32
	gridWidth   int32
	gridHeight  int32

	// flatGrid[cy*gridWidth+cx] holds the ordered-by-insertion list of
	// occupants of that cell.
	flatGrid [][]ids.PlayerID

	// entityCells is the single source of truth for which cell an entity
	// currently occupies. update() must consult this, never the entity's
	// live position, or removal from the old cell silently fails and
	// leaves a ghost entry behind.
	entityCells map[ids.PlayerID]cellKey
	positions   map[ids.PlayerID]struct{ x, y int16 }
}

// New builds a spatial hash sized for a world of worldWidth x worldHeight
// tiles, with cells of the given side length. Storage for the flat grid
// is preallocated up front based on world size.
func New(worldWidth, worldHeight int16, cellSize int) *Hash {
	if cellSize <= 0 {
		panic("spatial: cellSize must be positive")
	}
	gw := (int32(worldWidth) + int32(cellSize) - 1) / int32(cellSize)
	gh := (int32(worldHeight) + int32(cellSize) - 1) / int32(cellSize)
	if gw < 1 {
		gw = 1
	}
	if gh < 1 {
		gh = 1
	}
	return &Hash{
		cellSize:    int32(cellSize),
		worldWidth:  int32(worldWidth),
		worldHeight: int32(worldHeight),
		gridWidth:   gw,
		gridHeight:  gh,
		flatGrid:    make([][]ids.PlayerID, gw*gh),
		entityCells: make(map[ids.PlayerID]cellKey),
		positions:   make(map[ids.PlayerID]struct{ x, y int16 }),
	}
}

func (h *Hash) cellOf(x, y int16) cellKey {
	return cellKey{cx: floorDiv(int32(x), h.cellSize), cy: floorDiv(int32(y), h.cellSize)}
}

// floorDiv divides toward negative infinity, unlike Go's native integer
// division which truncates toward zero. Range queries around a position
// near the world origin would otherwise miscompute the cell for a
// negative coordinate.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (h *Hash) cellIndex(k cellKey) int {
	cx, cy := h.clampCell(k)
	return int(cy*h.gridWidth + cx)
}

// clampCell keeps a cell coordinate within the preallocated grid even for
// positions right at the world boundary.
func (h *Hash) clampCell(k cellKey) (cx, cy int32) {
	cx, cy = k.cx, k.cy
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	if cx >= h.gridWidth {
		cx = h.gridWidth - 1
	}
	if cy >= h.gridHeight {
		cy = h.gridHeight - 1
	}
	return
}

// Add inserts id at (x, y). It errors if id is already tracked.
func (h *Hash) Add(id ids.PlayerID, x, y int16) error {
	if _, exists := h.entityCells[id]; exists {
		return fmt.Errorf("spatial: player %d already tracked", id)
	}
	k := h.cellOf(x, y)
	idx := h.cellIndex(k)
	h.flatGrid[idx] = append(h.flatGrid[idx], id)
	h.entityCells[id] = k
	h.positions[id] = struct{ x, y int16 }{x, y}
	return nil
}

// Remove evicts id from the hash using the stored cell key, not any
// caller-supplied position. It errors if id is not tracked.
func (h *Hash) Remove(id ids.PlayerID) error {
	k, exists := h.entityCells[id]
	if !exists {
		return fmt.Errorf("spatial: player %d not tracked", id)
	}
	h.removeFromCell(k, id)
	delete(h.entityCells, id)
	delete(h.positions, id)
	return nil
}

func (h *Hash) removeFromCell(k cellKey, id ids.PlayerID) {
	idx := h.cellIndex(k)
	occupants := h.flatGrid[idx]
	for i, occ := range occupants {
		if occ == id {
			h.flatGrid[idx] = append(occupants[:i], occupants[i+1:]...)
			return
		}
	}
}

// Update moves id to (newX, newY). The entity's old cell is looked up
// from entityCells — never derived from the entity's current/live
// position — so a caller that has already mutated the player's position
// before calling Update still gets correct bookkeeping.
func (h *Hash) Update(id ids.PlayerID, newX, newY int16) error {
	oldKey, exists := h.entityCells[id]
	if !exists {
		return fmt.Errorf("spatial: player %d not tracked", id)
	}
	newKey := h.cellOf(newX, newY)
	if newKey != oldKey {
		h.removeFromCell(oldKey, id)
		idx := h.cellIndex(newKey)
		h.flatGrid[idx] = append(h.flatGrid[idx], id)
		h.entityCells[id] = newKey
	}
	h.positions[id] = struct{ x, y int16 }{newX, newY}
	return nil
}

// CellOf returns the cell currently recorded for id, for tests asserting
// the single-source-of-truth invariant.
func (h *Hash) CellOf(id ids.PlayerID) (cx, cy int32, ok bool) {
	k, exists := h.entityCells[id]
	if !exists {
		return 0, 0, false
	}
	return k.cx, k.cy, true
}

// ForEachInRange invokes f for every tracked entity whose fine-grained
// position lies within a Chebyshev radius of (x, y), excluding nothing —
// callers filter out the querying entity themselves if needed. Iteration
// streams results directly from the grid; it never builds an intermediate
// slice.
func (h *Hash) ForEachInRange(x, y int16, radius int16, f func(ids.PlayerID)) {
	minCellX := floorDiv(int32(x)-int32(radius), h.cellSize)
	maxCellX := floorDiv(int32(x)+int32(radius), h.cellSize)
	minCellY := floorDiv(int32(y)-int32(radius), h.cellSize)
	maxCellY := floorDiv(int32(y)+int32(radius), h.cellSize)

	minCX, minCY := h.clampCell(cellKey{minCellX, minCellY})
	maxCX, maxCY := h.clampCell(cellKey{maxCellX, maxCellY})

	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := int(cy*h.gridWidth + cx)
			for _, id := range h.flatGrid[idx] {
				pos, ok := h.positions[id]
				if !ok {
					continue
				}
				if withinChebyshev(x, y, pos.x, pos.y, radius) {
					f(id)
				}
			}
		}
	}
}

func withinChebyshev(x, y, px, py, radius int16) bool {
	dx := int32(x) - int32(px)
	if dx < 0 {
		dx = -dx
	}
	dy := int32(y) - int32(py)
	if dy < 0 {
		dy = -dy
	}
	return dx <= int32(radius) && dy <= int32(radius)
}

// Len reports the number of tracked entities, for tests and stats.
func (h *Hash) Len() int {
	return len(h.entityCells)
}
