package world

import "duskhaven/server/internal/grid"

// Terrain is the walkability oracle supplied to the world. The world never
// owns terrain data; it only asks this one question.
type Terrain interface {
	Walkable(grid.Tile) bool
}

// TerrainGrid is the default Terrain: a bounded rectangle with blocked
// tiles punched out by config walls.
type TerrainGrid struct {
	width   int
	height  int
	blocked map[grid.Tile]struct{}
}

// NewTerrainGrid builds a terrain grid of width by height tiles with the
// given wall rectangles blocked.
func NewTerrainGrid(width, height int, walls []Rect) *TerrainGrid {
	g := &TerrainGrid{
		width:   width,
		height:  height,
		blocked: make(map[grid.Tile]struct{}),
	}
	for _, wall := range walls {
		g.BlockRect(wall)
	}
	return g
}

// Walkable reports whether t lies inside the bounds and outside every wall.
func (g *TerrainGrid) Walkable(t grid.Tile) bool {
	if t.X < 0 || t.Z < 0 || t.X >= g.width || t.Z >= g.height {
		return false
	}
	_, hit := g.blocked[t]
	return !hit
}

// BlockRect marks every tile of the rectangle unwalkable.
func (g *TerrainGrid) BlockRect(r Rect) {
	for z := r.Z; z < r.Z+r.Height; z++ {
		for x := r.X; x < r.X+r.Width; x++ {
			g.blocked[grid.Tile{X: x, Z: z}] = struct{}{}
		}
	}
}

// Block marks a single tile unwalkable.
func (g *TerrainGrid) Block(t grid.Tile) {
	g.blocked[t] = struct{}{}
}
