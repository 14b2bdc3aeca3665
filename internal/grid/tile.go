package grid

// Tile addresses a single cell of the world grid. X grows east, Z grows
// south. Tiles are plain values: compare with ==, pass by copy.
type Tile struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Add returns the tile offset by (dx, dz).
func (t Tile) Add(dx, dz int) Tile {
	return Tile{X: t.X + dx, Z: t.Z + dz}
}

// Chebyshev is the king-move distance between two tiles: the number of
// steps needed when diagonals count the same as cardinals.
func Chebyshev(a, b Tile) int {
	dx := absInt(a.X - b.X)
	dz := absInt(a.Z - b.Z)
	if dx > dz {
		return dx
	}
	return dz
}

// Manhattan is the taxicab distance between two tiles.
func Manhattan(a, b Tile) int {
	return absInt(a.X-b.X) + absInt(a.Z-b.Z)
}

// WithinSquare reports whether b lies inside the square of radius r
// centred on a (Chebyshev distance at most r).
func WithinSquare(a, b Tile, r int) bool {
	if r < 0 {
		return false
	}
	return Chebyshev(a, b) <= r
}

// CardinalAdjacent reports whether b is exactly one cardinal step from a.
// Diagonal neighbours do not qualify.
func CardinalAdjacent(a, b Tile) bool {
	return Manhattan(a, b) == 1
}

// SignDelta returns the per-axis unit direction from a toward b. Each
// component is -1, 0 or 1.
func SignDelta(a, b Tile) (dx, dz int) {
	return signInt(b.X - a.X), signInt(b.Z - a.Z)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func signInt(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
