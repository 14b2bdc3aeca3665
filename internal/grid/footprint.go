package grid

// Footprint is the square block of tiles an entity occupies. Origin is the
// minimum-coordinate corner (smallest X, smallest Z) and doubles as the
// entity's anchor tile for range checks measured "from" the entity.
type Footprint struct {
	Origin Tile `json:"origin"`
	Size   int  `json:"size"`
}

// FootprintAt builds a footprint anchored at origin. Sizes below 1 are
// clamped to 1 so a zero value still covers its own tile.
func FootprintAt(origin Tile, size int) Footprint {
	if size < 1 {
		size = 1
	}
	return Footprint{Origin: origin, Size: size}
}

// MoveTo returns the same footprint re-anchored at origin.
func (f Footprint) MoveTo(origin Tile) Footprint {
	f.Origin = origin
	return f
}

// Contains reports whether t lies inside the footprint.
func (f Footprint) Contains(t Tile) bool {
	size := f.span()
	return t.X >= f.Origin.X && t.X < f.Origin.X+size &&
		t.Z >= f.Origin.Z && t.Z < f.Origin.Z+size
}

// Overlaps reports whether any tile is covered by both footprints.
func (f Footprint) Overlaps(g Footprint) bool {
	fs, gs := f.span(), g.span()
	return f.Origin.X < g.Origin.X+gs && g.Origin.X < f.Origin.X+fs &&
		f.Origin.Z < g.Origin.Z+gs && g.Origin.Z < f.Origin.Z+fs
}

// Tiles visits every covered tile in row-major order. The walk stops early
// when fn returns false. No per-call allocation.
func (f Footprint) Tiles(fn func(Tile) bool) {
	size := f.span()
	for dz := 0; dz < size; dz++ {
		for dx := 0; dx < size; dx++ {
			if !fn(Tile{X: f.Origin.X + dx, Z: f.Origin.Z + dz}) {
				return
			}
		}
	}
}

// Count returns the number of covered tiles.
func (f Footprint) Count() int {
	size := f.span()
	return size * size
}

func (f Footprint) span() int {
	if f.Size < 1 {
		return 1
	}
	return f.Size
}
