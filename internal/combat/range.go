// Package combat implements the per-entity combat rules: range geometry,
// the engagement state machine and the damage pipeline. Everything operates
// on plain values owned by the world; nothing here touches shared state.
package combat

import "duskhaven/server/internal/grid"

// WithinHuntRange reports whether any tile of target lies within r tiles
// (Chebyshev) of the hunter's anchor. The anchor is the hunter's
// minimum-coordinate tile, so large hunters do not see farther than small
// ones in any direction.
func WithinHuntRange(anchor grid.Tile, target grid.Footprint, r int) bool {
	if r < 0 {
		return false
	}
	return footprintChebyshev(anchor, target) <= r
}

// WithinAttackRange reports whether the attacker may swing at the target.
// The test runs from every attacker tile to every target tile: range 1 is
// plus-shaped (cardinal adjacency only, no diagonal pokes), range 2 and up
// is a full square. Overlapping footprints are never in range; standing
// underneath something is not a firing position.
func WithinAttackRange(attacker, target grid.Footprint, r int) bool {
	if r < 1 {
		return false
	}
	if attacker.Overlaps(target) {
		return false
	}
	in := false
	attacker.Tiles(func(a grid.Tile) bool {
		target.Tiles(func(b grid.Tile) bool {
			if r == 1 {
				in = grid.CardinalAdjacent(a, b)
			} else {
				in = grid.WithinSquare(a, b, r)
			}
			return !in
		})
		return !in
	})
	return in
}

// BeyondLeash reports whether the entity has strayed too far from its
// spawn anchor. The anchor never moves, so the boundary cannot creep as
// the entity is dragged around.
func BeyondLeash(spawnAnchor grid.Tile, live grid.Footprint, maxRange int) bool {
	if maxRange < 0 {
		return false
	}
	return grid.Chebyshev(spawnAnchor, live.Origin) > maxRange
}

// footprintChebyshev is the Chebyshev distance from a point to the nearest
// tile of a footprint: per-axis distance to the covered interval, folded
// with max.
func footprintChebyshev(p grid.Tile, fp grid.Footprint) int {
	size := fp.Size
	if size < 1 {
		size = 1
	}
	dx := axisDistance(p.X, fp.Origin.X, fp.Origin.X+size-1)
	dz := axisDistance(p.Z, fp.Origin.Z, fp.Origin.Z+size-1)
	if dx > dz {
		return dx
	}
	return dz
}

func axisDistance(v, lo, hi int) int {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}
