// Package pathfind implements the single-step chase rule used by pursuing
// entities. The stepper is deliberately blind: it walks straight at the
// target and never searches around obstacles, so standing behind terrain is
// a legitimate way to escape a pursuer.
package pathfind

import "duskhaven/server/internal/grid"

// Walkable reports whether a tile may be stepped onto. Implementations see
// terrain and world bounds only; entity occupancy is resolved later, when
// the move executes.
type Walkable func(grid.Tile) bool

// Step returns the one tile to advance onto this tick when chasing from
// `from` toward `to`, or false when no legal step exists.
//
// When both axes differ the diagonal is preferred, and it is legal only if
// the diagonal tile and both component cardinal tiles are walkable; a
// pursuer never cuts a corner its cardinal neighbours cannot support.
// Otherwise the step falls back to the cardinal along the axis with the
// greater remaining distance, then the other axis. Equal distances resolve
// to the X axis. The stepper never returns a tile that increases distance
// to the target.
func Step(from, to grid.Tile, walkable Walkable) (grid.Tile, bool) {
	if from == to || walkable == nil {
		return grid.Tile{}, false
	}
	dx, dz := grid.SignDelta(from, to)

	if dx != 0 && dz != 0 {
		diag := from.Add(dx, dz)
		if walkable(diag) && walkable(from.Add(dx, 0)) && walkable(from.Add(0, dz)) {
			return diag, true
		}
	}

	first, second := cardinalOrder(from, to, dx, dz)
	if first != from && walkable(first) {
		return first, true
	}
	if second != from && walkable(second) {
		return second, true
	}
	return grid.Tile{}, false
}

// cardinalOrder ranks the two cardinal candidates: the axis with more
// remaining distance first, X before Z on ties. An axis with no remaining
// distance yields `from` itself, which the caller skips.
func cardinalOrder(from, to grid.Tile, dx, dz int) (grid.Tile, grid.Tile) {
	stepX := from.Add(dx, 0)
	stepZ := from.Add(0, dz)
	distX := to.X - from.X
	if distX < 0 {
		distX = -distX
	}
	distZ := to.Z - from.Z
	if distZ < 0 {
		distZ = -distZ
	}
	if distZ > distX {
		return stepZ, stepX
	}
	return stepX, stepZ
}
