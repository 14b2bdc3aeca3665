package combat

import (
	"testing"

	"duskhaven/server/internal/grid"
)

func TestAttackRangeOnePlusShaped(t *testing.T) {
	attacker := grid.FootprintAt(grid.Tile{X: 5, Z: 5}, 1)

	cardinals := []grid.Tile{{X: 4, Z: 5}, {X: 6, Z: 5}, {X: 5, Z: 4}, {X: 5, Z: 6}}
	for _, tile := range cardinals {
		if !WithinAttackRange(attacker, grid.FootprintAt(tile, 1), 1) {
			t.Fatalf("cardinal neighbour %v should be attackable at range 1", tile)
		}
	}

	diagonals := []grid.Tile{{X: 4, Z: 4}, {X: 6, Z: 6}, {X: 4, Z: 6}, {X: 6, Z: 4}}
	for _, tile := range diagonals {
		if WithinAttackRange(attacker, grid.FootprintAt(tile, 1), 1) {
			t.Fatalf("diagonal neighbour %v must not be attackable at range 1", tile)
		}
	}
}

func TestAttackRangeTwoIsSquare(t *testing.T) {
	attacker := grid.FootprintAt(grid.Tile{X: 5, Z: 5}, 1)

	// The same diagonals rejected at range 1 are inside the range-2 square.
	for _, tile := range []grid.Tile{{X: 4, Z: 4}, {X: 6, Z: 6}, {X: 7, Z: 7}, {X: 3, Z: 7}} {
		if !WithinAttackRange(attacker, grid.FootprintAt(tile, 1), 2) {
			t.Fatalf("tile %v should be attackable at range 2", tile)
		}
	}
	for _, tile := range []grid.Tile{{X: 8, Z: 5}, {X: 5, Z: 8}, {X: 8, Z: 8}} {
		if WithinAttackRange(attacker, grid.FootprintAt(tile, 1), 2) {
			t.Fatalf("tile %v is outside the range-2 square", tile)
		}
	}
}

func TestAttackRangeOverlapNeverInRange(t *testing.T) {
	giant := grid.FootprintAt(grid.Tile{X: 4, Z: 4}, 3)
	inside := grid.FootprintAt(grid.Tile{X: 5, Z: 5}, 1)
	if WithinAttackRange(inside, giant, 1) || WithinAttackRange(inside, giant, 5) {
		t.Fatalf("a combatant underneath a larger one is never in range")
	}
	if WithinAttackRange(giant, inside, 5) {
		t.Fatalf("overlap blocks range in both directions")
	}
}

func TestAttackRangeUsesEveryAttackerTile(t *testing.T) {
	// A 2x2 attacker at (0,0) reaches (2,1) through its (1,1) tile even
	// though its origin is two tiles away.
	giant := grid.FootprintAt(grid.Tile{X: 0, Z: 0}, 2)
	target := grid.FootprintAt(grid.Tile{X: 2, Z: 1}, 1)
	if !WithinAttackRange(giant, target, 1) {
		t.Fatalf("multi-tile attacker should reach adjacent target from any of its tiles")
	}
	// One tile farther is out of plus-shaped reach for every attacker tile.
	far := grid.FootprintAt(grid.Tile{X: 3, Z: 1}, 1)
	if WithinAttackRange(giant, far, 1) {
		t.Fatalf("target beyond every attacker tile must be out of range")
	}
}

func TestHuntRangeMeasuresFromAnchor(t *testing.T) {
	anchor := grid.Tile{X: 0, Z: 0}
	// A 2x2 target whose nearest tile is 3 away and farthest 4 away.
	target := grid.FootprintAt(grid.Tile{X: 3, Z: 0}, 2)
	if !WithinHuntRange(anchor, target, 3) {
		t.Fatalf("nearest target tile at distance 3 should be inside range 3")
	}
	if WithinHuntRange(anchor, grid.FootprintAt(grid.Tile{X: 4, Z: 0}, 1), 3) {
		t.Fatalf("target at distance 4 must be outside range 3")
	}
	// The anchor is the minimum tile: a big hunter does not see farther.
	if WithinHuntRange(grid.Tile{X: 0, Z: 0}, grid.FootprintAt(grid.Tile{X: -5, Z: 0}, 1), 4) {
		t.Fatalf("west reach should be measured from the anchor, not the body")
	}
}

func TestBeyondLeashAnchorIsFixed(t *testing.T) {
	spawn := grid.Tile{X: 10, Z: 10}
	if BeyondLeash(spawn, grid.FootprintAt(grid.Tile{X: 14, Z: 10}, 1), 4) {
		t.Fatalf("entity at exactly max range is still leashed")
	}
	if !BeyondLeash(spawn, grid.FootprintAt(grid.Tile{X: 15, Z: 10}, 1), 4) {
		t.Fatalf("entity one past max range has broken the leash")
	}
}
