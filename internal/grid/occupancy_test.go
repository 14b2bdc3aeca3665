package grid

import (
	"errors"
	"testing"
)

func TestOccupancyRejectsSecondBlocker(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("rat-1", FootprintAt(Tile{4, 4}, 1), true); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	err := occ.Occupy("rat-2", FootprintAt(Tile{4, 4}, 1), true)
	if !errors.Is(err, ErrTileBlocked) {
		t.Fatalf("second blocking claim = %v, want ErrTileBlocked", err)
	}
	if holder, _ := occ.BlockerAt(Tile{4, 4}); holder != "rat-1" {
		t.Fatalf("failed claim must not overwrite, holder = %q", holder)
	}
}

func TestOccupancyRejectsDuplicateID(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("p1", FootprintAt(Tile{0, 0}, 1), true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := occ.Occupy("p1", FootprintAt(Tile{9, 9}, 1), true); !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("duplicate id = %v, want ErrDuplicateEntity", err)
	}
}

func TestOccupancyNonBlockingNeverBlocks(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("wisp", FootprintAt(Tile{2, 2}, 1), false); err != nil {
		t.Fatalf("non-blocking claim failed: %v", err)
	}
	if occ.IsBlocked(Tile{2, 2}, "") {
		t.Fatalf("non-blocking occupant must not block the tile")
	}
	if err := occ.Occupy("rat", FootprintAt(Tile{2, 2}, 1), true); err != nil {
		t.Fatalf("blocker should claim over a non-blocker: %v", err)
	}
	// The non-blocker is still tracked for lookups.
	if _, ok := occ.FootprintOf("wisp"); !ok {
		t.Fatalf("non-blocking occupant should stay registered")
	}
}

func TestOccupancyMoveIsAtomic(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("giant", FootprintAt(Tile{0, 0}, 2), true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := occ.Occupy("wall", FootprintAt(Tile{3, 1}, 1), true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// Target footprint (2,0)..(3,1) collides with "wall" on one of four
	// tiles; the whole move must fail and the old claim must survive.
	if err := occ.Move("giant", Tile{2, 0}); !errors.Is(err, ErrTileBlocked) {
		t.Fatalf("overlapping move = %v, want ErrTileBlocked", err)
	}
	for _, tile := range []Tile{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if holder, _ := occ.BlockerAt(tile); holder != "giant" {
			t.Fatalf("tile %v lost its holder after failed move, got %q", tile, holder)
		}
	}

	// A self-overlapping shift is legal: the mover's own tiles don't block.
	if err := occ.Move("giant", Tile{0, 1}); err != nil {
		t.Fatalf("self-overlapping move failed: %v", err)
	}
	if occ.IsBlocked(Tile{0, 0}, "") {
		t.Fatalf("vacated tile should be free after move")
	}
	if holder, _ := occ.BlockerAt(Tile{1, 2}); holder != "giant" {
		t.Fatalf("claimed tile missing holder after move, got %q", holder)
	}
}

func TestOccupancyVacateIsIdempotent(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("p1", FootprintAt(Tile{7, 7}, 1), true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	occ.Vacate("p1")
	occ.Vacate("p1")
	occ.Vacate("never-existed")
	if occ.Len() != 0 {
		t.Fatalf("expected empty occupancy, have %d entries", occ.Len())
	}
	if occ.IsBlocked(Tile{7, 7}, "") {
		t.Fatalf("tile should be free after vacate")
	}
}

func TestOccupancyIsBlockedExcludesSelf(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Occupy("p1", FootprintAt(Tile{1, 1}, 1), true); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if occ.IsBlocked(Tile{1, 1}, "p1") {
		t.Fatalf("entity must not block itself")
	}
	if !occ.IsBlocked(Tile{1, 1}, "p2") {
		t.Fatalf("other entities should see the tile blocked")
	}
}

func TestOccupancyMoveUnknownEntity(t *testing.T) {
	occ := NewOccupancy()
	if err := occ.Move("ghost", Tile{0, 0}); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("moving unregistered id = %v, want ErrUnknownEntity", err)
	}
}
