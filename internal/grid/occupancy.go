package grid

import "errors"

var (
	// ErrDuplicateEntity is returned when an id already holds tiles.
	ErrDuplicateEntity = errors.New("grid: entity already occupies tiles")
	// ErrUnknownEntity is returned when moving an id that never occupied.
	ErrUnknownEntity = errors.New("grid: entity not registered")
	// ErrTileBlocked is returned when a claim collides with another blocker.
	ErrTileBlocked = errors.New("grid: tile held by another entity")
)

type occupancyEntry struct {
	footprint Footprint
	blocking  bool
}

// Occupancy tracks which entity holds which tiles. Each tile carries at
// most one blocking occupant; claims fail instead of overwriting. Entities
// that ignore collision are tracked for lookups but never block a tile.
//
// The map belongs to a single simulation session and is mutated only by the
// tick pipeline, so it needs no locking of its own.
type Occupancy struct {
	blockers map[Tile]string
	entries  map[string]occupancyEntry
}

// NewOccupancy returns an empty occupancy map.
func NewOccupancy() *Occupancy {
	return &Occupancy{
		blockers: make(map[Tile]string),
		entries:  make(map[string]occupancyEntry),
	}
}

// Occupy claims every tile of fp for id. Blocking claims are all-or-nothing:
// if any tile is held by another blocker, nothing is claimed.
func (o *Occupancy) Occupy(id string, fp Footprint, blocking bool) error {
	if id == "" {
		return ErrUnknownEntity
	}
	if _, ok := o.entries[id]; ok {
		return ErrDuplicateEntity
	}
	if blocking {
		if blocked := o.firstBlocked(fp, id); blocked {
			return ErrTileBlocked
		}
		fp.Tiles(func(t Tile) bool {
			o.blockers[t] = id
			return true
		})
	}
	o.entries[id] = occupancyEntry{footprint: fp, blocking: blocking}
	return nil
}

// Move re-anchors id at origin. The claim is atomic: target tiles are
// verified first (ignoring the mover's own tiles), then the old tiles are
// vacated and the new ones claimed. On error the old claim is untouched.
func (o *Occupancy) Move(id string, origin Tile) error {
	entry, ok := o.entries[id]
	if !ok {
		return ErrUnknownEntity
	}
	next := entry.footprint.MoveTo(origin)
	if entry.blocking {
		if blocked := o.firstBlocked(next, id); blocked {
			return ErrTileBlocked
		}
		entry.footprint.Tiles(func(t Tile) bool {
			delete(o.blockers, t)
			return true
		})
		next.Tiles(func(t Tile) bool {
			o.blockers[t] = id
			return true
		})
	}
	entry.footprint = next
	o.entries[id] = entry
	return nil
}

// Vacate releases every tile held by id. Unknown ids are a no-op so death,
// despawn and disconnect paths can all call it unconditionally.
func (o *Occupancy) Vacate(id string) {
	entry, ok := o.entries[id]
	if !ok {
		return
	}
	if entry.blocking {
		entry.footprint.Tiles(func(t Tile) bool {
			delete(o.blockers, t)
			return true
		})
	}
	delete(o.entries, id)
}

// IsBlocked reports whether t is held by a blocking occupant other than
// excludeID.
func (o *Occupancy) IsBlocked(t Tile, excludeID string) bool {
	holder, ok := o.blockers[t]
	return ok && holder != excludeID
}

// BlockerAt returns the blocking occupant of t, if any.
func (o *Occupancy) BlockerAt(t Tile) (string, bool) {
	holder, ok := o.blockers[t]
	return holder, ok
}

// FootprintOf returns the registered footprint for id.
func (o *Occupancy) FootprintOf(id string) (Footprint, bool) {
	entry, ok := o.entries[id]
	if !ok {
		return Footprint{}, false
	}
	return entry.footprint, true
}

// Len returns the number of tracked entities.
func (o *Occupancy) Len() int {
	return len(o.entries)
}

func (o *Occupancy) firstBlocked(fp Footprint, excludeID string) bool {
	blocked := false
	fp.Tiles(func(t Tile) bool {
		if o.IsBlocked(t, excludeID) {
			blocked = true
			return false
		}
		return true
	})
	return blocked
}
