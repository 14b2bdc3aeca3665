// Package bestiary is the mob archetype catalog: the designer-authored
// combat numbers a world instantiates mobs from. The catalog is plain data;
// the world never reads it after spawn, so tuning edits only affect new
// spawns.
package bestiary

import (
	"encoding/json"
	"fmt"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/stats"
	"duskhaven/server/internal/world"
)

// Archetype is one mob species. The struct doubles as the JSON contract for
// designer-authored bestiary documents; the schema generator reflects it.
type Archetype struct {
	ID   string `json:"id" jsonschema:"title=Archetype id,pattern=^[a-z0-9-]+$,description=Stable identifier referenced by spawn tables"`
	Name string `json:"name" jsonschema:"title=Display name"`

	// Level is the listed combat level the aggression gate compares
	// against a candidate's level.
	Level  int          `json:"level" jsonschema:"minimum=1"`
	Levels stats.Levels `json:"levels" jsonschema:"description=Trained attribute levels feeding the damage pipeline"`

	Bonuses     stats.Bonuses `json:"bonuses" jsonschema:"description=Innate equipment-equivalent bonuses"`
	WeaponSpeed int           `json:"weaponSpeed" jsonschema:"minimum=1,description=Ticks between swings"`
	AttackRange int           `json:"attackRange" jsonschema:"minimum=1,description=Reach in tiles; 1 is melee (cardinal only)"`

	HuntRange    int  `json:"huntRange,omitempty" jsonschema:"minimum=0,description=Detection radius from the mob's current tile"`
	LeashRange   int  `json:"leashRange,omitempty" jsonschema:"minimum=0,description=Max distance from the spawn anchor before disengaging"`
	WanderRadius int  `json:"wanderRadius,omitempty" jsonschema:"minimum=0"`
	Aggressive   bool `json:"aggressive,omitempty"`

	RespawnTicks     uint64 `json:"respawnTicks,omitempty" jsonschema:"description=Delay between death and respawn; 0 means never"`
	FootprintSize    int    `json:"footprintSize,omitempty" jsonschema:"minimum=1,description=Side length of the square footprint"`
	IgnoresCollision bool   `json:"ignoresCollision,omitempty" jsonschema:"description=Tracked on the occupancy map but never blocks"`
}

// Document is the designer-authored bestiary file format.
type Document []Archetype

// Validate checks the archetype's invariants.
func (a Archetype) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("bestiary: archetype missing id")
	}
	if a.Level < 1 {
		return fmt.Errorf("bestiary: %s: level %d below 1", a.ID, a.Level)
	}
	if a.WeaponSpeed < 1 {
		return fmt.Errorf("bestiary: %s: weapon speed %d below 1", a.ID, a.WeaponSpeed)
	}
	if a.AttackRange < 1 {
		return fmt.Errorf("bestiary: %s: attack range %d below 1", a.ID, a.AttackRange)
	}
	if a.FootprintSize < 0 {
		return fmt.Errorf("bestiary: %s: negative footprint size", a.ID)
	}
	if a.Aggressive && a.HuntRange < 1 {
		return fmt.Errorf("bestiary: %s: aggressive with hunt range %d", a.ID, a.HuntRange)
	}
	if a.LeashRange > 0 && a.HuntRange > a.LeashRange {
		return fmt.Errorf("bestiary: %s: hunt range %d beyond leash %d", a.ID, a.HuntRange, a.LeashRange)
	}
	return nil
}

// Spec builds the world spawn request for one mob of this archetype at the
// given anchor tile.
func (a Archetype) Spec(origin grid.Tile) world.MobSpec {
	size := a.FootprintSize
	if size < 1 {
		size = 1
	}
	return world.MobSpec{
		Archetype:        a.ID,
		Level:            a.Level,
		Origin:           origin,
		Size:             size,
		Levels:           a.Levels,
		Bonuses:          a.Bonuses,
		WeaponSpeed:      a.WeaponSpeed,
		AttackRange:      a.AttackRange,
		IgnoresCollision: a.IgnoresCollision,
		HuntRange:        a.HuntRange,
		LeashRange:       a.LeashRange,
		WanderRadius:     a.WanderRadius,
		Aggressive:       a.Aggressive,
		RespawnDelay:     a.RespawnTicks,
	}
}

// Catalog is an immutable, ordered archetype set.
type Catalog struct {
	byID  map[string]Archetype
	order []string
}

// New validates the document and indexes it. Order is preserved so spawn
// tables iterate deterministically.
func New(doc Document) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Archetype, len(doc))}
	for _, a := range doc {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("bestiary: duplicate archetype id %q", a.ID)
		}
		c.byID[a.ID] = a
		c.order = append(c.order, a.ID)
	}
	return c, nil
}

// Parse decodes and validates a designer-authored bestiary document.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("bestiary: parse document: %w", err)
	}
	return New(doc)
}

// Get looks up an archetype by id.
func (c *Catalog) Get(id string) (Archetype, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// IDs returns the archetype ids in document order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len reports the number of archetypes.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Builtin is the shipped bestiary. Numbers are authored so each species
// plays a distinct role: the rat is harmless furniture, the goblin and
// ghoul are the level-gated aggressors, the bog warden sits above the
// always-aggressive threshold, and the bog giant exercises the multi-tile
// footprint rules.
func Builtin() *Catalog {
	catalog, err := New(Document{
		{
			ID: "rat", Name: "Rat", Level: 2,
			Levels:      stats.Levels{Attack: 1, Strength: 1, Defence: 1, Hitpoints: 3},
			WeaponSpeed: 4, AttackRange: 1,
			WanderRadius: 4, RespawnTicks: 25,
		},
		{
			ID: "goblin", Name: "Goblin", Level: 5,
			Levels:      stats.Levels{Attack: 3, Strength: 4, Defence: 3, Hitpoints: 10},
			WeaponSpeed: 4, AttackRange: 1,
			HuntRange: 4, LeashRange: 10, WanderRadius: 3,
			Aggressive: true, RespawnTicks: 50,
		},
		{
			ID: "ghoul", Name: "Ghoul", Level: 25,
			Levels:      stats.Levels{Attack: 22, Strength: 24, Defence: 20, Hitpoints: 30},
			Bonuses:     stats.Bonuses{Attack: 6, Strength: 4},
			WeaponSpeed: 4, AttackRange: 1,
			HuntRange: 6, LeashRange: 14, WanderRadius: 4,
			Aggressive: true, RespawnTicks: 75,
		},
		{
			ID: "bog-warden", Name: "Bog Warden", Level: 92,
			Levels:      stats.Levels{Attack: 85, Strength: 88, Defence: 80, Hitpoints: 110},
			Bonuses:     stats.Bonuses{Attack: 30, Strength: 26, Defence: 40},
			WeaponSpeed: 5, AttackRange: 2,
			HuntRange: 8, LeashRange: 16, WanderRadius: 2,
			Aggressive: true, RespawnTicks: 200,
		},
		{
			ID: "bog-giant", Name: "Bog Giant", Level: 48, FootprintSize: 2,
			Levels:      stats.Levels{Attack: 40, Strength: 55, Defence: 45, Hitpoints: 80},
			Bonuses:     stats.Bonuses{Strength: 15, Defence: 20},
			WeaponSpeed: 6, AttackRange: 1,
			HuntRange: 5, LeashRange: 12, WanderRadius: 3,
			Aggressive: true, RespawnTicks: 150,
		},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}
