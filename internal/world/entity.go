package world

import (
	"duskhaven/server/internal/combat"
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
	"duskhaven/server/logging"
)

// PathState tracks the tile an entity is walking toward. A step blocked by
// another entity keeps the state for a retry; a step blocked by terrain
// clears it, which is the intentional stuck outcome.
type PathState struct {
	Target grid.Tile
	Active bool
}

// actorState is the shared core of the two entity variants. Equipment is
// folded into Bonuses and WeaponSpeed at spawn time so the live state stays
// flat and snapshot-friendly.
type actorState struct {
	ID         string
	CreatedSeq uint64

	Footprint   grid.Footprint
	SpawnAnchor grid.Tile
	Blocking    bool

	Health      int
	Levels      stats.Levels
	Bonuses     stats.Bonuses
	WeaponSpeed int
	AttackRange int

	Combat combat.State
	Path   PathState

	// FirstSwingTick delays the opening swing of a freshly acquired
	// engagement; zero means no windup is pending.
	FirstSwingTick uint64

	// RespawnTick is when a dead entity returns; zero means unscheduled.
	RespawnTick uint64
}

// canSwing reports whether both the weapon cooldown and any acquisition
// windup have elapsed.
func (a *actorState) canSwing(tick uint64) bool {
	return a.Combat.CanAttack(tick) && tick >= a.FirstSwingTick
}

func (a *actorState) Origin() grid.Tile {
	return a.Footprint.Origin
}

func (a *actorState) MaxHealth() int {
	return a.Levels.Normalized().Hitpoints
}

func (a *actorState) Alive() bool {
	return !a.Combat.Dead
}

// Profile captures the attack-time view of this actor for the damage
// pipeline.
func (a *actorState) Profile() stats.Profile {
	return stats.Profile{Levels: a.Levels, Bonuses: a.Bonuses, Style: a.Combat.Style}
}

// Player is a human-driven combatant. Its style and auto-retaliate
// preference survive death and are persisted outside the world.
type Player struct {
	actorState
}

// Phase is a mob brain's coarse mode.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePursuing
	PhaseReturning
)

func (p Phase) String() string {
	switch p {
	case PhasePursuing:
		return "pursuing"
	case PhaseReturning:
		return "returning"
	default:
		return "idle"
	}
}

func parsePhase(s string) Phase {
	switch s {
	case "pursuing":
		return PhasePursuing
	case "returning":
		return PhaseReturning
	default:
		return PhaseIdle
	}
}

// Mob is a server-driven combatant bound to its spawn anchor.
type Mob struct {
	actorState

	Archetype string
	// Level is the listed combat level the aggression gate compares.
	Level int

	HuntRange    int
	LeashRange   int
	WanderRadius int
	Aggressive   bool

	Phase          Phase
	NextWanderTick uint64
	RespawnDelay   uint64
}

// MobSpec is everything SpawnMob needs. Callers usually build one from a
// bestiary archetype.
type MobSpec struct {
	// ID is optional; a stable one is generated when empty.
	ID        string
	Archetype string
	Level     int
	Origin    grid.Tile
	Size      int

	Levels      stats.Levels
	Bonuses     stats.Bonuses
	WeaponSpeed int
	AttackRange int

	// IgnoresCollision marks the mob non-blocking: it is tracked in the
	// occupancy map but never denies anyone a tile.
	IgnoresCollision bool

	HuntRange    int
	LeashRange   int
	WanderRadius int
	Aggressive   bool
	RespawnDelay uint64
}

// PlayerPrefs are the persisted combat preferences restored on join.
type PlayerPrefs struct {
	AutoRetaliate bool
	Style         stats.Style
}

// DefaultPlayerPrefs is what a first-time player gets.
func DefaultPlayerPrefs() PlayerPrefs {
	return PlayerPrefs{AutoRetaliate: true, Style: stats.StyleAccurate}
}

// entityHandle is the closed Player-or-Mob variant. Exactly one pointer is
// set; helpers switch on which.
type entityHandle struct {
	player *Player
	mob    *Mob
}

func (h entityHandle) valid() bool {
	return h.player != nil || h.mob != nil
}

func (h entityHandle) actor() *actorState {
	if h.player != nil {
		return &h.player.actorState
	}
	if h.mob != nil {
		return &h.mob.actorState
	}
	return nil
}

func (h entityHandle) kind() journal.EntityKind {
	if h.player != nil {
		return journal.EntityPlayer
	}
	return journal.EntityMob
}

func (h entityHandle) level() int {
	if h.player != nil {
		return h.player.Levels.CombatLevel()
	}
	if h.mob != nil {
		return h.mob.Level
	}
	return 0
}

func (h entityHandle) logRef() logging.EntityRef {
	a := h.actor()
	if a == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	kind := logging.EntityKindMob
	if h.player != nil {
		kind = logging.EntityKindPlayer
	}
	return logging.EntityRef{ID: a.ID, Kind: kind}
}
