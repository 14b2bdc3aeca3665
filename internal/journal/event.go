// Package journal is the authoritative combat record: an append-only,
// bounded buffer of events with a chained checksum, periodic state
// snapshots, integrity verification and deterministic replay.
package journal

import (
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/stats"
)

// Kind names one of the closed set of recorded event types. Anything the
// simulation does that changes combat-relevant state must map onto one of
// these; replay refuses kinds it does not know.
type Kind string

const (
	KindSpawn      Kind = "spawn"
	KindRespawn    Kind = "respawn"
	KindDespawn    Kind = "despawn"
	KindMove       Kind = "move"
	KindTarget     Kind = "target"
	KindUntarget   Kind = "untarget"
	KindAttack     Kind = "attack"
	KindDeath      Kind = "death"
	KindHeal       Kind = "heal"
	KindPreference Kind = "preference"
	KindStyle      Kind = "style"
)

// Event is one recorded state change. Seq, ID and Checksum are assigned by
// the journal at record time; everything else is supplied by the simulation.
// Exactly one payload pointer matching Kind is set.
type Event struct {
	Seq      uint64 `json:"seq" msgpack:"seq"`
	Tick     uint64 `json:"tick" msgpack:"tick"`
	ID       string `json:"id" msgpack:"id"`
	Kind     Kind   `json:"kind" msgpack:"kind"`
	Subject  string `json:"subject" msgpack:"subject"`
	Target   string `json:"target,omitempty" msgpack:"target,omitempty"`
	Checksum uint64 `json:"checksum" msgpack:"checksum"`

	Spawn      *SpawnPayload      `json:"spawn,omitempty" msgpack:"spawn,omitempty"`
	Move       *MovePayload       `json:"move,omitempty" msgpack:"move,omitempty"`
	Untarget   *UntargetPayload   `json:"untarget,omitempty" msgpack:"untarget,omitempty"`
	Attack     *AttackPayload     `json:"attack,omitempty" msgpack:"attack,omitempty"`
	Death      *DeathPayload      `json:"death,omitempty" msgpack:"death,omitempty"`
	Heal       *HealPayload       `json:"heal,omitempty" msgpack:"heal,omitempty"`
	Respawn    *RespawnPayload    `json:"respawn,omitempty" msgpack:"respawn,omitempty"`
	Preference *PreferencePayload `json:"preference,omitempty" msgpack:"preference,omitempty"`
	Style      *StylePayload      `json:"style,omitempty" msgpack:"style,omitempty"`
}

// SpawnPayload carries everything replay needs to rebuild the entity from
// nothing. Mob archetype ids are informational; the combat numbers are
// authoritative.
type SpawnPayload struct {
	Archetype     string        `json:"archetype,omitempty" msgpack:"archetype,omitempty"`
	Player        bool          `json:"player,omitempty" msgpack:"player,omitempty"`
	Origin        grid.Tile     `json:"origin" msgpack:"origin"`
	Size          int           `json:"size" msgpack:"size"`
	Health        int           `json:"health" msgpack:"health"`
	Levels        stats.Levels  `json:"levels" msgpack:"levels"`
	Bonuses       stats.Bonuses `json:"bonuses" msgpack:"bonuses"`
	Style         stats.Style   `json:"style" msgpack:"style"`
	AutoRetaliate bool          `json:"autoRetaliate" msgpack:"autoRetaliate"`
	WeaponSpeed   int           `json:"weaponSpeed" msgpack:"weaponSpeed"`
	AttackRange   int           `json:"attackRange" msgpack:"attackRange"`
	Blocking      bool          `json:"blocking" msgpack:"blocking"`
	CreatedSeq    uint64        `json:"createdSeq" msgpack:"createdSeq"`
}

// MovePayload records a single-step move.
type MovePayload struct {
	From grid.Tile `json:"from" msgpack:"from"`
	To   grid.Tile `json:"to" msgpack:"to"`
}

// UntargetPayload records why a combatant dropped its target.
type UntargetPayload struct {
	Reason string `json:"reason" msgpack:"reason"`
}

// Untarget reasons recorded by the simulation.
const (
	UntargetDisengage  = "disengage"
	UntargetTargetDied = "target-died"
	UntargetTargetGone = "target-gone"
	UntargetLeash      = "leash"
)

// AttackPayload records one resolved swing and the post-swing schedule of
// both sides, so replay never has to re-run the damage pipeline.
type AttackPayload struct {
	Hit                  bool   `json:"hit" msgpack:"hit"`
	Damage               int    `json:"damage" msgpack:"damage"`
	TargetHealthAfter    int    `json:"targetHealthAfter" msgpack:"targetHealthAfter"`
	NextAttackTick       uint64 `json:"nextAttackTick" msgpack:"nextAttackTick"`
	TargetNextAttackTick uint64 `json:"targetNextAttackTick" msgpack:"targetNextAttackTick"`
	TargetRetaliated     bool   `json:"targetRetaliated" msgpack:"targetRetaliated"`
	Speed                int    `json:"speed" msgpack:"speed"`
}

// DeathPayload marks the subject dead; RespawnTick is when the world will
// bring it back, zero for never.
type DeathPayload struct {
	RespawnTick uint64 `json:"respawnTick,omitempty" msgpack:"respawnTick,omitempty"`
}

// HealPayload records a non-combat health change as the resulting absolute
// value, the same post-state convention attacks use.
type HealPayload struct {
	Health int `json:"health" msgpack:"health"`
}

// RespawnPayload restores a dead entity at its anchor.
type RespawnPayload struct {
	Origin grid.Tile `json:"origin" msgpack:"origin"`
	Health int       `json:"health" msgpack:"health"`
}

// PreferencePayload records an auto-retaliate toggle.
type PreferencePayload struct {
	AutoRetaliate bool `json:"autoRetaliate" msgpack:"autoRetaliate"`
}

// StylePayload records an attack style change.
type StylePayload struct {
	Style stats.Style `json:"style" msgpack:"style"`
}
