package journal

import (
	"time"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/stats"
)

// EntityKind separates the two entity variants the world simulates.
type EntityKind string

const (
	EntityPlayer EntityKind = "player"
	EntityMob    EntityKind = "mob"
)

// EntitySnapshot is the full per-entity state captured by a snapshot: both
// the digest-relevant combat fields and the bookkeeping a live world needs
// to resume (anchors, timers, path state). It doubles as the canonical
// representation replay reconstructs and digests.
type EntitySnapshot struct {
	ID         string     `json:"id" msgpack:"id"`
	Kind       EntityKind `json:"kind" msgpack:"kind"`
	Archetype  string     `json:"archetype,omitempty" msgpack:"archetype,omitempty"`
	CreatedSeq uint64     `json:"createdSeq" msgpack:"createdSeq"`

	Origin      grid.Tile `json:"origin" msgpack:"origin"`
	Size        int       `json:"size" msgpack:"size"`
	SpawnAnchor grid.Tile `json:"spawnAnchor" msgpack:"spawnAnchor"`
	Blocking    bool      `json:"blocking" msgpack:"blocking"`

	Health      int    `json:"health" msgpack:"health"`
	Dead        bool   `json:"dead,omitempty" msgpack:"dead,omitempty"`
	RespawnTick uint64 `json:"respawnTick,omitempty" msgpack:"respawnTick,omitempty"`

	Levels        stats.Levels  `json:"levels" msgpack:"levels"`
	Bonuses       stats.Bonuses `json:"bonuses" msgpack:"bonuses"`
	Style         stats.Style   `json:"style" msgpack:"style"`
	AutoRetaliate bool          `json:"autoRetaliate" msgpack:"autoRetaliate"`
	WeaponSpeed   int           `json:"weaponSpeed" msgpack:"weaponSpeed"`
	AttackRange   int           `json:"attackRange" msgpack:"attackRange"`

	TargetID           string `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
	NextAttackTick     uint64 `json:"nextAttackTick,omitempty" msgpack:"nextAttackTick,omitempty"`
	InCombat           bool   `json:"inCombat,omitempty" msgpack:"inCombat,omitempty"`
	LastCombatTick     uint64 `json:"lastCombatTick,omitempty" msgpack:"lastCombatTick,omitempty"`
	RetaliationPending bool   `json:"retaliationPending,omitempty" msgpack:"retaliationPending,omitempty"`

	PathTarget     grid.Tile `json:"pathTarget,omitempty" msgpack:"pathTarget,omitempty"`
	PathActive     bool      `json:"pathActive,omitempty" msgpack:"pathActive,omitempty"`
	FirstSwingTick uint64    `json:"firstSwingTick,omitempty" msgpack:"firstSwingTick,omitempty"`

	Level             int    `json:"level,omitempty" msgpack:"level,omitempty"`
	HuntRange         int    `json:"huntRange,omitempty" msgpack:"huntRange,omitempty"`
	LeashRange        int    `json:"leashRange,omitempty" msgpack:"leashRange,omitempty"`
	WanderRadius      int    `json:"wanderRadius,omitempty" msgpack:"wanderRadius,omitempty"`
	Aggressive        bool   `json:"aggressive,omitempty" msgpack:"aggressive,omitempty"`
	Phase             string `json:"phase,omitempty" msgpack:"phase,omitempty"`
	NextWanderTick    uint64 `json:"nextWanderTick,omitempty" msgpack:"nextWanderTick,omitempty"`
	RespawnDelayTicks uint64 `json:"respawnDelayTicks,omitempty" msgpack:"respawnDelayTicks,omitempty"`
}

// Snapshot is a full restore point: entity state in creation order, the
// session RNG's serialized position, aggro tolerance counters and the
// checksum chain head at seal time.
type Snapshot struct {
	Tick           uint64                       `json:"tick" msgpack:"tick"`
	Seq            uint64                       `json:"seq" msgpack:"seq"`
	Checksum       uint64                       `json:"checksum" msgpack:"checksum"`
	WorldDigest    uint64                       `json:"worldDigest" msgpack:"worldDigest"`
	RNGState       []byte                       `json:"rngState,omitempty" msgpack:"rngState,omitempty"`
	Entities       []EntitySnapshot             `json:"entities" msgpack:"entities"`
	Tolerance      map[string]map[string]uint64 `json:"tolerance,omitempty" msgpack:"tolerance,omitempty"`
	NextCreatedSeq uint64                       `json:"nextCreatedSeq" msgpack:"nextCreatedSeq"`
	RecordedAt     time.Time                    `json:"recordedAt" msgpack:"recordedAt"`
}

// Clone deep-copies the snapshot so callers can hold it across ticks.
func (s Snapshot) Clone() Snapshot {
	out := s
	if len(s.RNGState) > 0 {
		out.RNGState = append([]byte(nil), s.RNGState...)
	}
	if len(s.Entities) > 0 {
		out.Entities = append([]EntitySnapshot(nil), s.Entities...)
	}
	if len(s.Tolerance) > 0 {
		tolerance := make(map[string]map[string]uint64, len(s.Tolerance))
		for hunter, bucket := range s.Tolerance {
			copied := make(map[string]uint64, len(bucket))
			for id, n := range bucket {
				copied[id] = n
			}
			tolerance[hunter] = copied
		}
		out.Tolerance = tolerance
	}
	return out
}
