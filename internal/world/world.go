// Package world owns one simulation session: the entity population, the
// occupancy map, the aggro selector, the session RNG and the combat journal.
// Everything advances inside Advance, one synchronous step per tick; no
// other entry point mutates combat state.
package world

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"duskhaven/server/internal/aggro"
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
	"duskhaven/server/logging"
)

var (
	ErrMissingID     = errors.New("world: entity id required")
	ErrDuplicateID   = errors.New("world: entity id already present")
	ErrWorldFull     = errors.New("world: entity limit reached")
	ErrNoPlacement   = errors.New("world: no free placement near anchor")
	ErrUnknownActor  = errors.New("world: unknown actor")
	ErrDeadActor     = errors.New("world: actor is dead")
	ErrUnknownTarget = errors.New("world: unknown target")
	ErrDeadTarget    = errors.New("world: target is dead")
	ErrSelfTarget    = errors.New("world: cannot target self")
	ErrNotPlayer     = errors.New("world: intent actor is not a player")
	ErrUnwalkable    = errors.New("world: destination tile is not walkable")
	ErrInvalidStyle  = errors.New("world: invalid combat style")
)

// placementSearchRadius bounds the ring search for a free spawn placement.
const placementSearchRadius = 8

// Deps bundles the runtime collaborators a World needs.
type Deps struct {
	Publisher        logging.Publisher
	Terrain          Terrain
	JournalTelemetry journal.Telemetry
}

// World is one simulation session. It is not safe for concurrent use: the
// driving loop owns it for the duration of each tick.
type World struct {
	cfg  Config
	seed string

	publisher logging.Publisher
	terrain   Terrain

	rng *rand.Rand
	pcg *rand.PCG

	journal   *journal.Journal
	selector  *aggro.Selector
	occupancy *grid.Occupancy

	players []*Player
	mobs    []*Mob
	byID    map[string]entityHandle

	// order holds every live entity in creation sequence; it is the digest
	// and snapshot order, distinct from the mobs-then-players tick order.
	order []entityHandle

	nextCreatedSeq uint64
	tick           uint64

	// scratch buffers reused every tick.
	candidates []aggro.Candidate
	exported   []journal.EntitySnapshot
}

// New constructs a world with normalized configuration, deterministic RNG
// streams derived from the seed, and an empty population.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	terrain := deps.Terrain
	if terrain == nil {
		terrain = NewTerrainGrid(normalized.Width, normalized.Height, normalized.Walls)
	}

	journalCfg := normalized.Journal
	if journalCfg.Seed == 0 {
		journalCfg.Seed = DeterministicSeedValue(normalized.Seed, "journal")
	}

	rng, pcg := NewSessionRNG(normalized.Seed, "combat")

	return &World{
		cfg:            normalized,
		seed:           normalized.Seed,
		publisher:      publisher,
		terrain:        terrain,
		rng:            rng,
		pcg:            pcg,
		journal:        journal.New(journalCfg, deps.JournalTelemetry),
		selector:       aggro.NewSelector(normalized.Aggro),
		occupancy:      grid.NewOccupancy(),
		byID:           make(map[string]entityHandle),
		nextCreatedSeq: 1,
		candidates:     make([]aggro.Candidate, 0, 64),
		exported:       make([]journal.EntitySnapshot, 0, 64),
	}, nil
}

// Config returns the normalized configuration captured at construction.
func (w *World) Config() Config {
	return w.cfg
}

// Seed reports the root seed of the session's RNG streams.
func (w *World) Seed() string {
	return w.seed
}

// Tick reports the most recently advanced tick.
func (w *World) Tick() uint64 {
	return w.tick
}

// Journal exposes the combat record for queries, verification and replay.
func (w *World) Journal() *journal.Journal {
	return w.journal
}

func (w *World) PlayerCount() int {
	return len(w.players)
}

func (w *World) MobCount() int {
	return len(w.mobs)
}

func (w *World) EntityCount() int {
	return len(w.byID)
}

// PlayerPrefs returns a player's persisted combat preferences.
func (w *World) PlayerPrefs(id string) (PlayerPrefs, bool) {
	h, ok := w.byID[id]
	if !ok || h.player == nil {
		return PlayerPrefs{}, false
	}
	return PlayerPrefs{
		AutoRetaliate: h.player.Combat.AutoRetaliate,
		Style:         h.player.Combat.Style,
	}, true
}

// PlayerOrigin reports a player's current origin tile.
func (w *World) PlayerOrigin(id string) (grid.Tile, bool) {
	h, ok := w.byID[id]
	if !ok || h.player == nil {
		return grid.Tile{}, false
	}
	return h.player.Origin(), true
}

// JoinPlayer adds a player at the world spawn. The loadout is folded into
// flat bonuses and weapon speed; prefs restore persisted style and
// auto-retaliate choices. It returns the placement tile.
func (w *World) JoinPlayer(tick uint64, id string, prefs PlayerPrefs, loadout stats.Loadout) (grid.Tile, error) {
	if id == "" {
		return grid.Tile{}, ErrMissingID
	}
	if _, exists := w.byID[id]; exists {
		return grid.Tile{}, ErrDuplicateID
	}
	if len(w.byID) >= w.cfg.EntityLimit {
		return grid.Tile{}, ErrWorldFull
	}
	origin, ok := w.findPlacement(w.cfg.Spawn, 1, "", true)
	if !ok {
		return grid.Tile{}, ErrNoPlacement
	}

	style := prefs.Style
	if !style.Valid() {
		style = stats.StyleAccurate
	}

	p := &Player{actorState: actorState{
		ID:          id,
		CreatedSeq:  w.nextCreatedSeq,
		Footprint:   grid.FootprintAt(origin, 1),
		SpawnAnchor: w.cfg.Spawn,
		Blocking:    true,
		Levels:      w.cfg.StartingLevels,
		Bonuses:     loadout.Fold(),
		WeaponSpeed: loadout.WeaponSpeed(),
		AttackRange: 1,
	}}
	p.Health = p.MaxHealth()
	p.Combat.AutoRetaliate = prefs.AutoRetaliate
	p.Combat.Style = style

	if err := w.occupancy.Occupy(id, p.Footprint, true); err != nil {
		return grid.Tile{}, fmt.Errorf("world: claim spawn tiles: %w", err)
	}
	w.nextCreatedSeq++

	h := entityHandle{player: p}
	w.players = append(w.players, p)
	w.byID[id] = h
	w.order = append(w.order, h)

	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindSpawn,
		Subject: id,
		Spawn: &journal.SpawnPayload{
			Player:        true,
			Origin:        origin,
			Size:          1,
			Health:        p.Health,
			Levels:        p.Levels,
			Bonuses:       p.Bonuses,
			Style:         style,
			AutoRetaliate: p.Combat.AutoRetaliate,
			WeaponSpeed:   p.WeaponSpeed,
			AttackRange:   p.AttackRange,
			Blocking:      true,
			CreatedSeq:    p.CreatedSeq,
		},
	})
	return origin, nil
}

// RemovePlayer despawns a player immediately: tiles are vacated, aggro
// bookkeeping dropped, and every pursuer notices the absence next tick.
func (w *World) RemovePlayer(tick uint64, id string) error {
	h, ok := w.byID[id]
	if !ok {
		return ErrUnknownActor
	}
	if h.player == nil {
		return ErrNotPlayer
	}

	w.occupancy.Vacate(id)
	w.selector.DropCandidate(id)
	delete(w.byID, id)
	for i, p := range w.players {
		if p.ID == id {
			w.players = append(w.players[:i], w.players[i+1:]...)
			break
		}
	}
	w.removeFromOrder(id)

	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindDespawn,
		Subject: id,
	})
	return nil
}

// SpawnMob places a mob exactly at spec.Origin. Spawn points are authored
// data, so a blocked placement is an error rather than a nudge.
func (w *World) SpawnMob(tick uint64, spec MobSpec) (string, error) {
	if len(w.byID) >= w.cfg.EntityLimit {
		return "", ErrWorldFull
	}
	size := spec.Size
	if size < 1 {
		size = 1
	}
	id := spec.ID
	if id == "" {
		name := spec.Archetype
		if name == "" {
			name = "mob"
		}
		id = fmt.Sprintf("%s-%d", name, w.nextCreatedSeq)
	}
	if _, exists := w.byID[id]; exists {
		return "", ErrDuplicateID
	}

	fp := grid.FootprintAt(spec.Origin, size)
	if !w.terrainFits(fp) {
		return "", ErrUnwalkable
	}
	blocking := !spec.IgnoresCollision
	if err := w.occupancy.Occupy(id, fp, blocking); err != nil {
		return "", fmt.Errorf("world: claim spawn tiles: %w", err)
	}

	levels := spec.Levels.Normalized()
	health := levels.Hitpoints
	speed := spec.WeaponSpeed
	if speed < 1 {
		speed = stats.UnarmedSpeed
	}
	attackRange := spec.AttackRange
	if attackRange < 1 {
		attackRange = 1
	}
	level := spec.Level
	if level < 1 {
		level = 1
	}

	m := &Mob{
		actorState: actorState{
			ID:          id,
			CreatedSeq:  w.nextCreatedSeq,
			Footprint:   fp,
			SpawnAnchor: spec.Origin,
			Blocking:    blocking,
			Health:      health,
			Levels:      levels,
			Bonuses:     spec.Bonuses,
			WeaponSpeed: speed,
			AttackRange: attackRange,
		},
		Archetype:    spec.Archetype,
		Level:        level,
		HuntRange:    spec.HuntRange,
		LeashRange:   spec.LeashRange,
		WanderRadius: spec.WanderRadius,
		Aggressive:   spec.Aggressive,
		RespawnDelay: spec.RespawnDelay,
	}
	m.Combat.AutoRetaliate = true
	m.NextWanderTick = tick + wanderBaseDelayTicks
	w.nextCreatedSeq++

	h := entityHandle{mob: m}
	w.mobs = append(w.mobs, m)
	w.byID[id] = h
	w.order = append(w.order, h)

	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindSpawn,
		Subject: id,
		Spawn: &journal.SpawnPayload{
			Archetype:     spec.Archetype,
			Origin:        spec.Origin,
			Size:          size,
			Health:        health,
			Levels:        levels,
			Bonuses:       spec.Bonuses,
			AutoRetaliate: true,
			WeaponSpeed:   speed,
			AttackRange:   attackRange,
			Blocking:      blocking,
			CreatedSeq:    m.CreatedSeq,
		},
	})
	return id, nil
}

func (w *World) removeFromOrder(id string) {
	for i, h := range w.order {
		a := h.actor()
		if a != nil && a.ID == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// terrainFits reports whether every tile of the footprint is walkable.
func (w *World) terrainFits(fp grid.Footprint) bool {
	fits := true
	fp.Tiles(func(t grid.Tile) bool {
		if !w.terrain.Walkable(t) {
			fits = false
			return false
		}
		return true
	})
	return fits
}

// placementFits reports whether a footprint can be claimed: walkable
// terrain throughout, and for blocking entities no tile held by another
// blocker.
func (w *World) placementFits(fp grid.Footprint, selfID string, blocking bool) bool {
	fits := true
	fp.Tiles(func(t grid.Tile) bool {
		if !w.terrain.Walkable(t) || (blocking && w.occupancy.IsBlocked(t, selfID)) {
			fits = false
			return false
		}
		return true
	})
	return fits
}

// findPlacement ring-searches outward from anchor for the nearest origin
// where a size-by-size footprint fits, scanning each ring in a fixed order
// so placement is deterministic.
func (w *World) findPlacement(anchor grid.Tile, size int, selfID string, blocking bool) (grid.Tile, bool) {
	for r := 0; r <= placementSearchRadius; r++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if maxAbs(dx, dz) != r {
					continue
				}
				origin := anchor.Add(dx, dz)
				if w.placementFits(grid.FootprintAt(origin, size), selfID, blocking) {
					return origin, true
				}
			}
		}
	}
	return grid.Tile{}, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

// CaptureSnapshot exports the full session state for the journal's snapshot
// ring and the persistence layer.
func (w *World) CaptureSnapshot(tick uint64) journal.Snapshot {
	entities := make([]journal.EntitySnapshot, 0, len(w.order))
	for _, h := range w.order {
		entities = append(entities, w.exportEntity(h))
	}
	seq, checksum := w.journal.Head()
	rngState, _ := w.pcg.MarshalBinary()
	return journal.Snapshot{
		Tick:           tick,
		Seq:            seq,
		Checksum:       checksum,
		WorldDigest:    journal.DigestEntities(tick, entities),
		RNGState:       rngState,
		Entities:       entities,
		Tolerance:      w.selector.ExportCounters(),
		NextCreatedSeq: w.nextCreatedSeq,
	}
}

// RestoreSnapshot rebuilds the session from a snapshot: population,
// occupancy claims, tolerance counters and the RNG stream position. The
// journal itself is not rewound; restoration continues the record.
func (w *World) RestoreSnapshot(snap journal.Snapshot) error {
	w.players = w.players[:0]
	w.mobs = w.mobs[:0]
	w.order = w.order[:0]
	w.byID = make(map[string]entityHandle, len(snap.Entities))
	w.occupancy = grid.NewOccupancy()

	var maxSeq uint64
	for i := range snap.Entities {
		e := &snap.Entities[i]
		h, err := w.importEntity(e)
		if err != nil {
			return err
		}
		w.byID[e.ID] = h
		w.order = append(w.order, h)
		if e.CreatedSeq > maxSeq {
			maxSeq = e.CreatedSeq
		}
		if !e.Dead {
			if err := w.occupancy.Occupy(e.ID, grid.FootprintAt(e.Origin, e.Size), e.Blocking); err != nil {
				return fmt.Errorf("world: restore occupancy for %s: %w", e.ID, err)
			}
		}
	}

	w.selector.RestoreCounters(snap.Tolerance)
	if len(snap.RNGState) > 0 {
		if err := w.pcg.UnmarshalBinary(snap.RNGState); err != nil {
			return fmt.Errorf("world: restore rng: %w", err)
		}
	}
	w.nextCreatedSeq = snap.NextCreatedSeq
	if w.nextCreatedSeq <= maxSeq {
		w.nextCreatedSeq = maxSeq + 1
	}
	w.tick = snap.Tick
	return nil
}

func (w *World) importEntity(e *journal.EntitySnapshot) (entityHandle, error) {
	core := actorState{
		ID:             e.ID,
		CreatedSeq:     e.CreatedSeq,
		Footprint:      grid.FootprintAt(e.Origin, e.Size),
		SpawnAnchor:    e.SpawnAnchor,
		Blocking:       e.Blocking,
		Health:         e.Health,
		Levels:         e.Levels,
		Bonuses:        e.Bonuses,
		WeaponSpeed:    e.WeaponSpeed,
		AttackRange:    e.AttackRange,
		RespawnTick:    e.RespawnTick,
		Path:           PathState{Target: e.PathTarget, Active: e.PathActive},
		FirstSwingTick: e.FirstSwingTick,
	}
	core.Combat.TargetID = e.TargetID
	core.Combat.NextAttackTick = e.NextAttackTick
	core.Combat.InCombat = e.InCombat
	core.Combat.LastCombatTick = e.LastCombatTick
	core.Combat.RetaliationPending = e.RetaliationPending
	core.Combat.AutoRetaliate = e.AutoRetaliate
	core.Combat.Style = e.Style
	core.Combat.Dead = e.Dead

	switch e.Kind {
	case journal.EntityPlayer:
		p := &Player{actorState: core}
		w.players = append(w.players, p)
		return entityHandle{player: p}, nil
	case journal.EntityMob:
		m := &Mob{
			actorState:     core,
			Archetype:      e.Archetype,
			Level:          e.Level,
			HuntRange:      e.HuntRange,
			LeashRange:     e.LeashRange,
			WanderRadius:   e.WanderRadius,
			Aggressive:     e.Aggressive,
			Phase:          parsePhase(e.Phase),
			NextWanderTick: e.NextWanderTick,
			RespawnDelay:   e.RespawnDelayTicks,
		}
		w.mobs = append(w.mobs, m)
		return entityHandle{mob: m}, nil
	default:
		return entityHandle{}, fmt.Errorf("world: snapshot entity %s has unknown kind %q", e.ID, e.Kind)
	}
}

func (w *World) exportEntity(h entityHandle) journal.EntitySnapshot {
	a := h.actor()
	e := journal.EntitySnapshot{
		ID:         a.ID,
		Kind:       h.kind(),
		CreatedSeq: a.CreatedSeq,

		Origin:      a.Origin(),
		Size:        a.Footprint.Size,
		SpawnAnchor: a.SpawnAnchor,
		Blocking:    a.Blocking,

		Health:      a.Health,
		Dead:        a.Combat.Dead,
		RespawnTick: a.RespawnTick,

		Levels:        a.Levels,
		Bonuses:       a.Bonuses,
		Style:         a.Combat.Style,
		AutoRetaliate: a.Combat.AutoRetaliate,
		WeaponSpeed:   a.WeaponSpeed,
		AttackRange:   a.AttackRange,

		TargetID:           a.Combat.TargetID,
		NextAttackTick:     a.Combat.NextAttackTick,
		InCombat:           a.Combat.InCombat,
		LastCombatTick:     a.Combat.LastCombatTick,
		RetaliationPending: a.Combat.RetaliationPending,

		PathTarget:     a.Path.Target,
		PathActive:     a.Path.Active,
		FirstSwingTick: a.FirstSwingTick,
	}
	if h.mob != nil {
		m := h.mob
		e.Archetype = m.Archetype
		e.Level = m.Level
		e.HuntRange = m.HuntRange
		e.LeashRange = m.LeashRange
		e.WanderRadius = m.WanderRadius
		e.Aggressive = m.Aggressive
		e.Phase = m.Phase.String()
		e.NextWanderTick = m.NextWanderTick
		e.RespawnDelayTicks = m.RespawnDelay
	}
	return e
}
