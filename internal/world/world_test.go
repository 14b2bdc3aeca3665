package world

import (
	"errors"
	"testing"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

func testConfig() Config {
	return Config{
		Seed:   "world-test",
		Width:  48,
		Height: 48,
		Spawn:  grid.Tile{X: 16, Z: 16},
	}
}

func newTestWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w, err := New(cfg, Deps{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func mustJoin(t *testing.T, w *World, tick uint64, id string) grid.Tile {
	t.Helper()
	origin, err := w.JoinPlayer(tick, id, DefaultPlayerPrefs(), stats.Loadout{})
	if err != nil {
		t.Fatalf("JoinPlayer(%s): %v", id, err)
	}
	return origin
}

func mustSpawnMob(t *testing.T, w *World, tick uint64, spec MobSpec) *Mob {
	t.Helper()
	id, err := w.SpawnMob(tick, spec)
	if err != nil {
		t.Fatalf("SpawnMob(%s): %v", spec.Archetype, err)
	}
	return w.byID[id].mob
}

func playerState(t *testing.T, w *World, id string) *Player {
	t.Helper()
	h, ok := w.byID[id]
	if !ok || h.player == nil {
		t.Fatalf("player %s not found", id)
	}
	return h.player
}

func eventsOfKind(w *World, kind journal.Kind) []journal.Event {
	var out []journal.Event
	for _, e := range w.journal.EventsSinceSeq(0) {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// goblinSpec is the stock aggressive melee mob the pipeline tests lean on.
func goblinSpec(origin grid.Tile) MobSpec {
	return MobSpec{
		Archetype:    "goblin",
		Level:        5,
		Origin:       origin,
		Levels:       stats.Levels{Attack: 5, Strength: 5, Defence: 3, Hitpoints: 12},
		WeaponSpeed:  4,
		AttackRange:  1,
		HuntRange:    6,
		LeashRange:   12,
		Aggressive:   true,
		RespawnDelay: 10,
	}
}

func TestNewWorldAppliesDefaults(t *testing.T) {
	w := newTestWorld(t, Config{})
	cfg := w.Config()
	if cfg.Seed != DefaultSeed {
		t.Fatalf("seed = %q, want %q", cfg.Seed, DefaultSeed)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("dims = %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultWidth, DefaultHeight)
	}
	if want := (grid.Tile{X: DefaultWidth / 2, Z: DefaultHeight / 2}); cfg.Spawn != want {
		t.Fatalf("spawn = %v, want %v", cfg.Spawn, want)
	}
	if cfg.CombatTimeoutTicks != DefaultCombatTimeoutTicks {
		t.Fatalf("combat timeout = %d, want %d", cfg.CombatTimeoutTicks, DefaultCombatTimeoutTicks)
	}
	if want := (stats.Levels{Attack: 1, Strength: 1, Defence: 1, Hitpoints: 10}); cfg.StartingLevels != want {
		t.Fatalf("starting levels = %+v, want %+v", cfg.StartingLevels, want)
	}
}

func TestJoinPlayerPlacesAtSpawn(t *testing.T) {
	w := newTestWorld(t, testConfig())
	origin := mustJoin(t, w, 0, "alice")
	if origin != w.cfg.Spawn {
		t.Fatalf("placed at %v, want spawn %v", origin, w.cfg.Spawn)
	}
	p := playerState(t, w, "alice")
	if p.Health != 10 {
		t.Fatalf("health = %d, want starting hitpoints 10", p.Health)
	}
	if p.WeaponSpeed != stats.UnarmedSpeed {
		t.Fatalf("weapon speed = %d, want unarmed %d", p.WeaponSpeed, stats.UnarmedSpeed)
	}
	if holder, ok := w.occupancy.BlockerAt(origin); !ok || holder != "alice" {
		t.Fatalf("spawn tile blocker = %q/%v, want alice", holder, ok)
	}

	spawns := eventsOfKind(w, journal.KindSpawn)
	if len(spawns) != 1 {
		t.Fatalf("spawn events = %d, want 1", len(spawns))
	}
	payload := spawns[0].Spawn
	if payload == nil || !payload.Player || payload.Origin != origin || !payload.Blocking {
		t.Fatalf("spawn payload = %+v, want player at %v blocking", payload, origin)
	}
	if payload.CreatedSeq != 1 {
		t.Fatalf("created seq = %d, want 1", payload.CreatedSeq)
	}
}

func TestJoinPlayerSpiralsWhenSpawnHeld(t *testing.T) {
	w := newTestWorld(t, testConfig())
	mustJoin(t, w, 0, "alice")

	// The ring scan is fixed order: row above first, west to east.
	if origin := mustJoin(t, w, 0, "bob"); origin != (grid.Tile{X: 15, Z: 15}) {
		t.Fatalf("second join placed at %v, want {15 15}", origin)
	}
	if origin := mustJoin(t, w, 0, "carol"); origin != (grid.Tile{X: 16, Z: 15}) {
		t.Fatalf("third join placed at %v, want {16 15}", origin)
	}
}

func TestJoinPlayerValidation(t *testing.T) {
	cfg := testConfig()
	cfg.EntityLimit = 2
	w := newTestWorld(t, cfg)

	if _, err := w.JoinPlayer(0, "", DefaultPlayerPrefs(), stats.Loadout{}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("empty id err = %v, want ErrMissingID", err)
	}
	mustJoin(t, w, 0, "alice")
	if _, err := w.JoinPlayer(0, "alice", DefaultPlayerPrefs(), stats.Loadout{}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateID", err)
	}
	mustJoin(t, w, 0, "bob")
	if _, err := w.JoinPlayer(0, "carol", DefaultPlayerPrefs(), stats.Loadout{}); !errors.Is(err, ErrWorldFull) {
		t.Fatalf("capacity err = %v, want ErrWorldFull", err)
	}
}

func TestJoinPlayerFoldsLoadout(t *testing.T) {
	w := newTestWorld(t, testConfig())
	var loadout stats.Loadout
	if err := loadout.Equip(stats.Item{ID: "bronze-sword", Slot: stats.SlotWeapon, Bonuses: stats.Bonuses{Attack: 4, Strength: 3}, Speed: 5}); err != nil {
		t.Fatalf("equip weapon: %v", err)
	}
	if err := loadout.Equip(stats.Item{ID: "wooden-shield", Slot: stats.SlotShield, Bonuses: stats.Bonuses{Defence: 4}}); err != nil {
		t.Fatalf("equip shield: %v", err)
	}
	if _, err := w.JoinPlayer(0, "alice", DefaultPlayerPrefs(), loadout); err != nil {
		t.Fatalf("JoinPlayer: %v", err)
	}
	p := playerState(t, w, "alice")
	if want := (stats.Bonuses{Attack: 4, Strength: 3, Defence: 4}); p.Bonuses != want {
		t.Fatalf("bonuses = %+v, want %+v", p.Bonuses, want)
	}
	if p.WeaponSpeed != 5 {
		t.Fatalf("weapon speed = %d, want 5", p.WeaponSpeed)
	}
}

func TestRemovePlayerFreesEverything(t *testing.T) {
	w := newTestWorld(t, testConfig())
	origin := mustJoin(t, w, 0, "alice")
	mob := mustSpawnMob(t, w, 0, goblinSpec(grid.Tile{X: 20, Z: 16}))
	w.selector.RestoreCounters(map[string]map[string]uint64{mob.ID: {"alice": 7}})

	if err := w.RemovePlayer(1, "alice"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if _, ok := w.byID["alice"]; ok {
		t.Fatalf("player still indexed after removal")
	}
	if _, ok := w.occupancy.BlockerAt(origin); ok {
		t.Fatalf("spawn tile still blocked after removal")
	}
	if len(w.order) != 1 || w.order[0].mob != mob {
		t.Fatalf("digest order not spliced: %d entries", len(w.order))
	}
	if counters := w.selector.ExportCounters(); counters[mob.ID]["alice"] != 0 {
		t.Fatalf("tolerance counter survived removal: %v", counters)
	}
	if got := len(eventsOfKind(w, journal.KindDespawn)); got != 1 {
		t.Fatalf("despawn events = %d, want 1", got)
	}

	if err := w.RemovePlayer(1, "alice"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("second removal err = %v, want ErrUnknownActor", err)
	}
	if err := w.RemovePlayer(1, mob.ID); !errors.Is(err, ErrNotPlayer) {
		t.Fatalf("mob removal err = %v, want ErrNotPlayer", err)
	}
}

func TestSpawnMobPlacesExactly(t *testing.T) {
	cfg := testConfig()
	cfg.Walls = []Rect{{X: 30, Z: 30, Width: 2, Height: 2}}
	w := newTestWorld(t, cfg)
	mustJoin(t, w, 0, "alice")

	mob := mustSpawnMob(t, w, 0, goblinSpec(grid.Tile{X: 20, Z: 16}))
	if mob.ID != "goblin-2" {
		t.Fatalf("generated id = %q, want goblin-2", mob.ID)
	}
	if mob.Origin() != (grid.Tile{X: 20, Z: 16}) {
		t.Fatalf("mob origin = %v, want {20 16}", mob.Origin())
	}
	if mob.Health != 12 {
		t.Fatalf("mob health = %d, want hitpoints 12", mob.Health)
	}

	// Authored spawn points fail loudly instead of nudging.
	blocked := goblinSpec(grid.Tile{X: 30, Z: 30})
	if _, err := w.SpawnMob(0, blocked); !errors.Is(err, ErrUnwalkable) {
		t.Fatalf("walled spawn err = %v, want ErrUnwalkable", err)
	}
}

func TestNonBlockingMobSharesTiles(t *testing.T) {
	w := newTestWorld(t, testConfig())
	spec := goblinSpec(grid.Tile{X: 20, Z: 16})
	spec.Archetype = "ghoul"
	spec.IgnoresCollision = true
	mob := mustSpawnMob(t, w, 0, spec)

	if mob.Blocking {
		t.Fatalf("collision-ignoring mob marked blocking")
	}
	if _, ok := w.occupancy.BlockerAt(mob.Origin()); ok {
		t.Fatalf("non-blocking mob claimed a blocker slot")
	}
	// A second blocking mob may claim the very same tile.
	if _, err := w.SpawnMob(0, goblinSpec(grid.Tile{X: 20, Z: 16})); err != nil {
		t.Fatalf("blocking spawn over non-blocking mob: %v", err)
	}
}

func TestIntentValidation(t *testing.T) {
	w := newTestWorld(t, testConfig())
	mustJoin(t, w, 0, "alice")
	mob := mustSpawnMob(t, w, 0, goblinSpec(grid.Tile{X: 20, Z: 16}))

	if err := w.ApplyWalk(1, "ghost", grid.Tile{X: 17, Z: 16}); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("unknown actor err = %v", err)
	}
	if err := w.ApplyWalk(1, mob.ID, grid.Tile{X: 17, Z: 16}); !errors.Is(err, ErrNotPlayer) {
		t.Fatalf("mob walk err = %v", err)
	}
	if err := w.ApplyWalk(1, "alice", grid.Tile{X: -1, Z: 0}); !errors.Is(err, ErrUnwalkable) {
		t.Fatalf("out of bounds walk err = %v", err)
	}
	if err := w.ApplyAttack(1, "alice", "alice"); !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("self target err = %v", err)
	}
	if err := w.ApplyAttack(1, "alice", "ghost"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("unknown target err = %v", err)
	}
	if err := w.SetStyle(1, "alice", stats.Style(99)); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("invalid style err = %v", err)
	}
}

func TestWalkBreaksEngagement(t *testing.T) {
	w := newTestWorld(t, testConfig())
	mustJoin(t, w, 0, "alice")
	mob := mustSpawnMob(t, w, 0, goblinSpec(grid.Tile{X: 20, Z: 16}))

	if err := w.ApplyAttack(1, "alice", mob.ID); err != nil {
		t.Fatalf("ApplyAttack: %v", err)
	}
	p := playerState(t, w, "alice")
	if p.Combat.TargetID != mob.ID {
		t.Fatalf("target = %q, want %q", p.Combat.TargetID, mob.ID)
	}
	if len(eventsOfKind(w, journal.KindTarget)) != 1 {
		t.Fatalf("expected one target event")
	}

	// Re-issuing the same target must not record another acquisition.
	if err := w.ApplyAttack(1, "alice", mob.ID); err != nil {
		t.Fatalf("repeat ApplyAttack: %v", err)
	}
	if len(eventsOfKind(w, journal.KindTarget)) != 1 {
		t.Fatalf("repeat attack recorded a second target event")
	}

	if err := w.ApplyWalk(2, "alice", grid.Tile{X: 10, Z: 16}); err != nil {
		t.Fatalf("ApplyWalk: %v", err)
	}
	if p.Combat.TargetID != "" {
		t.Fatalf("walk kept target %q", p.Combat.TargetID)
	}
	if !p.Path.Active {
		t.Fatalf("walk path not active")
	}
	untargets := eventsOfKind(w, journal.KindUntarget)
	if len(untargets) != 1 || untargets[0].Untarget.Reason != journal.UntargetDisengage {
		t.Fatalf("untarget events = %+v, want one disengage", untargets)
	}
}

func TestPreferenceIntents(t *testing.T) {
	w := newTestWorld(t, testConfig())
	mustJoin(t, w, 0, "alice")

	if err := w.SetAutoRetaliate(1, "alice", false); err != nil {
		t.Fatalf("SetAutoRetaliate: %v", err)
	}
	if err := w.SetAutoRetaliate(1, "alice", false); err != nil {
		t.Fatalf("repeat SetAutoRetaliate: %v", err)
	}
	if got := len(eventsOfKind(w, journal.KindPreference)); got != 1 {
		t.Fatalf("preference events = %d, want 1 (no-op must not record)", got)
	}

	if err := w.SetStyle(1, "alice", stats.StyleAggressive); err != nil {
		t.Fatalf("SetStyle: %v", err)
	}
	if err := w.SetStyle(1, "alice", stats.StyleAggressive); err != nil {
		t.Fatalf("repeat SetStyle: %v", err)
	}
	if got := len(eventsOfKind(w, journal.KindStyle)); got != 1 {
		t.Fatalf("style events = %d, want 1 (no-op must not record)", got)
	}

	prefs, ok := w.PlayerPrefs("alice")
	if !ok {
		t.Fatalf("PlayerPrefs missing")
	}
	if prefs.AutoRetaliate || prefs.Style != stats.StyleAggressive {
		t.Fatalf("prefs = %+v, want auto-retaliate off, aggressive", prefs)
	}
}

func TestCaptureAndRestoreSnapshot(t *testing.T) {
	cfg := testConfig()
	w := newTestWorld(t, cfg)
	origin := mustJoin(t, w, 0, "alice")
	mob := mustSpawnMob(t, w, 0, goblinSpec(grid.Tile{X: 20, Z: 16}))
	if err := w.ApplyAttack(1, "alice", mob.ID); err != nil {
		t.Fatalf("ApplyAttack: %v", err)
	}
	for tick := uint64(1); tick <= 5; tick++ {
		w.Advance(tick)
	}

	snap := w.CaptureSnapshot(5)
	if snap.Tick != 5 || len(snap.Entities) != 2 {
		t.Fatalf("snapshot tick=%d entities=%d, want 5 and 2", snap.Tick, len(snap.Entities))
	}
	if len(snap.RNGState) == 0 {
		t.Fatalf("snapshot missing rng state")
	}
	if snap.NextCreatedSeq != 3 {
		t.Fatalf("next created seq = %d, want 3", snap.NextCreatedSeq)
	}

	restored := newTestWorld(t, cfg)
	if err := restored.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if restored.Tick() != 5 || restored.EntityCount() != 2 {
		t.Fatalf("restored tick=%d entities=%d", restored.Tick(), restored.EntityCount())
	}
	p := playerState(t, restored, "alice")
	if p.Origin() != playerState(t, w, "alice").Origin() {
		t.Fatalf("restored player origin %v != live %v", p.Origin(), playerState(t, w, "alice").Origin())
	}
	if _, ok := restored.occupancy.BlockerAt(p.Origin()); !ok {
		t.Fatalf("restored player does not hold its tiles")
	}
	_ = origin

	// Both worlds must now advance identically: same entities, same RNG
	// stream position, same aggro counters.
	for tick := uint64(6); tick <= 20; tick++ {
		live := w.Advance(tick)
		again := restored.Advance(tick)
		if live.Digest != again.Digest {
			t.Fatalf("digest diverged at tick %d: live %x restored %x", tick, live.Digest, again.Digest)
		}
	}
}
