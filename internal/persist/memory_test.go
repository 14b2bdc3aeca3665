package persist

import (
	"context"
	"errors"
	"testing"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

func TestMemoryPrefsRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.LoadPrefs(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load before save: err = %v, want ErrNotFound", err)
	}

	want := PlayerPrefs{AutoRetaliate: false, Style: stats.StyleAggressive}
	if err := store.SavePrefs(ctx, "p1", want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := store.LoadPrefs(ctx, "p1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != want {
		t.Fatalf("loaded %+v, want %+v", got, want)
	}
}

func TestMemorySnapshotRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.LatestSnapshot(ctx, "session-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("latest before put: err = %v, want ErrNotFound", err)
	}

	snap := journal.Snapshot{
		Tick:           42,
		Seq:            17,
		Checksum:       0xdeadbeef,
		WorldDigest:    0xfeedface,
		RNGState:       []byte{1, 2, 3, 4},
		NextCreatedSeq: 5,
		Entities: []journal.EntitySnapshot{{
			ID:          "goblin-1",
			Kind:        journal.EntityMob,
			Archetype:   "goblin",
			CreatedSeq:  1,
			Origin:      grid.Tile{X: 10, Z: 12},
			Size:        1,
			SpawnAnchor: grid.Tile{X: 10, Z: 12},
			Blocking:    true,
			Health:      8,
			Levels:      stats.Levels{Attack: 3, Strength: 3, Defence: 2, Hitpoints: 8},
			WeaponSpeed: 4,
			AttackRange: 1,
		}},
		Tolerance: map[string]map[string]uint64{"goblin-1": {"p1": 7}},
	}
	if err := store.PutSnapshot(ctx, "session-a", snap); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.LatestSnapshot(ctx, "session-a")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if got.Tick != snap.Tick || got.Seq != snap.Seq || got.Checksum != snap.Checksum {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if len(got.Entities) != 1 || got.Entities[0] != snap.Entities[0] {
		t.Fatalf("entities mismatch: got %+v", got.Entities)
	}
	if string(got.RNGState) != string(snap.RNGState) {
		t.Fatalf("rng state mismatch: got %v", got.RNGState)
	}
	if got.Tolerance["goblin-1"]["p1"] != 7 {
		t.Fatalf("tolerance mismatch: got %v", got.Tolerance)
	}
}

func TestMemorySnapshotsAreIsolatedPerSession(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.PutSnapshot(ctx, "a", journal.Snapshot{Tick: 1}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := store.PutSnapshot(ctx, "b", journal.Snapshot{Tick: 2}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	snap, err := store.LatestSnapshot(ctx, "a")
	if err != nil {
		t.Fatalf("latest a: %v", err)
	}
	if snap.Tick != 1 {
		t.Fatalf("session a tick = %d, want 1", snap.Tick)
	}
}
