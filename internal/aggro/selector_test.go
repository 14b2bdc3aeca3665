package aggro

import (
	"math/rand/v2"
	"testing"

	"duskhaven/server/internal/grid"
)

func testHunter() Hunter {
	return Hunter{ID: "goblin-1", Anchor: grid.Tile{X: 0, Z: 0}, Level: 5, HuntRange: 5}
}

func candidateAt(id string, level int, tile grid.Tile) Candidate {
	return Candidate{ID: id, Level: level, Footprint: grid.FootprintAt(tile, 1)}
}

func TestSelectTargetUniformAcrossCandidates(t *testing.T) {
	sel := NewSelector(Config{})
	hunter := testHunter()
	candidates := []Candidate{
		candidateAt("p1", 3, grid.Tile{X: 1, Z: 0}),
		candidateAt("p2", 3, grid.Tile{X: 0, Z: 1}),
		candidateAt("p3", 3, grid.Tile{X: 4, Z: 4}),
		candidateAt("p4", 3, grid.Tile{X: 5, Z: 0}),
	}

	rng := rand.New(rand.NewPCG(99, 7))
	counts := make(map[string]int, 4)
	const trials = 10000
	for i := 0; i < trials; i++ {
		id, ok := sel.SelectTarget(rng, hunter, candidates)
		if !ok {
			t.Fatalf("selection failed on trial %d", i)
		}
		counts[id]++
	}

	// Proximity must not weight the pick: p1 sits adjacent, p4 at the rim,
	// and both should land near a quarter of the trials.
	for _, c := range candidates {
		got := counts[c.ID]
		if got < 2250 || got > 2750 {
			t.Fatalf("candidate %s picked %d/10000 times, want ~2500 (uniform)", c.ID, got)
		}
	}
}

func TestSelectTargetLevelGate(t *testing.T) {
	sel := NewSelector(Config{})
	hunter := testHunter() // level 5 gate: candidates above 10 ignored

	strong := candidateAt("p-strong", 11, grid.Tile{X: 1, Z: 0})
	weak := candidateAt("p-weak", 10, grid.Tile{X: 0, Z: 1})
	rng := rand.New(rand.NewPCG(1, 1))

	id, ok := sel.SelectTarget(rng, hunter, []Candidate{strong, weak})
	if !ok || id != "p-weak" {
		t.Fatalf("selection = %q ok=%v, want only the gated-in candidate p-weak", id, ok)
	}

	if _, ok := sel.SelectTarget(rng, hunter, []Candidate{strong}); ok {
		t.Fatalf("candidate above twice the hunter level must be ignored")
	}
}

func TestSelectTargetAlwaysAggressiveThreshold(t *testing.T) {
	sel := NewSelector(Config{})
	warden := Hunter{ID: "warden-1", Anchor: grid.Tile{X: 0, Z: 0}, Level: 92, HuntRange: 5}
	titan := candidateAt("p-titan", 999, grid.Tile{X: 1, Z: 0})

	rng := rand.New(rand.NewPCG(1, 1))
	if _, ok := sel.SelectTarget(rng, warden, []Candidate{titan}); !ok {
		t.Fatalf("hunter above the always-aggressive level ignores the gate")
	}
}

func TestSelectTargetHuntRangeFromAnchor(t *testing.T) {
	sel := NewSelector(Config{})
	hunter := testHunter()
	rng := rand.New(rand.NewPCG(1, 1))

	inRange := candidateAt("p-in", 3, grid.Tile{X: 5, Z: 5})
	outRange := candidateAt("p-out", 3, grid.Tile{X: 6, Z: 0})
	id, ok := sel.SelectTarget(rng, hunter, []Candidate{inRange, outRange})
	if !ok || id != "p-in" {
		t.Fatalf("selection = %q ok=%v, want p-in only", id, ok)
	}
}

func TestSelectTargetSkipsDeadAndExempt(t *testing.T) {
	sel := NewSelector(Config{})
	hunter := testHunter()
	rng := rand.New(rand.NewPCG(1, 1))

	dead := candidateAt("p-dead", 3, grid.Tile{X: 1, Z: 0})
	dead.Dead = true
	exempt := candidateAt("p-exempt", 3, grid.Tile{X: 0, Z: 1})
	exempt.Exempt = true

	if _, ok := sel.SelectTarget(rng, hunter, []Candidate{dead, exempt}); ok {
		t.Fatalf("dead and exempt candidates must never be selected")
	}
}

func TestToleranceExpiresAggression(t *testing.T) {
	sel := NewSelector(Config{ToleranceTicks: 10})
	hunter := testHunter()
	lurker := []Candidate{candidateAt("p1", 3, grid.Tile{X: 2, Z: 2})}
	rng := rand.New(rand.NewPCG(3, 3))

	for i := 0; i < 9; i++ {
		sel.Tick(hunter, lurker)
	}
	if _, ok := sel.SelectTarget(rng, hunter, lurker); !ok {
		t.Fatalf("candidate below the tolerance threshold should still be eligible")
	}

	sel.Tick(hunter, lurker)
	if _, ok := sel.SelectTarget(rng, hunter, lurker); ok {
		t.Fatalf("candidate at the tolerance threshold must be ignored")
	}
}

func TestToleranceResetBeyondOuterBoundary(t *testing.T) {
	sel := NewSelector(Config{ToleranceTicks: 5})
	hunter := testHunter() // hunt 5, reset boundary 10
	rng := rand.New(rand.NewPCG(3, 3))

	near := []Candidate{candidateAt("p1", 3, grid.Tile{X: 1, Z: 1})}
	for i := 0; i < 5; i++ {
		sel.Tick(hunter, near)
	}
	if _, ok := sel.SelectTarget(rng, hunter, near); ok {
		t.Fatalf("tolerated candidate should be ignored")
	}

	// Inside the reset boundary the counter holds: still tolerated on return.
	middle := []Candidate{candidateAt("p1", 3, grid.Tile{X: 8, Z: 0})}
	sel.Tick(hunter, middle)
	if _, ok := sel.SelectTarget(rng, hunter, near); ok {
		t.Fatalf("counter must hold between the boundaries")
	}

	// Beyond the reset boundary the counter clears.
	far := []Candidate{candidateAt("p1", 3, grid.Tile{X: 11, Z: 0})}
	sel.Tick(hunter, far)
	if _, ok := sel.SelectTarget(rng, hunter, near); !ok {
		t.Fatalf("crossing the reset boundary should restore aggression")
	}
}

func TestSelectorForget(t *testing.T) {
	sel := NewSelector(Config{ToleranceTicks: 1})
	hunter := testHunter()
	prey := []Candidate{candidateAt("p1", 3, grid.Tile{X: 1, Z: 1})}
	sel.Tick(hunter, prey)

	rng := rand.New(rand.NewPCG(5, 5))
	if _, ok := sel.SelectTarget(rng, hunter, prey); ok {
		t.Fatalf("candidate should be tolerated")
	}

	sel.Forget(hunter.ID)
	if _, ok := sel.SelectTarget(rng, hunter, prey); !ok {
		t.Fatalf("forgetting the hunter should drop its tolerance state")
	}

	sel.Tick(hunter, prey)
	sel.DropCandidate("p1")
	if _, ok := sel.SelectTarget(rng, hunter, prey); !ok {
		t.Fatalf("dropping the candidate should clear its counters everywhere")
	}
}

func TestSelectorCountersRoundTrip(t *testing.T) {
	sel := NewSelector(Config{ToleranceTicks: 4})
	hunter := testHunter()
	prey := []Candidate{candidateAt("p1", 3, grid.Tile{X: 1, Z: 1})}
	for i := 0; i < 4; i++ {
		sel.Tick(hunter, prey)
	}

	exported := sel.ExportCounters()
	if exported[hunter.ID]["p1"] != 4 {
		t.Fatalf("exported counter = %d, want 4", exported[hunter.ID]["p1"])
	}

	restored := NewSelector(Config{ToleranceTicks: 4})
	restored.RestoreCounters(exported)
	rng := rand.New(rand.NewPCG(5, 5))
	if _, ok := restored.SelectTarget(rng, hunter, prey); ok {
		t.Fatalf("restored selector should carry the tolerance state")
	}

	// Mutating the export must not leak back into the source selector.
	exported[hunter.ID]["p1"] = 0
	if sel.ExportCounters()[hunter.ID]["p1"] != 4 {
		t.Fatalf("ExportCounters should deep-copy")
	}
}
