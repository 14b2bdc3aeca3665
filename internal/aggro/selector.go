// Package aggro decides which candidate a hunting entity turns on. The
// selector is deliberately unfair to no one: every eligible candidate has
// the same chance, and repeated exposure is what eventually buys safety
// through the tolerance timer.
package aggro

import (
	"duskhaven/server/internal/combat"
	"duskhaven/server/internal/grid"
)

// Source is the single RNG draw the selector consumes per selection.
type Source interface {
	IntN(n int) int
}

// Config tunes eligibility. The zero value normalizes to the gameplay
// defaults.
type Config struct {
	// LevelGateMultiplier bounds who a hunter bothers: a candidate is
	// eligible while candidateLevel <= hunterLevel * multiplier.
	LevelGateMultiplier int
	// AlwaysAggressiveLevel is the hunter level at which the gate stops
	// applying entirely.
	AlwaysAggressiveLevel int
	// ToleranceTicks is how long a candidate can linger inside the
	// tolerance boundary before this hunter stops caring about it.
	ToleranceTicks uint64
	// ResetRangeMultiplier scales the hunt range into the outer boundary
	// a candidate must cross for its tolerance counter to reset.
	ResetRangeMultiplier int
}

// Normalized fills zero fields with defaults.
func (c Config) Normalized() Config {
	if c.LevelGateMultiplier <= 0 {
		c.LevelGateMultiplier = 2
	}
	if c.AlwaysAggressiveLevel <= 0 {
		c.AlwaysAggressiveLevel = 64
	}
	if c.ToleranceTicks == 0 {
		c.ToleranceTicks = 1000
	}
	if c.ResetRangeMultiplier <= 1 {
		c.ResetRangeMultiplier = 2
	}
	return c
}

// Hunter is the aggressor's view handed to the selector each tick.
// Anchor is the hunter's current minimum-coordinate occupied tile, so
// detection moves with the body.
type Hunter struct {
	ID        string
	Anchor    grid.Tile
	Level     int
	HuntRange int
}

// Candidate is one potential victim. Candidates are rebuilt every tick
// into a scratch slice owned by the world; the selector never retains them.
type Candidate struct {
	ID        string
	Level     int
	Footprint grid.Footprint
	Dead      bool
	Exempt    bool
}

// Selector owns the per-hunter tolerance counters and the selection rule.
// One selector serves a whole world; it is touched only by the tick
// pipeline.
type Selector struct {
	cfg      Config
	counters map[string]map[string]uint64
	eligible []int
}

// NewSelector builds a selector with cfg's defaults applied.
func NewSelector(cfg Config) *Selector {
	return &Selector{
		cfg:      cfg.Normalized(),
		counters: make(map[string]map[string]uint64),
		eligible: make([]int, 0, 16),
	}
}

// Tick accrues tolerance for every candidate inside the hunter's tolerance
// boundary and resets counters for candidates beyond the reset boundary.
// Call it once per tick per aggressive hunter, fighting or not; lingering
// in a hunter's patch buys safety even mid-fight.
func (s *Selector) Tick(hunter Hunter, candidates []Candidate) {
	resetRange := hunter.HuntRange * s.cfg.ResetRangeMultiplier
	bucket := s.counters[hunter.ID]
	for _, c := range candidates {
		if c.Dead {
			continue
		}
		switch {
		case combat.WithinHuntRange(hunter.Anchor, c.Footprint, hunter.HuntRange):
			if bucket == nil {
				bucket = make(map[string]uint64)
				s.counters[hunter.ID] = bucket
			}
			bucket[c.ID]++
		case !combat.WithinHuntRange(hunter.Anchor, c.Footprint, resetRange):
			if bucket != nil {
				delete(bucket, c.ID)
			}
		}
		// Between the two boundaries the counter holds its value.
	}
}

// SelectTarget picks uniformly among the eligible candidates, consuming
// exactly one RNG draw when anything is eligible. Proximity never weights
// the pick; four equally eligible candidates are each chosen about a
// quarter of the time.
func (s *Selector) SelectTarget(src Source, hunter Hunter, candidates []Candidate) (string, bool) {
	s.eligible = s.eligible[:0]
	for i, c := range candidates {
		if !s.Eligible(hunter, c) {
			continue
		}
		s.eligible = append(s.eligible, i)
	}
	if len(s.eligible) == 0 {
		return "", false
	}
	pick := s.eligible[src.IntN(len(s.eligible))]
	return candidates[pick].ID, true
}

// Eligible applies the full eligibility rule for one candidate: alive, not
// exempt, inside hunt range, inside the level gate and not yet tolerated.
func (s *Selector) Eligible(hunter Hunter, c Candidate) bool {
	if c.Dead || c.Exempt || c.ID == hunter.ID {
		return false
	}
	if !combat.WithinHuntRange(hunter.Anchor, c.Footprint, hunter.HuntRange) {
		return false
	}
	if hunter.Level < s.cfg.AlwaysAggressiveLevel &&
		c.Level > hunter.Level*s.cfg.LevelGateMultiplier {
		return false
	}
	if bucket, ok := s.counters[hunter.ID]; ok {
		if bucket[c.ID] >= s.cfg.ToleranceTicks {
			return false
		}
	}
	return true
}

// Forget drops all tolerance bookkeeping for a hunter that despawned.
func (s *Selector) Forget(hunterID string) {
	delete(s.counters, hunterID)
}

// DropCandidate removes a departed candidate from every hunter's counters.
func (s *Selector) DropCandidate(candidateID string) {
	for _, bucket := range s.counters {
		delete(bucket, candidateID)
	}
}

// ExportCounters copies the tolerance state for snapshots.
func (s *Selector) ExportCounters() map[string]map[string]uint64 {
	if len(s.counters) == 0 {
		return nil
	}
	out := make(map[string]map[string]uint64, len(s.counters))
	for hunter, bucket := range s.counters {
		if len(bucket) == 0 {
			continue
		}
		copied := make(map[string]uint64, len(bucket))
		for id, n := range bucket {
			copied[id] = n
		}
		out[hunter] = copied
	}
	return out
}

// RestoreCounters replaces the tolerance state from a snapshot.
func (s *Selector) RestoreCounters(counters map[string]map[string]uint64) {
	s.counters = make(map[string]map[string]uint64, len(counters))
	for hunter, bucket := range counters {
		copied := make(map[string]uint64, len(bucket))
		for id, n := range bucket {
			copied[id] = n
		}
		s.counters[hunter] = copied
	}
}
