package combat

import (
	"errors"

	"duskhaven/server/internal/stats"
)

// ErrDeadCombatant rejects operations that need a living combatant.
var ErrDeadCombatant = errors.New("combat: combatant is dead")

// State is the combat half of an entity: who it wants to hit, when it may
// swing next, and whether it is considered in combat. All timing fields are
// absolute tick numbers; nothing in here counts down.
//
// Use NewState for the gameplay default (auto-retaliate on); the zero
// value is an idle combatant that ignores being struck.
type State struct {
	TargetID           string
	NextAttackTick     uint64
	InCombat           bool
	LastCombatTick     uint64
	RetaliationPending bool
	AutoRetaliate      bool
	Style              stats.Style
	Dead               bool

	// lastSwingTick guards within-tick cooldown monotonicity: once this
	// tick's swing sets NextAttackTick, a retaliation counter from a hit
	// landing later in the same tick must not pull it back down.
	lastSwingTick uint64
	hasSwung      bool
}

// NewState returns an idle combatant with auto-retaliate enabled.
func NewState() State {
	return State{AutoRetaliate: true}
}

// CanAttack reports whether the combatant's cooldown has elapsed.
func (s *State) CanAttack(tick uint64) bool {
	return !s.Dead && tick >= s.NextAttackTick
}

// RecordSwing commits an attack made this tick: the next swing becomes
// eligible exactly speed ticks later, and combat activity is refreshed.
func (s *State) RecordSwing(tick uint64, speed int) {
	if speed < 1 {
		speed = 1
	}
	s.NextAttackTick = tick + uint64(speed)
	s.lastSwingTick = tick
	s.hasSwung = true
	s.touchCombat(tick)
	s.RetaliationPending = false
}

// Struck registers an incoming hit from attackerID. speed is this
// combatant's own weapon speed, used to wind up a counter-swing. It returns
// true when a retaliation swing was scheduled.
//
// The defender is marked in combat either way. Only an idle defender (no
// current target) with auto-retaliate enabled turns on its attacker; a
// combatant already fighting keeps its target and its schedule. The
// retaliation counter is tick + ceil(speed/2) + 1: a stale, already elapsed
// cooldown is replaced by it, a pending future swing is only ever moved
// earlier, and a cooldown set by this tick's own swing is never lowered.
func (s *State) Struck(tick uint64, attackerID string, speed int) bool {
	if s.Dead {
		return false
	}
	s.InCombat = true
	s.LastCombatTick = tick
	if !s.AutoRetaliate || attackerID == "" || s.TargetID != "" {
		return false
	}
	s.TargetID = attackerID
	s.RetaliationPending = true
	counter := RetaliationTick(tick, speed)
	switch {
	case s.hasSwung && s.lastSwingTick == tick:
		// This tick's own swing owns the cooldown.
	case s.NextAttackTick <= tick || counter < s.NextAttackTick:
		s.NextAttackTick = counter
	}
	return true
}

// RetaliationTick computes the first tick a freshly struck defender may
// counter-swing: tick + ceil(speed/2) + 1. A speed-4 defender struck at
// tick 100 counters at tick 103.
func RetaliationTick(tick uint64, speed int) uint64 {
	if speed < 1 {
		speed = 1
	}
	return tick + uint64((speed+1)/2) + 1
}

// SetTarget aims the combatant at id. Dead combatants accept no target.
func (s *State) SetTarget(id string) error {
	if s.Dead {
		return ErrDeadCombatant
	}
	if s.TargetID != id {
		s.RetaliationPending = false
	}
	s.TargetID = id
	return nil
}

// Disengage drops the combatant's own engagement. It is strictly
// unilateral: whoever is targeting this combatant keeps doing so.
func (s *State) Disengage() {
	s.TargetID = ""
	s.InCombat = false
	s.RetaliationPending = false
}

// ExpireCombat clears the in-combat flag once timeout ticks have passed
// with no combat activity. It reports whether the flag flipped.
func (s *State) ExpireCombat(tick uint64, timeout uint64) bool {
	if !s.InCombat || timeout == 0 {
		return false
	}
	if tick < s.LastCombatTick+timeout {
		return false
	}
	s.InCombat = false
	s.RetaliationPending = false
	return true
}

// Kill puts the combatant into its terminal state.
func (s *State) Kill() {
	s.Dead = true
	s.TargetID = ""
	s.InCombat = false
	s.RetaliationPending = false
}

// Revive resets the combat half for a respawn, keeping player-owned
// preferences (style, auto-retaliate) intact.
func (s *State) Revive() {
	s.Dead = false
	s.TargetID = ""
	s.InCombat = false
	s.RetaliationPending = false
	s.NextAttackTick = 0
	s.LastCombatTick = 0
	s.lastSwingTick = 0
	s.hasSwung = false
}

func (s *State) touchCombat(tick uint64) {
	s.InCombat = true
	s.LastCombatTick = tick
}
