package world

import (
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/stats"
)

// Intent methods are the only way player input reaches the world. Each one
// validates, mutates, and records; none of them move anything — movement
// and swings happen in Advance, on the tick.

// player resolves an intent's actor, enforcing the player-only rule.
func (w *World) player(id string) (*Player, error) {
	h, ok := w.byID[id]
	if !ok {
		return nil, ErrUnknownActor
	}
	if h.player == nil {
		return nil, ErrNotPlayer
	}
	return h.player, nil
}

// ApplyWalk points the player at a destination tile. An explicit walk
// breaks off the current engagement: the target is dropped, though the
// in-combat flag keeps running until it times out.
func (w *World) ApplyWalk(tick uint64, id string, dest grid.Tile) error {
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if !p.Alive() {
		return ErrDeadActor
	}
	if !w.terrainFits(p.Footprint.MoveTo(dest)) {
		return ErrUnwalkable
	}
	if p.Combat.TargetID != "" {
		w.recordUntarget(tick, id, journal.UntargetDisengage)
		p.Combat.SetTarget("")
		p.FirstSwingTick = 0
	}
	p.Path = PathState{Target: dest, Active: true}
	return nil
}

// ApplyAttack aims the player at a target. The world takes over from here:
// Advance chases the target while out of range and swings while in range.
// Re-issuing the same target is a no-op so a held key does not reset the
// windup.
func (w *World) ApplyAttack(tick uint64, id, targetID string) error {
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if !p.Alive() {
		return ErrDeadActor
	}
	if targetID == id {
		return ErrSelfTarget
	}
	target, ok := w.byID[targetID]
	if !ok {
		return ErrUnknownTarget
	}
	if !target.actor().Alive() {
		return ErrDeadTarget
	}
	if p.Combat.TargetID == targetID {
		return nil
	}
	w.acquireTarget(tick, &p.actorState, targetID)
	return nil
}

// ApplyDisengage drops the player's engagement unilaterally. Whoever was
// hitting the player keeps doing so; this only stops the player's own
// swings.
func (w *World) ApplyDisengage(tick uint64, id string) error {
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if p.Combat.TargetID != "" {
		w.recordUntarget(tick, id, journal.UntargetDisengage)
	}
	p.Combat.Disengage()
	p.FirstSwingTick = 0
	return nil
}

// SetAutoRetaliate flips the auto-retaliate preference. Allowed while
// dead; it is a preference, not an action.
func (w *World) SetAutoRetaliate(tick uint64, id string, enabled bool) error {
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if p.Combat.AutoRetaliate == enabled {
		return nil
	}
	p.Combat.AutoRetaliate = enabled
	w.journal.Record(journal.Event{
		Tick:       tick,
		Kind:       journal.KindPreference,
		Subject:    id,
		Preference: &journal.PreferencePayload{AutoRetaliate: enabled},
	})
	return nil
}

// SetStyle switches the player's attack style. The new style applies from
// the next swing; cooldowns already in flight are untouched.
func (w *World) SetStyle(tick uint64, id string, style stats.Style) error {
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if !style.Valid() {
		return ErrInvalidStyle
	}
	if p.Combat.Style == style {
		return nil
	}
	p.Combat.Style = style
	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindStyle,
		Subject: id,
		Style:   &journal.StylePayload{Style: style},
	})
	return nil
}

// acquireTarget points an actor at a fresh target: its walk path is
// abandoned, the acquisition windup starts, and the change is recorded.
func (w *World) acquireTarget(tick uint64, a *actorState, targetID string) {
	if err := a.Combat.SetTarget(targetID); err != nil {
		return
	}
	a.Path.Active = false
	a.FirstSwingTick = 0
	if w.cfg.FirstAttackDelayTicks > 0 {
		a.FirstSwingTick = tick + w.cfg.FirstAttackDelayTicks
	}
	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindTarget,
		Subject: a.ID,
		Target:  targetID,
	})
}
