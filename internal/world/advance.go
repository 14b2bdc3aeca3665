package world

import (
	"context"

	"duskhaven/server/internal/aggro"
	"duskhaven/server/internal/combat"
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/pathfind"
	combatlog "duskhaven/server/logging/combat"
	"duskhaven/server/logging/lifecycle"
)

const (
	// wanderBaseDelayTicks is the quiet gap between wander rolls.
	wanderBaseDelayTicks = 8
	// wanderJitterTicks bounds the random extra added to each gap.
	wanderJitterTicks = 25
)

// Advance runs one simulation tick: mobs act first, then players, each in
// creation order, and the tick is sealed with a digest of the resulting
// state. Entities process one at a time — an actor killed early in the
// tick is dead for everyone after it.
//
// RNG draws happen in a fixed order per branch (selection one draw, wander
// three, a swing one or two), so identical inputs replay identically.
func (w *World) Advance(tick uint64) journal.TickDigest {
	w.tick = tick
	for _, m := range w.mobs {
		w.processMob(tick, m)
	}
	for _, p := range w.players {
		w.processPlayer(tick, p)
	}
	return w.sealTick(tick)
}

func (w *World) sealTick(tick uint64) journal.TickDigest {
	w.exported = w.exported[:0]
	for _, h := range w.order {
		w.exported = append(w.exported, w.exportEntity(h))
	}
	return w.journal.SealTick(tick, journal.DigestEntities(tick, w.exported))
}

func (w *World) processMob(tick uint64, m *Mob) {
	if m.Combat.Dead {
		if m.RespawnTick != 0 && tick >= m.RespawnTick {
			w.respawnMob(tick, m)
		}
		return
	}

	m.Combat.ExpireCombat(tick, w.cfg.CombatTimeoutTicks)

	// Tolerance accrues every tick the hunter is alive, fighting or not.
	// Hunt range follows the body: a displaced mob scans from wherever it
	// stands, while the leash below stays pinned to the spawn anchor.
	var hunter aggro.Hunter
	var candidates []aggro.Candidate
	if m.Aggressive {
		hunter = aggro.Hunter{ID: m.ID, Anchor: m.Footprint.Origin, Level: m.Level, HuntRange: m.HuntRange}
		candidates = w.playerCandidates()
		w.selector.Tick(hunter, candidates)
	}

	// A dead or departed target is noticed here, the tick after it
	// happened, never mid-swing.
	if tid := m.Combat.TargetID; tid != "" {
		target, ok := w.byID[tid]
		reason := ""
		if !ok {
			reason = journal.UntargetTargetGone
		} else if !target.actor().Alive() {
			reason = journal.UntargetTargetDied
		}
		if reason != "" {
			w.clearEngagement(tick, &m.actorState, reason)
			if m.Phase == PhasePursuing {
				m.Phase = PhaseIdle
				m.NextWanderTick = tick + wanderBaseDelayTicks
			}
		}
	}

	// The leash is measured from the spawn anchor, which never moves, so
	// the boundary cannot creep as the mob is kited around.
	if m.Phase == PhasePursuing && m.LeashRange > 0 &&
		combat.BeyondLeash(m.SpawnAnchor, m.Footprint, m.LeashRange) {
		w.clearEngagement(tick, &m.actorState, journal.UntargetLeash)
		m.Phase = PhaseReturning
	}

	if m.Aggressive && m.Combat.TargetID == "" && m.Phase != PhaseReturning {
		if victim, ok := w.selector.SelectTarget(w.rng, hunter, candidates); ok {
			w.acquireTarget(tick, &m.actorState, victim)
			m.Phase = PhasePursuing

			eligible := 0
			for _, c := range candidates {
				if w.selector.Eligible(hunter, c) {
					eligible++
				}
			}
			if target, ok := w.byID[victim]; ok {
				combatlog.Aggro(context.Background(), w.publisher, tick,
					entityHandle{mob: m}.logRef(), target.logRef(),
					combatlog.AggroPayload{Eligible: eligible})
			}
		}
	}

	switch {
	case m.Phase == PhaseReturning:
		// Re-arm the path home every tick; a blocked step must not strand
		// the mob mid-return.
		m.Path = PathState{Target: m.SpawnAnchor, Active: true}
		w.followPath(tick, &m.actorState)
		if m.Origin() == m.SpawnAnchor {
			w.arriveHome(tick, m)
		}
	case m.Combat.TargetID != "":
		w.pursueAndSwing(tick, entityHandle{mob: m})
	default:
		w.wander(tick, m)
	}
}

func (w *World) processPlayer(tick uint64, p *Player) {
	if p.Combat.Dead {
		if p.RespawnTick != 0 && tick >= p.RespawnTick {
			w.respawnPlayer(tick, p)
		}
		return
	}

	p.Combat.ExpireCombat(tick, w.cfg.CombatTimeoutTicks)

	if tid := p.Combat.TargetID; tid != "" {
		target, ok := w.byID[tid]
		reason := ""
		if !ok {
			reason = journal.UntargetTargetGone
		} else if !target.actor().Alive() {
			reason = journal.UntargetTargetDied
		}
		if reason != "" {
			w.clearEngagement(tick, &p.actorState, reason)
		}
	}

	if p.Combat.TargetID != "" {
		w.pursueAndSwing(tick, entityHandle{player: p})
		return
	}
	w.followPath(tick, &p.actorState)
}

// pursueAndSwing closes the distance to the engaged target and swings the
// moment range and cooldown both allow, within the same tick.
func (w *World) pursueAndSwing(tick uint64, h entityHandle) {
	a := h.actor()
	target, ok := w.byID[a.Combat.TargetID]
	if !ok || !target.actor().Alive() {
		return
	}
	ta := target.actor()

	if !combat.WithinAttackRange(a.Footprint, ta.Footprint, a.AttackRange) {
		if a.Footprint.Overlaps(ta.Footprint) {
			// Standing inside the target is never a firing position; walk
			// off it first.
			w.stepOut(tick, a, ta.Footprint)
		} else {
			dest := chaseDest(a.Origin(), ta.Footprint)
			w.stepToward(tick, a, dest, w.pursuitWalkable(a.Footprint.Size, ta.Footprint))
		}
	}

	if combat.WithinAttackRange(a.Footprint, ta.Footprint, a.AttackRange) && a.canSwing(tick) {
		w.resolveAttack(tick, h, target)
	}
}

// resolveAttack rolls one swing and commits everything it caused: damage,
// cooldowns, retaliation, death. The attack event carries the post-state
// of both sides so replay never re-rolls.
func (w *World) resolveAttack(tick uint64, att, tgt entityHandle) {
	a := att.actor()
	t := tgt.actor()

	out := combat.Resolve(w.rng, a.Profile(), t.Profile())
	a.Combat.RecordSwing(tick, a.WeaponSpeed)
	a.FirstSwingTick = 0

	t.Health -= out.Damage
	dead := t.Health <= 0
	retaliated := false
	if dead {
		t.Health = 0
	} else {
		attackerID := a.ID
		if tgt.mob != nil && tgt.mob.Phase == PhaseReturning {
			// A returning mob shrugs hits off until it is home.
			attackerID = ""
		}
		retaliated = t.Combat.Struck(tick, attackerID, t.WeaponSpeed)
		if retaliated {
			t.Path.Active = false
			t.FirstSwingTick = 0
			if tgt.mob != nil {
				tgt.mob.Phase = PhasePursuing
			}
		}
	}

	if dead {
		t.Combat.Kill()
		t.Path = PathState{}
		t.FirstSwingTick = 0
		w.occupancy.Vacate(t.ID)
		switch {
		case tgt.player != nil:
			t.RespawnTick = tick + w.cfg.PlayerRespawnDelayTicks
		case tgt.mob.RespawnDelay > 0:
			t.RespawnTick = tick + tgt.mob.RespawnDelay
		default:
			t.RespawnTick = 0
		}
	}

	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindAttack,
		Subject: a.ID,
		Target:  t.ID,
		Attack: &journal.AttackPayload{
			Hit:                  out.Hit,
			Damage:               out.Damage,
			TargetHealthAfter:    t.Health,
			NextAttackTick:       a.Combat.NextAttackTick,
			TargetNextAttackTick: t.Combat.NextAttackTick,
			TargetRetaliated:     retaliated,
			Speed:                a.WeaponSpeed,
		},
	})
	combatlog.Damage(context.Background(), w.publisher, tick, att.logRef(), tgt.logRef(),
		combatlog.DamagePayload{Hit: out.Hit, Damage: out.Damage, MaxHit: out.MaxHit, TargetHealth: t.Health})

	if dead {
		w.recordDeath(tick, t.ID, t.RespawnTick)
		combatlog.Defeat(context.Background(), w.publisher, tick, att.logRef(), tgt.logRef(),
			combatlog.DefeatPayload{RespawnTick: t.RespawnTick})
	}
}

func (w *World) respawnMob(tick uint64, m *Mob) {
	origin, ok := w.findPlacement(m.SpawnAnchor, m.Footprint.Size, m.ID, m.Blocking)
	if !ok {
		m.RespawnTick = tick + 1
		return
	}
	fp := m.Footprint.MoveTo(origin)
	if err := w.occupancy.Occupy(m.ID, fp, m.Blocking); err != nil {
		m.RespawnTick = tick + 1
		return
	}
	m.Footprint = fp
	m.Combat.Revive()
	m.Health = m.MaxHealth()
	m.RespawnTick = 0
	m.FirstSwingTick = 0
	m.Path = PathState{}
	m.Phase = PhaseIdle
	m.NextWanderTick = tick + wanderBaseDelayTicks

	w.recordRespawn(tick, m.ID, origin, m.Health)
	lifecycle.Respawn(context.Background(), w.publisher, tick, entityHandle{mob: m}.logRef(),
		lifecycle.RespawnPayload{X: origin.X, Z: origin.Z, Health: m.Health})
}

func (w *World) respawnPlayer(tick uint64, p *Player) {
	origin, ok := w.findPlacement(w.cfg.Spawn, p.Footprint.Size, p.ID, true)
	if !ok {
		p.RespawnTick = tick + 1
		return
	}
	fp := p.Footprint.MoveTo(origin)
	if err := w.occupancy.Occupy(p.ID, fp, true); err != nil {
		p.RespawnTick = tick + 1
		return
	}
	p.Footprint = fp
	p.Combat.Revive()
	p.Health = p.MaxHealth()
	p.RespawnTick = 0
	p.FirstSwingTick = 0
	p.Path = PathState{}

	w.recordRespawn(tick, p.ID, origin, p.Health)
	lifecycle.Respawn(context.Background(), w.publisher, tick, entityHandle{player: p}.logRef(),
		lifecycle.RespawnPayload{X: origin.X, Z: origin.Z, Health: p.Health})
}

// arriveHome finishes a return: the mob goes idle at its anchor and heals
// to full in one step.
func (w *World) arriveHome(tick uint64, m *Mob) {
	m.Phase = PhaseIdle
	m.Path = PathState{}
	m.Combat.Disengage()
	m.NextWanderTick = tick + wanderBaseDelayTicks
	if m.Health != m.MaxHealth() {
		m.Health = m.MaxHealth()
		w.journal.Record(journal.Event{
			Tick:    tick,
			Kind:    journal.KindHeal,
			Subject: m.ID,
			Heal:    &journal.HealPayload{Health: m.Health},
		})
	}
}

// wander rolls a destination inside the wander box every few ticks and
// shuffles toward it. The roll always costs three draws once due, whether
// or not the destination turns out walkable.
func (w *World) wander(tick uint64, m *Mob) {
	if m.WanderRadius <= 0 {
		return
	}
	if tick >= m.NextWanderTick {
		span := 2*m.WanderRadius + 1
		dx := w.rng.IntN(span) - m.WanderRadius
		dz := w.rng.IntN(span) - m.WanderRadius
		m.NextWanderTick = tick + wanderBaseDelayTicks + uint64(w.rng.IntN(wanderJitterTicks))
		dest := m.SpawnAnchor.Add(dx, dz)
		if w.terrainFits(grid.FootprintAt(dest, m.Footprint.Size)) {
			m.Path = PathState{Target: dest, Active: true}
		}
	}
	w.followPath(tick, &m.actorState)
}

// followPath advances one step along the actor's walk path. Reaching the
// destination or running out of legal terrain ends the path; an entity in
// the way keeps it alive for a retry next tick.
func (w *World) followPath(tick uint64, a *actorState) {
	if !a.Path.Active {
		return
	}
	if a.Origin() == a.Path.Target {
		a.Path.Active = false
		return
	}
	res := w.stepToward(tick, a, a.Path.Target, w.footprintWalkable(a.Footprint.Size))
	switch {
	case res == stepNone:
		a.Path.Active = false
	case a.Origin() == a.Path.Target:
		a.Path.Active = false
	}
}

type stepResult uint8

const (
	stepMoved   stepResult = iota
	stepBlocked            // another entity holds the tile; retry next tick
	stepNone               // no legal step through terrain exists
)

// stepToward advances the actor one tile toward dest. Terrain legality is
// the stepper's job; occupancy is consulted only here, when the move
// actually executes.
func (w *World) stepToward(tick uint64, a *actorState, dest grid.Tile, walkable pathfind.Walkable) stepResult {
	from := a.Origin()
	step, ok := pathfind.Step(from, dest, walkable)
	if !ok {
		return stepNone
	}
	if err := w.occupancy.Move(a.ID, step); err != nil {
		return stepBlocked
	}
	a.Footprint = a.Footprint.MoveTo(step)
	w.recordMove(tick, a.ID, from, step)
	return stepMoved
}

// stepOut walks an actor overlapping its target off the shared tiles, onto
// the first free flank in a fixed scan order.
func (w *World) stepOut(tick uint64, a *actorState, target grid.Footprint) {
	from := a.Origin()
	for _, d := range [...][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		dest := from.Add(d[0], d[1])
		fp := grid.FootprintAt(dest, a.Footprint.Size)
		if !w.terrainFits(fp) || fp.Overlaps(target) {
			continue
		}
		if err := w.occupancy.Move(a.ID, dest); err != nil {
			continue
		}
		a.Footprint = a.Footprint.MoveTo(dest)
		w.recordMove(tick, a.ID, from, dest)
		return
	}
}

// clearEngagement drops the actor's target with a recorded reason and
// stops whatever movement the engagement was driving.
func (w *World) clearEngagement(tick uint64, a *actorState, reason string) {
	if a.Combat.TargetID == "" {
		return
	}
	w.recordUntarget(tick, a.ID, reason)
	a.Combat.SetTarget("")
	a.FirstSwingTick = 0
	a.Path.Active = false
}

// playerCandidates rebuilds the shared candidate scratch. It must be
// rebuilt per hunter: a player killed earlier in this very tick is already
// ineligible for every hunter after.
func (w *World) playerCandidates() []aggro.Candidate {
	w.candidates = w.candidates[:0]
	for _, p := range w.players {
		w.candidates = append(w.candidates, aggro.Candidate{
			ID:        p.ID,
			Level:     p.Levels.CombatLevel(),
			Footprint: p.Footprint,
			Dead:      p.Combat.Dead,
		})
	}
	return w.candidates
}

// footprintWalkable builds the plain terrain predicate for a footprint of
// the given size anchored at the tested tile.
func (w *World) footprintWalkable(size int) pathfind.Walkable {
	return func(origin grid.Tile) bool {
		return w.terrainFits(grid.FootprintAt(origin, size))
	}
}

// pursuitWalkable is the chase predicate: plain terrain walkability with
// the target's own tiles masked out. Chasing a destination inside the
// target would end every approach entity-blocked; masking makes the
// stepper fall back to the cardinal that lands on plus-shaped melee
// adjacency instead.
func (w *World) pursuitWalkable(size int, target grid.Footprint) pathfind.Walkable {
	return func(origin grid.Tile) bool {
		fp := grid.FootprintAt(origin, size)
		return w.terrainFits(fp) && !fp.Overlaps(target)
	}
}

// chaseDest clamps the pursuer's origin into the target's rectangle: the
// nearest covered tile, which for a size-1 target is the target itself.
func chaseDest(from grid.Tile, target grid.Footprint) grid.Tile {
	size := target.Size
	if size < 1 {
		size = 1
	}
	dest := from
	if from.X < target.Origin.X {
		dest.X = target.Origin.X
	} else if from.X > target.Origin.X+size-1 {
		dest.X = target.Origin.X + size - 1
	}
	if from.Z < target.Origin.Z {
		dest.Z = target.Origin.Z
	} else if from.Z > target.Origin.Z+size-1 {
		dest.Z = target.Origin.Z + size - 1
	}
	return dest
}
