package journal

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoSnapshot means no restore point exists at or before the
	// requested tick.
	ErrNoSnapshot = errors.New("journal: no snapshot at or before requested tick")
	// ErrHistoryEvicted means events between the snapshot and the target
	// tick have been evicted from the ring.
	ErrHistoryEvicted = errors.New("journal: events needed for replay were evicted")
	// ErrUnknownEventKind means the history contains an event kind replay
	// does not understand; the event set is closed on purpose.
	ErrUnknownEventKind = errors.New("journal: unknown event kind")
)

// Replay is the result of re-applying recorded history on top of a
// snapshot: the reconstructed entity state and a digest for every replayed
// tick, comparable one-to-one with the digests sealed live.
type Replay struct {
	FromTick uint64
	ToTick   uint64
	Entities []EntitySnapshot

	digests map[uint64]uint64
}

// DigestAt returns the replay-computed digest for a tick inside the
// replayed range.
func (r *Replay) DigestAt(tick uint64) (uint64, bool) {
	d, ok := r.digests[tick]
	return d, ok
}

// EntityByID returns the final replayed state of one entity.
func (r *Replay) EntityByID(id string) (EntitySnapshot, bool) {
	for i := range r.Entities {
		if r.Entities[i].ID == id {
			return r.Entities[i], true
		}
	}
	return EntitySnapshot{}, false
}

// ReplayFrom restores the newest snapshot at or before snapshotTick and
// re-applies the recorded events through toTick, recomputing the world
// digest after each tick. No RNG is consumed and no rule code runs: replay
// trusts the record, which is exactly why the record carries post-state.
func (j *Journal) ReplayFrom(snapshotTick, toTick uint64) (*Replay, error) {
	snap, ok := j.SnapshotAt(snapshotTick)
	if !ok {
		return nil, ErrNoSnapshot
	}
	if toTick < snap.Tick {
		return nil, fmt.Errorf("journal: target tick %d precedes snapshot tick %d", toTick, snap.Tick)
	}

	j.mu.RLock()
	tailSeq := j.tailSeq
	var pending []Event
	for i := range j.events {
		e := j.events[i]
		if e.Seq <= snap.Seq || e.Tick > toTick {
			continue
		}
		pending = append(pending, e)
	}
	j.mu.RUnlock()

	if tailSeq > snap.Seq {
		return nil, ErrHistoryEvicted
	}

	state := newReplayState(snap)
	result := &Replay{
		FromTick: snap.Tick,
		ToTick:   toTick,
		digests:  make(map[uint64]uint64, toTick-snap.Tick+1),
	}

	next := 0
	for tick := snap.Tick + 1; tick <= toTick; tick++ {
		for next < len(pending) && pending[next].Tick <= tick {
			if err := state.apply(&pending[next]); err != nil {
				return nil, err
			}
			next++
		}
		result.digests[tick] = DigestEntities(tick, state.entities)
	}

	result.Entities = append([]EntitySnapshot(nil), state.entities...)
	return result, nil
}

// replayState holds entities in creation order with an id index, mirroring
// the world's stable iteration order.
type replayState struct {
	entities []EntitySnapshot
	index    map[string]int
}

func newReplayState(snap Snapshot) *replayState {
	entities := append([]EntitySnapshot(nil), snap.Entities...)
	sort.SliceStable(entities, func(i, k int) bool {
		return entities[i].CreatedSeq < entities[k].CreatedSeq
	})
	state := &replayState{
		entities: entities,
		index:    make(map[string]int, len(entities)),
	}
	state.reindex(0)
	return state
}

func (s *replayState) reindex(from int) {
	for i := from; i < len(s.entities); i++ {
		s.index[s.entities[i].ID] = i
	}
}

func (s *replayState) entity(id string) *EntitySnapshot {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return &s.entities[i]
}

func (s *replayState) apply(e *Event) error {
	switch e.Kind {
	case KindSpawn:
		if e.Spawn == nil {
			return fmt.Errorf("journal: spawn event %d without payload", e.Seq)
		}
		p := e.Spawn
		kind := EntityMob
		if p.Player {
			kind = EntityPlayer
		}
		s.entities = append(s.entities, EntitySnapshot{
			ID:            e.Subject,
			Kind:          kind,
			Archetype:     p.Archetype,
			CreatedSeq:    p.CreatedSeq,
			Origin:        p.Origin,
			Size:          p.Size,
			SpawnAnchor:   p.Origin,
			Blocking:      p.Blocking,
			Health:        p.Health,
			Levels:        p.Levels,
			Bonuses:       p.Bonuses,
			Style:         p.Style,
			AutoRetaliate: p.AutoRetaliate,
			WeaponSpeed:   p.WeaponSpeed,
			AttackRange:   p.AttackRange,
		})
		s.index[e.Subject] = len(s.entities) - 1
	case KindDespawn:
		i, ok := s.index[e.Subject]
		if !ok {
			return nil
		}
		s.entities = append(s.entities[:i], s.entities[i+1:]...)
		delete(s.index, e.Subject)
		s.reindex(i)
	case KindMove:
		if ent := s.entity(e.Subject); ent != nil && e.Move != nil {
			ent.Origin = e.Move.To
		}
	case KindTarget:
		if ent := s.entity(e.Subject); ent != nil {
			ent.TargetID = e.Target
		}
	case KindUntarget:
		if ent := s.entity(e.Subject); ent != nil {
			ent.TargetID = ""
		}
	case KindAttack:
		if e.Attack == nil {
			return fmt.Errorf("journal: attack event %d without payload", e.Seq)
		}
		if ent := s.entity(e.Subject); ent != nil {
			ent.NextAttackTick = e.Attack.NextAttackTick
		}
		if target := s.entity(e.Target); target != nil {
			target.Health = e.Attack.TargetHealthAfter
			target.NextAttackTick = e.Attack.TargetNextAttackTick
			if e.Attack.TargetRetaliated {
				target.TargetID = e.Subject
			}
		}
	case KindDeath:
		if ent := s.entity(e.Subject); ent != nil {
			ent.Dead = true
			ent.Health = 0
			ent.TargetID = ""
			if e.Death != nil {
				ent.RespawnTick = e.Death.RespawnTick
			}
		}
	case KindHeal:
		if ent := s.entity(e.Subject); ent != nil && e.Heal != nil {
			ent.Health = e.Heal.Health
		}
	case KindRespawn:
		if ent := s.entity(e.Subject); ent != nil && e.Respawn != nil {
			ent.Dead = false
			ent.Origin = e.Respawn.Origin
			ent.Health = e.Respawn.Health
			ent.TargetID = ""
			ent.NextAttackTick = 0
			ent.RespawnTick = 0
		}
	case KindPreference:
		if ent := s.entity(e.Subject); ent != nil && e.Preference != nil {
			ent.AutoRetaliate = e.Preference.AutoRetaliate
		}
	case KindStyle:
		if ent := s.entity(e.Subject); ent != nil && e.Style != nil {
			ent.Style = e.Style.Style
		}
	default:
		return fmt.Errorf("%w: %q (seq %d)", ErrUnknownEventKind, e.Kind, e.Seq)
	}
	return nil
}
