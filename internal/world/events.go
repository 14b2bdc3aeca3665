package world

import (
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
)

// Journal record helpers. Every digest-visible mutation the tick pipeline
// makes goes through one of these, so the record is the behavior.

func (w *World) recordUntarget(tick uint64, id, reason string) {
	w.journal.Record(journal.Event{
		Tick:     tick,
		Kind:     journal.KindUntarget,
		Subject:  id,
		Untarget: &journal.UntargetPayload{Reason: reason},
	})
}

func (w *World) recordMove(tick uint64, id string, from, to grid.Tile) {
	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindMove,
		Subject: id,
		Move:    &journal.MovePayload{From: from, To: to},
	})
}

func (w *World) recordDeath(tick uint64, id string, respawnTick uint64) {
	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindDeath,
		Subject: id,
		Death:   &journal.DeathPayload{RespawnTick: respawnTick},
	})
}

func (w *World) recordRespawn(tick uint64, id string, origin grid.Tile, health int) {
	w.journal.Record(journal.Event{
		Tick:    tick,
		Kind:    journal.KindRespawn,
		Subject: id,
		Respawn: &journal.RespawnPayload{Origin: origin, Health: health},
	})
}
