package hub

import (
	"context"
	"errors"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/persist"
	"duskhaven/server/internal/sim"
	"duskhaven/server/internal/stats"
	"duskhaven/server/internal/world"
	"duskhaven/server/logging"
	combatlog "duskhaven/server/logging/combat"
	"duskhaven/server/logging/simulation"
)

// Command reject reasons surfaced to the transport layer.
const (
	RejectUnknownCommand = "unknown_command"
	RejectUnknownActor   = "unknown_actor"
	RejectDeadActor      = "dead_actor"
	RejectUnknownTarget  = "unknown_target"
	RejectDeadTarget     = "dead_target"
	RejectSelfTarget     = "self_target"
	RejectUnwalkable     = "unwalkable"
	RejectInvalidStyle   = "invalid_style"
	RejectMissingPayload = "missing_payload"
)

// AdvanceTick is the sim.EngineCore hook: one full tick under the hub
// lock — intents, the world step, the snapshot cadence — then fanout and
// persistence on copies outside it.
func (h *Hub) AdvanceTick(tick uint64, commands []sim.Command) {
	h.mu.Lock()

	for _, cmd := range commands {
		h.applyCommandLocked(tick, cmd)
	}

	digest := h.world.Advance(tick)

	var snap *journal.Snapshot
	if h.cfg.SnapshotInterval > 0 && tick%h.cfg.SnapshotInterval == 0 {
		captured := h.world.CaptureSnapshot(tick)
		h.world.Journal().RecordSnapshot(captured)
		snap = &captured
	}

	events := h.world.Journal().EventsSinceSeq(h.broadcastSeq)
	if n := len(events); n > 0 {
		h.broadcastSeq = events[n-1].Seq
	}

	var dirty map[string]persist.PlayerPrefs
	if len(h.dirtyPrefs) > 0 {
		dirty = h.dirtyPrefs
		h.dirtyPrefs = make(map[string]persist.PlayerPrefs)
	}

	h.mu.Unlock()

	h.broadcast(tick, digest, events)
	h.persistAfterTick(snap, dirty)
}

// applyCommandLocked validates and applies one staged intent. Failures are
// dropped with a recorded reason; they never dent the tick.
func (h *Hub) applyCommandLocked(tick uint64, cmd sim.Command) {
	var err error
	switch cmd.Type {
	case sim.CommandWalk:
		if cmd.Walk == nil {
			err = errMissingPayload
			break
		}
		err = h.world.ApplyWalk(tick, cmd.ActorID, grid.Tile{X: cmd.Walk.X, Z: cmd.Walk.Z})
	case sim.CommandAttack:
		if cmd.Attack == nil {
			err = errMissingPayload
			break
		}
		err = h.world.ApplyAttack(tick, cmd.ActorID, cmd.Attack.TargetID)
	case sim.CommandDisengage:
		err = h.world.ApplyDisengage(tick, cmd.ActorID)
	case sim.CommandSetAutoRetaliate:
		if cmd.AutoRetaliate == nil {
			err = errMissingPayload
			break
		}
		err = h.world.SetAutoRetaliate(tick, cmd.ActorID, cmd.AutoRetaliate.Enabled)
		if err == nil {
			h.markPrefsDirtyLocked(cmd.ActorID)
		}
	case sim.CommandSetStyle:
		var style stats.Style
		if cmd.Style == nil {
			err = errMissingPayload
			break
		}
		if style, err = stats.ParseStyle(cmd.Style.Style); err != nil {
			err = world.ErrInvalidStyle
		} else {
			err = h.world.SetStyle(tick, cmd.ActorID, style)
		}
		if err == nil {
			h.markPrefsDirtyLocked(cmd.ActorID)
		}
	case sim.CommandHeartbeat:
		// Connectivity bookkeeping only; nothing reaches the world.
		return
	default:
		err = errUnknownCommand
	}

	if err == nil {
		h.addMetric(metricCommandsApplied, 1)
		return
	}

	h.addMetric(metricCommandsRejected, 1)
	combatlog.Reject(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindPlayer},
		combatlog.RejectPayload{Command: string(cmd.Type), Reason: RejectReason(err)})
}

func (h *Hub) markPrefsDirtyLocked(playerID string) {
	prefs, ok := h.world.PlayerPrefs(playerID)
	if !ok {
		return
	}
	h.dirtyPrefs[playerID] = persist.PlayerPrefs{
		AutoRetaliate: prefs.AutoRetaliate,
		Style:         prefs.Style,
	}
}

// persistAfterTick hands the tick's durable output to the stores, after
// the lock is released. Failures are logged and counted; the simulation
// never waits on them.
func (h *Hub) persistAfterTick(snap *journal.Snapshot, dirty map[string]persist.PlayerPrefs) {
	ctx := context.Background()
	if snap != nil {
		if err := h.snapshots.PutSnapshot(ctx, h.cfg.SessionID, *snap); err != nil {
			h.addMetric(metricSnapshotFailures, 1)
			h.logf("snapshot persist at tick %d failed: %v", snap.Tick, err)
		}
	}
	for playerID, prefs := range dirty {
		h.savePrefs(ctx, playerID, prefs)
	}
}

func (h *Hub) afterStep(result sim.StepResult) {
	h.storeMetric(metricTickDurationMicro, uint64(result.Duration.Microseconds()))
	if result.Duration <= result.Budget {
		h.overrunStreak = 0
		return
	}
	h.overrunStreak++
	h.addMetric(metricTickOverruns, 1)
	simulation.TickBudgetOverrun(context.Background(), h.publisher, result.Tick,
		simulation.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
			Streak:         h.overrunStreak,
		})
}

func (h *Hub) onCommandDrop(reason string, cmd sim.Command) {
	simulation.CommandDropped(context.Background(), h.publisher, h.tick.Load(),
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindPlayer},
		simulation.CommandDroppedPayload{Command: string(cmd.Type), Reason: reason, Dropped: 1})
}

var (
	errUnknownCommand = errors.New("hub: unknown command type")
	errMissingPayload = errors.New("hub: command payload missing")
)

// RejectReason maps an application error to the stable reason string the
// client protocol and logs carry.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrUnknownActor), errors.Is(err, world.ErrNotPlayer):
		return RejectUnknownActor
	case errors.Is(err, world.ErrDeadActor):
		return RejectDeadActor
	case errors.Is(err, world.ErrUnknownTarget):
		return RejectUnknownTarget
	case errors.Is(err, world.ErrDeadTarget):
		return RejectDeadTarget
	case errors.Is(err, world.ErrSelfTarget):
		return RejectSelfTarget
	case errors.Is(err, world.ErrUnwalkable):
		return RejectUnwalkable
	case errors.Is(err, world.ErrInvalidStyle):
		return RejectInvalidStyle
	case errors.Is(err, errMissingPayload):
		return RejectMissingPayload
	default:
		return RejectUnknownCommand
	}
}
