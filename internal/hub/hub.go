// Package hub owns one running combat session: the world, the loop that
// drives it, the subscribers that watch it and the stores that outlive it.
// The hub's mutex is the tick critical section — nothing observes the
// world mid-tick.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/persist"
	"duskhaven/server/internal/sim"
	"duskhaven/server/internal/stats"
	"duskhaven/server/internal/telemetry"
	"duskhaven/server/internal/world"
	"duskhaven/server/logging"
	"duskhaven/server/logging/lifecycle"
)

const (
	metricCommandsRejected  = "hub_commands_rejected_total"
	metricCommandsApplied   = "hub_commands_applied_total"
	metricFramesSent        = "hub_frames_sent_total"
	metricFramesDropped     = "hub_frames_dropped_total"
	metricSnapshotFailures  = "hub_snapshot_persist_failures_total"
	metricPrefsFailures     = "hub_prefs_persist_failures_total"
	metricIntegrityIncident = "hub_integrity_incidents_total"
	metricTickDurationMicro = "hub_tick_duration_micros"
	metricTickOverruns      = "hub_tick_overrun_total"
)

// DefaultSnapshotInterval is the snapshot cadence in ticks when the config
// leaves it zero: one restore point per minute of game time.
const DefaultSnapshotInterval = 100

var (
	ErrUnknownPlayer = errors.New("hub: unknown player")
	ErrClosed        = errors.New("hub: closed")
)

// FrameSink receives each marshaled tick frame, e.g. a message broker
// forwarder. Implementations must not block.
type FrameSink interface {
	PublishFrame(tick uint64, data []byte)
}

// Config assembles one session.
type Config struct {
	// SessionID names the session in persistence; a UUID is minted when
	// empty.
	SessionID string
	World     world.Config
	Loop      sim.LoopConfig
	// SnapshotInterval is the restore-point cadence in ticks.
	SnapshotInterval uint64
	// InitialMobs are spawned at construction, before the first tick.
	InitialMobs []world.MobSpec
	// StarterItems are equipped on every joining player.
	StarterItems []stats.Item
}

func (c Config) normalized() Config {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.SnapshotInterval == 0 {
		c.SnapshotInterval = DefaultSnapshotInterval
	}
	c.Loop = c.Loop.Normalized()
	return c
}

// Deps are the hub's runtime collaborators. Publisher, Logger and Metrics
// may be nil; stores default to in-memory.
type Deps struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Prefs     persist.PreferenceStore
	Snapshots persist.SnapshotStore
	Terrain   world.Terrain
	Sink      FrameSink
}

// Hub is the session orchestrator. It implements sim.EngineCore; every
// world mutation happens under mu, either inside AdvanceTick or between
// ticks (join and leave).
type Hub struct {
	cfg       Config
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	prefs     persist.PreferenceStore
	snapshots persist.SnapshotStore
	sink      FrameSink

	mu           sync.Mutex
	world        *world.World
	broadcastSeq uint64
	dirtyPrefs   map[string]persist.PlayerPrefs

	loop      *sim.Loop
	tick      atomic.Uint64
	playerSeq atomic.Uint64
	closed    atomic.Bool

	subMu       sync.Mutex
	subscribers map[string]*Subscriber

	overrunStreak uint64
}

// JoinResult tells a newly joined player where it stands.
type JoinResult struct {
	ID    string
	Spawn grid.Tile
	Tick  uint64
}

// New builds the world, seeds the initial mob population and prepares the
// loop. The session does not advance until Run is called.
func New(cfg Config, deps Deps) (*Hub, error) {
	cfg = cfg.normalized()

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if deps.Prefs == nil || deps.Snapshots == nil {
		memory := persist.NewMemory()
		if deps.Prefs == nil {
			deps.Prefs = memory
		}
		if deps.Snapshots == nil {
			deps.Snapshots = memory
		}
	}

	w, err := world.New(cfg.World, world.Deps{
		Publisher:        publisher,
		Terrain:          deps.Terrain,
		JournalTelemetry: journalTelemetry(deps.Metrics),
	})
	if err != nil {
		return nil, err
	}

	h := &Hub{
		cfg:         cfg,
		publisher:   publisher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		prefs:       deps.Prefs,
		snapshots:   deps.Snapshots,
		sink:        deps.Sink,
		world:       w,
		dirtyPrefs:  make(map[string]persist.PlayerPrefs),
		subscribers: make(map[string]*Subscriber),
	}

	for _, spec := range cfg.InitialMobs {
		if _, err := w.SpawnMob(0, spec); err != nil {
			return nil, fmt.Errorf("hub: seed mob %s: %w", spec.Archetype, err)
		}
	}

	h.loop = sim.NewLoop(h, cfg.Loop, sim.LoopHooks{
		NextTick:      h.nextTick,
		AfterStep:     h.afterStep,
		OnCommandDrop: h.onCommandDrop,
	}, deps.Logger, deps.Metrics)
	return h, nil
}

// SessionID names the session in persistence and diagnostics.
func (h *Hub) SessionID() string {
	return h.cfg.SessionID
}

// Tick reports the most recently started tick.
func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// TickInterval is the wall-clock length of one tick.
func (h *Hub) TickInterval() time.Duration {
	return h.cfg.Loop.TickInterval
}

// Journal exposes the session's combat record for the ops query surface.
// The journal carries its own lock; reads are safe mid-tick.
func (h *Hub) Journal() *journal.Journal {
	return h.world.Journal()
}

// Run drives the session until stop closes.
func (h *Hub) Run(stop <-chan struct{}) {
	h.loop.Run(stop)
}

// Enqueue stages a command for the next tick.
func (h *Hub) Enqueue(cmd sim.Command) (bool, string) {
	if h.closed.Load() {
		return false, sim.CommandRejectQueueFull
	}
	return h.loop.Enqueue(cmd)
}

// Close stops accepting input and drops every subscriber.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.subMu.Lock()
	for _, sub := range h.subscribers {
		sub.close()
	}
	h.subscribers = make(map[string]*Subscriber)
	h.subMu.Unlock()
}

func (h *Hub) nextTick() uint64 {
	return h.tick.Add(1)
}

// Join admits a player. An empty id mints a session-scoped sequential one;
// a caller-supplied id lets returning players pick their preferences back
// up. Preference loading happens before the world lock is taken.
func (h *Hub) Join(ctx context.Context, playerID string) (JoinResult, error) {
	if h.closed.Load() {
		return JoinResult{}, ErrClosed
	}
	if playerID == "" {
		playerID = fmt.Sprintf("player-%d", h.playerSeq.Add(1))
	}

	prefs := world.DefaultPlayerPrefs()
	if stored, err := h.prefs.LoadPrefs(ctx, playerID); err == nil {
		prefs = world.PlayerPrefs{AutoRetaliate: stored.AutoRetaliate, Style: stored.Style}
	} else if !errors.Is(err, persist.ErrNotFound) {
		h.logf("prefs load for %s failed: %v", playerID, err)
	}

	var loadout stats.Loadout
	for _, item := range h.cfg.StarterItems {
		if err := loadout.Equip(item); err != nil {
			h.logf("starter item %s: %v", item.ID, err)
		}
	}

	h.mu.Lock()
	tick := h.tick.Load()
	origin, err := h.world.JoinPlayer(tick, playerID, prefs, loadout)
	h.mu.Unlock()
	if err != nil {
		return JoinResult{}, err
	}

	lifecycle.PlayerJoined(ctx, h.publisher, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerJoinedPayload{SpawnX: origin.X, SpawnZ: origin.Z})
	return JoinResult{ID: playerID, Spawn: origin, Tick: tick}, nil
}

// Leave removes a player and persists its final preferences.
func (h *Hub) Leave(ctx context.Context, playerID string) error {
	h.mu.Lock()
	tick := h.tick.Load()
	prefs, known := h.world.PlayerPrefs(playerID)
	err := h.world.RemovePlayer(tick, playerID)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	if known {
		h.savePrefs(ctx, playerID, persist.PlayerPrefs{
			AutoRetaliate: prefs.AutoRetaliate,
			Style:         prefs.Style,
		})
	}
	lifecycle.PlayerDisconnected(ctx, h.publisher, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerDisconnectedPayload{Reason: "disconnect"})
	return nil
}

// KnowsPlayer reports whether the player is currently in the world.
func (h *Hub) KnowsPlayer(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.world.PlayerPrefs(playerID)
	return ok
}

// RestoreSnapshot rebuilds the session from a restore point. Only valid
// before Run starts ticking.
func (h *Hub) RestoreSnapshot(snap journal.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.world.RestoreSnapshot(snap); err != nil {
		return err
	}
	h.tick.Store(snap.Tick)
	h.broadcastSeq = snap.Seq
	return nil
}

func (h *Hub) savePrefs(ctx context.Context, playerID string, prefs persist.PlayerPrefs) {
	if err := h.prefs.SavePrefs(ctx, playerID, prefs); err != nil {
		h.addMetric(metricPrefsFailures, 1)
		h.logf("prefs save for %s failed: %v", playerID, err)
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func (h *Hub) addMetric(key string, delta uint64) {
	if h.metrics != nil {
		h.metrics.Add(key, delta)
	}
}

func (h *Hub) storeMetric(key string, value uint64) {
	if h.metrics != nil {
		h.metrics.Store(key, value)
	}
}

// journalTelemetry adapts the optional metrics sink to the journal's drop
// reporting seam.
func journalTelemetry(metrics telemetry.Metrics) journal.Telemetry {
	if metrics == nil {
		return nil
	}
	return journalDropCounter{metrics: metrics}
}

type journalDropCounter struct {
	metrics telemetry.Metrics
}

func (c journalDropCounter) RecordJournalDrop(metric string) {
	c.metrics.Add(metric, 1)
}
