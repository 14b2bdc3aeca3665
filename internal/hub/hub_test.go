package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/persist"
	"duskhaven/server/internal/sim"
	"duskhaven/server/internal/stats"
	"duskhaven/server/internal/telemetry"
	"duskhaven/server/internal/world"
	"duskhaven/server/logging"
	combatlog "duskhaven/server/logging/combat"
)

func testConfig() Config {
	return Config{
		SessionID: "test-session",
		World: world.Config{
			Seed:   "hub-test",
			Width:  48,
			Height: 48,
			Spawn:  grid.Tile{X: 16, Z: 16},
		},
		SnapshotInterval: 4,
	}
}

// capturePublisher records gameplay events synchronously for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *capturePublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *capturePublisher) ofType(t logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []logging.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestHub(t *testing.T, cfg Config, deps Deps) *Hub {
	t.Helper()
	h, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func mustJoin(t *testing.T, h *Hub, id string) JoinResult {
	t.Helper()
	join, err := h.Join(context.Background(), id)
	if err != nil {
		t.Fatalf("Join(%s): %v", id, err)
	}
	return join
}

func walkCmd(actor string, tick uint64, x, z int) sim.Command {
	return sim.Command{
		OriginTick: tick,
		ActorID:    actor,
		Type:       sim.CommandWalk,
		Walk:       &sim.WalkCommand{X: x, Z: z},
	}
}

func TestJoinAssignsSequentialIDs(t *testing.T) {
	h := newTestHub(t, testConfig(), Deps{})

	first := mustJoin(t, h, "")
	second := mustJoin(t, h, "")
	if first.ID != "player-1" || second.ID != "player-2" {
		t.Fatalf("ids = %q, %q, want player-1, player-2", first.ID, second.ID)
	}
	if first.Spawn != (grid.Tile{X: 16, Z: 16}) {
		t.Fatalf("spawn = %v, want 16,16", first.Spawn)
	}
	if !h.KnowsPlayer("player-1") || !h.KnowsPlayer("player-2") {
		t.Fatal("joined players not known")
	}
}

func TestJoinLoadsStoredPreferences(t *testing.T) {
	store := persist.NewMemory()
	if err := store.SavePrefs(context.Background(), "alice", persist.PlayerPrefs{
		AutoRetaliate: false,
		Style:         stats.StyleDefensive,
	}); err != nil {
		t.Fatalf("SavePrefs: %v", err)
	}

	h := newTestHub(t, testConfig(), Deps{Prefs: store})
	mustJoin(t, h, "alice")

	h.mu.Lock()
	prefs, ok := h.world.PlayerPrefs("alice")
	h.mu.Unlock()
	if !ok {
		t.Fatal("alice not in world")
	}
	if prefs.AutoRetaliate || prefs.Style != stats.StyleDefensive {
		t.Fatalf("prefs = %+v, want stored defensive/no-retaliate", prefs)
	}
}

func TestLeavePersistsPreferences(t *testing.T) {
	store := persist.NewMemory()
	h := newTestHub(t, testConfig(), Deps{Prefs: store})
	join := mustJoin(t, h, "")

	h.AdvanceTick(1, []sim.Command{{
		OriginTick: 1,
		ActorID:    join.ID,
		Type:       sim.CommandSetAutoRetaliate,
		AutoRetaliate: &sim.AutoRetaliateCommand{
			Enabled: false,
		},
	}})

	if err := h.Leave(context.Background(), join.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if h.KnowsPlayer(join.ID) {
		t.Fatal("player still known after leave")
	}

	stored, err := store.LoadPrefs(context.Background(), join.ID)
	if err != nil {
		t.Fatalf("LoadPrefs: %v", err)
	}
	if stored.AutoRetaliate {
		t.Fatal("auto-retaliate preference not persisted")
	}
}

func TestAdvanceTickAppliesWalkCommand(t *testing.T) {
	h := newTestHub(t, testConfig(), Deps{})
	join := mustJoin(t, h, "")

	h.AdvanceTick(1, []sim.Command{walkCmd(join.ID, 1, 18, 16)})
	h.AdvanceTick(2, nil)

	moves := 0
	for _, e := range h.Journal().EventsSinceSeq(0) {
		if e.Kind == journal.KindMove && e.Subject == join.ID {
			moves++
		}
	}
	if moves == 0 {
		t.Fatal("no move events after walk command")
	}
}

func TestAdvanceTickRejectsInvalidCommands(t *testing.T) {
	pub := &capturePublisher{}
	counters := telemetry.NewCounters()
	h := newTestHub(t, testConfig(), Deps{Publisher: pub, Metrics: counters})
	join := mustJoin(t, h, "")

	h.AdvanceTick(1, []sim.Command{
		{OriginTick: 1, ActorID: join.ID, Type: sim.CommandAttack,
			Attack: &sim.AttackCommand{TargetID: join.ID}},
		{OriginTick: 1, ActorID: "ghost", Type: sim.CommandDisengage},
		{OriginTick: 1, ActorID: join.ID, Type: sim.CommandWalk},
	})

	rejects := pub.ofType(combatlog.EventReject)
	if len(rejects) != 3 {
		t.Fatalf("reject events = %d, want 3", len(rejects))
	}
	reasons := make(map[string]bool)
	for _, e := range rejects {
		payload, ok := e.Payload.(combatlog.RejectPayload)
		if !ok {
			t.Fatalf("payload type %T", e.Payload)
		}
		reasons[payload.Reason] = true
	}
	for _, want := range []string{RejectSelfTarget, RejectUnknownActor, RejectMissingPayload} {
		if !reasons[want] {
			t.Fatalf("missing reject reason %q in %v", want, reasons)
		}
	}
	if got := counters.Snapshot()[metricCommandsRejected]; got != 3 {
		t.Fatalf("rejected counter = %d, want 3", got)
	}
}

func TestSnapshotCadencePersists(t *testing.T) {
	store := persist.NewMemory()
	h := newTestHub(t, testConfig(), Deps{Snapshots: store})
	mustJoin(t, h, "")

	for tick := uint64(1); tick <= 9; tick++ {
		h.AdvanceTick(tick, nil)
	}

	snap, err := store.LatestSnapshot(context.Background(), h.SessionID())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.Tick != 8 {
		t.Fatalf("latest snapshot tick = %d, want 8 (interval 4)", snap.Tick)
	}
	if _, ok := h.Journal().SnapshotAt(4); !ok {
		t.Fatal("journal missing snapshot at tick 4")
	}
}

func TestBroadcastDeliversFramesOnce(t *testing.T) {
	h := newTestHub(t, testConfig(), Deps{})
	join := mustJoin(t, h, "")

	sub, err := h.Subscribe(join.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer h.Unsubscribe(sub)

	h.AdvanceTick(1, []sim.Command{walkCmd(join.ID, 1, 18, 16)})

	select {
	case frame := <-sub.Frames():
		if len(frame) == 0 {
			t.Fatal("empty frame")
		}
	default:
		t.Fatal("no frame broadcast after tick")
	}
}

func TestSubscribeUnknownPlayer(t *testing.T) {
	h := newTestHub(t, testConfig(), Deps{})
	if _, err := h.Subscribe("nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}

func TestRejectReasonMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{world.ErrUnknownActor, RejectUnknownActor},
		{world.ErrNotPlayer, RejectUnknownActor},
		{world.ErrDeadActor, RejectDeadActor},
		{world.ErrUnknownTarget, RejectUnknownTarget},
		{world.ErrDeadTarget, RejectDeadTarget},
		{world.ErrSelfTarget, RejectSelfTarget},
		{world.ErrUnwalkable, RejectUnwalkable},
		{world.ErrInvalidStyle, RejectInvalidStyle},
		{errMissingPayload, RejectMissingPayload},
		{errUnknownCommand, RejectUnknownCommand},
	}
	for _, tc := range cases {
		if got := RejectReason(tc.err); got != tc.want {
			t.Errorf("RejectReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if RejectReason(nil) != "" {
		t.Error("RejectReason(nil) should be empty")
	}
}

func TestVerifyRangeCleanSession(t *testing.T) {
	pub := &capturePublisher{}
	h := newTestHub(t, testConfig(), Deps{Publisher: pub})
	join := mustJoin(t, h, "")

	for tick := uint64(1); tick <= 6; tick++ {
		h.AdvanceTick(tick, []sim.Command{walkCmd(join.ID, tick, 20, 20)})
	}

	if anomalies := h.VerifyRange(0, 6); len(anomalies) != 0 {
		t.Fatalf("anomalies on clean session: %+v", anomalies)
	}
}

func TestReplayVerifyMatchesLiveDigests(t *testing.T) {
	h := newTestHub(t, testConfig(), Deps{})
	join := mustJoin(t, h, "")

	for tick := uint64(1); tick <= 12; tick++ {
		var cmds []sim.Command
		if tick%3 == 0 {
			cmds = append(cmds, walkCmd(join.ID, tick, 16+int(tick%5), 16))
		}
		h.AdvanceTick(tick, cmds)
	}

	report, err := h.ReplayVerify(4, 12)
	if err != nil {
		t.Fatalf("ReplayVerify: %v", err)
	}
	if len(report.MismatchTicks) != 0 {
		t.Fatalf("digest mismatches: %v", report.MismatchTicks)
	}
	if report.TicksChecked == 0 {
		t.Fatal("replay checked no ticks")
	}
}
