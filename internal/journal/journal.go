package journal

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Telemetry receives drop notifications when retention limits evict data.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

// Drop metrics reported through Telemetry.
const (
	MetricEventEvicted    = "journal_event_evicted"
	MetricSnapshotEvicted = "journal_snapshot_evicted"
	MetricDigestEvicted   = "journal_digest_evicted"
)

// Config bounds the journal's memory. The zero value normalizes to
// defaults fit for a single combat session.
type Config struct {
	// EventCapacity is the number of events retained before the oldest
	// are evicted.
	EventCapacity int
	// SnapshotCapacity is the number of restore points retained.
	SnapshotCapacity int
	// DigestCapacity is the number of per-tick digests retained.
	DigestCapacity int
	// Seed drives the event ID entropy so two runs of the same world seed
	// mint identical IDs in identical order.
	Seed uint64
}

// Normalized fills zero fields with defaults.
func (c Config) Normalized() Config {
	if c.EventCapacity <= 0 {
		c.EventCapacity = 8192
	}
	if c.SnapshotCapacity <= 0 {
		c.SnapshotCapacity = 8
	}
	if c.DigestCapacity <= 0 {
		c.DigestCapacity = 4096
	}
	return c
}

// TickDigest is the sealed summary of one tick: the world digest plus the
// position of the checksum chain when the tick closed.
type TickDigest struct {
	Tick     uint64 `json:"tick" msgpack:"tick"`
	Digest   uint64 `json:"digest" msgpack:"digest"`
	Checksum uint64 `json:"checksum" msgpack:"checksum"`
	Seq      uint64 `json:"seq" msgpack:"seq"`
}

// SnapshotRecordResult reports retention after recording a snapshot.
type SnapshotRecordResult struct {
	Size         int
	OldestTick   uint64
	NewestTick   uint64
	EvictedTicks []uint64
}

// Journal owns the bounded event history. Writes come from the tick
// pipeline only; reads may come from any goroutine, so everything is
// guarded by one RWMutex.
type Journal struct {
	mu        sync.RWMutex
	cfg       Config
	events    []Event
	seq       uint64
	head      uint64
	tail      uint64 // checksum of the newest evicted event
	tailSeq   uint64 // sequence of the newest evicted event
	digests   []TickDigest
	snapshots []Snapshot
	entropy   *ulid.MonotonicEntropy
	telemetry Telemetry
}

// rngReader adapts the seeded PCG stream to the entropy reader ULID wants.
type rngReader struct {
	rng *rand.Rand
}

func (r *rngReader) Read(p []byte) (int, error) {
	var v uint64
	for i := range p {
		if i%8 == 0 {
			v = r.rng.Uint64()
		}
		p[i] = byte(v)
		v >>= 8
	}
	return len(p), nil
}

// New constructs a journal. telemetry may be nil.
func New(cfg Config, telemetry Telemetry) *Journal {
	cfg = cfg.Normalized()
	source := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	return &Journal{
		cfg:       cfg,
		events:    make([]Event, 0, cfg.EventCapacity),
		digests:   make([]TickDigest, 0, cfg.DigestCapacity),
		snapshots: make([]Snapshot, 0, cfg.SnapshotCapacity),
		entropy:   ulid.Monotonic(&rngReader{rng: source}, 0),
		telemetry: telemetry,
	}
}

// Record assigns sequence, ID and chained checksum to e, appends it and
// returns the stored value. The event tick doubles as the ULID timestamp,
// which keeps IDs sortable by simulation time and reproducible across runs
// of the same seed.
func (j *Journal) Record(e Event) Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	e.Seq = j.seq
	if e.ID == "" {
		e.ID = ulid.MustNew(e.Tick, j.entropy).String()
	}
	e.Checksum = chainChecksum(j.head, &e)
	j.head = e.Checksum

	j.events = append(j.events, e)
	if overflow := len(j.events) - j.cfg.EventCapacity; overflow > 0 {
		j.tail = j.events[overflow-1].Checksum
		j.tailSeq = j.events[overflow-1].Seq
		copy(j.events, j.events[overflow:])
		j.events = j.events[:len(j.events)-overflow]
		j.dropLocked(MetricEventEvicted, overflow)
	}
	return e
}

// SealTick closes a tick with the world digest computed by the simulation.
func (j *Journal) SealTick(tick uint64, worldDigest uint64) TickDigest {
	j.mu.Lock()
	defer j.mu.Unlock()

	sealed := TickDigest{Tick: tick, Digest: worldDigest, Checksum: j.head, Seq: j.seq}
	j.digests = append(j.digests, sealed)
	if overflow := len(j.digests) - j.cfg.DigestCapacity; overflow > 0 {
		copy(j.digests, j.digests[overflow:])
		j.digests = j.digests[:len(j.digests)-overflow]
		j.dropLocked(MetricDigestEvicted, overflow)
	}
	return sealed
}

// Head returns the latest assigned sequence and the checksum chain head.
func (j *Journal) Head() (seq uint64, checksum uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seq, j.head
}

// OldestRetainedSeq reports the sequence of the oldest event still held.
func (j *Journal) OldestRetainedSeq() (uint64, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.events) == 0 {
		return 0, false
	}
	return j.events[0].Seq, true
}

// EventsBetween copies out the retained events with fromTick <= Tick <=
// toTick, in record order.
func (j *Journal) EventsBetween(fromTick, toTick uint64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for i := range j.events {
		e := &j.events[i]
		if e.Tick < fromTick || e.Tick > toTick {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// EventsFor copies out the retained events in the tick range that touch
// the entity, as subject or as target.
func (j *Journal) EventsFor(entityID string, fromTick, toTick uint64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for i := range j.events {
		e := &j.events[i]
		if e.Tick < fromTick || e.Tick > toTick {
			continue
		}
		if e.Subject != entityID && e.Target != entityID {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// EventsSinceSeq copies out every retained event with Seq > seq. Callers
// that stream the journal keep a cursor and hand it back here.
func (j *Journal) EventsSinceSeq(seq uint64) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for i := range j.events {
		if j.events[i].Seq <= seq {
			continue
		}
		out = append(out, j.events[i])
	}
	return out
}

// DigestAt returns the sealed digest for a tick, if still retained.
func (j *Journal) DigestAt(tick uint64) (TickDigest, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for i := len(j.digests) - 1; i >= 0; i-- {
		if j.digests[i].Tick == tick {
			return j.digests[i], true
		}
	}
	return TickDigest{}, false
}

// Digests copies out the retained tick digests with fromTick <= Tick <=
// toTick.
func (j *Journal) Digests(fromTick, toTick uint64) []TickDigest {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []TickDigest
	for _, d := range j.digests {
		if d.Tick < fromTick || d.Tick > toTick {
			continue
		}
		out = append(out, d)
	}
	return out
}

// RecordSnapshot stores a restore point, evicting the oldest beyond
// capacity.
func (j *Journal) RecordSnapshot(s Snapshot) SnapshotRecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	s.RecordedAt = time.Now()
	j.snapshots = append(j.snapshots, s.Clone())

	var evicted []uint64
	if overflow := len(j.snapshots) - j.cfg.SnapshotCapacity; overflow > 0 {
		for i := 0; i < overflow; i++ {
			evicted = append(evicted, j.snapshots[i].Tick)
		}
		copy(j.snapshots, j.snapshots[overflow:])
		j.snapshots = j.snapshots[:len(j.snapshots)-overflow]
		j.dropLocked(MetricSnapshotEvicted, overflow)
	}

	result := SnapshotRecordResult{Size: len(j.snapshots), EvictedTicks: evicted}
	if result.Size > 0 {
		result.OldestTick = j.snapshots[0].Tick
		result.NewestTick = j.snapshots[result.Size-1].Tick
	}
	return result
}

// LatestSnapshot returns a copy of the newest restore point.
func (j *Journal) LatestSnapshot() (Snapshot, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.snapshots) == 0 {
		return Snapshot{}, false
	}
	return j.snapshots[len(j.snapshots)-1].Clone(), true
}

// SnapshotAt returns a copy of the newest restore point taken at or before
// tick.
func (j *Journal) SnapshotAt(tick uint64) (Snapshot, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for i := len(j.snapshots) - 1; i >= 0; i-- {
		if j.snapshots[i].Tick <= tick {
			return j.snapshots[i].Clone(), true
		}
	}
	return Snapshot{}, false
}

func (j *Journal) dropLocked(metric string, n int) {
	if j.telemetry == nil {
		return
	}
	for i := 0; i < n; i++ {
		j.telemetry.RecordJournalDrop(metric)
	}
}
