package journal

// FNV-1a, folded incrementally over typed fields. The checksum chain and
// the world digest both ride on it: cheap, stable across platforms, and
// order-sensitive, which is the property the chain exists to protect.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

type digest struct {
	h uint64
}

func newDigest() digest {
	return digest{h: fnvOffset64}
}

func (d *digest) byte(b byte) {
	d.h ^= uint64(b)
	d.h *= fnvPrime64
}

func (d *digest) u64(v uint64) {
	for i := 0; i < 8; i++ {
		d.byte(byte(v))
		v >>= 8
	}
}

func (d *digest) int(v int) {
	d.u64(uint64(int64(v)))
}

func (d *digest) str(s string) {
	for i := 0; i < len(s); i++ {
		d.byte(s[i])
	}
	d.byte(0)
}

func (d *digest) bool(v bool) {
	if v {
		d.byte(1)
	} else {
		d.byte(0)
	}
}

// DigestEntities folds the combat-visible state of every entity, in the
// creation order the caller maintains, into one value. Live ticks and
// replayed ticks digest the same fields, so equal digests mean equal
// observable state.
func DigestEntities(tick uint64, entities []EntitySnapshot) uint64 {
	d := newDigest()
	d.u64(tick)
	for i := range entities {
		e := &entities[i]
		d.str(e.ID)
		d.int(e.Origin.X)
		d.int(e.Origin.Z)
		d.int(e.Size)
		d.int(e.Health)
		d.bool(e.Dead)
		d.str(e.TargetID)
		d.u64(e.NextAttackTick)
		d.byte(byte(e.Style))
		d.bool(e.AutoRetaliate)
	}
	return d.h
}

// chainChecksum folds one event onto the previous chain head. Every field
// that gives the event meaning participates, so reordering, dropping or
// editing any retained event breaks every checksum after it.
func chainChecksum(prev uint64, e *Event) uint64 {
	d := newDigest()
	d.u64(prev)
	d.u64(e.Seq)
	d.u64(e.Tick)
	d.str(e.ID)
	d.str(string(e.Kind))
	d.str(e.Subject)
	d.str(e.Target)
	switch {
	case e.Spawn != nil:
		p := e.Spawn
		d.str(p.Archetype)
		d.bool(p.Player)
		d.int(p.Origin.X)
		d.int(p.Origin.Z)
		d.int(p.Size)
		d.int(p.Health)
		d.int(p.Levels.Attack)
		d.int(p.Levels.Strength)
		d.int(p.Levels.Defence)
		d.int(p.Levels.Hitpoints)
		d.int(p.Bonuses.Attack)
		d.int(p.Bonuses.Strength)
		d.int(p.Bonuses.Defence)
		d.byte(byte(p.Style))
		d.bool(p.AutoRetaliate)
		d.int(p.WeaponSpeed)
		d.int(p.AttackRange)
		d.bool(p.Blocking)
		d.u64(p.CreatedSeq)
	case e.Move != nil:
		d.int(e.Move.From.X)
		d.int(e.Move.From.Z)
		d.int(e.Move.To.X)
		d.int(e.Move.To.Z)
	case e.Untarget != nil:
		d.str(e.Untarget.Reason)
	case e.Attack != nil:
		p := e.Attack
		d.bool(p.Hit)
		d.int(p.Damage)
		d.int(p.TargetHealthAfter)
		d.u64(p.NextAttackTick)
		d.u64(p.TargetNextAttackTick)
		d.bool(p.TargetRetaliated)
		d.int(p.Speed)
	case e.Death != nil:
		d.u64(e.Death.RespawnTick)
	case e.Heal != nil:
		d.int(e.Heal.Health)
	case e.Respawn != nil:
		d.int(e.Respawn.Origin.X)
		d.int(e.Respawn.Origin.Z)
		d.int(e.Respawn.Health)
	case e.Preference != nil:
		d.bool(e.Preference.AutoRetaliate)
	case e.Style != nil:
		d.byte(byte(e.Style.Style))
	}
	return d.h
}
