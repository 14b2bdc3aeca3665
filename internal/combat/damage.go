package combat

import "duskhaven/server/internal/stats"

// Source is the slice of randomness the damage pipeline consumes. The
// session RNG satisfies it; tests substitute scripted values. Draws happen
// in a fixed, recorded order, which is what makes replay byte-exact.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Outcome is one resolved swing.
type Outcome struct {
	Hit    bool
	Damage int
	MaxHit int
}

// HitProbability is the closed-form chance that an attack roll beats a
// defence roll:
//
//	atk > def: 1 - (def+2) / (2*(atk+1))
//	atk <= def:          atk / (2*(def+1))
//
// Both branches stay in (0, 1) for positive rolls and can be checked by
// hand for any pair of inputs.
func HitProbability(attackRoll, defenceRoll int) float64 {
	if attackRoll > defenceRoll {
		return 1 - float64(defenceRoll+2)/(2*float64(attackRoll+1))
	}
	return float64(attackRoll) / (2 * float64(defenceRoll+1))
}

// Resolve rolls attacker's swing against defender. Exactly one uniform
// draw decides hit or miss; a hit consumes exactly one more draw for the
// damage, uniform over [0, MaxHit]. A miss consumes no damage draw, so
// every resolution's RNG cost is knowable from its outcome.
func Resolve(src Source, attacker, defender stats.Profile) Outcome {
	out := Outcome{MaxHit: attacker.MaxHit()}
	p := HitProbability(attacker.AttackRoll(), defender.DefenceRoll())
	if src.Float64() >= p {
		return out
	}
	out.Hit = true
	out.Damage = src.IntN(out.MaxHit + 1)
	return out
}
