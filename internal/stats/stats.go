// Package stats holds the combat attribute model: base levels, aggregated
// equipment bonuses, attack styles and the integer formulas that turn them
// into rolls. Everything here is pure integer math so identical inputs give
// identical rolls on every platform.
package stats

// Levels are the trained combat attributes of an entity. Values are small
// positive integers; level 1 is the floor for a fresh entity.
type Levels struct {
	Attack    int `json:"attack"`
	Strength  int `json:"strength"`
	Defence   int `json:"defence"`
	Hitpoints int `json:"hitpoints"`
}

// Normalized clamps every level to at least 1.
func (l Levels) Normalized() Levels {
	if l.Attack < 1 {
		l.Attack = 1
	}
	if l.Strength < 1 {
		l.Strength = 1
	}
	if l.Defence < 1 {
		l.Defence = 1
	}
	if l.Hitpoints < 1 {
		l.Hitpoints = 1
	}
	return l
}

// CombatLevel condenses the levels into the single number aggression
// gating compares against a mob's listed level.
func (l Levels) CombatLevel() int {
	l = l.Normalized()
	return (l.Attack + l.Strength + l.Defence + l.Hitpoints) / 4
}

// Bonuses are flat equipment contributions folded across a loadout.
type Bonuses struct {
	Attack   int `json:"attack"`
	Strength int `json:"strength"`
	Defence  int `json:"defence"`
}

func (b Bonuses) add(other Bonuses) Bonuses {
	b.Attack += other.Attack
	b.Strength += other.Strength
	b.Defence += other.Defence
	return b
}

// Profile bundles everything the damage pipeline needs to know about one
// side of an exchange. Profiles are plain values captured at resolve time.
type Profile struct {
	Levels  Levels
	Bonuses Bonuses
	Style   Style
}

// AttackRoll is the attacker-side accuracy roll.
func (p Profile) AttackRoll() int {
	return roll(effectiveLevel(p.Levels.Attack, p.Style.AttackBonus()), p.Bonuses.Attack)
}

// DefenceRoll is the defender-side accuracy roll.
func (p Profile) DefenceRoll() int {
	return roll(effectiveLevel(p.Levels.Defence, p.Style.DefenceBonus()), p.Bonuses.Defence)
}

// MaxHit is the inclusive damage ceiling of a successful hit.
func (p Profile) MaxHit() int {
	return maxHit(effectiveLevel(p.Levels.Strength, p.Style.StrengthBonus()), p.Bonuses.Strength)
}
