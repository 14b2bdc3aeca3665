package stats

import "testing"

func TestProfileRollsHandComputed(t *testing.T) {
	p := Profile{
		Levels:  Levels{Attack: 70, Strength: 75, Defence: 60, Hitpoints: 75},
		Bonuses: Bonuses{Attack: 40, Strength: 40, Defence: 30},
		Style:   StyleAccurate,
	}

	// accurate: effective attack = 70 + 3 + 8 = 81; roll = 81 * (40+64).
	if got, want := p.AttackRoll(), 81*104; got != want {
		t.Fatalf("AttackRoll = %d, want %d", got, want)
	}
	// no defensive bonus on accurate: effective defence = 60 + 0 + 8.
	if got, want := p.DefenceRoll(), 68*94; got != want {
		t.Fatalf("DefenceRoll = %d, want %d", got, want)
	}
	// strength untouched by accurate: eff = 83; floor(0.5 + 83*104/640) = 13.
	if got, want := p.MaxHit(), 13; got != want {
		t.Fatalf("MaxHit = %d, want %d", got, want)
	}

	p.Style = StyleAggressive
	// aggressive: eff strength = 86; floor(0.5 + 86*104/640) = 14.
	if got, want := p.MaxHit(), 14; got != want {
		t.Fatalf("aggressive MaxHit = %d, want %d", got, want)
	}
}

func TestStyleBonuses(t *testing.T) {
	cases := []struct {
		style         Style
		atk, str, def int
	}{
		{StyleAccurate, 3, 0, 0},
		{StyleAggressive, 0, 3, 0},
		{StyleDefensive, 0, 0, 3},
		{StyleControlled, 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.style.String(), func(t *testing.T) {
			if got := tc.style.AttackBonus(); got != tc.atk {
				t.Fatalf("attack bonus = %d, want %d", got, tc.atk)
			}
			if got := tc.style.StrengthBonus(); got != tc.str {
				t.Fatalf("strength bonus = %d, want %d", got, tc.str)
			}
			if got := tc.style.DefenceBonus(); got != tc.def {
				t.Fatalf("defence bonus = %d, want %d", got, tc.def)
			}
		})
	}
}

func TestParseStyleRoundTrip(t *testing.T) {
	for _, style := range []Style{StyleAccurate, StyleAggressive, StyleDefensive, StyleControlled} {
		parsed, err := ParseStyle(style.String())
		if err != nil {
			t.Fatalf("ParseStyle(%q) failed: %v", style.String(), err)
		}
		if parsed != style {
			t.Fatalf("ParseStyle(%q) = %v, want %v", style.String(), parsed, style)
		}
	}
	if _, err := ParseStyle("rampage"); err == nil {
		t.Fatalf("expected error for unknown style")
	}
}

func TestLevelsNormalized(t *testing.T) {
	l := Levels{Attack: 0, Strength: -4, Defence: 5, Hitpoints: 0}.Normalized()
	if l.Attack != 1 || l.Strength != 1 || l.Hitpoints != 1 {
		t.Fatalf("levels not clamped to 1: %+v", l)
	}
	if l.Defence != 5 {
		t.Fatalf("valid level should be untouched, got %d", l.Defence)
	}
}

func TestLoadoutFoldIsOrderIndependent(t *testing.T) {
	sword := Item{ID: "iron-sword", Slot: SlotWeapon, Bonuses: Bonuses{Attack: 10, Strength: 9}, Speed: 5}
	shield := Item{ID: "oak-shield", Slot: SlotShield, Bonuses: Bonuses{Defence: 8}}
	helm := Item{ID: "iron-helm", Slot: SlotHead, Bonuses: Bonuses{Defence: 4}}

	var a, b Loadout
	for _, item := range []Item{sword, shield, helm} {
		if err := a.Equip(item); err != nil {
			t.Fatalf("equip failed: %v", err)
		}
	}
	for _, item := range []Item{helm, sword, shield} {
		if err := b.Equip(item); err != nil {
			t.Fatalf("equip failed: %v", err)
		}
	}
	if a.Fold() != b.Fold() {
		t.Fatalf("fold depends on equip order: %+v vs %+v", a.Fold(), b.Fold())
	}
	want := Bonuses{Attack: 10, Strength: 9, Defence: 12}
	if got := a.Fold(); got != want {
		t.Fatalf("fold = %+v, want %+v", got, want)
	}
}

func TestLoadoutWeaponSpeed(t *testing.T) {
	var l Loadout
	if got := l.WeaponSpeed(); got != UnarmedSpeed {
		t.Fatalf("bare hands speed = %d, want %d", got, UnarmedSpeed)
	}
	if err := l.Equip(Item{ID: "bronze-dagger", Slot: SlotWeapon, Speed: 3}); err != nil {
		t.Fatalf("equip failed: %v", err)
	}
	if got := l.WeaponSpeed(); got != 3 {
		t.Fatalf("weapon speed = %d, want 3", got)
	}
	l.Unequip(SlotWeapon)
	if got := l.WeaponSpeed(); got != UnarmedSpeed {
		t.Fatalf("speed after unequip = %d, want %d", got, UnarmedSpeed)
	}
}
