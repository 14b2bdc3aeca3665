package stats

import "fmt"

// Slot enumerates the equipment positions folded into combat bonuses.
type Slot uint8

const (
	SlotWeapon Slot = iota
	SlotShield
	SlotHead
	SlotBody
	SlotLegs

	slotCount
)

// UnarmedSpeed is the swing interval, in ticks, with no weapon equipped.
const UnarmedSpeed = 4

func (s Slot) String() string {
	switch s {
	case SlotWeapon:
		return "weapon"
	case SlotShield:
		return "shield"
	case SlotHead:
		return "head"
	case SlotBody:
		return "body"
	case SlotLegs:
		return "legs"
	default:
		return fmt.Sprintf("slot(%d)", uint8(s))
	}
}

// Item is a piece of equipment. Speed only matters for weapons: it is the
// number of ticks between swings.
type Item struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Slot    Slot    `json:"slot"`
	Bonuses Bonuses `json:"bonuses"`
	Speed   int     `json:"speed,omitempty"`
}

// Loadout is the set of equipped items. The zero value is an empty loadout
// (bare hands, no bonuses).
type Loadout struct {
	slots [slotCount]*Item
}

// Equip places item into its slot, replacing whatever was there.
func (l *Loadout) Equip(item Item) error {
	if item.Slot >= slotCount {
		return fmt.Errorf("stats: invalid slot %d for item %q", item.Slot, item.ID)
	}
	copied := item
	l.slots[item.Slot] = &copied
	return nil
}

// Unequip clears a slot.
func (l *Loadout) Unequip(slot Slot) {
	if slot < slotCount {
		l.slots[slot] = nil
	}
}

// Fold aggregates bonuses across all slots. Slots fold in declaration
// order, which keeps the result independent of equip order.
func (l *Loadout) Fold() Bonuses {
	var total Bonuses
	if l == nil {
		return total
	}
	for _, item := range l.slots {
		if item == nil {
			continue
		}
		total = total.add(item.Bonuses)
	}
	return total
}

// WeaponSpeed is the swing interval of the equipped weapon, or UnarmedSpeed
// with empty hands. Non-positive item speeds fall back to UnarmedSpeed.
func (l *Loadout) WeaponSpeed() int {
	if l == nil {
		return UnarmedSpeed
	}
	weapon := l.slots[SlotWeapon]
	if weapon == nil || weapon.Speed <= 0 {
		return UnarmedSpeed
	}
	return weapon.Speed
}
