package stats

import "fmt"

// Style selects which attribute an entity's stance favours. Each style adds
// a flat bonus to its effective level before the roll offset is applied;
// Controlled trades the focused +3 for +1 across the board.
type Style uint8

const (
	StyleAccurate Style = iota
	StyleAggressive
	StyleDefensive
	StyleControlled

	styleCount
)

const (
	focusedStyleBonus    = 3
	controlledStyleBonus = 1
)

// Valid reports whether s names a known style.
func (s Style) Valid() bool {
	return s < styleCount
}

// AttackBonus is the flat effective-attack contribution of the style.
func (s Style) AttackBonus() int {
	switch s {
	case StyleAccurate:
		return focusedStyleBonus
	case StyleControlled:
		return controlledStyleBonus
	default:
		return 0
	}
}

// StrengthBonus is the flat effective-strength contribution of the style.
func (s Style) StrengthBonus() int {
	switch s {
	case StyleAggressive:
		return focusedStyleBonus
	case StyleControlled:
		return controlledStyleBonus
	default:
		return 0
	}
}

// DefenceBonus is the flat effective-defence contribution of the style.
func (s Style) DefenceBonus() int {
	switch s {
	case StyleDefensive:
		return focusedStyleBonus
	case StyleControlled:
		return controlledStyleBonus
	default:
		return 0
	}
}

func (s Style) String() string {
	switch s {
	case StyleAccurate:
		return "accurate"
	case StyleAggressive:
		return "aggressive"
	case StyleDefensive:
		return "defensive"
	case StyleControlled:
		return "controlled"
	default:
		return fmt.Sprintf("style(%d)", uint8(s))
	}
}

// ParseStyle maps the wire name of a style back to its value.
func ParseStyle(name string) (Style, error) {
	switch name {
	case "accurate":
		return StyleAccurate, nil
	case "aggressive":
		return StyleAggressive, nil
	case "defensive":
		return StyleDefensive, nil
	case "controlled":
		return StyleControlled, nil
	default:
		return 0, fmt.Errorf("stats: unknown style %q", name)
	}
}
