package stats

// Roll construction constants. The effective-level offset keeps low-level
// rolls away from zero; the roll offset weights the equipment term so bare
// fists still roll something.
const (
	effectiveLevelOffset = 8
	rollBonusOffset      = 64
	maxHitDivisor        = 640
)

// effectiveLevel folds the style bonus and the flat offset into a level.
func effectiveLevel(level, styleBonus int) int {
	if level < 1 {
		level = 1
	}
	return level + styleBonus + effectiveLevelOffset
}

// roll combines an effective level with an equipment bonus.
func roll(effective, equipmentBonus int) int {
	return effective * (equipmentBonus + rollBonusOffset)
}

// maxHit is floor(0.5 + effective*(bonus+64)/640), computed in integers:
// the +320 term is the 0.5 rounding offset scaled by the divisor.
func maxHit(effectiveStrength, strengthBonus int) int {
	return (effectiveStrength*(strengthBonus+rollBonusOffset) + maxHitDivisor/2) / maxHitDivisor
}
