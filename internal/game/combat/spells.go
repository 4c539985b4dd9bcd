package combat

import "github.com/cory-johannsen/dungeonmud/internal/game/catalog"

// SpellCost returns the stamina cost of casting a spell at the given spell
// level. Cost grows 5% per level above 1, truncated.
func SpellCost(tmpl *catalog.SpellTemplate, spellLevel int) int {
	if spellLevel < 1 {
		spellLevel = 1
	}
	return int(float64(tmpl.StaminaCost) * (1.0 + 0.05*float64(spellLevel-1)))
}

// SpellPower computes the damage (or healing) of a cast:
// base damage, plus 10% of base per spell level above 1, plus the caster's
// attack scaled by the spell's multiplier, all scaled 5% per player level
// above 1. Never below 1.
func SpellPower(tmpl *catalog.SpellTemplate, spellLevel, playerLevel, attack int) int {
	if spellLevel < 1 {
		spellLevel = 1
	}
	if playerLevel < 1 {
		playerLevel = 1
	}
	base := float64(tmpl.BaseDamage)
	levelBonus := base * float64(spellLevel-1) * 0.1
	attackDamage := float64(int(float64(attack) * tmpl.DamageMultiplier))
	levelMultiplier := 1.0 + float64(playerLevel-1)*0.05

	total := int((base + levelBonus + attackDamage) * levelMultiplier)
	if total < 1 {
		total = 1
	}
	return total
}

// FailChance returns the chance a damage spell fizzles: 13% at spell level
// 1, dropping 2% per level to a 5% floor.
func FailChance(spellLevel int) float64 {
	chance := 0.15 - 0.02*float64(spellLevel)
	if chance < 0.05 {
		chance = 0.05
	}
	return chance
}
