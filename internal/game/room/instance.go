// Package room provides the shared per-room entity registry: live monster
// instances, floor items, and respawn bookkeeping. It is the only place in
// the game where multiple sessions mutate the same state, so every entry is
// its own critical section.
package room

import (
	"fmt"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
)

// levelScalePerStep is the stat growth applied per level rolled above the
// spawn range minimum.
const levelScalePerStep = 0.10

// Instance is one live monster in a room. Identity is (world, room, ID);
// IDs are allocated monotonically per room and never reused, so a stale
// reference can be detected rather than silently hitting a different
// monster.
//
// Instances are owned by the registry and must only be mutated while the
// owning entry's lock is held; callers outside the package see value copies.
type Instance struct {
	ID         int
	TemplateID string
	Name       string
	Level      int
	MaxHP      int
	CurrentHP  int
	Attack     int
	Defense    int
	DamageMin  int
	DamageMax  int
	Aggressive bool
	Passive    bool

	resistances map[string]float64
	weaknesses  map[string]float64

	xpValue    int
	goldMin    int
	goldMax    int
	loot       []string
	lootChance float64
}

// newInstance builds an instance from a template, rolling the level within
// the configured range and scaling hp/attack/defense 10% per level above the
// range minimum.
func newInstance(id int, tmpl *catalog.MonsterTemplate, levelMin, levelMax int, src roll.Source) *Instance {
	if levelMin <= 0 {
		levelMin = tmpl.LevelMin
	}
	if levelMax < levelMin {
		levelMax = levelMin
	}
	level := roll.Between(src, levelMin, levelMax)
	scale := 1.0 + levelScalePerStep*float64(level-levelMin)

	return &Instance{
		ID:          id,
		TemplateID:  tmpl.ID,
		Name:        tmpl.Name,
		Level:       level,
		MaxHP:       scaled(tmpl.MaxHP, scale),
		CurrentHP:   scaled(tmpl.MaxHP, scale),
		Attack:      scaled(tmpl.Attack, scale),
		Defense:     scaled(tmpl.Defense, scale),
		DamageMin:   tmpl.DamageMin,
		DamageMax:   tmpl.DamageMax,
		Aggressive:  tmpl.Aggressive,
		Passive:     tmpl.Passive,
		resistances: tmpl.Resistances,
		weaknesses:  tmpl.Weaknesses,
		xpValue:     tmpl.Experience + (level-tmpl.LevelMin)*tmpl.ExperiencePerLevel,
		goldMin:     tmpl.GoldMin,
		goldMax:     tmpl.GoldMax,
		loot:        tmpl.Loot,
		lootChance:  tmpl.LootChance,
	}
}

func scaled(base int, scale float64) int {
	v := int(float64(base) * scale)
	if v < 1 && base > 0 {
		v = 1
	}
	return v
}

// IsAlive reports whether the instance has hit points remaining.
func (i *Instance) IsAlive() bool {
	return i.CurrentHP > 0
}

// applyDamage applies elemental resistance/weakness multipliers for the
// damage type, subtracts defense, and deals at least 1. Returns the damage
// actually dealt.
//
// Precondition: the owning entry's lock must be held.
func (i *Instance) applyDamage(amount int, damageType string) int {
	multiplier := 1.0
	if r, ok := i.resistances[damageType]; ok {
		multiplier *= 1.0 - r
	}
	if w, ok := i.weaknesses[damageType]; ok {
		multiplier *= w
	}
	actual := int(float64(amount)*multiplier) - i.Defense
	if actual < 1 {
		actual = 1
	}
	i.CurrentHP -= actual
	if i.CurrentHP < 0 {
		i.CurrentHP = 0
	}
	return actual
}

// rollDamage returns a uniform roll within the instance's damage range.
func (i *Instance) rollDamage(src roll.Source) int {
	return roll.Between(src, i.DamageMin, i.DamageMax)
}

// ExperienceValue returns the XP awarded for killing this instance. The
// value is fixed at spawn time from the template's base experience plus the
// per-level bonus for each level above the template's minimum.
func (i *Instance) ExperienceValue() int {
	return i.xpValue
}

// GoldDrop rolls the gold carried by the instance.
func (i *Instance) GoldDrop(src roll.Source) int {
	return roll.Between(src, i.goldMin, i.goldMax)
}

// RollLoot rolls the loot table: a single chance gate, then a uniform pick
// from the template's loot list. Returns "" when nothing drops.
func (i *Instance) RollLoot(src roll.Source) string {
	if len(i.loot) == 0 || !roll.Chance(src, i.lootChance) {
		return ""
	}
	return i.loot[roll.Pick(src, len(i.loot))]
}

// HealthDescription buckets the instance's remaining HP into a short
// player-facing phrase.
func (i *Instance) HealthDescription() string {
	if i.MaxHP <= 0 {
		return "unscathed"
	}
	pct := 100 * i.CurrentHP / i.MaxHP
	switch {
	case pct >= 100:
		return "unscathed"
	case pct >= 75:
		return "lightly wounded"
	case pct >= 50:
		return "wounded"
	case pct >= 25:
		return "badly wounded"
	case pct > 0:
		return "near death"
	default:
		return "dead"
	}
}

// Label returns the player-facing "[id] Name" form used in room listings
// and attack targeting.
func (i *Instance) Label() string {
	return fmt.Sprintf("[%d] %s", i.ID, i.Name)
}
