package player

import "math"

// MaxLevel is the hard level cap.
const MaxLevel = 30

// Per-level stat growth applied on each level gained.
const (
	levelUpHPGain      = 10
	levelUpStaminaGain = 5
	levelUpAttackGain  = 2
	levelUpDefenseGain = 1
)

// ExperienceForLevel returns the experience required to advance from the
// given level to the next one: floor(100 * level^1.5).
//
// Precondition: level >= 1.
// Postcondition: returns math.MaxInt for levels at or past the cap, so the
// level-up loop cannot advance beyond MaxLevel.
func ExperienceForLevel(level int) int {
	if level >= MaxLevel {
		return math.MaxInt
	}
	return int(100 * math.Pow(float64(level), 1.5))
}

// GainExperience adds experience and repeatedly levels the player up while
// the threshold for the current level is met. Each level gained fully
// restores HP and stamina, grows the base stats, and grants one unspent
// skill point. Experience past the cap threshold is retained as-is.
//
// Postcondition: returns the levels reached, in order; empty if no level-up
// occurred.
func (p *Player) GainExperience(amount int) []int {
	p.Experience += amount

	var gained []int
	required := ExperienceForLevel(p.Level)
	for p.Experience >= required && p.Level < MaxLevel {
		p.Experience -= required
		p.Level++

		p.MaxHP += levelUpHPGain
		p.CurrentHP = p.MaxHP
		p.MaxStamina += levelUpStaminaGain
		p.CurrentStamina = p.MaxStamina
		p.Attack += levelUpAttackGain
		p.Defense += levelUpDefenseGain
		p.UnspentPoints++

		gained = append(gained, p.Level)
		required = ExperienceForLevel(p.Level)
	}
	return gained
}
