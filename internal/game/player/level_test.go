package player_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dungeonmud/internal/game/player"
)

func TestExperienceForLevel_Curve(t *testing.T) {
	assert.Equal(t, 100, player.ExperienceForLevel(1))
	assert.Equal(t, 282, player.ExperienceForLevel(2))  // floor(100 * 2^1.5)
	assert.Equal(t, 519, player.ExperienceForLevel(3))  // floor(100 * 3^1.5)
	assert.Equal(t, 3162, player.ExperienceForLevel(10)) // floor(100 * 10^1.5)
}

func TestGainExperience_SingleLevel(t *testing.T) {
	p := player.New("ada", "default", "lobby")
	p.CurrentHP = 40

	gained := p.GainExperience(150)

	require.Equal(t, []int{2}, gained)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 50, p.Experience)
	assert.Equal(t, 1, p.UnspentPoints)
	assert.Equal(t, 110, p.MaxHP)
	assert.Equal(t, 110, p.CurrentHP, "level up fully heals")
	assert.Equal(t, 105, p.MaxStamina)
	assert.Equal(t, 105, p.CurrentStamina)
	assert.Equal(t, 12, p.Attack)
	assert.Equal(t, 6, p.Defense)
}

func TestGainExperience_MultipleLevelsInOneGrant(t *testing.T) {
	p := player.New("ada", "default", "lobby")

	// 100 (L1) + 282 (L2) + 19 leftover.
	gained := p.GainExperience(401)

	assert.Equal(t, []int{2, 3}, gained)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 19, p.Experience)
	assert.Equal(t, 2, p.UnspentPoints)
}

func TestGainExperience_HardCapAtThirty(t *testing.T) {
	p := player.New("ada", "default", "lobby")
	p.Level = player.MaxLevel
	p.Experience = 0

	gained := p.GainExperience(1_000_000)

	assert.Empty(t, gained)
	assert.Equal(t, player.MaxLevel, p.Level)
	assert.Equal(t, 1_000_000, p.Experience, "excess experience retained")
}

func TestGainExperience_NeverExceedsCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := player.New("ada", "default", "lobby")
		for range rapid.IntRange(1, 40).Draw(t, "grants") {
			p.GainExperience(rapid.IntRange(0, 500_000).Draw(t, "xp"))
			if p.Level > player.MaxLevel {
				t.Fatalf("level %d exceeds cap", p.Level)
			}
			if p.Experience < 0 {
				t.Fatalf("negative experience %d", p.Experience)
			}
		}
	})
}
