package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
)

const sampleContent = `
monsters:
  - id: goblin
    name: Goblin
    description: A sneering little raider.
    max_hp: 30
    attack: 6
    defense: 2
    level_min: 1
    level_max: 3
    damage_min: 2
    damage_max: 8
    experience: 25
    experience_per_level: 10
    loot: [rusty_dagger]
    loot_chance: 0.5
    gold_min: 1
    gold_max: 10
    weaknesses:
      fire: 1.5
  - id: slime
    name: Slime
    description: A quivering blob.
    max_hp: 15
    attack: 3
    defense: 0
    level_min: 1
    level_max: 1
    damage_min: 1
    damage_max: 4
    experience: 10
    passive: true
items:
  - id: rusty_dagger
    name: Rusty Dagger
    description: Barely holds an edge.
    type: weapon
    stats: {attack: 3}
    value: 5
  - id: potion
    name: Healing Potion
    description: Restores a little health.
    type: consumable
    stats: {restore_hp: 25}
    value: 15
npcs:
  - id: merchant
    name: Old Merchant
    description: Sells the basics.
    dialogue: ["Welcome, traveler."]
    shop_items:
      - {item: potion, price: 15}
spells:
  - id: fireball
    name: Fireball
    description: A burst of flame.
    damage_type: fire
    base_damage: 12
    stamina_cost: 10
    cooldown_seconds: 5
    classes: [mage]
quests:
  - id: goblin_cull
    name: Goblin Cull
    description: Thin the goblin packs.
    objectives:
      - {type: kill, target: goblin, amount: 5}
    rewards: {gold: 50, experience: 40}
    giver_npc: merchant
classes:
  - id: mage
    name: Mage
    races: [human, elf]
  - id: warrior
    name: Warrior
    races: [human, dwarf]
races:
  - {id: human, name: Human}
  - {id: elf, name: Elf}
  - {id: dwarf, name: Dwarf}
genders:
  - {id: female, name: Female}
  - {id: male, name: Male}
`

func TestLoadFromBytes_ResolvesAllKinds(t *testing.T) {
	c, err := catalog.LoadFromBytes([]byte(sampleContent))
	require.NoError(t, err)

	goblin, ok := c.Monster("goblin")
	require.True(t, ok)
	assert.Equal(t, 1.5, goblin.Weaknesses["fire"])

	slime, ok := c.Monster("slime")
	require.True(t, ok)
	assert.True(t, slime.Passive)

	potion, ok := c.Item("potion")
	require.True(t, ok)
	assert.Equal(t, 25, potion.Stats.RestoreHP)

	_, ok = c.NPC("merchant")
	assert.True(t, ok)

	fireball, ok := c.Spell("fireball")
	require.True(t, ok)
	assert.True(t, fireball.LearnableBy("mage"))
	assert.False(t, fireball.LearnableBy("warrior"))

	quest, ok := c.Quest("goblin_cull")
	require.True(t, ok)
	assert.Equal(t, "kill_goblin", quest.Objectives[0].ProgressKey())
}

func TestLoadFromBytes_RejectsDuplicateIDs(t *testing.T) {
	doc := `
items:
  - {id: potion, name: Potion A, type: consumable}
  - {id: potion, name: Potion B, type: consumable}
`
	_, err := catalog.LoadFromBytes([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate item ID")
}

func TestLoadFromBytes_ValidatesTemplates(t *testing.T) {
	doc := `
monsters:
  - id: broken
    name: Broken
    max_hp: 10
    level_min: 3
    level_max: 1
`
	_, err := catalog.LoadFromBytes([]byte(doc))
	assert.Error(t, err)
}

func TestRacesForClass_FiltersByCompatibility(t *testing.T) {
	c, err := catalog.LoadFromBytes([]byte(sampleContent))
	require.NoError(t, err)

	races := c.RacesForClass("mage")
	ids := make([]string, 0, len(races))
	for _, r := range races {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"elf", "human"}, ids)
	assert.Nil(t, c.RacesForClass("bard"))
}

func TestItemStats_ImplementsStatLookup(t *testing.T) {
	c, err := catalog.LoadFromBytes([]byte(sampleContent))
	require.NoError(t, err)

	stats, ok := c.ItemStats("rusty_dagger")
	require.True(t, ok)
	assert.Equal(t, 3, stats.Attack)

	_, ok = c.ItemStats("nonexistent")
	assert.False(t, ok)
}

func TestBestMatch_LongestMatchWins(t *testing.T) {
	candidates := []catalog.Candidate{
		{ID: "wolf", Name: "Wolf"},
		{ID: "dire_wolf", Name: "Dire Wolf"},
		{ID: "goblin", Name: "Goblin"},
	}

	id, ok := catalog.BestMatch("dire", candidates)
	require.True(t, ok)
	assert.Equal(t, "dire_wolf", id)

	id, ok = catalog.BestMatch("WOLF", candidates)
	require.True(t, ok)
	assert.Equal(t, "wolf", id, "exact name match beats longer substring")

	id, ok = catalog.BestMatch("goblin", candidates)
	require.True(t, ok)
	assert.Equal(t, "goblin", id)

	_, ok = catalog.BestMatch("dragon", candidates)
	assert.False(t, ok)

	_, ok = catalog.BestMatch("   ", candidates)
	assert.False(t, ok)
}
