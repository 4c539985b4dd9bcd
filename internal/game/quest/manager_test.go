package quest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/quest"
)

const questCatalogYAML = `
monsters:
  - id: goblin
    name: Goblin
    max_hp: 30
    level_min: 1
    level_max: 1
items:
  - id: herb
    name: Wild Herb
    type: misc
  - id: potion
    name: Healing Potion
    type: consumable
    stats:
      restore_hp: 25
spells:
  - id: fireball
    name: Fireball
    damage_type: fire
    base_damage: 15
    stamina_cost: 20
  - id: ice_bolt
    name: Ice Bolt
    damage_type: ice
    base_damage: 12
    stamina_cost: 15
npcs:
  - id: merchant
    name: Old Merchant
    lore: Keeper of the lobby shop.
quests:
  - id: goblin_cull
    name: Goblin Cull
    description: Thin out the goblins.
    objectives:
      - type: kill
        target: goblin
        amount: 2
    rewards:
      gold: 50
      experience: 120
      items: [potion]
  - id: dark_bargain
    name: Dark Bargain
    description: Power demands a price.
    objectives:
      - type: kill
        target: goblin
        amount: 1
      - type: sacrifice_ability
        target: spell
        amount: 1
    rewards:
      gold: 10
`

type stubSource struct{ v int }

func (s stubSource) Intn(n int) int {
	if s.v >= n {
		return n - 1
	}
	return s.v
}

func newManager(t *testing.T) (*quest.Manager, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.LoadFromBytes([]byte(questCatalogYAML))
	require.NoError(t, err)
	return quest.NewManager(cat), cat
}

func mustQuest(t *testing.T, m *quest.Manager, id string) *catalog.QuestTemplate {
	t.Helper()
	q, ok := m.Quest(id)
	require.True(t, ok)
	return q
}

func TestAccept(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	q := mustQuest(t, m, "goblin_cull")

	require.NoError(t, m.Accept(p, q))
	assert.True(t, m.Active(p, "goblin_cull"))
	assert.ErrorIs(t, m.Accept(p, q), quest.ErrAlreadyActive)
}

func TestRecordKill_ProgressAndCompletionNotice(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	require.NoError(t, m.Accept(p, mustQuest(t, m, "goblin_cull")))

	lines := m.RecordKill(p, "goblin")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "1/2")

	lines = m.RecordKill(p, "goblin")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "2/2")
	assert.Contains(t, lines[1], "All objectives met")

	// Counters stop at the objective amount.
	assert.Empty(t, m.RecordKill(p, "goblin"))
	assert.Empty(t, m.RecordKill(p, "wolf"), "unrelated kills advance nothing")
}

func TestComplete_RewardsAndBookkeeping(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	q := mustQuest(t, m, "goblin_cull")
	require.NoError(t, m.Accept(p, q))

	_, _, err := m.Complete(p, q)
	assert.ErrorIs(t, err, quest.ErrObjectivesPending)

	m.RecordKill(p, "goblin")
	m.RecordKill(p, "goblin")

	rewards, levels, err := m.Complete(p, q)
	require.NoError(t, err)
	assert.Equal(t, 50, rewards.Gold)
	assert.Equal(t, 50, p.Gold)
	assert.Equal(t, []int{2}, levels, "120 XP crosses the first level threshold")
	assert.True(t, p.HasItem("potion"))
	assert.False(t, m.Active(p, "goblin_cull"))
	assert.Contains(t, p.CompletedQuests, "goblin_cull")
	assert.NotContains(t, p.ActiveQuests, "goblin_cull")
	_, hasProgress := p.QuestProgress["goblin_cull"]
	assert.False(t, hasProgress)

	// Completed quests cannot be retaken.
	assert.ErrorIs(t, m.Accept(p, q), quest.ErrAlreadyCompleted)
}

func TestComplete_RequiresSacrificeFirst(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	p.KnownSpells["fireball"] = 1
	p.KnownSpells["ice_bolt"] = 2
	require.NoError(t, p.EquipSpell("fireball"))
	q := mustQuest(t, m, "dark_bargain")
	require.NoError(t, m.Accept(p, q))
	m.RecordKill(p, "goblin")

	_, _, err := m.Complete(p, q)
	assert.ErrorIs(t, err, quest.ErrSacrificeRequired)

	// Equipped spells are protected; only Ice Bolt may be given up.
	candidates := m.SacrificeCandidates(p, quest.SacrificeSpell)
	require.Len(t, candidates, 1)
	assert.Equal(t, "ice_bolt", candidates[0].ID)

	_, err = m.Sacrifice(p, q, "fireball")
	assert.ErrorIs(t, err, quest.ErrAbilityNotFound)

	given, err := m.Sacrifice(p, q, "ice")
	require.NoError(t, err)
	assert.Equal(t, "ice_bolt", given.ID)
	_, known := p.KnownSpells["ice_bolt"]
	assert.False(t, known)

	_, _, err = m.Complete(p, q)
	require.NoError(t, err)
}

func TestSacrifice_NothingToGive(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	q := mustQuest(t, m, "dark_bargain")
	require.NoError(t, m.Accept(p, q))

	_, err := m.Sacrifice(p, q, "anything")
	assert.ErrorIs(t, err, quest.ErrNothingToGive)
}

func TestStatus(t *testing.T) {
	m, _ := newManager(t)
	p := player.New("hero", "default", "lobby")
	q := mustQuest(t, m, "goblin_cull")
	require.NoError(t, m.Accept(p, q))
	m.RecordKill(p, "goblin")

	lines := m.Status(p, q)
	require.Len(t, lines, 1)
	assert.Equal(t, "slay goblin: 1/2", lines[0])
}

func TestAddGenerated_ResolvableAndValidated(t *testing.T) {
	m, _ := newManager(t)

	bad := &catalog.QuestTemplate{ID: "broken", Name: "Broken"}
	assert.Error(t, m.AddGenerated(bad), "generated quests are validated")

	good := &catalog.QuestTemplate{
		ID:          "generated_merchant_0001",
		Name:        "Merchant's Errand",
		Objectives:  []catalog.QuestObjective{{Type: "kill", Target: "goblin", Amount: 3}},
		GiverNPC:    "merchant",
		Description: "Help the merchant.",
	}
	require.NoError(t, m.AddGenerated(good))

	got, ok := m.Quest("generated_merchant_0001")
	require.True(t, ok)
	assert.Equal(t, "Merchant's Errand", got.Name)

	// Progress flows through generated quests like static ones.
	p := player.New("hero", "default", "lobby")
	require.NoError(t, m.Accept(p, got))
	lines := m.RecordKill(p, "goblin")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "1/3")
}

func TestTemplateGenerator(t *testing.T) {
	cat, err := catalog.LoadFromBytes([]byte(questCatalogYAML))
	require.NoError(t, err)
	npc, _ := cat.NPC("merchant")

	gen := quest.NewTemplateGenerator(stubSource{v: 0})
	q, err := gen.Generate(context.Background(), npc, "")
	require.NoError(t, err)
	require.NoError(t, q.Validate())
	assert.Equal(t, "merchant", q.GiverNPC)
	require.Len(t, q.Objectives, 1)
	assert.Equal(t, "kill", q.Objectives[0].Type)
	assert.GreaterOrEqual(t, q.Objectives[0].Amount, 3)
	assert.LessOrEqual(t, q.Objectives[0].Amount, 7)

	gen = quest.NewTemplateGenerator(stubSource{v: 1})
	q, err = gen.Generate(context.Background(), npc, "")
	require.NoError(t, err)
	assert.Equal(t, "collect", q.Objectives[0].Type)
	assert.Equal(t, []string{"potion"}, q.Rewards.Items)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *catalog.NPCTemplate, string) (*catalog.QuestTemplate, error) {
	return nil, errors.New("model unavailable")
}

func TestFallbackGenerator(t *testing.T) {
	cat, err := catalog.LoadFromBytes([]byte(questCatalogYAML))
	require.NoError(t, err)
	npc, _ := cat.NPC("merchant")

	var observed error
	gen := quest.NewFallbackGenerator(failingGenerator{}, quest.NewTemplateGenerator(stubSource{v: 0}), func(err error) {
		observed = err
	})
	q, err := gen.Generate(context.Background(), npc, "")
	require.NoError(t, err)
	require.NoError(t, q.Validate())
	assert.Equal(t, "merchant", q.GiverNPC)
	assert.EqualError(t, observed, "model unavailable")

	// A healthy primary is passed through untouched.
	tmpl := quest.NewTemplateGenerator(stubSource{v: 1})
	gen = quest.NewFallbackGenerator(tmpl, failingGenerator{}, nil)
	q, err = gen.Generate(context.Background(), npc, "")
	require.NoError(t, err)
	assert.Equal(t, "collect", q.Objectives[0].Type)
}

func TestParseGeneratedQuest(t *testing.T) {
	reply := "```json\n" + `{
  "name": "The Rat Problem",
  "description": "Clear the cellar.",
  "lore": "Rats again.",
  "objectives": [{"type": "kill", "target": "rat", "amount": 0}],
  "rewards": {"gold": 40, "experience": 30, "items": ["potion"]}
}` + "\n```"

	q, err := quest.ParseGeneratedQuest(reply, "merchant")
	require.NoError(t, err)
	assert.Equal(t, "The Rat Problem", q.Name)
	assert.Equal(t, "merchant", q.GiverNPC)
	require.Len(t, q.Objectives, 1)
	assert.Equal(t, 1, q.Objectives[0].Amount, "amounts below 1 clamp up")
	assert.Equal(t, 40, q.Rewards.Gold)

	_, err = quest.ParseGeneratedQuest("not json at all", "merchant")
	assert.Error(t, err)

	_, err = quest.ParseGeneratedQuest(`{"name": "No Objectives"}`, "merchant")
	assert.Error(t, err, "quests without objectives are rejected")
}
