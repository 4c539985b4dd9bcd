package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
)

const combatCatalogYAML = `
monsters:
  - id: goblin
    name: Goblin
    max_hp: 30
    attack: 5
    defense: 2
    level_min: 1
    level_max: 1
    damage_min: 2
    damage_max: 4
    experience: 25
    loot: [rusty_dagger]
    loot_chance: 1.0
    gold_min: 1
    gold_max: 5
    resistances:
      fire: 0.5
    aggressive: true
items:
  - id: rusty_dagger
    name: Rusty Dagger
    type: weapon
    stats:
      attack: 2
  - id: potion
    name: Healing Potion
    type: consumable
    stats:
      restore_hp: 25
  - id: tonic
    name: Stamina Tonic
    type: consumable
    stats:
      restore_stamina: 30
  - id: pebble
    name: Pebble
    type: misc
spells:
  - id: fireball
    name: Fireball
    damage_type: fire
    base_damage: 15
    damage_multiplier: 0.8
    stamina_cost: 20
    cooldown_seconds: 30
  - id: minor_heal
    name: Minor Heal
    damage_type: heal
    healing: true
    base_damage: 20
    stamina_cost: 15
    cooldown_seconds: 5
`

type lowSource struct{}

func (lowSource) Intn(int) int { return 0 }

type highSource struct{}

func (highSource) Intn(n int) int { return n - 1 }

type nullRespawnStore struct{}

func (s *nullRespawnStore) RegisterMonsterDeath(context.Context, string, string, string, int, time.Duration) error {
	return nil
}

func (s *nullRespawnStore) RoomRespawns(context.Context, string, string) (map[string]room.RespawnStatus, error) {
	return nil, nil
}

func (s *nullRespawnStore) CleanupExpired(context.Context) (int, error) { return 0, nil }

type fixture struct {
	cat   *catalog.Catalog
	reg   *room.Registry
	coord *combat.Coordinator
	rm    *world.Room
	hero  *player.Player
}

func newFixture(t *testing.T, src interface{ Intn(int) int }, spawnCount int) *fixture {
	t.Helper()
	cat, err := catalog.LoadFromBytes([]byte(combatCatalogYAML))
	require.NoError(t, err)

	reg := room.NewRegistry(cat, &nullRespawnStore{}, src, zap.NewNop())
	rm := &world.Room{
		ID:      "cave",
		WorldID: "default",
		Title:   "Goblin Cave",
		Spawns:  []world.SpawnConfig{{Template: "goblin", Count: spawnCount, LevelMin: 1, LevelMax: 1}},
	}
	require.NoError(t, reg.Populate(context.Background(), rm))

	hero := player.New("hero", "default", "cave")
	now := func() time.Time { return time.Unix(1000, 0) }
	return &fixture{
		cat:   cat,
		reg:   reg,
		coord: combat.NewCoordinator(reg, cat, src, now, zap.NewNop()),
		rm:    rm,
		hero:  hero,
	}
}

func TestFailChance(t *testing.T) {
	assert.InDelta(t, 0.13, combat.FailChance(1), 1e-9)
	assert.InDelta(t, 0.09, combat.FailChance(3), 1e-9)
	assert.InDelta(t, 0.05, combat.FailChance(5), 1e-9)
	assert.InDelta(t, 0.05, combat.FailChance(10), 1e-9, "never below the floor")
}

func TestSpellCost(t *testing.T) {
	cat, err := catalog.LoadFromBytes([]byte(combatCatalogYAML))
	require.NoError(t, err)
	fireball, _ := cat.Spell("fireball")

	assert.Equal(t, 20, combat.SpellCost(fireball, 1))
	assert.Equal(t, 22, combat.SpellCost(fireball, 3))
	assert.Equal(t, 24, combat.SpellCost(fireball, 5))
}

func TestSpellPower(t *testing.T) {
	cat, err := catalog.LoadFromBytes([]byte(combatCatalogYAML))
	require.NoError(t, err)
	fireball, _ := cat.Spell("fireball")

	// Base 15 plus 80% of 10 attack at level 1/1.
	assert.Equal(t, 23, combat.SpellPower(fireball, 1, 1, 10))
	// Spell level 3 adds 2 * 10% of base; player level 3 adds 10% overall.
	leveled := (15.0 + 3.0 + 8.0) * 1.1
	assert.Equal(t, int(leveled), combat.SpellPower(fireball, 3, 3, 10))
}

func TestBuildMenu_Ordering(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	f.hero.KnownSpells["fireball"] = 1
	require.NoError(t, f.hero.EquipSpell("fireball"))
	f.hero.AddItem("potion")
	f.hero.AddItem("potion")
	f.hero.AddItem("tonic")
	f.hero.AddItem("pebble")

	menu := f.coord.BuildMenu(f.hero)
	require.Len(t, menu, 4)
	assert.Equal(t, combat.OptionAttack, menu[0].Kind)
	assert.Equal(t, combat.OptionSpell, menu[1].Kind)
	assert.Equal(t, "fireball", menu[1].Ref)
	assert.Equal(t, combat.OptionItem, menu[2].Kind)
	assert.Equal(t, "potion", menu[2].Ref, "duplicate consumables collapse to one entry")
	assert.Equal(t, "tonic", menu[3].Ref, "misc items are not usable in combat")
}

func TestBuildMenu_SkipsCoolingAndUnaffordableSpells(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	f.hero.KnownSpells["fireball"] = 1
	f.hero.KnownSpells["minor_heal"] = 1
	require.NoError(t, f.hero.EquipSpell("fireball"))
	require.NoError(t, f.hero.EquipSpell("minor_heal"))

	// Fireball cooling down, and stamina too low for it anyway.
	f.hero.StartCooldown("fireball", time.Unix(2000, 0))
	f.hero.CurrentStamina = 16

	menu := f.coord.BuildMenu(f.hero)
	require.Len(t, menu, 2)
	assert.Equal(t, "minor_heal", menu[1].Ref)
}

func TestBuildMenu_CapsAtNineOptions(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	for i := 0; i < 20; i++ {
		f.hero.AddItem("potion")
		f.hero.AddItem("tonic")
	}
	menu := f.coord.BuildMenu(f.hero)
	assert.LessOrEqual(t, len(menu), combat.MaxMenuOptions)
}

func TestStart_UnknownTarget(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	_, err := f.coord.Start(f.hero, f.rm, "dragon")
	assert.ErrorIs(t, err, combat.ErrNoTarget)
}

func TestResolve_AttackAndCounter(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 1)
	require.NoError(t, err)
	assert.False(t, out.Ended())

	// 10 attack against 2 defense lands 8; the goblin's low roll of 2
	// against 5 defense still lands the minimum 1.
	instances, _ := f.reg.Snapshot(f.rm.WorldID, f.rm.ID)
	require.Len(t, instances, 1)
	assert.Equal(t, 22, instances[0].CurrentHP)
	assert.Equal(t, 99, f.hero.CurrentHP)
	assert.Contains(t, out.Lines[0], "8 damage")
}

func TestResolve_InvalidChoice(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	enc, err := f.coord.Start(f.hero, f.rm, "1")
	require.NoError(t, err)

	_, err = f.coord.Resolve(context.Background(), f.hero, enc, 0)
	assert.ErrorIs(t, err, combat.ErrInvalidChoice)
	_, err = f.coord.Resolve(context.Background(), f.hero, enc, len(enc.Menu)+1)
	assert.ErrorIs(t, err, combat.ErrInvalidChoice)
}

func TestResolve_MonsterDeathRewards(t *testing.T) {
	f := newFixture(t, highSource{}, 1)
	f.hero.Attack = 100
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 1)
	require.NoError(t, err)
	require.True(t, out.MonsterDied)
	assert.Equal(t, "goblin", out.KilledTemplate)
	assert.Equal(t, 25, out.Experience)
	assert.Equal(t, 25, f.hero.Experience)
	assert.Equal(t, 5, out.Gold, "high roll hits the top of the gold range")
	assert.Equal(t, 5, f.hero.Gold)
	assert.Equal(t, "rusty_dagger", out.LootDropped)
	assert.Nil(t, out.Next)

	// Loot lands on the floor, not in the inventory.
	assert.False(t, f.hero.HasItem("rusty_dagger"))
	_, items := f.reg.Snapshot(f.rm.WorldID, f.rm.ID)
	assert.Equal(t, []string{"rusty_dagger"}, items)
}

func TestResolve_AutoChainsNextMonster(t *testing.T) {
	f := newFixture(t, highSource{}, 2)
	f.hero.Attack = 100
	enc, err := f.coord.Start(f.hero, f.rm, "1")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 1)
	require.NoError(t, err)
	require.True(t, out.MonsterDied)
	require.NotNil(t, out.Next)
	assert.Equal(t, 2, out.Next.InstanceID)
	assert.NotEmpty(t, out.Next.Menu)
}

func TestResolve_PlayerDeath(t *testing.T) {
	f := newFixture(t, highSource{}, 1)
	f.hero.CurrentHP = 1
	f.hero.AddItem("potion")
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 1)
	require.NoError(t, err)
	require.True(t, out.PlayerDied)
	assert.False(t, f.hero.IsAlive())

	lost := combat.ApplyDeathPenalty(f.hero, "lobby", highSource{})
	assert.Equal(t, "potion", lost)
	assert.False(t, f.hero.HasItem("potion"))
	assert.Equal(t, "lobby", f.hero.RoomID)
	assert.Equal(t, f.hero.MaxHP, f.hero.CurrentHP)
}

func TestApplyDeathPenalty_EmptyInventory(t *testing.T) {
	hero := player.New("hero", "default", "cave")
	hero.CurrentHP = 0

	lost := combat.ApplyDeathPenalty(hero, "lobby", lowSource{})
	assert.Empty(t, lost)
	assert.Equal(t, "lobby", hero.RoomID)
	assert.Equal(t, hero.MaxHP, hero.CurrentHP)
}

func TestResolve_SpellFailureStillCostsTheCaster(t *testing.T) {
	// The low source forces the fail roll to hit.
	f := newFixture(t, lowSource{}, 1)
	f.hero.KnownSpells["fireball"] = 1
	require.NoError(t, f.hero.EquipSpell("fireball"))
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)
	assert.Contains(t, out.Lines[0], "fails")
	assert.Equal(t, 80, f.hero.CurrentStamina, "failed casts still spend stamina")
	assert.False(t, f.hero.SpellReady("fireball", time.Unix(1000, 0)))

	instances, _ := f.reg.Snapshot(f.rm.WorldID, f.rm.ID)
	assert.Equal(t, 30, instances[0].CurrentHP, "failed casts deal no damage")
}

func TestResolve_SpellHitUsesElementalType(t *testing.T) {
	// The high source never fails the cast.
	f := newFixture(t, highSource{}, 1)
	f.hero.KnownSpells["fireball"] = 1
	require.NoError(t, f.hero.EquipSpell("fireball"))
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)

	// Power 23 halves against fire resistance, then 2 defense: 9 dealt.
	assert.Contains(t, out.Lines[0], "9 damage")
	instances, _ := f.reg.Snapshot(f.rm.WorldID, f.rm.ID)
	assert.Equal(t, 21, instances[0].CurrentHP)
}

func TestResolve_HealingSpell(t *testing.T) {
	f := newFixture(t, highSource{}, 1)
	f.hero.CurrentHP = 50
	f.hero.KnownSpells["minor_heal"] = 1
	require.NoError(t, f.hero.EquipSpell("minor_heal"))
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)
	require.False(t, out.Ended())
	// Heals 20 base with no attack multiplier, then the goblin swings back
	// for the minimum 1.
	assert.Equal(t, 69, f.hero.CurrentHP)
	assert.Equal(t, 85, f.hero.CurrentStamina)
}

func TestResolve_ItemUseCostsTheTurn(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	f.hero.CurrentHP = 50
	f.hero.AddItem("potion")
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)
	require.Len(t, enc.Menu, 2)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)
	assert.False(t, out.Refused)
	// 25 restored, then the goblin's counter lands 1.
	assert.Equal(t, 74, f.hero.CurrentHP)
	assert.False(t, f.hero.HasItem("potion"))

	// The rebuilt menu no longer offers the spent potion.
	assert.Len(t, enc.Menu, 1)
}

func TestResolve_StaleItemChoiceRefused(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	f.hero.AddItem("potion")
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)
	require.Len(t, enc.Menu, 2)

	// The potion vanishes between menu render and choice.
	require.NoError(t, f.hero.RemoveItem("potion"))

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)
	assert.True(t, out.Refused)
	assert.Equal(t, 100, f.hero.CurrentHP, "refused turns skip the monster swing")
	assert.Len(t, enc.Menu, 1)
}

func TestResolve_FullEffectPotionRefusedAtFullHP(t *testing.T) {
	f := newFixture(t, lowSource{}, 1)
	f.hero.AddItem("potion")
	enc, err := f.coord.Start(f.hero, f.rm, "goblin")
	require.NoError(t, err)

	out, err := f.coord.Resolve(context.Background(), f.hero, enc, 2)
	require.NoError(t, err)
	assert.True(t, out.Refused)
	assert.True(t, f.hero.HasItem("potion"), "useless consumption is not charged")
}
