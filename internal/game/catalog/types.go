// Package catalog provides the read-only entity catalog: monster, item, NPC,
// spell, and quest templates, plus the class/race/gender matrix used during
// character setup. All content is loaded from YAML at startup and immutable
// afterwards.
package catalog

import "fmt"

// MonsterTemplate is a reusable monster archetype. Runtime instances copy
// and scale these numbers; the template itself is never mutated.
type MonsterTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxHP       int    `yaml:"max_hp"`
	Attack      int    `yaml:"attack"`
	Defense     int    `yaml:"defense"`
	// LevelMin and LevelMax bound the level rolled at spawn time.
	LevelMin  int `yaml:"level_min"`
	LevelMax  int `yaml:"level_max"`
	DamageMin int `yaml:"damage_min"`
	DamageMax int `yaml:"damage_max"`
	// Experience is the base XP award; ExperiencePerLevel is added per level
	// rolled above LevelMin.
	Experience         int      `yaml:"experience"`
	ExperiencePerLevel int      `yaml:"experience_per_level"`
	Loot               []string `yaml:"loot"`
	LootChance         float64  `yaml:"loot_chance"`
	GoldMin            int      `yaml:"gold_min"`
	GoldMax            int      `yaml:"gold_max"`
	// Resistances reduce incoming elemental damage (0.5 = half damage);
	// Weaknesses multiply it (1.5 = 50% extra).
	Resistances map[string]float64 `yaml:"resistances"`
	Weaknesses  map[string]float64 `yaml:"weaknesses"`
	// Aggressive monsters attack players entering their room unprovoked.
	// Passive monsters never initiate combat.
	Aggressive bool `yaml:"aggressive"`
	Passive    bool `yaml:"passive"`
}

// Validate checks template invariants.
//
// Postcondition: Returns nil if valid, or an error naming the first violation.
func (m *MonsterTemplate) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", m.ID)
	}
	if m.MaxHP < 1 {
		return fmt.Errorf("monster template %q: max_hp must be >= 1", m.ID)
	}
	if m.LevelMin < 1 {
		return fmt.Errorf("monster template %q: level_min must be >= 1", m.ID)
	}
	if m.LevelMax < m.LevelMin {
		return fmt.Errorf("monster template %q: level_max %d below level_min %d", m.ID, m.LevelMax, m.LevelMin)
	}
	if m.DamageMax < m.DamageMin {
		return fmt.Errorf("monster template %q: damage_max %d below damage_min %d", m.ID, m.DamageMax, m.DamageMin)
	}
	if m.LootChance < 0 || m.LootChance > 1 {
		return fmt.Errorf("monster template %q: loot_chance must be within [0,1], got %g", m.ID, m.LootChance)
	}
	if m.GoldMax < m.GoldMin {
		return fmt.Errorf("monster template %q: gold_max %d below gold_min %d", m.ID, m.GoldMax, m.GoldMin)
	}
	return nil
}

// ItemStats are the numeric effects an item carries.
type ItemStats struct {
	Attack         int `yaml:"attack"`
	Defense        int `yaml:"defense"`
	RestoreHP      int `yaml:"restore_hp"`
	RestoreStamina int `yaml:"restore_stamina"`
}

// Item kinds.
const (
	ItemTypeWeapon     = "weapon"
	ItemTypeArmor      = "armor"
	ItemTypeConsumable = "consumable"
	ItemTypeMisc       = "misc"
)

// ItemTemplate describes an item definition.
type ItemTemplate struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Type        string    `yaml:"type"`
	Stats       ItemStats `yaml:"stats"`
	Value       int       `yaml:"value"`
	Rarity      string    `yaml:"rarity"`
}

// Validate checks item invariants.
func (i *ItemTemplate) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item template: id must not be empty")
	}
	if i.Name == "" {
		return fmt.Errorf("item template %q: name must not be empty", i.ID)
	}
	switch i.Type {
	case ItemTypeWeapon, ItemTypeArmor, ItemTypeConsumable, ItemTypeMisc:
	default:
		return fmt.Errorf("item template %q: unknown type %q", i.ID, i.Type)
	}
	if i.Value < 0 {
		return fmt.Errorf("item template %q: value must be >= 0", i.ID)
	}
	return nil
}

// ShopEntry is one item an NPC sells.
type ShopEntry struct {
	ItemID string `yaml:"item"`
	Price  int    `yaml:"price"`
}

// NPCTemplate describes a non-player character: dialogue, shop stock, and
// the quests it can hand out.
type NPCTemplate struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Dialogue    []string    `yaml:"dialogue"`
	Quests      []string    `yaml:"quests"`
	ShopItems   []ShopEntry `yaml:"shop_items"`
	Lore        string      `yaml:"lore"`
}

// Validate checks NPC invariants.
func (n *NPCTemplate) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if n.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", n.ID)
	}
	for _, entry := range n.ShopItems {
		if entry.ItemID == "" {
			return fmt.Errorf("npc template %q: shop entry with empty item", n.ID)
		}
		if entry.Price < 0 {
			return fmt.Errorf("npc template %q: shop item %q has negative price", n.ID, entry.ItemID)
		}
	}
	return nil
}

// SpellTemplate describes a castable spell.
type SpellTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// DamageType is the elemental type checked against monster resistances
	// and weaknesses ("fire", "ice", "lightning", ...).
	DamageType string `yaml:"damage_type"`
	BaseDamage int    `yaml:"base_damage"`
	// DamageMultiplier scales the caster's attack into the damage total
	// (0.8 = 80% of attack added on top of BaseDamage).
	DamageMultiplier float64 `yaml:"damage_multiplier"`
	// Healing spells restore the caster instead of damaging the target;
	// BaseDamage is then the amount healed.
	Healing     bool `yaml:"healing"`
	StaminaCost int  `yaml:"stamina_cost"`
	// CooldownSeconds is the per-cast cooldown.
	CooldownSeconds int `yaml:"cooldown_seconds"`
	// Classes lists the class IDs that may learn this spell. Empty = any.
	Classes []string `yaml:"classes"`
	// LevelRequired is the minimum player level to learn the spell.
	LevelRequired int `yaml:"level_required"`
}

// Validate checks spell invariants.
func (s *SpellTemplate) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spell template: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("spell template %q: name must not be empty", s.ID)
	}
	if s.BaseDamage < 0 {
		return fmt.Errorf("spell template %q: base_damage must be >= 0", s.ID)
	}
	if s.StaminaCost < 0 {
		return fmt.Errorf("spell template %q: stamina_cost must be >= 0", s.ID)
	}
	return nil
}

// LearnableBy reports whether the given class may learn this spell.
func (s *SpellTemplate) LearnableBy(classID string) bool {
	if len(s.Classes) == 0 {
		return true
	}
	for _, c := range s.Classes {
		if c == classID {
			return true
		}
	}
	return false
}

// QuestObjective is one requirement of a quest. Type is "kill", "collect",
// or "sacrifice_ability"; Target is the monster/item/spell ID; Amount is the
// required count.
type QuestObjective struct {
	Type   string `yaml:"type"`
	Target string `yaml:"target"`
	Amount int    `yaml:"amount"`
}

// ProgressKey returns the per-player progress counter key for this
// objective, formatted as "type_target".
func (o QuestObjective) ProgressKey() string {
	return o.Type + "_" + o.Target
}

// QuestRewards is the reward bundle granted on completion.
type QuestRewards struct {
	Gold       int      `yaml:"gold"`
	Experience int      `yaml:"experience"`
	Items      []string `yaml:"items"`
}

// QuestTemplate describes a quest: static content-authored quests are loaded
// from YAML, generated quests are built at runtime and persisted.
type QuestTemplate struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Lore        string           `yaml:"lore"`
	Objectives  []QuestObjective `yaml:"objectives"`
	Rewards     QuestRewards     `yaml:"rewards"`
	GiverNPC    string           `yaml:"giver_npc"`
}

// Validate checks quest invariants.
func (q *QuestTemplate) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quest template: id must not be empty")
	}
	if q.Name == "" {
		return fmt.Errorf("quest template %q: name must not be empty", q.ID)
	}
	if len(q.Objectives) == 0 {
		return fmt.Errorf("quest template %q: must have at least one objective", q.ID)
	}
	for _, obj := range q.Objectives {
		switch obj.Type {
		case "kill", "collect", "sacrifice_ability":
		default:
			return fmt.Errorf("quest template %q: unknown objective type %q", q.ID, obj.Type)
		}
		if obj.Target == "" {
			return fmt.Errorf("quest template %q: objective with empty target", q.ID)
		}
		if obj.Amount < 1 {
			return fmt.Errorf("quest template %q: objective amount must be >= 1", q.ID)
		}
	}
	return nil
}

// Class is a playable class. Races lists the race IDs compatible with it.
type Class struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Races       []string `yaml:"races"`
}

// Compatible reports whether the race may be combined with this class.
func (c Class) Compatible(raceID string) bool {
	for _, r := range c.Races {
		if r == raceID {
			return true
		}
	}
	return false
}

// Race is a playable race.
type Race struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Gender is a selectable gender presentation.
type Gender struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}
