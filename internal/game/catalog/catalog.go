package catalog

import (
	"strings"

	"github.com/cory-johannsen/dungeonmud/internal/game/player"
)

// Catalog is the loaded, immutable entity catalog. Lookups are safe for
// concurrent use because nothing mutates the maps after Load.
type Catalog struct {
	monsters map[string]*MonsterTemplate
	items    map[string]*ItemTemplate
	npcs     map[string]*NPCTemplate
	spells   map[string]*SpellTemplate
	quests   map[string]*QuestTemplate
	classes  map[string]*Class
	races    map[string]*Race
	genders  map[string]*Gender
}

// Monster returns the monster template with the given ID.
func (c *Catalog) Monster(id string) (*MonsterTemplate, bool) {
	m, ok := c.monsters[id]
	return m, ok
}

// Item returns the item template with the given ID.
func (c *Catalog) Item(id string) (*ItemTemplate, bool) {
	i, ok := c.items[id]
	return i, ok
}

// NPC returns the NPC template with the given ID.
func (c *Catalog) NPC(id string) (*NPCTemplate, bool) {
	n, ok := c.npcs[id]
	return n, ok
}

// Spell returns the spell template with the given ID.
func (c *Catalog) Spell(id string) (*SpellTemplate, bool) {
	s, ok := c.spells[id]
	return s, ok
}

// Quest returns the static quest template with the given ID.
func (c *Catalog) Quest(id string) (*QuestTemplate, bool) {
	q, ok := c.quests[id]
	return q, ok
}

// Class returns the class with the given ID.
func (c *Catalog) Class(id string) (*Class, bool) {
	cl, ok := c.classes[id]
	return cl, ok
}

// Race returns the race with the given ID.
func (c *Catalog) Race(id string) (*Race, bool) {
	r, ok := c.races[id]
	return r, ok
}

// Gender returns the gender with the given ID.
func (c *Catalog) Gender(id string) (*Gender, bool) {
	g, ok := c.genders[id]
	return g, ok
}

// Classes returns all classes in stable (ID-sorted) order.
func (c *Catalog) Classes() []*Class { return sortedValues(c.classes, func(v *Class) string { return v.ID }) }

// Races returns all races in stable (ID-sorted) order.
func (c *Catalog) Races() []*Race { return sortedValues(c.races, func(v *Race) string { return v.ID }) }

// RacesForClass returns the races compatible with the given class, in stable order.
func (c *Catalog) RacesForClass(classID string) []*Race {
	cl, ok := c.classes[classID]
	if !ok {
		return nil
	}
	var out []*Race
	for _, r := range c.Races() {
		if cl.Compatible(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// Genders returns all genders in stable (ID-sorted) order.
func (c *Catalog) Genders() []*Gender {
	return sortedValues(c.genders, func(v *Gender) string { return v.ID })
}

// Monsters returns all monster templates in stable (ID-sorted) order.
func (c *Catalog) Monsters() []*MonsterTemplate {
	return sortedValues(c.monsters, func(v *MonsterTemplate) string { return v.ID })
}

// Items returns all item templates in stable (ID-sorted) order.
func (c *Catalog) Items() []*ItemTemplate {
	return sortedValues(c.items, func(v *ItemTemplate) string { return v.ID })
}

// NPCs returns all NPC templates in stable (ID-sorted) order.
func (c *Catalog) NPCs() []*NPCTemplate {
	return sortedValues(c.npcs, func(v *NPCTemplate) string { return v.ID })
}

// Quests returns all static quest templates in stable (ID-sorted) order.
func (c *Catalog) Quests() []*QuestTemplate {
	return sortedValues(c.quests, func(v *QuestTemplate) string { return v.ID })
}

// SpellsForClass returns the spells learnable by the given class, in stable order.
func (c *Catalog) SpellsForClass(classID string) []*SpellTemplate {
	var out []*SpellTemplate
	for _, s := range sortedValues(c.spells, func(v *SpellTemplate) string { return v.ID }) {
		if s.LearnableBy(classID) {
			out = append(out, s)
		}
	}
	return out
}

// ItemStats implements player.StatLookup, resolving equipment bonuses and
// consumable effects for the player model.
func (c *Catalog) ItemStats(itemID string) (player.ItemStats, bool) {
	item, ok := c.items[itemID]
	if !ok {
		return player.ItemStats{}, false
	}
	return player.ItemStats{
		Attack:         item.Stats.Attack,
		Defense:        item.Stats.Defense,
		RestoreHP:      item.Stats.RestoreHP,
		RestoreStamina: item.Stats.RestoreStamina,
	}, true
}

// Candidate pairs an entity ID with its display name for fuzzy matching.
type Candidate struct {
	ID   string
	Name string
}

// BestMatch resolves user input against candidate names: exact ID, then
// exact name, then the longest case-insensitive substring hit. Longest match
// wins so "dire wolf" beats "wolf" for input "dire wolf pup".
//
// Postcondition: returns ("", false) when nothing matches.
func BestMatch(input string, candidates []Candidate) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return "", false
	}

	for _, c := range candidates {
		if strings.ToLower(c.ID) == needle {
			return c.ID, true
		}
	}
	for _, c := range candidates {
		if strings.ToLower(c.Name) == needle {
			return c.ID, true
		}
	}

	bestID := ""
	bestLen := 0
	for _, c := range candidates {
		name := strings.ToLower(c.Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			if len(c.Name) > bestLen {
				bestID = c.ID
				bestLen = len(c.Name)
			}
		}
	}
	return bestID, bestID != ""
}
