package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// catalogFile is the top-level YAML structure of a catalog content file.
// A directory may split content across several files; maps are merged with
// duplicate IDs rejected.
type catalogFile struct {
	Monsters []*MonsterTemplate `yaml:"monsters"`
	Items    []*ItemTemplate    `yaml:"items"`
	NPCs     []*NPCTemplate     `yaml:"npcs"`
	Spells   []*SpellTemplate   `yaml:"spells"`
	Quests   []*QuestTemplate   `yaml:"quests"`
	Classes  []*Class           `yaml:"classes"`
	Races    []*Race            `yaml:"races"`
	Genders  []*Gender          `yaml:"genders"`
}

// LoadFromBytes parses one catalog YAML document into a Catalog.
//
// Precondition: data must be valid YAML conforming to the catalog schema.
// Postcondition: every template has passed its Validate; duplicate IDs are
// rejected.
func LoadFromBytes(data []byte) (*Catalog, error) {
	c := newEmpty()
	if err := c.mergeBytes(data); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromDir loads and merges every *.yaml file in dir.
//
// Postcondition: returns a validated Catalog or the first error encountered.
func LoadFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}

	c := newEmpty()
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", name, err)
		}
		if err := c.mergeBytes(data); err != nil {
			return nil, fmt.Errorf("loading %q: %w", name, err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no catalog files found in %s", dir)
	}
	return c, nil
}

func newEmpty() *Catalog {
	return &Catalog{
		monsters: map[string]*MonsterTemplate{},
		items:    map[string]*ItemTemplate{},
		npcs:     map[string]*NPCTemplate{},
		spells:   map[string]*SpellTemplate{},
		quests:   map[string]*QuestTemplate{},
		classes:  map[string]*Class{},
		races:    map[string]*Race{},
		genders:  map[string]*Gender{},
	}
}

func (c *Catalog) mergeBytes(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing catalog YAML: %w", err)
	}

	for _, m := range file.Monsters {
		if err := m.Validate(); err != nil {
			return err
		}
		if err := insert(c.monsters, m.ID, m, "monster"); err != nil {
			return err
		}
	}
	for _, i := range file.Items {
		if err := i.Validate(); err != nil {
			return err
		}
		if err := insert(c.items, i.ID, i, "item"); err != nil {
			return err
		}
	}
	for _, n := range file.NPCs {
		if err := n.Validate(); err != nil {
			return err
		}
		if err := insert(c.npcs, n.ID, n, "npc"); err != nil {
			return err
		}
	}
	for _, s := range file.Spells {
		if err := s.Validate(); err != nil {
			return err
		}
		if err := insert(c.spells, s.ID, s, "spell"); err != nil {
			return err
		}
	}
	for _, q := range file.Quests {
		if err := q.Validate(); err != nil {
			return err
		}
		if err := insert(c.quests, q.ID, q, "quest"); err != nil {
			return err
		}
	}
	for _, cl := range file.Classes {
		if cl.ID == "" {
			return fmt.Errorf("class: id must not be empty")
		}
		if err := insert(c.classes, cl.ID, cl, "class"); err != nil {
			return err
		}
	}
	for _, r := range file.Races {
		if r.ID == "" {
			return fmt.Errorf("race: id must not be empty")
		}
		if err := insert(c.races, r.ID, r, "race"); err != nil {
			return err
		}
	}
	for _, g := range file.Genders {
		if g.ID == "" {
			return fmt.Errorf("gender: id must not be empty")
		}
		if err := insert(c.genders, g.ID, g, "gender"); err != nil {
			return err
		}
	}
	return nil
}

func insert[T any](m map[string]T, id string, v T, kind string) error {
	if _, exists := m[id]; exists {
		return fmt.Errorf("duplicate %s ID %q", kind, id)
	}
	m[id] = v
	return nil
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}
