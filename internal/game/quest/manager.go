// Package quest tracks quest acceptance, objective progress, and
// completion, including the ability-sacrifice flow some quests demand.
package quest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
)

// Quest errors.
var (
	ErrAlreadyActive     = errors.New("quest: already accepted")
	ErrAlreadyCompleted  = errors.New("quest: already completed")
	ErrNotActive         = errors.New("quest: not accepted")
	ErrObjectivesPending = errors.New("quest: objectives not yet met")
	// ErrSacrificeRequired is returned by Complete when a sacrifice
	// objective is unmet; the caller should list candidates and retry with
	// an ability name.
	ErrSacrificeRequired = errors.New("quest: sacrifice required")
	ErrNothingToGive     = errors.New("quest: no ability available to sacrifice")
	ErrAbilityNotFound   = errors.New("quest: ability not found or protected")
)

// Objective target types for sacrifice objectives.
const (
	SacrificeAny   = "any"
	SacrificeSpell = "spell"
	SacrificePerk  = "perk"
)

// Manager resolves quests and mutates a player's quest bookkeeping. Static
// quests come from the immutable catalog; generated quests are registered
// at runtime and shadow nothing.
type Manager struct {
	catalog *catalog.Catalog

	mu        sync.RWMutex
	generated map[string]*catalog.QuestTemplate
}

// NewManager constructs a quest manager over the content catalog.
func NewManager(cat *catalog.Catalog) *Manager {
	return &Manager{
		catalog:   cat,
		generated: make(map[string]*catalog.QuestTemplate),
	}
}

// AddGenerated registers a runtime-generated quest so progress tracking and
// completion can resolve it like any catalog quest.
func (m *Manager) AddGenerated(q *catalog.QuestTemplate) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated[q.ID] = q
	return nil
}

// Quest resolves a quest by ID, checking generated quests first.
func (m *Manager) Quest(id string) (*catalog.QuestTemplate, bool) {
	m.mu.RLock()
	q, ok := m.generated[id]
	m.mu.RUnlock()
	if ok {
		return q, true
	}
	return m.catalog.Quest(id)
}

// Accept adds a quest to the player's active list.
func (m *Manager) Accept(p *player.Player, quest *catalog.QuestTemplate) error {
	for _, id := range p.CompletedQuests {
		if id == quest.ID {
			return ErrAlreadyCompleted
		}
	}
	for _, id := range p.ActiveQuests {
		if id == quest.ID {
			return ErrAlreadyActive
		}
	}
	p.ActiveQuests = append(p.ActiveQuests, quest.ID)
	if p.QuestProgress == nil {
		p.QuestProgress = make(map[string]map[string]int)
	}
	p.QuestProgress[quest.ID] = make(map[string]int)
	return nil
}

// Active reports whether the quest is on the player's active list.
func (m *Manager) Active(p *player.Player, questID string) bool {
	for _, id := range p.ActiveQuests {
		if id == questID {
			return true
		}
	}
	return false
}

// RecordKill advances every active quest with a kill objective for the
// slain monster template. Returns one progress line per advanced quest.
func (m *Manager) RecordKill(p *player.Player, templateID string) []string {
	return m.record(p, "kill", templateID)
}

// RecordCollect advances every active quest with a collect objective for
// the picked-up item.
func (m *Manager) RecordCollect(p *player.Player, itemID string) []string {
	return m.record(p, "collect", itemID)
}

func (m *Manager) record(p *player.Player, objType, target string) []string {
	var lines []string
	for _, questID := range p.ActiveQuests {
		quest, ok := m.Quest(questID)
		if !ok {
			continue
		}
		for _, obj := range quest.Objectives {
			if obj.Type != objType || obj.Target != target {
				continue
			}
			progress := p.QuestProgress[questID]
			if progress == nil {
				progress = make(map[string]int)
				p.QuestProgress[questID] = progress
			}
			key := obj.ProgressKey()
			if progress[key] >= obj.Amount {
				continue
			}
			progress[key]++
			lines = append(lines, fmt.Sprintf("[%s] %s: %d/%d", quest.Name, objectiveLabel(obj), progress[key], obj.Amount))
			if m.IsComplete(p, quest) {
				lines = append(lines, fmt.Sprintf("[%s] All objectives met! Return to the quest giver.", quest.Name))
			}
		}
	}
	return lines
}

// IsComplete reports whether every objective of an active quest is met.
// Sacrifice objectives count only once performed.
func (m *Manager) IsComplete(p *player.Player, quest *catalog.QuestTemplate) bool {
	progress := p.QuestProgress[quest.ID]
	for _, obj := range quest.Objectives {
		if progress[obj.ProgressKey()] < obj.Amount {
			return false
		}
	}
	return true
}

// Status returns one "objective: n/m" line per objective, for journal
// display.
func (m *Manager) Status(p *player.Player, quest *catalog.QuestTemplate) []string {
	progress := p.QuestProgress[quest.ID]
	lines := make([]string, 0, len(quest.Objectives))
	for _, obj := range quest.Objectives {
		count := progress[obj.ProgressKey()]
		if count > obj.Amount {
			count = obj.Amount
		}
		lines = append(lines, fmt.Sprintf("%s: %d/%d", objectiveLabel(obj), count, obj.Amount))
	}
	return lines
}

func objectiveLabel(obj catalog.QuestObjective) string {
	switch obj.Type {
	case "kill":
		return "slay " + obj.Target
	case "collect":
		return "collect " + obj.Target
	case "sacrifice_ability":
		return "sacrifice an ability"
	default:
		return obj.Type + " " + obj.Target
	}
}

// Candidate is an ability eligible for sacrifice.
type Candidate struct {
	Kind string // "spell" or "perk"
	ID   string
	Name string
}

// SacrificeCandidates lists the abilities the player may give up for the
// objective target. Equipped spells are protected; everything else known is
// fair game.
func (m *Manager) SacrificeCandidates(p *player.Player, target string) []Candidate {
	var out []Candidate
	if target == SacrificeAny || target == SacrificePerk {
		for _, perkID := range p.ActivePerks {
			name := perkID
			out = append(out, Candidate{Kind: "perk", ID: perkID, Name: name})
		}
	}
	if target == SacrificeAny || target == SacrificeSpell {
		ids := make([]string, 0, len(p.KnownSpells))
		for spellID := range p.KnownSpells {
			ids = append(ids, spellID)
		}
		sort.Strings(ids)
		for _, spellID := range ids {
			if equipped(p, spellID) {
				continue
			}
			name := spellID
			if tmpl, ok := m.catalog.Spell(spellID); ok {
				name = tmpl.Name
			}
			out = append(out, Candidate{Kind: "spell", ID: spellID, Name: name})
		}
	}
	return out
}

func equipped(p *player.Player, spellID string) bool {
	for _, id := range p.EquippedSpells {
		if id == spellID {
			return true
		}
	}
	return false
}

// Sacrifice gives up the named ability for the quest's sacrifice objective
// and marks the objective's progress. The name matches candidates by
// case-insensitive substring.
func (m *Manager) Sacrifice(p *player.Player, quest *catalog.QuestTemplate, abilityName string) (Candidate, error) {
	if !m.Active(p, quest.ID) {
		return Candidate{}, ErrNotActive
	}
	var obj *catalog.QuestObjective
	for i := range quest.Objectives {
		o := &quest.Objectives[i]
		if o.Type != "sacrifice_ability" {
			continue
		}
		if p.QuestProgress[quest.ID][o.ProgressKey()] >= o.Amount {
			continue
		}
		obj = o
		break
	}
	if obj == nil {
		return Candidate{}, ErrObjectivesPending
	}

	candidates := m.SacrificeCandidates(p, obj.Target)
	if len(candidates) == 0 {
		return Candidate{}, ErrNothingToGive
	}

	needle := strings.ToLower(strings.TrimSpace(abilityName))
	var chosen *Candidate
	for i := range candidates {
		if strings.Contains(strings.ToLower(candidates[i].Name), needle) {
			chosen = &candidates[i]
			break
		}
	}
	if needle == "" || chosen == nil {
		return Candidate{}, ErrAbilityNotFound
	}

	switch chosen.Kind {
	case "perk":
		p.ActivePerks = removeString(p.ActivePerks, chosen.ID)
	case "spell":
		delete(p.KnownSpells, chosen.ID)
		p.UnequipSpell(chosen.ID)
	}
	progress := p.QuestProgress[quest.ID]
	if progress == nil {
		progress = make(map[string]int)
		p.QuestProgress[quest.ID] = progress
	}
	progress[obj.ProgressKey()]++
	return *chosen, nil
}

// Cancel abandons an active quest, discarding its progress. Completed
// quests cannot be cancelled.
func (m *Manager) Cancel(p *player.Player, questID string) error {
	if !m.Active(p, questID) {
		return ErrNotActive
	}
	p.ActiveQuests = removeString(p.ActiveQuests, questID)
	delete(p.QuestProgress, questID)
	return nil
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// NeedsSacrifice reports whether the quest still has an unmet sacrifice
// objective.
func (m *Manager) NeedsSacrifice(p *player.Player, quest *catalog.QuestTemplate) bool {
	for _, obj := range quest.Objectives {
		if obj.Type == "sacrifice_ability" && p.QuestProgress[quest.ID][obj.ProgressKey()] < obj.Amount {
			return true
		}
	}
	return false
}

// Complete finishes an active quest: objectives must all be met. Rewards
// are applied to the player and returned for narration.
//
// Postcondition: The quest moves from active to completed and its progress
// is cleared.
func (m *Manager) Complete(p *player.Player, quest *catalog.QuestTemplate) (catalog.QuestRewards, []int, error) {
	if !m.Active(p, quest.ID) {
		return catalog.QuestRewards{}, nil, ErrNotActive
	}
	if m.NeedsSacrifice(p, quest) {
		return catalog.QuestRewards{}, nil, ErrSacrificeRequired
	}
	if !m.IsComplete(p, quest) {
		return catalog.QuestRewards{}, nil, ErrObjectivesPending
	}

	rewards := quest.Rewards
	p.Gold += rewards.Gold
	levels := p.GainExperience(rewards.Experience)
	for _, itemID := range rewards.Items {
		p.AddItem(itemID)
	}

	p.ActiveQuests = removeString(p.ActiveQuests, quest.ID)
	p.CompletedQuests = append(p.CompletedQuests, quest.ID)
	delete(p.QuestProgress, quest.ID)
	return rewards, levels, nil
}
