// Package player defines the mutable player state owned by a session and the
// progression rules applied to it.
package player

import (
	"errors"
	"time"
)

// EquipSlotWeapon and EquipSlotArmor are the two equipment slots.
const (
	EquipSlotWeapon = "weapon"
	EquipSlotArmor  = "armor"
)

// MaxEquippedSpells is the cap on simultaneously equipped spells.
const MaxEquippedSpells = 3

// LocalChannel is the implicit chat channel every player is subscribed to.
const LocalChannel = "local"

// GlobalChannel is the opt-in world-wide chat channel used by yell.
const GlobalChannel = "global"

// ErrSpellSlotsFull is returned when equipping a fourth spell.
var ErrSpellSlotsFull = errors.New("spell slots full")

// ErrSpellUnknown is returned when equipping or improving a spell the player
// has not learned.
var ErrSpellUnknown = errors.New("spell not known")

// ErrItemNotCarried is returned when acting on an item that is not in the
// player's inventory.
var ErrItemNotCarried = errors.New("item not in inventory")

// ItemStats are the combat-relevant numbers an equipped or consumed item
// contributes. The catalog resolves item IDs to these.
type ItemStats struct {
	Attack         int
	Defense        int
	RestoreHP      int
	RestoreStamina int
}

// StatLookup resolves an item ID to its stats. Implemented by the entity
// catalog; accepted as an interface so the model does not depend on content
// loading.
type StatLookup interface {
	ItemStats(itemID string) (ItemStats, bool)
}

// Player is the full mutable state of one connected player. It is owned
// exclusively by the player's session goroutine; other goroutines may only
// read it through directory snapshots.
type Player struct {
	Name    string
	WorldID string
	RoomID  string

	Class  string
	Race   string
	Gender string

	MaxHP          int
	CurrentHP      int
	MaxStamina     int
	CurrentStamina int
	Level          int
	Experience     int
	Attack         int
	Defense        int
	Gold           int
	UnspentPoints  int

	// Inventory is a multiset: the same item ID may appear multiple times.
	Inventory []string
	// Equipment maps slot name to an item ID that must also be in Inventory.
	Equipment map[string]string

	ActiveQuests    []string
	QuestProgress   map[string]map[string]int
	CompletedQuests []string

	// KnownSpells maps spell ID to the player's level in that spell.
	KnownSpells    map[string]int
	EquippedSpells []string
	ActivePerks    []string
	SpellCooldowns map[string]time.Time

	AFK        bool
	AFKMessage string
	Channels   map[string]bool
}

// New creates a level-1 player with default vitals at the given location.
//
// Postcondition: all maps and slices are non-nil and the local chat channel
// is subscribed.
func New(name, worldID, roomID string) *Player {
	return &Player{
		Name:            name,
		WorldID:         worldID,
		RoomID:          roomID,
		MaxHP:           100,
		CurrentHP:       100,
		MaxStamina:      100,
		CurrentStamina:  100,
		Level:           1,
		Attack:          10,
		Defense:         5,
		Inventory:       []string{},
		Equipment:       map[string]string{},
		ActiveQuests:    []string{},
		QuestProgress:   map[string]map[string]int{},
		CompletedQuests: []string{},
		KnownSpells:     map[string]int{},
		EquippedSpells:  []string{},
		ActivePerks:     []string{},
		SpellCooldowns:  map[string]time.Time{},
		Channels:        map[string]bool{LocalChannel: true},
	}
}

// IsAlive reports whether the player has hit points remaining.
func (p *Player) IsAlive() bool {
	return p.CurrentHP > 0
}

// TakeDamage applies incoming damage reduced by the given defense value and
// returns the damage actually dealt.
//
// Postcondition: at least 1 damage is dealt; CurrentHP never drops below 0.
func (p *Player) TakeDamage(damage, defense int) int {
	actual := damage - defense
	if actual < 1 {
		actual = 1
	}
	p.CurrentHP -= actual
	if p.CurrentHP < 0 {
		p.CurrentHP = 0
	}
	return actual
}

// Heal restores hit points, capped at MaxHP.
func (p *Player) Heal(amount int) {
	p.CurrentHP += amount
	if p.CurrentHP > p.MaxHP {
		p.CurrentHP = p.MaxHP
	}
}

// UseStamina spends stamina if available and reports whether the spend
// succeeded. On false, no state changes.
func (p *Player) UseStamina(amount int) bool {
	if p.CurrentStamina < amount {
		return false
	}
	p.CurrentStamina -= amount
	return true
}

// RestoreStamina adds stamina, capped at MaxStamina.
func (p *Player) RestoreStamina(amount int) {
	p.CurrentStamina += amount
	if p.CurrentStamina > p.MaxStamina {
		p.CurrentStamina = p.MaxStamina
	}
}

// AddItem appends an item to the inventory multiset.
func (p *Player) AddItem(itemID string) {
	p.Inventory = append(p.Inventory, itemID)
}

// RemoveItem removes one occurrence of itemID from the inventory. If the
// removed occurrence was the last one and the item is equipped, the slot is
// cleared as well, preserving the equipped-implies-carried invariant.
//
// Postcondition: returns ErrItemNotCarried and mutates nothing if the item
// is absent.
func (p *Player) RemoveItem(itemID string) error {
	for i, id := range p.Inventory {
		if id != itemID {
			continue
		}
		p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
		if p.CountItem(itemID) == 0 {
			for slot, equipped := range p.Equipment {
				if equipped == itemID {
					delete(p.Equipment, slot)
				}
			}
		}
		return nil
	}
	return ErrItemNotCarried
}

// CountItem returns the number of occurrences of itemID in the inventory.
func (p *Player) CountItem(itemID string) int {
	n := 0
	for _, id := range p.Inventory {
		if id == itemID {
			n++
		}
	}
	return n
}

// HasItem reports whether at least one occurrence of itemID is carried.
func (p *Player) HasItem(itemID string) bool {
	return p.CountItem(itemID) > 0
}

// EquipItem places a carried item into the given slot, replacing whatever
// was there. The replaced item stays in the inventory.
func (p *Player) EquipItem(slot, itemID string) error {
	if !p.HasItem(itemID) {
		return ErrItemNotCarried
	}
	p.Equipment[slot] = itemID
	return nil
}

// UnequipSlot clears the given slot and returns the item ID that occupied
// it, or "" if the slot was empty.
func (p *Player) UnequipSlot(slot string) string {
	id := p.Equipment[slot]
	delete(p.Equipment, slot)
	return id
}

// IsEquipped reports whether itemID currently occupies any slot.
func (p *Player) IsEquipped(itemID string) bool {
	for _, id := range p.Equipment {
		if id == itemID {
			return true
		}
	}
	return false
}

// TotalAttack returns base attack plus equipment bonuses resolved through
// the catalog. A nil lookup yields the base value.
func (p *Player) TotalAttack(items StatLookup) int {
	total := p.Attack
	if items == nil {
		return total
	}
	for _, id := range p.Equipment {
		if stats, ok := items.ItemStats(id); ok {
			total += stats.Attack
		}
	}
	return total
}

// TotalDefense returns base defense plus equipment bonuses resolved through
// the catalog. A nil lookup yields the base value.
func (p *Player) TotalDefense(items StatLookup) int {
	total := p.Defense
	if items == nil {
		return total
	}
	for _, id := range p.Equipment {
		if stats, ok := items.ItemStats(id); ok {
			total += stats.Defense
		}
	}
	return total
}

// EquipSpell adds a known spell to the equipped list.
//
// Postcondition: no-op if already equipped; ErrSpellUnknown if not learned;
// ErrSpellSlotsFull if three spells are already equipped.
func (p *Player) EquipSpell(spellID string) error {
	if _, known := p.KnownSpells[spellID]; !known {
		return ErrSpellUnknown
	}
	for _, id := range p.EquippedSpells {
		if id == spellID {
			return nil
		}
	}
	if len(p.EquippedSpells) >= MaxEquippedSpells {
		return ErrSpellSlotsFull
	}
	p.EquippedSpells = append(p.EquippedSpells, spellID)
	return nil
}

// UnequipSpell removes a spell from the equipped list. Unknown or unequipped
// spells are a no-op.
func (p *Player) UnequipSpell(spellID string) {
	for i, id := range p.EquippedSpells {
		if id == spellID {
			p.EquippedSpells = append(p.EquippedSpells[:i], p.EquippedSpells[i+1:]...)
			return
		}
	}
}

// SpellReady reports whether the spell's cooldown has expired at time now.
func (p *Player) SpellReady(spellID string, now time.Time) bool {
	expiry, ok := p.SpellCooldowns[spellID]
	if !ok {
		return true
	}
	return !now.Before(expiry)
}

// StartCooldown records a cooldown expiry for the spell.
func (p *Player) StartCooldown(spellID string, until time.Time) {
	p.SpellCooldowns[spellID] = until
}

// Subscribed reports whether the player listens on the given channel. The
// local channel is always active regardless of the subscription map.
func (p *Player) Subscribed(channel string) bool {
	if channel == LocalChannel {
		return true
	}
	return p.Channels[channel]
}
