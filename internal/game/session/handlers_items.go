package session

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// itemName resolves an item ID to its display name, falling back to the ID.
func (s *session) itemName(itemID string) string {
	if tmpl, ok := s.h.deps.Catalog.Item(itemID); ok {
		return tmpl.Name
	}
	return itemID
}

// matchInventoryItem matches a token against carried items by ID and
// display name.
func (s *session) matchInventoryItem(token string) (string, bool) {
	seen := make(map[string]bool)
	var candidates []catalog.Candidate
	for _, id := range s.plr.Inventory {
		if seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, catalog.Candidate{ID: id, Name: s.itemName(id)})
	}
	return catalog.BestMatch(token, candidates)
}

// handleGet picks an item up from the floor.
func (s *session) handleGet(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: get <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	_, floorItems := s.h.deps.Rooms.Snapshot(p.WorldID, p.RoomID)
	var candidates []catalog.Candidate
	for _, id := range floorItems {
		candidates = append(candidates, catalog.Candidate{ID: id, Name: s.itemName(id)})
	}
	itemID, ok := catalog.BestMatch(token, candidates)
	if !ok {
		s.writef(telnet.Yellow, "There is no %s here.", token)
		return
	}
	if _, err := s.h.deps.Rooms.TakeItem(p.WorldID, p.RoomID, itemID); err != nil {
		s.writef(telnet.Yellow, "The %s is already gone.", s.itemName(itemID))
		return
	}

	p.AddItem(itemID)
	s.writef(telnet.Green, "You pick up the %s.", s.itemName(itemID))
	s.h.deps.Directory.BroadcastRoom(p.WorldID, p.RoomID,
		telnet.Colorf(telnet.Dim, "%s picks up %s.", p.Name, s.itemName(itemID)), p.Name)

	for _, line := range s.h.deps.Quests.RecordCollect(p, itemID) {
		s.writeLine(telnet.Colorize(telnet.BrightGreen, line))
	}
	s.save(ctx)
}

// handleDrop places a carried item on the floor.
func (s *session) handleDrop(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: drop <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	itemID, ok := s.matchInventoryItem(token)
	if !ok {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	if err := p.RemoveItem(itemID); err != nil {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	s.h.deps.Rooms.DropItem(p.WorldID, p.RoomID, itemID)

	s.writef(telnet.Green, "You drop the %s.", s.itemName(itemID))
	s.h.deps.Directory.BroadcastRoom(p.WorldID, p.RoomID,
		telnet.Colorf(telnet.Dim, "%s drops %s.", p.Name, s.itemName(itemID)), p.Name)
	s.save(ctx)
}

// handleInventory renders the inventory with optional search term and page
// number: inventory [search] [page].
func (s *session) handleInventory(args []string) {
	p := s.plr
	search := ""
	page := 1

	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil && n >= 1 {
			page = n
			continue
		}
		search = strings.ToLower(arg)
	}

	// Collapse the multiset into (id, count) lines sorted by name.
	counts := make(map[string]int)
	for _, id := range p.Inventory {
		counts[id]++
	}
	type entry struct {
		id    string
		name  string
		count int
	}
	var entries []entry
	for id, n := range counts {
		name := s.itemName(id)
		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		entries = append(entries, entry{id: id, name: name, count: n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	if len(entries) == 0 {
		if search != "" {
			s.writef(telnet.Yellow, "Nothing matching %q in your pack.", search)
		} else {
			s.writeLine(telnet.Colorize(telnet.Yellow, "Your pack is empty."))
		}
		return
	}

	pageSize := s.h.deps.Options.InventoryPageSize
	totalPages := (len(entries) + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	startIdx := (page - 1) * pageSize
	endIdx := startIdx + pageSize
	if endIdx > len(entries) {
		endIdx = len(entries)
	}

	s.writef(telnet.BrightWhite, "Inventory (%d gold) — page %d/%d", p.Gold, page, totalPages)
	for _, e := range entries[startIdx:endIdx] {
		marker := ""
		if p.IsEquipped(e.id) {
			marker = telnet.Colorize(telnet.Green, " [equipped]")
		}
		if e.count > 1 {
			s.writef(telnet.Cyan, "  %s x%d%s", e.name, e.count, marker)
		} else {
			s.writef(telnet.Cyan, "  %s%s", e.name, marker)
		}
	}
	if totalPages > 1 {
		s.writef(telnet.Dim, "Use 'inventory %d' for the next page.", page+1)
	}
}

// handleUse consumes a consumable item outside combat.
func (s *session) handleUse(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: use <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	itemID, ok := s.matchInventoryItem(token)
	if !ok {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	tmpl, ok := s.h.deps.Catalog.Item(itemID)
	if !ok || tmpl.Type != catalog.ItemTypeConsumable {
		s.writef(telnet.Yellow, "You cannot use the %s.", s.itemName(itemID))
		return
	}

	if err := p.RemoveItem(itemID); err != nil {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	if tmpl.Stats.RestoreHP > 0 {
		p.Heal(tmpl.Stats.RestoreHP)
	}
	if tmpl.Stats.RestoreStamina > 0 {
		p.RestoreStamina(tmpl.Stats.RestoreStamina)
	}
	s.writef(telnet.Green, "You use the %s. (%d/%d hp, %d/%d stamina)",
		tmpl.Name, p.CurrentHP, p.MaxHP, p.CurrentStamina, p.MaxStamina)
	s.save(ctx)
}

// handleEquip places a weapon or armor into its slot.
func (s *session) handleEquip(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: equip <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	itemID, ok := s.matchInventoryItem(token)
	if !ok {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	tmpl, ok := s.h.deps.Catalog.Item(itemID)
	if !ok {
		s.writef(telnet.Yellow, "You cannot equip the %s.", s.itemName(itemID))
		return
	}

	var slot string
	switch tmpl.Type {
	case catalog.ItemTypeWeapon:
		slot = player.EquipSlotWeapon
	case catalog.ItemTypeArmor:
		slot = player.EquipSlotArmor
	default:
		s.writef(telnet.Yellow, "The %s is not something you can wield or wear.", tmpl.Name)
		return
	}

	replaced := p.Equipment[slot]
	if err := p.EquipItem(slot, itemID); err != nil {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	if replaced != "" && replaced != itemID {
		s.writef(telnet.Dim, "You put away the %s.", s.itemName(replaced))
	}
	s.writef(telnet.Green, "You equip the %s.", tmpl.Name)
	s.save(ctx)
}

// handleUnequip clears an equipment slot.
func (s *session) handleUnequip(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: unequip <weapon|armor>"))
		return
	}
	slot := strings.ToLower(args[0])
	if slot != player.EquipSlotWeapon && slot != player.EquipSlotArmor {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: unequip <weapon|armor>"))
		return
	}
	itemID := s.plr.UnequipSlot(slot)
	if itemID == "" {
		s.writef(telnet.Yellow, "Nothing is equipped in the %s slot.", slot)
		return
	}
	s.writef(telnet.Green, "You unequip the %s.", s.itemName(itemID))
	s.save(ctx)
}

// handleEquipment shows both slots with their stat contributions.
func (s *session) handleEquipment() {
	p := s.plr
	s.writeLine(telnet.Colorize(telnet.BrightWhite, "Equipment:"))
	for _, slot := range []string{player.EquipSlotWeapon, player.EquipSlotArmor} {
		itemID := p.Equipment[slot]
		if itemID == "" {
			s.writef(telnet.Dim, "  %-7s (empty)", slot)
			continue
		}
		line := "  " + slot + ":"
		if stats, ok := s.h.deps.Catalog.ItemStats(itemID); ok {
			s.writef(telnet.Cyan, "%-10s %s (+%d atk, +%d def)", line, s.itemName(itemID), stats.Attack, stats.Defense)
		} else {
			s.writef(telnet.Cyan, "%-10s %s", line, s.itemName(itemID))
		}
	}
	s.writef(telnet.Green, "Total attack %d, total defense %d.",
		p.TotalAttack(s.h.deps.Catalog), p.TotalDefense(s.h.deps.Catalog))
}

// describeItem renders an item template's details.
func (s *session) describeItem(tmpl *catalog.ItemTemplate) {
	s.writef(telnet.BrightWhite, "%s (%s)", tmpl.Name, tmpl.Type)
	if tmpl.Description != "" {
		s.writeLine(tmpl.Description)
	}
	st := tmpl.Stats
	if st.Attack != 0 || st.Defense != 0 {
		s.writef(telnet.Cyan, "Attack +%d, defense +%d.", st.Attack, st.Defense)
	}
	if st.RestoreHP != 0 || st.RestoreStamina != 0 {
		s.writef(telnet.Cyan, "Restores %d hp, %d stamina.", st.RestoreHP, st.RestoreStamina)
	}
	if tmpl.Value > 0 {
		s.writef(telnet.Yellow, "Worth around %d gold.", tmpl.Value)
	}
}
