package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/command"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// look populates the room and renders the full room view: title,
// description, occupants, monsters, floor items, and exits.
func (s *session) look(ctx context.Context) {
	p := s.plr
	rm, ok := s.currentRoom()
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "You are nowhere."))
		return
	}

	if err := s.h.deps.Rooms.Populate(ctx, rm); err != nil {
		s.h.deps.Logger.Warn("populating room",
			zap.String("room", rm.ID), zap.Error(err))
	}
	instances, floorItems := s.h.deps.Rooms.Snapshot(rm.WorldID, rm.ID)

	s.writeLine(telnet.Colorize(telnet.Bold+telnet.BrightWhite, rm.Title))
	if rm.Description != "" {
		s.writeLine(rm.Description)
	}

	for _, npcID := range rm.NPCs {
		if npc, ok := s.h.deps.Catalog.NPC(npcID); ok {
			s.writef(telnet.BrightCyan, "%s is here.", npc.Name)
		}
	}

	others := s.h.deps.Directory.NamesInRoom(rm.WorldID, rm.ID, p.Name)
	if len(others) > 0 {
		s.writef(telnet.Cyan, "Also here: %s.", strings.Join(others, ", "))
	}

	for _, inst := range instances {
		s.writef(telnet.BrightRed, "(%d) %s — %s", inst.ID, inst.Name, inst.HealthDescription())
	}

	for _, itemID := range floorItems {
		s.writef(telnet.Yellow, "A %s lies here.", s.itemName(itemID))
	}

	exits := rm.VisibleExits()
	if len(exits) > 0 {
		names := make([]string, 0, len(exits))
		for _, e := range exits {
			names = append(names, string(e.Direction))
		}
		s.writef(telnet.Green, "Exits: %s", strings.Join(names, ", "))
	} else {
		s.writeLine(telnet.Colorize(telnet.Green, "There are no obvious exits."))
	}
}

// renderMenu shows the encounter's numbered action menu.
func (s *session) renderMenu() {
	enc := s.enc
	if enc == nil {
		return
	}
	p := s.plr
	s.writef(telnet.BrightWhite, "Fighting %s. (%d/%d hp, %d/%d stamina)",
		enc.MonsterName, p.CurrentHP, p.MaxHP, p.CurrentStamina, p.MaxStamina)
	for i, opt := range enc.Menu {
		s.writef(telnet.Cyan, "  %d. %s", i+1, opt.Label)
	}
}

// handleScore renders the character sheet.
func (s *session) handleScore() {
	p := s.plr
	className := p.Class
	if cls, ok := s.h.deps.Catalog.Class(p.Class); ok {
		className = cls.Name
	}
	raceName := p.Race
	if race, ok := s.h.deps.Catalog.Race(p.Race); ok {
		raceName = race.Name
	}

	s.writef(telnet.Bold+telnet.BrightWhite, "%s — level %d %s %s", p.Name, p.Level, raceName, className)
	s.writef(telnet.Cyan, "  HP      %d/%d", p.CurrentHP, p.MaxHP)
	s.writef(telnet.Cyan, "  Stamina %d/%d", p.CurrentStamina, p.MaxStamina)
	s.writef(telnet.Cyan, "  Attack  %d (base %d)", p.TotalAttack(s.h.deps.Catalog), p.Attack)
	s.writef(telnet.Cyan, "  Defense %d (base %d)", p.TotalDefense(s.h.deps.Catalog), p.Defense)
	next := player.ExperienceForLevel(p.Level)
	if p.Level >= player.MaxLevel {
		s.writef(telnet.Cyan, "  XP      %d (level cap reached)", p.Experience)
	} else {
		s.writef(telnet.Cyan, "  XP      %d/%d", p.Experience, next)
	}
	s.writef(telnet.Yellow, "  Gold    %d", p.Gold)
	if p.UnspentPoints > 0 {
		s.writef(telnet.BrightYellow, "  Unspent points: %d", p.UnspentPoints)
	}
	if len(p.ActivePerks) > 0 {
		s.writef(telnet.Cyan, "  Perks   %s", strings.Join(p.ActivePerks, ", "))
	}
}

// handleHelp lists commands grouped by category.
func (s *session) handleHelp() {
	order := []string{
		command.CategoryMovement, command.CategoryWorld, command.CategoryCombat,
		command.CategoryItems, command.CategoryMagic, command.CategoryQuests,
		command.CategoryCommunication, command.CategorySystem,
	}
	byCategory := s.h.reg.CommandsByCategory()

	for _, cat := range order {
		cmds := byCategory[cat]
		if len(cmds) == 0 {
			continue
		}
		title := strings.ToUpper(cat[:1]) + cat[1:]
		s.writeLine(telnet.Colorize(telnet.BrightWhite, title+":"))
		for _, cmd := range cmds {
			name := cmd.Name
			if len(cmd.Aliases) > 0 {
				name = fmt.Sprintf("%s (%s)", cmd.Name, strings.Join(cmd.Aliases, ", "))
			}
			s.writef(telnet.Green, "  %-24s %s", name, cmd.Help)
		}
	}
}
