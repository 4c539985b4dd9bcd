package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// handleMove walks the player through an exit. dirToken is either a
// canonical direction name or a named exit ("stairs").
func (s *session) handleMove(ctx context.Context, dirToken string) {
	p := s.plr
	dir, ok := world.ParseDirection(dirToken)
	if !ok {
		dir = world.Direction(strings.ToLower(dirToken))
	}

	dest, err := s.h.deps.Worlds.Navigate(p.WorldID, p.RoomID, dir)
	if err != nil {
		s.writef(telnet.Yellow, "You cannot go %s.", dirToken)
		return
	}
	s.moveTo(ctx, dest,
		telnet.Colorf(telnet.Dim, "%s leaves %s.", p.Name, dirToken),
		telnet.Colorf(telnet.Dim, "%s arrives.", p.Name))
}

// handleEnter resolves "enter <dungeon>" against the current room's dungeon
// entries.
func (s *session) handleEnter(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: enter <dungeon>"))
		return
	}
	s.enterDungeonByToken(ctx, strings.ToLower(args[0]))
}

func (s *session) enterDungeonByToken(ctx context.Context, token string) {
	p := s.plr
	d, ok := s.h.deps.Worlds.DungeonByEntry(p.WorldID, p.RoomID, token)
	if !ok {
		s.writef(telnet.Yellow, "There is no %s to enter here.", token)
		return
	}
	dest, ok := s.h.deps.Worlds.Room(p.WorldID, d.FirstRoom)
	if !ok {
		s.h.deps.Logger.Error("dungeon first room missing",
			zap.String("dungeon", d.ID), zap.String("room", d.FirstRoom))
		s.writeLine(telnet.Colorize(telnet.Red, "The way is blocked."))
		return
	}
	s.writef(telnet.BrightMagenta, "You descend into %s.", d.Name)
	if d.Description != "" {
		s.writeLine(telnet.Colorize(telnet.Dim, d.Description))
	}
	s.moveTo(ctx, dest,
		telnet.Colorf(telnet.Dim, "%s descends into %s.", p.Name, d.Name),
		telnet.Colorf(telnet.Dim, "%s enters from above.", p.Name))
}

// handleExitDungeon returns to the dungeon's overworld entry room.
func (s *session) handleExitDungeon(ctx context.Context) {
	p := s.plr
	rm, ok := s.currentRoom()
	if !ok || rm.DungeonID == "" {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You are not inside a dungeon."))
		return
	}
	exitRoom, ok := s.h.deps.Worlds.DungeonExitRoom(p.WorldID, p.RoomID)
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You see no way out from here."))
		return
	}
	dest, ok := s.h.deps.Worlds.Room(p.WorldID, exitRoom)
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "The way out is blocked."))
		return
	}
	s.writeLine(telnet.Colorize(telnet.BrightMagenta, "You climb back to the surface."))
	s.moveTo(ctx, dest,
		telnet.Colorf(telnet.Dim, "%s leaves the dungeon.", p.Name),
		telnet.Colorf(telnet.Dim, "%s emerges from below.", p.Name))
}

// handleLobby teleports the player back to the world hub.
func (s *session) handleLobby(ctx context.Context) {
	p := s.plr
	hubID, ok := s.h.deps.Worlds.HubRoom(p.WorldID)
	if !ok {
		hubID = s.h.deps.Options.HubRoomID
	}
	if p.RoomID == hubID {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You are already at the hub."))
		return
	}
	dest, ok := s.h.deps.Worlds.Room(p.WorldID, hubID)
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "The hub is unreachable."))
		return
	}
	s.writeLine(telnet.Colorize(telnet.BrightMagenta, "A warm light carries you back to the hub."))
	s.moveTo(ctx, dest,
		telnet.Colorf(telnet.Dim, "%s vanishes in a flash of light.", p.Name),
		telnet.Colorf(telnet.Dim, "%s appears in a flash of light.", p.Name))
}

// moveTo relocates the player, broadcasts the transition to both rooms,
// renders the destination, and persists the new location.
func (s *session) moveTo(ctx context.Context, dest *world.Room, departLine, arriveLine string) {
	p := s.plr
	d := s.h.deps.Directory

	d.BroadcastRoom(p.WorldID, p.RoomID, departLine, p.Name)
	p.WorldID = dest.WorldID
	p.RoomID = dest.ID
	if _, err := d.Move(p.Name, dest.WorldID, dest.ID); err != nil {
		s.h.deps.Logger.Warn("directory move", zap.String("character", p.Name), zap.Error(err))
	}
	d.BroadcastRoom(dest.WorldID, dest.ID, arriveLine, p.Name)

	s.look(ctx)
	s.runEnterHook()
	s.save(ctx)
	s.checkAggression(ctx)
}

// handleExits lists the visible exits of the current room.
func (s *session) handleExits() {
	rm, ok := s.currentRoom()
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "You are nowhere."))
		return
	}
	exits := rm.VisibleExits()
	if len(exits) == 0 {
		s.writeLine(telnet.Colorize(telnet.Yellow, "There are no obvious exits."))
		return
	}
	names := make([]string, 0, len(exits))
	for _, e := range exits {
		names = append(names, string(e.Direction))
	}
	s.writef(telnet.Green, "Exits: %s", strings.Join(names, ", "))
}

// handleMap shows the current room and its immediate neighbors.
func (s *session) handleMap() {
	rm, ok := s.currentRoom()
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "You are nowhere."))
		return
	}
	s.writef(telnet.BrightWhite, "You are in %s.", rm.Title)
	for _, e := range rm.VisibleExits() {
		if target, ok := s.h.deps.Worlds.Room(rm.WorldID, e.TargetRoom); ok {
			s.writef(telnet.Cyan, "  %-10s %s", string(e.Direction), target.Title)
		}
	}
}

// handleInspect examines, in order of precedence: a monster in the room,
// another player, an NPC in the room, or a carried item.
func (s *session) handleInspect(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: inspect <monster|player|npc|item>"))
		return
	}
	token := strings.Join(args, " ")
	p := s.plr

	if inst, err := s.h.deps.Rooms.FindTarget(p.WorldID, p.RoomID, token); err == nil {
		s.writef(telnet.BrightWhite, "(%d) %s — level %d", inst.ID, inst.Name, inst.Level)
		if tmpl, ok := s.h.deps.Catalog.Monster(inst.TemplateID); ok && tmpl.Description != "" {
			s.writeLine(tmpl.Description)
		}
		s.writef(telnet.Yellow, "It looks %s.", inst.HealthDescription())
		return
	}

	if pr, ok := s.h.deps.Directory.Lookup(token); ok {
		s.writef(telnet.BrightWhite, "%s — level %d %s %s", pr.Name, pr.Level, pr.Race, pr.Class)
		if pr.AFK {
			msg := pr.AFKMessage
			if msg == "" {
				msg = "away"
			}
			s.writef(telnet.Yellow, "%s is AFK: %s", pr.Name, msg)
		}
		return
	}

	if npc, ok := s.findRoomNPC(token); ok {
		s.writef(telnet.BrightWhite, "%s", npc.Name)
		if npc.Description != "" {
			s.writeLine(npc.Description)
		}
		if len(npc.ShopItems) > 0 {
			s.writeLine(telnet.Colorize(telnet.Green, "They look willing to trade. Try 'shop'."))
		}
		if len(npc.Quests) > 0 {
			s.writeLine(telnet.Colorize(telnet.Green, "They look like they need help. Try 'talk'."))
		}
		return
	}

	if itemID, ok := s.matchInventoryItem(token); ok {
		if tmpl, ok := s.h.deps.Catalog.Item(itemID); ok {
			s.describeItem(tmpl)
			return
		}
	}

	s.writef(telnet.Yellow, "You see no %s here.", token)
}

// checkAggression lets a hostile room's monster strike the entering player
// and opens the encounter.
func (s *session) checkAggression(ctx context.Context) {
	rm, ok := s.currentRoom()
	if !ok || rm.Safe || !rm.Aggressive {
		return
	}
	p := s.plr
	inst, ok := s.h.deps.Rooms.AggressorIn(rm.WorldID, rm.ID)
	if !ok {
		return
	}

	s.writef(telnet.BrightRed, "%s lunges at you!", inst.Name)
	dmg, err := s.h.deps.Rooms.CounterAttack(rm.WorldID, rm.ID, inst.ID)
	if err != nil {
		return
	}
	dealt := p.TakeDamage(dmg, p.TotalDefense(s.h.deps.Catalog))
	s.writef(telnet.Red, "%s hits you for %d damage. (%d/%d hp)", inst.Name, dealt, p.CurrentHP, p.MaxHP)

	if !p.IsAlive() {
		s.die(ctx)
		return
	}
	s.enc = s.h.deps.Combat.StartAgainst(p, rm, inst)
	s.renderMenu()
}

// die applies the death penalty, returns the player to the hub, and
// narrates the loss.
func (s *session) die(ctx context.Context) {
	p := s.plr
	deathWorld, deathRoom := p.WorldID, p.RoomID
	s.enc = nil

	hubID, ok := s.h.deps.Worlds.HubRoom(p.WorldID)
	if !ok {
		hubID = s.h.deps.Options.HubRoomID
	}
	lost := combat.ApplyDeathPenalty(p, hubID, s.h.deps.Rand)

	s.h.deps.Directory.BroadcastRoom(deathWorld, deathRoom,
		telnet.Colorf(telnet.Red, "%s collapses and is carried away.", p.Name), p.Name)
	if _, err := s.h.deps.Directory.Move(p.Name, p.WorldID, p.RoomID); err != nil {
		s.h.deps.Logger.Warn("directory move after death", zap.Error(err))
	}

	s.writeLine(telnet.Colorize(telnet.BrightRed, "You have been slain!"))
	if lost != "" {
		name := lost
		if tmpl, ok := s.h.deps.Catalog.Item(lost); ok {
			name = tmpl.Name
		}
		s.writef(telnet.Yellow, "Your %s was lost where you fell.", name)
	}
	s.writeLine(telnet.Colorize(telnet.Yellow, "You awaken at the hub, whole again."))

	s.look(ctx)
	s.save(ctx)
}
