package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// chainPacing is the pause before an auto-chained encounter presents its
// menu, so the kill narration is readable.
const chainPacing = 600 * time.Millisecond

// handleAttack opens an encounter against a monster in the room.
func (s *session) handleAttack(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: attack <number|name>"))
		return
	}
	p := s.plr
	rm, ok := s.currentRoom()
	if !ok {
		s.writeLine(telnet.Colorize(telnet.Red, "You are nowhere."))
		return
	}
	if rm.Safe {
		s.writeLine(telnet.Colorize(telnet.Yellow, "Violence is forbidden here."))
		return
	}

	token := strings.Join(args, " ")
	enc, err := s.h.deps.Combat.Start(p, rm, token)
	if err != nil {
		s.writef(telnet.Yellow, "There is no %s to attack here.", token)
		return
	}
	s.enc = enc

	s.writef(telnet.BrightRed, "You square off against %s!", enc.MonsterName)
	s.h.deps.Directory.BroadcastRoom(rm.WorldID, rm.ID,
		telnet.Colorf(telnet.Dim, "%s attacks %s!", p.Name, enc.MonsterName), p.Name)
	s.renderMenu()
}

// resolveCombat executes a numbered menu choice and narrates the turn.
func (s *session) resolveCombat(ctx context.Context, choice int) {
	p := s.plr
	enc := s.enc

	out, err := s.h.deps.Combat.Resolve(ctx, p, enc, choice)
	if err != nil {
		if errors.Is(err, combat.ErrInvalidChoice) {
			s.writef(telnet.Red, "Pick a number between 1 and %d.", len(enc.Menu))
			s.renderMenu()
			return
		}
		s.writeLine(telnet.Colorize(telnet.Red, "The blow goes wide."))
		s.renderMenu()
		return
	}

	for _, line := range out.Lines {
		s.writeLine(line)
	}
	if out.Refused {
		s.renderMenu()
		return
	}

	for _, lvl := range out.LevelsGained {
		s.writef(telnet.BrightYellow, "You have reached level %d!", lvl)
	}
	if len(out.LevelsGained) > 0 {
		s.syncPresence()
	}

	switch {
	case out.MonsterDied:
		s.afterKill(ctx, out)
	case out.PlayerDied:
		s.die(ctx)
	default:
		s.renderMenu()
	}
}

// afterKill handles quest progress, room narration, persistence, and the
// auto-chained follow-up encounter.
func (s *session) afterKill(ctx context.Context, out *combat.Outcome) {
	p := s.plr
	enc := s.enc
	s.enc = nil

	s.h.deps.Directory.BroadcastRoom(enc.Room.WorldID, enc.Room.ID,
		telnet.Colorf(telnet.Dim, "%s has slain %s!", p.Name, enc.MonsterName), p.Name)

	if out.KilledTemplate != "" {
		for _, line := range s.h.deps.Quests.RecordKill(p, out.KilledTemplate) {
			s.writeLine(telnet.Colorize(telnet.BrightGreen, line))
		}
	}
	s.save(ctx)

	if out.Next != nil {
		time.Sleep(chainPacing)
		s.enc = out.Next
		s.writef(telnet.BrightRed, "%s turns on you!", out.Next.MonsterName)
		s.renderMenu()
	}
}

// syncPresence pushes level and AFK changes to the directory.
func (s *session) syncPresence() {
	p := s.plr
	_ = s.h.deps.Directory.UpdatePresence(p.Name, func(pr *directory.Presence) {
		pr.Level = p.Level
		pr.AFK = p.AFK
		pr.AFKMessage = p.AFKMessage
	})
}
