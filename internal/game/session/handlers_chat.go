package session

import (
	"context"
	"strings"

	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// handleSay speaks to the room.
func (s *session) handleSay(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		s.writeLine(telnet.Colorize(telnet.Red, "Say what?"))
		return
	}
	p := s.plr
	s.h.deps.Directory.BroadcastRoom(p.WorldID, p.RoomID,
		telnet.Colorf(telnet.BrightWhite, "%s says: %s", p.Name, message), p.Name)
	s.writef(telnet.BrightWhite, "You say: %s", message)
}

// handleYell broadcasts on the global channel, which the player must have
// joined.
func (s *session) handleYell(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		s.writeLine(telnet.Colorize(telnet.Red, "Yell what?"))
		return
	}
	p := s.plr
	if !p.Subscribed(player.GlobalChannel) {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You must 'join global' before yelling."))
		return
	}
	s.h.deps.Directory.BroadcastChannel(player.GlobalChannel,
		telnet.Colorf(telnet.BrightYellow, "[global] %s yells: %s", p.Name, message), p.Name)
	s.writef(telnet.BrightYellow, "[global] You yell: %s", message)
}

// handleTell sends a private message to another connected player.
func (s *session) handleTell(args []string, raw string) {
	if len(args) < 2 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: tell <player> <message>"))
		return
	}
	target := args[0]
	message := strings.TrimSpace(strings.TrimPrefix(raw, target))

	pr, ok := s.h.deps.Directory.Lookup(target)
	if !ok {
		s.writef(telnet.Yellow, "%s is not here.", target)
		return
	}
	if err := s.h.deps.Directory.Deliver(pr.Name,
		telnet.Colorf(telnet.Magenta, "%s tells you: %s", s.plr.Name, message)); err != nil {
		s.writef(telnet.Yellow, "%s is not here.", target)
		return
	}
	s.writef(telnet.Magenta, "You tell %s: %s", pr.Name, message)
	if pr.AFK {
		msg := pr.AFKMessage
		if msg == "" {
			msg = "away"
		}
		s.writef(telnet.Yellow, "%s is AFK: %s", pr.Name, msg)
	}
}

// handleEmote performs a free-form action visible to the room.
func (s *session) handleEmote(action string) {
	action = strings.TrimSpace(action)
	if action == "" {
		s.writeLine(telnet.Colorize(telnet.Red, "Emote what?"))
		return
	}
	p := s.plr
	line := telnet.Colorf(telnet.Cyan, "%s %s", p.Name, action)
	s.h.deps.Directory.BroadcastRoom(p.WorldID, p.RoomID, line, p.Name)
	s.writeLine(line)
}

// handleChannels lists the chat channels and the player's subscriptions.
func (s *session) handleChannels() {
	p := s.plr
	s.writeLine(telnet.Colorize(telnet.BrightWhite, "Channels:"))
	s.writeLine(telnet.Colorize(telnet.Cyan, "  local  — always active; room messages"))
	status := "not joined"
	if p.Subscribed(player.GlobalChannel) {
		status = "joined"
	}
	s.writef(telnet.Cyan, "  global — all players everywhere (%s)", status)
}

// handleJoin subscribes to a chat channel. Only the global channel exists.
func (s *session) handleJoin(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: join <channel>"))
		return
	}
	ch := strings.ToLower(args[0])
	if ch != player.GlobalChannel {
		s.writef(telnet.Yellow, "There is no channel called %s.", ch)
		return
	}
	p := s.plr
	if p.Subscribed(ch) {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You are already on the global channel."))
		return
	}
	p.Channels[ch] = true
	_ = s.h.deps.Directory.Subscribe(p.Name, ch, true)
	s.writeLine(telnet.Colorize(telnet.Green, "You join the global channel."))
	s.save(ctx)
}

// handleLeave unsubscribes from a chat channel. Local cannot be left.
func (s *session) handleLeave(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: leave <channel>"))
		return
	}
	ch := strings.ToLower(args[0])
	if ch == player.LocalChannel {
		s.writeLine(telnet.Colorize(telnet.Yellow, "The local channel cannot be left."))
		return
	}
	if ch != player.GlobalChannel {
		s.writef(telnet.Yellow, "There is no channel called %s.", ch)
		return
	}
	p := s.plr
	if !p.Subscribed(ch) {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You are not on the global channel."))
		return
	}
	delete(p.Channels, ch)
	_ = s.h.deps.Directory.Subscribe(p.Name, ch, false)
	s.writeLine(telnet.Colorize(telnet.Green, "You leave the global channel."))
	s.save(ctx)
}

// handleWho lists every connected player.
func (s *session) handleWho() {
	presences := s.h.deps.Directory.Who()
	s.writef(telnet.BrightWhite, "Connected players (%d):", len(presences))
	for _, pr := range presences {
		line := telnet.Colorf(telnet.Cyan, "  %-16s level %d %s %s", pr.Name, pr.Level, pr.Race, pr.Class)
		if pr.AFK {
			line += telnet.Colorize(telnet.Yellow, " [AFK]")
		}
		s.writeLine(line)
	}
}

// handleAFK toggles away-from-keyboard, with an optional message.
func (s *session) handleAFK(message string) {
	p := s.plr
	message = strings.TrimSpace(message)

	if p.AFK && message == "" {
		p.AFK = false
		p.AFKMessage = ""
		s.writeLine(telnet.Colorize(telnet.Green, "You are back."))
	} else {
		p.AFK = true
		p.AFKMessage = message
		if message != "" {
			s.writef(telnet.Yellow, "You are now AFK: %s", message)
		} else {
			s.writeLine(telnet.Colorize(telnet.Yellow, "You are now AFK."))
		}
	}
	s.syncPresence()
}
