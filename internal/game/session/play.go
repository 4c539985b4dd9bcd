package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/command"
	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// saveTimeout bounds the final persistence flush after the session context
// is already gone.
const saveTimeout = 5 * time.Second

// play runs the command loop until quit, idle timeout, disconnect, or
// server shutdown.
//
// Postcondition: The player is unregistered from the directory and ticker,
// and the final state flush has been attempted, regardless of how the loop
// ended.
func (s *session) play(ctx context.Context) error {
	h := s.h
	opts := h.deps.Options
	p := s.plr

	// A room removed from content since the last save strands the player;
	// fall back to the hub.
	if _, ok := h.deps.Worlds.Room(p.WorldID, p.RoomID); !ok {
		p.WorldID = opts.HubWorldID
		p.RoomID = opts.HubRoomID
	}

	outbox, err := h.deps.Directory.Register(directory.Presence{
		Name:       p.Name,
		Level:      p.Level,
		Class:      p.Class,
		Race:       p.Race,
		WorldID:    p.WorldID,
		RoomID:     p.RoomID,
		AFK:        p.AFK,
		AFKMessage: p.AFKMessage,
	}, opts.OutboxSize)
	if err != nil {
		if errors.Is(err, directory.ErrNameOnline) {
			s.writeLine(telnet.Colorize(telnet.Red, "That character is already playing."))
			return nil
		}
		return fmt.Errorf("registering session: %w", err)
	}
	s.outbox = outbox
	s.offered = make(map[string]*catalog.QuestTemplate)

	for ch, on := range p.Channels {
		if on && ch != player.LocalChannel {
			_ = h.deps.Directory.Subscribe(p.Name, ch, true)
		}
	}

	// Deferred in reverse order: the cleanup below closes the outbox via
	// Unregister, which lets the forwarding goroutine finish before Wait.
	var wg sync.WaitGroup
	defer wg.Wait()

	defer func() {
		if h.deps.Ticker != nil {
			h.deps.Ticker.Unregister(p.Name)
		}
		s.mu.Lock()
		roomWorld, roomID := p.WorldID, p.RoomID
		s.mu.Unlock()
		_ = h.deps.Directory.Unregister(p.Name)
		h.deps.Directory.BroadcastRoom(roomWorld, roomID,
			telnet.Colorf(telnet.Dim, "%s fades from the world.", p.Name), p.Name)

		flushCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := h.deps.Players.Save(flushCtx, p); err != nil {
			h.deps.Logger.Warn("final save", zap.String("character", p.Name), zap.Error(err))
		}
		h.deps.Logger.Info("session ended", zap.String("character", p.Name))
	}()

	// Forward broadcast lines from other sessions to this connection and
	// re-display the prompt after each one.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for line := range outbox.Lines() {
			_ = s.conn.WriteLine(line)
			_ = s.conn.WritePrompt(s.prompt())
		}
	}()

	if h.deps.Ticker != nil {
		h.deps.Ticker.Register(p.Name, func(steps int) {
			s.mu.Lock()
			s.plr.RestoreStamina(steps)
			s.mu.Unlock()
		})
	}

	s.conn.SetReadTimeout(opts.IdleTimeout)

	if w, ok := h.deps.Worlds.World(p.WorldID); ok {
		s.writef(telnet.BrightYellow, "— %s —", w.Name)
		if w.Lore != "" {
			s.writeLine(telnet.Colorize(telnet.Dim, w.Lore))
		}
	}
	s.mu.Lock()
	s.announceArrival(ctx)
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			s.writeLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return nil
		default:
		}

		if err := s.conn.WritePrompt(s.prompt()); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := s.conn.ReadLine()
		if err != nil {
			if isTimeout(err) {
				s.writeLine(telnet.Colorize(telnet.Yellow, "You drift off. Disconnecting idle session."))
				return nil
			}
			// Disconnects are routine, not errors.
			h.deps.Logger.Debug("connection closed", zap.String("character", p.Name), zap.Error(err))
			return nil
		}

		in := command.Parse(line)
		if in.Command == "" {
			continue
		}

		s.mu.Lock()
		quit := s.dispatch(ctx, in)
		s.mu.Unlock()
		if quit {
			return nil
		}
	}
}

// prompt renders the live prompt with current vitals.
func (s *session) prompt() string {
	s.mu.Lock()
	name := s.plr.Name
	hp, maxHP := s.plr.CurrentHP, s.plr.MaxHP
	inCombat := s.enc != nil
	s.mu.Unlock()

	color := telnet.BrightCyan
	if inCombat {
		color = telnet.BrightRed
	}
	return telnet.Colorf(color, "[%s %d/%dhp]> ", name, hp, maxHP)
}

// dispatch routes one parsed line. Caller holds s.mu.
//
// Postcondition: Returns true when the session should end.
func (s *session) dispatch(ctx context.Context, in command.ParseResult) bool {
	if s.enc != nil {
		return s.dispatchInCombat(ctx, in)
	}

	cmd, ok := s.h.reg.Resolve(in.Command)
	if !ok {
		s.fallback(ctx, in)
		return false
	}

	switch cmd.Handler {
	case command.HandlerMove:
		s.handleMove(ctx, cmd.Name)
	case command.HandlerEnter:
		s.handleEnter(ctx, in.Args)
	case command.HandlerExit:
		s.handleExitDungeon(ctx)
	case command.HandlerLobby:
		s.handleLobby(ctx)
	case command.HandlerLook:
		s.look(ctx)
	case command.HandlerExits:
		s.handleExits()
	case command.HandlerInspect:
		s.handleInspect(ctx, in.Args)
	case command.HandlerMap:
		s.handleMap()
	case command.HandlerAttack:
		s.handleAttack(ctx, in.Args)
	case command.HandlerGet:
		s.handleGet(ctx, in.Args)
	case command.HandlerDrop:
		s.handleDrop(ctx, in.Args)
	case command.HandlerInventory:
		s.handleInventory(in.Args)
	case command.HandlerUse:
		s.handleUse(ctx, in.Args)
	case command.HandlerEquip:
		s.handleEquip(ctx, in.Args)
	case command.HandlerUnequip:
		s.handleUnequip(ctx, in.Args)
	case command.HandlerEquipment:
		s.handleEquipment()
	case command.HandlerSpells:
		s.handleSpells()
	case command.HandlerPrepare:
		s.handlePrepare(ctx, in.Args)
	case command.HandlerUnprepare:
		s.handleUnprepare(ctx, in.Args)
	case command.HandlerCast:
		s.handleCast(ctx, in.Args)
	case command.HandlerLearn:
		s.handleLearn(ctx, in.Args)
	case command.HandlerPoints:
		s.handlePoints(ctx, in.Args)
	case command.HandlerTalk:
		s.handleTalk(ctx, in.Args)
	case command.HandlerShop:
		s.handleShop(in.Args)
	case command.HandlerBuy:
		s.handleBuy(ctx, in.Args)
	case command.HandlerSell:
		s.handleSell(ctx, in.Args)
	case command.HandlerQuests:
		s.handleQuests()
	case command.HandlerAccept:
		s.handleAccept(ctx, in.Args)
	case command.HandlerComplete:
		s.handleComplete(ctx, in.Args)
	case command.HandlerCancel:
		s.handleCancelQuest(ctx, in.Args)
	case command.HandlerSay:
		s.handleSay(in.RawArgs)
	case command.HandlerYell:
		s.handleYell(in.RawArgs)
	case command.HandlerTell:
		s.handleTell(in.Args, in.RawArgs)
	case command.HandlerEmote:
		s.handleEmote(in.RawArgs)
	case command.HandlerChannels:
		s.handleChannels()
	case command.HandlerJoin:
		s.handleJoin(ctx, in.Args)
	case command.HandlerLeave:
		s.handleLeave(ctx, in.Args)
	case command.HandlerWho:
		s.handleWho()
	case command.HandlerScore:
		s.handleScore()
	case command.HandlerAFK:
		s.handleAFK(in.RawArgs)
	case command.HandlerHelp:
		s.handleHelp()
	case command.HandlerQuit:
		s.writeLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
		return true
	default:
		s.writef(telnet.Red, "Unknown command: %s", in.Command)
	}
	return false
}

// dispatchInCombat restricts input to numbered menu choices and quit while
// an encounter is live. Anything else re-renders the menu.
func (s *session) dispatchInCombat(ctx context.Context, in command.ParseResult) bool {
	if n, err := strconv.Atoi(in.Command); err == nil && len(in.Args) == 0 {
		s.resolveCombat(ctx, n)
		return false
	}
	switch in.Command {
	case "quit", "logout":
		s.writeLine(telnet.Colorize(telnet.Cyan, "You flee the world mid-battle. Goodbye!"))
		return true
	}
	s.writef(telnet.Yellow, "You are fighting %s! Choose an action by number.", s.enc.MonsterName)
	s.renderMenu()
	return false
}

// fallback resolves tokens that are not registered commands: named exits
// first, then dungeon entry commands.
func (s *session) fallback(ctx context.Context, in command.ParseResult) {
	rm, ok := s.currentRoom()
	if ok {
		for _, e := range rm.Exits {
			if string(e.Direction) == in.Command {
				s.handleMove(ctx, in.Command)
				return
			}
		}
		if _, found := s.h.deps.Worlds.DungeonByEntry(rm.WorldID, rm.ID, in.Command); found {
			s.enterDungeonByToken(ctx, in.Command)
			return
		}
	}
	s.writef(telnet.Red, "Unknown command: %s. Type 'help' for available commands.", in.Command)
}

// currentRoom resolves the player's room from the topology.
func (s *session) currentRoom() (*world.Room, bool) {
	return s.h.deps.Worlds.Room(s.plr.WorldID, s.plr.RoomID)
}

// announceArrival broadcasts login to the starting room and renders it.
func (s *session) announceArrival(ctx context.Context) {
	p := s.plr
	s.h.deps.Directory.BroadcastRoom(p.WorldID, p.RoomID,
		telnet.Colorf(telnet.Dim, "%s appears in a shimmer of light.", p.Name), p.Name)
	s.look(ctx)
	s.runEnterHook()
	s.checkAggression(ctx)
}

// runEnterHook fires the Lua on_enter hook for the current room.
func (s *session) runEnterHook() {
	if s.h.deps.Scripts == nil {
		return
	}
	if flavor := s.h.deps.Scripts.OnRoomEnter(s.plr.WorldID, s.plr.RoomID, s.plr.Name); flavor != "" {
		s.writeLine(telnet.Colorize(telnet.Magenta, flavor))
	}
}
