// Package session implements the per-connection game session: the
// authentication loop, character setup, and the play loop that dispatches
// player commands against the shared game services. One session owns one
// player; all cross-session state lives in the directory and the room
// registry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/command"
	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/quest"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// AccountStore defines the account persistence operations required by the
// session handler.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
	TouchLastSeen(ctx context.Context, accountID int64) error
}

// PlayerStore defines the player persistence operations required by the
// session handler.
type PlayerStore interface {
	Create(ctx context.Context, accountID int64, p *player.Player) (int64, error)
	GetByName(ctx context.Context, name string) (*player.Player, error)
	AccountForName(ctx context.Context, name string) (int64, error)
	ListByAccount(ctx context.Context, accountID int64) ([]postgres.PlayerSummary, error)
	Save(ctx context.Context, p *player.Player) error
}

// GeneratedQuestStore persists runtime-generated quests so they survive a
// restart. May be nil, in which case generated quests live only in memory.
type GeneratedQuestStore interface {
	SaveGenerated(ctx context.Context, q *catalog.QuestTemplate) error
}

// RoomScripts runs the Lua on_enter hook for a room and returns its flavor
// text. May be nil.
type RoomScripts interface {
	OnRoomEnter(worldID, roomID, playerName string) string
}

// Options tune session behavior. Zero values fall back to defaults.
type Options struct {
	// ServerName appears in the welcome banner line.
	ServerName string
	// HubWorldID and HubRoomID locate the room new characters start in and
	// defeated players return to.
	HubWorldID string
	HubRoomID  string
	// AuthTimeout is the per-prompt read deadline before login.
	AuthTimeout time.Duration
	// AuthAttempts is the number of failed logins before disconnect.
	AuthAttempts int
	// SetupTimeout is the per-prompt read deadline during character setup.
	SetupTimeout time.Duration
	// IdleTimeout is the read deadline during play.
	IdleTimeout time.Duration
	// InventoryPageSize is the number of inventory lines per page.
	InventoryPageSize int
	// OutboxSize buffers broadcast lines per session.
	OutboxSize int
}

func (o Options) withDefaults() Options {
	if o.ServerName == "" {
		o.ServerName = "DungeonMUD"
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 30 * time.Second
	}
	if o.AuthAttempts <= 0 {
		o.AuthAttempts = 3
	}
	if o.SetupTimeout <= 0 {
		o.SetupTimeout = 60 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 300 * time.Second
	}
	if o.InventoryPageSize <= 0 {
		o.InventoryPageSize = 8
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	return o
}

// Deps are the shared services a session dispatches against.
type Deps struct {
	Accounts  AccountStore
	Players   PlayerStore
	Catalog   *catalog.Catalog
	Worlds    *world.Manager
	Rooms     *room.Registry
	Combat    *combat.Coordinator
	Quests    *quest.Manager
	QuestGen  quest.Generator
	QuestSink GeneratedQuestStore
	Directory *directory.Directory
	Ticker    *directory.RegenTicker
	Scripts   RoomScripts
	Rand      roll.Source
	Logger    *zap.Logger
	Options   Options
}

// Handler implements telnet.SessionHandler. It is shared by all
// connections; per-connection state lives in the session struct.
type Handler struct {
	deps Deps
	reg  *command.Registry
}

// NewHandler creates a session handler over the shared game services.
//
// Precondition: all Deps except QuestSink and Scripts must be non-nil.
// Postcondition: Returns a Handler ready to be passed to the acceptor.
func NewHandler(deps Deps) (*Handler, error) {
	switch {
	case deps.Accounts == nil:
		return nil, fmt.Errorf("session: account store is required")
	case deps.Players == nil:
		return nil, fmt.Errorf("session: player store is required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("session: catalog is required")
	case deps.Worlds == nil:
		return nil, fmt.Errorf("session: world manager is required")
	case deps.Rooms == nil:
		return nil, fmt.Errorf("session: room registry is required")
	case deps.Combat == nil:
		return nil, fmt.Errorf("session: combat coordinator is required")
	case deps.Quests == nil:
		return nil, fmt.Errorf("session: quest manager is required")
	case deps.Directory == nil:
		return nil, fmt.Errorf("session: directory is required")
	case deps.Rand == nil:
		return nil, fmt.Errorf("session: roll source is required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("session: logger is required")
	}
	deps.Options = deps.Options.withDefaults()
	if _, ok := deps.Worlds.Room(deps.Options.HubWorldID, deps.Options.HubRoomID); !ok {
		return nil, fmt.Errorf("session: hub room %s/%s not found",
			deps.Options.HubWorldID, deps.Options.HubRoomID)
	}
	return &Handler{deps: deps, reg: command.DefaultRegistry()}, nil
}

// HandleSession drives one Telnet connection through authentication,
// character setup, and the play loop. A panic in any handler is recovered
// here and converted into a clean disconnect.
//
// Postcondition: Returns nil on clean quit or idle disconnect, or an error
// if the session ended abnormally.
func (h *Handler) HandleSession(ctx context.Context, conn *telnet.Conn) (err error) {
	addr := conn.RemoteAddr().String()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.deps.Logger.Error("session panic",
				zap.String("remote_addr", addr),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Something went wrong. Disconnecting."))
			err = fmt.Errorf("session panic: %v", r)
		}
	}()

	acct, err := h.authenticate(ctx, conn)
	if err != nil || acct.ID == 0 {
		return err
	}

	plr, err := h.characterSetup(ctx, conn, acct)
	if err != nil || plr == nil {
		return err
	}

	h.deps.Logger.Info("character entering world",
		zap.String("remote_addr", addr),
		zap.String("username", acct.Username),
		zap.String("character", plr.Name),
		zap.Duration("setup_time", time.Since(start)),
	)

	s := &session{h: h, conn: conn, acct: acct, plr: plr}
	return s.play(ctx)
}

// session is the per-connection play-phase state. The embedded mutex guards
// plr: the play loop and the regen ticker callback are the only writers.
type session struct {
	h    *Handler
	conn *telnet.Conn
	acct postgres.Account

	mu  sync.Mutex
	plr *player.Player

	outbox *directory.Outbox
	enc    *combat.Encounter

	// offered holds generated quests presented by talk but not yet
	// accepted, keyed by quest ID.
	offered map[string]*catalog.QuestTemplate
}

// save flushes the full player record. Failures are logged and soft-warned;
// the in-memory state stays authoritative.
func (s *session) save(ctx context.Context) {
	if err := s.h.deps.Players.Save(ctx, s.plr); err != nil {
		s.h.deps.Logger.Warn("saving player",
			zap.String("character", s.plr.Name),
			zap.Error(err),
		)
		_ = s.conn.WriteLine(telnet.Colorize(telnet.Yellow, "(your progress could not be saved)"))
	}
}

func (s *session) writeLine(text string) {
	_ = s.conn.WriteLine(text)
}

func (s *session) writef(color, format string, args ...interface{}) {
	_ = s.conn.WriteLine(telnet.Colorf(color, format, args...))
}
